package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/user/termdemo/internal/archive"
	"github.com/user/termdemo/internal/config"
	"github.com/user/termdemo/internal/db"
)

// RunCasts manages the cast archive: list, export, import and delete.
func RunCasts(ctx context.Context, stdio Stdio, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(stdio.Err, "usage: termdemo casts <list|export|import|delete> [flags]")
		return 1
	}

	fs := newFlagSet("casts "+args[0], stdio.Err)
	configPath := fs.String("config", "", "config file (default ~/.config/termdemo/config.yaml)")
	dbPath := fs.String("db", "", "cast database (default from config)")
	title := fs.String("title", "", "list: only casts whose title contains this")
	limit := fs.Int("limit", 20, "list: maximum number of casts")
	out := fs.String("o", "", "export: write to this file instead of stdout")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	path := *dbPath
	if path == "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return fail(stdio.Err, err)
		}
		path = cfg.DBPath
	}
	database, err := db.Open(ctx, path)
	if err != nil {
		return fail(stdio.Err, err)
	}
	defer database.Close()
	repo := db.NewCastRepo(database.SQL())

	switch args[0] {
	case "list", "ls":
		return listCasts(ctx, stdio, repo, db.CastFilter{Title: *title, Limit: *limit})

	case "export":
		if fs.NArg() != 1 {
			return fail(stdio.Err, fmt.Errorf("usage: termdemo casts export [-o file] <id>"))
		}
		return exportCast(ctx, stdio, repo, fs.Arg(0), *out)

	case "import":
		if fs.NArg() != 1 {
			return fail(stdio.Err, fmt.Errorf("usage: termdemo casts import <file.cast>"))
		}
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return fail(stdio.Err, err)
		}
		defer f.Close()
		cast, err := archive.Import(ctx, repo, f, fs.Arg(0))
		if err != nil {
			return fail(stdio.Err, fmt.Errorf("import %s: %w", fs.Arg(0), err))
		}
		fmt.Fprintf(stdio.Out, "imported cast %s (%d events)\n", cast.ID, cast.EventCount)
		return 0

	case "delete", "rm":
		if fs.NArg() == 0 {
			return fail(stdio.Err, fmt.Errorf("usage: termdemo casts delete <id>..."))
		}
		for _, id := range fs.Args() {
			cast, err := repo.Get(ctx, id)
			if err != nil {
				return fail(stdio.Err, err)
			}
			if cast == nil {
				return fail(stdio.Err, fmt.Errorf("%w: %s", archive.ErrNotFound, id))
			}
			if err := repo.Delete(ctx, id); err != nil {
				return fail(stdio.Err, err)
			}
			fmt.Fprintf(stdio.Out, "deleted %s\n", id)
		}
		return 0

	default:
		fmt.Fprintf(stdio.Err, "termdemo casts: unknown subcommand %q\n", args[0])
		return 1
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func listCasts(ctx context.Context, stdio Stdio, repo *db.CastRepo, filter db.CastFilter) int {
	casts, err := repo.List(ctx, filter)
	if err != nil {
		return fail(stdio.Err, err)
	}
	if len(casts) == 0 {
		fmt.Fprintln(stdio.Out, "no casts")
		return 0
	}
	tw := tabwriter.NewWriter(stdio.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSIZE\tDURATION\tEVENTS\tCREATED")
	for _, c := range casts {
		duration := time.Duration(c.Duration * float64(time.Second)).Round(time.Millisecond)
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%s\t%d\t%s\n",
			c.ID, c.Title, c.Width, c.Height, duration, c.EventCount, c.CreatedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return fail(stdio.Err, err)
	}
	return 0
}

func exportCast(ctx context.Context, stdio Stdio, repo *db.CastRepo, id, out string) int {
	if out == "" {
		if err := archive.Export(ctx, repo, id, stdio.Out); err != nil {
			return fail(stdio.Err, err)
		}
		return 0
	}

	f, err := os.Create(out)
	if err != nil {
		return fail(stdio.Err, err)
	}
	err = archive.Export(ctx, repo, id, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out)
		if errors.Is(err, archive.ErrNotFound) {
			return fail(stdio.Err, err)
		}
		return fail(stdio.Err, fmt.Errorf("export %s: %w", id, err))
	}
	fmt.Fprintf(stdio.Out, "exported %s to %s\n", id, out)
	return 0
}
