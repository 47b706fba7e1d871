package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/user/termdemo/internal/archive"
	"github.com/user/termdemo/internal/db"
	"github.com/user/termdemo/internal/recorder"
	"github.com/user/termdemo/internal/surface/stream"
)

// RunRecord plays a script into an asciicast recording. The cast goes to
// -out, into the cast archive with -archive, or to stdout when neither is
// given. With a destination the demo also plays live on stdout.
func RunRecord(ctx context.Context, stdio Stdio, args []string) int {
	fs := newFlagSet("record", stdio.Err)
	var s settings
	s.register(fs)
	out := fs.String("out", "", "write the cast to this file")
	toArchive := fs.Bool("archive", false, "store the cast in the cast database")
	width := fs.Int("width", 0, "terminal width in the cast header")
	height := fs.Int("height", 0, "terminal height in the cast header")
	idleLimit := fs.Duration("idle-limit", 0, "cap pauses in the recording at this length")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path, err := scriptArg(fs)
	if err != nil {
		return fail(stdio.Err, err)
	}
	cfg, err := s.load(fs)
	if err != nil {
		return fail(stdio.Err, err)
	}
	logger := setupLogging(cfg, stdio.Err)

	scenarios, err := loadScript(path, stdio.In, cfg.ScriptsDir)
	if err != nil {
		return fail(stdio.Err, err)
	}

	opts := recordOptions(cfg.Record.Width, cfg.Record.Height, stdio.Out)
	opts.Title = defaultTitle(cfg, path)
	if opts.IdleLimit, err = cfg.Record.IdleLimitDuration(); err != nil {
		return fail(stdio.Err, err)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			opts.Width = *width
		case "height":
			opts.Height = *height
		case "idle-limit":
			opts.IdleLimit = *idleLimit
		}
	})

	var live io.Writer
	if *out != "" || *toArchive {
		live = stdio.Out
	}
	opts.ClearScreen = true
	rec := recorder.New(live, opts)

	surf := stream.New(rec)
	err = playStream(ctx, surf, scenarios, cfg, nil, logger)
	if ferr := surf.Finish(); ferr != nil && err == nil {
		err = fmt.Errorf("write output: %w", ferr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fail(stdio.Err, err)
	}
	interrupted := err != nil

	if *out == "" && !*toArchive {
		if err := rec.WriteCast(stdio.Out); err != nil {
			return fail(stdio.Err, err)
		}
	}
	if *out != "" {
		if err := rec.Save(*out); err != nil {
			return fail(stdio.Err, err)
		}
		fmt.Fprintf(stdio.Err, "\nsaved %s (%s)\n", *out, rec.Duration().Round(time.Millisecond))
	}
	if *toArchive {
		// The archive write must finish even after an interrupt.
		cast, err := archiveRecording(context.WithoutCancel(ctx), cfg.DBPath, rec, path)
		if err != nil {
			return fail(stdio.Err, err)
		}
		fmt.Fprintf(stdio.Err, "\narchived cast %s (%d events)\n", cast.ID, cast.EventCount)
	}
	if interrupted {
		return 130
	}
	return 0
}

// recordOptions picks the cast size: the config wins over the size of the
// terminal behind out, which wins over the recorder defaults.
func recordOptions(cfgWidth, cfgHeight int, out io.Writer) recorder.Options {
	var opts recorder.Options
	opts.Width, opts.Height = terminalSize(out)
	if cfgWidth > 0 {
		opts.Width = cfgWidth
	}
	if cfgHeight > 0 {
		opts.Height = cfgHeight
	}
	return opts
}

func archiveRecording(ctx context.Context, dbPath string, rec *recorder.Recorder, source string) (*db.Cast, error) {
	database, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	defer database.Close()
	return archive.Save(ctx, db.NewCastRepo(database.SQL()), rec, source)
}
