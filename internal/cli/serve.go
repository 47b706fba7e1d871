package cli

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/user/termdemo/internal/api"
	"github.com/user/termdemo/internal/db"
	"github.com/user/termdemo/internal/hub"
	"github.com/user/termdemo/internal/markup"
	"github.com/user/termdemo/internal/server"
	"github.com/user/termdemo/internal/session"
)

// RunServe shares one demo with every browser that connects.
func RunServe(ctx context.Context, stdio Stdio, args []string) int {
	fs := newFlagSet("serve", stdio.Err)
	var s settings
	s.register(fs)
	host := fs.String("host", "localhost", "interface to listen on")
	port := fs.Int("port", 0, "port to listen on (default from config)")
	token := fs.String("token", "", "access token (generated and saved when empty)")
	noAuth := fs.Bool("no-auth", false, "serve without an access token")
	autoPlay := fs.Bool("autoplay", false, "start playing as soon as the server starts")
	noDB := fs.Bool("no-db", false, "serve without the cast archive")
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
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *port
		case "token":
			cfg.Server.Token = *token
		case "autoplay":
			cfg.Server.AutoPlay = *autoPlay
		}
	})
	if err := cfg.Validate(); err != nil {
		return fail(stdio.Err, err)
	}
	logger := setupLogging(cfg, stdio.Err)

	scenarios, err := loadScript(path, stdio.In, cfg.ScriptsDir)
	if err != nil {
		return fail(stdio.Err, err)
	}
	theme, err := markup.ResolveTheme(cfg.Theme)
	if err != nil {
		return fail(stdio.Err, err)
	}

	accessToken := ""
	if !*noAuth {
		if err := cfg.EnsureToken(); err != nil {
			return fail(stdio.Err, err)
		}
		accessToken = cfg.Server.Token
	}

	var conn *sql.DB
	if !*noDB {
		database, err := db.Open(ctx, cfg.DBPath)
		if err != nil {
			logger.Warn("cast archive unavailable", "path", cfg.DBPath, "error", err)
		} else {
			defer database.Close()
			conn = database.SQL()
		}
	}

	h := hub.New(accessToken, nil)
	h.SetTheme(theme)
	h.SetTitle(defaultTitle(cfg, path))

	mgr := session.NewManager(h, scenarios, session.Options{
		PromptText:   cfg.PromptText,
		PromptSymbol: cfg.PromptSymbol,
		Speed:        cfg.Speed,
		Loop:         cfg.Loop,
		AutoPlay:     cfg.Server.AutoPlay,
		Logger:       logger,
	})
	defer mgr.Close()

	srv, err := server.New(fmt.Sprintf("%s:%d", *host, cfg.Server.Port), h, api.NewRouter(mgr, conn, accessToken))
	if err != nil {
		return fail(stdio.Err, err)
	}
	if err := srv.Listen(); err != nil {
		return fail(stdio.Err, err)
	}

	url := "http://" + srv.Addr()
	if accessToken != "" {
		url += "/?token=" + accessToken
	}
	fmt.Fprintf(stdio.Out, "\ntermdemo running at %s\n\n", url)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if err := mgr.Start(gctx); err != nil {
		return fail(stdio.Err, err)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fail(stdio.Err, err)
	}
	return 0
}
