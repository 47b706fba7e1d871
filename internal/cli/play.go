package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/user/termdemo/internal/config"
	"github.com/user/termdemo/internal/player"
	"github.com/user/termdemo/internal/scenario"
	"github.com/user/termdemo/internal/surface/stream"
)

const (
	keyCtrlC = 3
	keySpace = ' '
	keyQuit  = 'q'
)

// RunPlay plays a script in the terminal.
func RunPlay(ctx context.Context, stdio Stdio, args []string) int {
	fs := newFlagSet("play", stdio.Err)
	var s settings
	s.register(fs)
	waitKey := fs.Bool("wait", false, "wait for a key press before playing")
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
		if f.Name == "wait" {
			cfg.WaitForKey = *waitKey
		}
	})
	logger := setupLogging(cfg, stdio.Err)

	scenarios, err := loadScript(path, stdio.In, cfg.ScriptsDir)
	if err != nil {
		return fail(stdio.Err, err)
	}

	if cfg.WaitForKey {
		fmt.Fprint(stdio.Out, "Press any key to start...")
		if err := waitForKey(ctx, stdio.In); err != nil {
			fmt.Fprintln(stdio.Out)
			if errors.Is(err, context.Canceled) {
				return 130
			}
			return fail(stdio.Err, err)
		}
		fmt.Fprint(stdio.Out, "\r\x1b[2K")
	}

	surf := stream.New(stdio.Out)
	err = playStream(ctx, surf, scenarios, cfg, stdio.In, logger)
	if ferr := surf.Finish(); ferr != nil && err == nil {
		err = fmt.Errorf("write output: %w", ferr)
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return fail(stdio.Err, err)
	}
}

// playStream plays scenarios on surf. When in is a terminal, space toggles
// pause and q or Ctrl-C stops.
func playStream(ctx context.Context, surf *stream.Surface, scenarios []scenario.Scenario, cfg *config.Config, in io.Reader, logger *slog.Logger) error {
	p := player.New(surf, playerOptions(cfg, logger))

	if kc, ok := startKeyControls(in); ok {
		defer kc.restore()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case key, ok := <-kc.keys:
					if !ok {
						return
					}
					switch key {
					case keySpace:
						if p.IsPaused() {
							p.Resume()
						} else {
							p.Pause()
						}
					case keyQuit:
						p.Stop()
					case keyCtrlC:
						cancel()
					}
				}
			}
		}()
		return p.Play(ctx, scenarios)
	}
	return p.Play(ctx, scenarios)
}

func playerOptions(cfg *config.Config, logger *slog.Logger) player.Options {
	return player.Options{
		PromptText:   cfg.PromptText,
		PromptSymbol: cfg.PromptSymbol,
		Speed:        cfg.Speed,
		Loop:         cfg.Loop,
		ClearOnPlay:  cfg.Clear,
		Logger:       logger,
	}
}
