package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/termdemo/internal/config"
	"github.com/user/termdemo/internal/library"
	"github.com/user/termdemo/internal/scenario"
)

// Stdio is the set of streams a command talks to.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run dispatches args (without the program name) to a subcommand.
func Run(ctx context.Context, args []string, stdio Stdio, version string) int {
	if len(args) == 0 {
		RunHelp(stdio.Err, nil)
		return 1
	}

	rest := args[1:]
	switch args[0] {
	case "play":
		return RunPlay(ctx, stdio, rest)
	case "record":
		return RunRecord(ctx, stdio, rest)
	case "serve":
		return RunServe(ctx, stdio, rest)
	case "fmt":
		return RunFmt(stdio, rest)
	case "check":
		return RunCheck(stdio, rest)
	case "casts":
		return RunCasts(ctx, stdio, rest)
	case "scripts":
		return RunScripts(stdio, rest)
	case "version", "--version", "-v":
		fmt.Fprintf(stdio.Out, "termdemo %s\n", version)
		return 0
	case "help", "--help", "-h":
		return RunHelp(stdio.Out, rest)
	default:
		// A bare script path plays it.
		if _, err := os.Stat(args[0]); err == nil {
			return RunPlay(ctx, stdio, args)
		}
		fmt.Fprintf(stdio.Err, "termdemo: unknown command %q\n", args[0])
		RunHelp(stdio.Err, nil)
		return 1
	}
}

// settings are the flags shared by the commands that play a script. Only
// flags given on the command line override the config file.
type settings struct {
	configPath   string
	speed        float64
	promptText   string
	promptSymbol string
	loop         bool
	clear        bool
	theme        string
	title        string
	logLevel     string
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("termdemo "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func (s *settings) register(fs *flag.FlagSet) {
	fs.StringVar(&s.configPath, "config", "", "config file (default ~/.config/termdemo/config.yaml)")
	fs.Float64Var(&s.speed, "speed", 1, "playback speed multiplier")
	fs.StringVar(&s.promptText, "prompt", "", "prompt text")
	fs.StringVar(&s.promptSymbol, "symbol", "", "prompt symbol")
	fs.BoolVar(&s.loop, "loop", false, "repeat the scenarios until interrupted")
	fs.BoolVar(&s.clear, "clear", false, "clear the screen before playing")
	fs.StringVar(&s.theme, "theme", "", "color theme (dark or light)")
	fs.StringVar(&s.title, "title", "", "title shown by the browser and recordings")
	fs.StringVar(&s.logLevel, "log-level", "", "debug, info, warn or error")
}

// load reads the config file and applies every flag set on fs.
func (s *settings) load(fs *flag.FlagSet) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if s.configPath != "" {
		cfg, err = config.LoadFrom(s.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "speed":
			cfg.Speed = s.speed
		case "prompt":
			cfg.PromptText = s.promptText
		case "symbol":
			cfg.PromptSymbol = s.promptSymbol
		case "loop":
			cfg.Loop = s.loop
		case "clear":
			cfg.Clear = s.clear
		case "theme":
			cfg.Theme = s.theme
		case "title":
			cfg.Title = s.title
		case "log-level":
			cfg.LogLevel = s.logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config, stderr io.Writer) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

// loadScript reads and parses a script. "-" reads text from stdin. A path
// that names no file but is a valid script ID is looked up in the library
// at scriptsDir. The result has at least one scenario and every step is
// valid.
func loadScript(path string, stdin io.Reader, scriptsDir string) ([]scenario.Scenario, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		scenarios := scenario.Parse(string(data))
		if len(scenarios) == 0 {
			return nil, fmt.Errorf("stdin: %w: no scenarios found", library.ErrInvalidScript)
		}
		if err := scenario.Validate(scenarios); err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}
		return scenarios, nil
	}

	if _, err := os.Stat(path); err != nil && scriptsDir != "" && library.ValidateID(path) == nil {
		lib, lerr := library.New(scriptsDir)
		if lerr != nil {
			return nil, lerr
		}
		if s := lib.Get(path); s != nil {
			return s.Scenarios, nil
		}
	}
	return library.LoadFile(path)
}

// scriptArg returns the single positional script argument.
func scriptArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("usage: %s [flags] <script>", fs.Name())
	}
	return fs.Arg(0), nil
}

func defaultTitle(cfg *config.Config, path string) string {
	if cfg.Title != "" {
		return cfg.Title
	}
	if path == "-" {
		return "termdemo"
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "termdemo: %v\n", err)
	return 1
}
