package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/user/termdemo/internal/library"
	"github.com/user/termdemo/internal/scenario"
)

// RunScripts manages the script library: list, show, add and rm.
func RunScripts(stdio Stdio, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(stdio.Err, "usage: termdemo scripts <list|show|add|rm> [flags]")
		return 1
	}

	fs := newFlagSet("scripts "+args[0], stdio.Err)
	configPath := fs.String("config", "", "config file (default ~/.config/termdemo/config.yaml)")
	dir := fs.String("dir", "", "script library directory (default from config)")
	id := fs.String("id", "", "add: library ID (default from the file name)")
	asYAML := fs.Bool("yaml", false, "show: print the script as YAML")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	scriptsDir := *dir
	if scriptsDir == "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return fail(stdio.Err, err)
		}
		scriptsDir = cfg.ScriptsDir
	}
	lib, err := library.New(scriptsDir)
	if err != nil {
		return fail(stdio.Err, err)
	}

	switch args[0] {
	case "list", "ls":
		tw := tabwriter.NewWriter(stdio.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFORMAT\tSCENARIOS")
		for _, s := range lib.List() {
			names := make([]string, len(s.Scenarios))
			for i, sc := range s.Scenarios {
				names[i] = sc.Name
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Format, strings.Join(names, ", "))
		}
		if err := tw.Flush(); err != nil {
			return fail(stdio.Err, err)
		}
		return 0

	case "show":
		if fs.NArg() != 1 {
			return fail(stdio.Err, fmt.Errorf("usage: termdemo scripts show [-yaml] <id>"))
		}
		s := lib.Get(fs.Arg(0))
		if s == nil {
			return fail(stdio.Err, fmt.Errorf("%w: %s", library.ErrScriptNotFound, fs.Arg(0)))
		}
		if *asYAML {
			data, err := library.EncodeYAML(s.Title, s.Scenarios)
			if err != nil {
				return fail(stdio.Err, err)
			}
			stdio.Out.Write(data)
			return 0
		}
		fmt.Fprintln(stdio.Out, scenario.Format(s.Scenarios))
		return 0

	case "add":
		if fs.NArg() != 1 {
			return fail(stdio.Err, fmt.Errorf("usage: termdemo scripts add [-id id] <file>"))
		}
		path := fs.Arg(0)
		scenarios, err := library.LoadFile(path)
		if err != nil {
			return fail(stdio.Err, err)
		}
		scriptID := *id
		if scriptID == "" {
			scriptID = library.IDFromPath(path)
		}
		s, err := lib.Save(scriptID, scenarios)
		if err != nil {
			return fail(stdio.Err, err)
		}
		fmt.Fprintf(stdio.Out, "added %s (%d scenarios)\n", s.ID, len(s.Scenarios))
		return 0

	case "rm", "delete":
		if fs.NArg() == 0 {
			return fail(stdio.Err, fmt.Errorf("usage: termdemo scripts rm <id>..."))
		}
		for _, scriptID := range fs.Args() {
			if err := lib.Delete(scriptID); err != nil {
				return fail(stdio.Err, err)
			}
			fmt.Fprintf(stdio.Out, "removed %s\n", scriptID)
		}
		return 0

	default:
		fmt.Fprintf(stdio.Err, "termdemo scripts: unknown subcommand %q\n", args[0])
		return 1
	}
}

