package cli

import (
	"fmt"
	"os"

	"github.com/user/termdemo/internal/scenario"
)

// RunFmt rewrites a script in canonical form. With -w the file is updated
// in place, otherwise the result goes to stdout.
func RunFmt(stdio Stdio, args []string) int {
	fs := newFlagSet("fmt", stdio.Err)
	write := fs.Bool("w", false, "write the result back to the file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path, err := scriptArg(fs)
	if err != nil {
		return fail(stdio.Err, err)
	}
	if *write && path == "-" {
		return fail(stdio.Err, fmt.Errorf("cannot use -w with stdin"))
	}

	scenarios, err := loadScript(path, stdio.In, "")
	if err != nil {
		return fail(stdio.Err, err)
	}
	formatted := scenario.Format(scenarios) + "\n"

	if !*write {
		fmt.Fprint(stdio.Out, formatted)
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return fail(stdio.Err, err)
	}
	if err := os.WriteFile(path, []byte(formatted), info.Mode().Perm()); err != nil {
		return fail(stdio.Err, err)
	}
	return 0
}

// RunCheck reports whether a script parses into valid scenarios.
func RunCheck(stdio Stdio, args []string) int {
	fs := newFlagSet("check", stdio.Err)
	quiet := fs.Bool("q", false, "print nothing on success")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path, err := scriptArg(fs)
	if err != nil {
		return fail(stdio.Err, err)
	}

	scenarios, err := loadScript(path, stdio.In, "")
	if err != nil {
		return fail(stdio.Err, err)
	}
	if *quiet {
		return 0
	}
	steps := 0
	for _, sc := range scenarios {
		steps += len(sc.Steps)
	}
	fmt.Fprintf(stdio.Out, "%s: %d scenarios, %d steps\n", path, len(scenarios), steps)
	for i, sc := range scenarios {
		fmt.Fprintf(stdio.Out, "  %d. %s (%d steps)\n", i+1, sc.Name, len(sc.Steps))
	}
	return 0
}
