package cli

import (
	"fmt"
	"io"
)

var commandHelp = map[string]string{
	"play": `usage: termdemo play [flags] <script>

Play a script in this terminal. <script> is a file, a library script ID
or "-" to read the script from stdin.
While playing, space pauses and resumes, q stops.

  -speed N        playback speed multiplier
  -prompt TEXT    prompt text (default "~")
  -symbol TEXT    prompt symbol (default "❯")
  -loop           repeat until interrupted
  -clear          clear the screen first
  -wait           wait for a key press before playing
  -config FILE    config file`,

	"record": `usage: termdemo record [flags] <script>

Play a script into an asciicast v2 recording.

  -out FILE           write the cast to FILE and play live on stdout
  -archive            store the cast in the cast database
  -width, -height N   terminal size in the cast header
  -idle-limit D       cap pauses at D (for example 2s)

Without -out or -archive the cast is written to stdout.`,

	"serve": `usage: termdemo serve [flags] <script>

Share one demo with every browser that connects.

  -host HOST     interface to listen on (default localhost)
  -port N        port to listen on
  -token TEXT    access token (generated and saved when empty)
  -no-auth       serve without an access token
  -autoplay      start playing right away
  -no-db         serve without the cast archive
  -theme NAME    dark or light`,

	"fmt": `usage: termdemo fmt [-w] <script>

Print the script in canonical form, or rewrite it in place with -w.`,

	"check": `usage: termdemo check [-q] <script>

Report whether a script parses into valid scenarios.`,

	"casts": `usage: termdemo casts <command> [flags]

  list [-title T] [-limit N]   list archived casts
  export [-o FILE] <id>        write a cast in asciicast v2 format
  import <file.cast>           add an asciicast v2 file to the archive
  delete <id>...               remove casts`,

	"scripts": `usage: termdemo scripts <command> [flags]

Scripts in the library can be played by ID, for example
"termdemo play quickstart".

  list                       list library scripts
  show [-yaml] <id>          print a script
  add [-id ID] <file>        copy a script file into the library
  rm <id>...                 remove scripts`,
}

// RunHelp prints general usage or the help for one command.
func RunHelp(w io.Writer, args []string) int {
	if len(args) == 0 {
		printGeneralHelp(w)
		return 0
	}
	text, ok := commandHelp[args[0]]
	if !ok {
		fmt.Fprintf(w, "termdemo help: unknown command %q\n", args[0])
		return 1
	}
	fmt.Fprintln(w, text)
	return 0
}

func printGeneralHelp(w io.Writer) {
	fmt.Fprint(w, `termdemo plays scripted terminal demos.

usage: termdemo <command> [flags] [args]

commands:
  play     play a script in this terminal
  record   record a script as an asciicast
  serve    share a demo with browsers
  fmt      print a script in canonical form
  check    validate a script
  casts    manage recorded casts
  scripts  manage the script library
  version  print the version
  help     show help for a command

Run "termdemo help <command>" for details.
`)
}
