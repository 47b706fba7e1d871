package markup

import (
	"html"
	"regexp"
	"strings"
)

// Colors is the fixed palette understood inside [name]...[/name] tags.
var Colors = []string{"gray", "green", "cyan", "yellow", "red", "purple", "white", "bold"}

const ansiReset = "\x1b[0m"

var ansiCodes = map[string]string{
	"bold":   "\x1b[1m",
	"green":  "\x1b[32m",
	"cyan":   "\x1b[36m",
	"yellow": "\x1b[33m",
	"red":    "\x1b[31m",
	"purple": "\x1b[35m",
	"gray":   "\x1b[90m",
	"white":  "\x1b[37m",
}

var (
	tagPattern  *regexp.Regexp
	spanPattern map[string]*regexp.Regexp
	ansiToTag   *strings.Replacer
)

func init() {
	tagPattern = regexp.MustCompile(`\[/?(?:` + strings.Join(Colors, "|") + `)\]`)

	spanPattern = make(map[string]*regexp.Regexp, len(Colors))
	pairs := make([]string, 0, len(Colors)*4)
	for _, c := range Colors {
		spanPattern[c] = regexp.MustCompile(`\[` + c + `\](.*?)\[/` + c + `\]`)
		pairs = append(pairs, "["+c+"]", ansiCodes[c], "[/"+c+"]", ansiReset)
	}
	ansiToTag = strings.NewReplacer(pairs...)
}

// ToANSI replaces color tags with SGR escape sequences. A closing tag always
// resets all attributes.
func ToANSI(s string) string {
	return ansiToTag.Replace(s)
}

// ToHTML escapes s and turns matched tag pairs into td-* classed spans.
// Unpaired tags are left as literal text.
func ToHTML(s string) string {
	out := html.EscapeString(s)
	for _, c := range Colors {
		out = spanPattern[c].ReplaceAllString(out, `<span class="td-`+c+`">$1</span>`)
	}
	return out
}

// Strip removes all palette tags.
func Strip(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// Wrap surrounds text with a color tag.
func Wrap(color, text string) string {
	return "[" + color + "]" + text + "[/" + color + "]"
}
