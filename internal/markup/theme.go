package markup

import (
	"fmt"
	"strings"
)

// Theme is the color set a widget surface paints with.
type Theme struct {
	Name             string `json:"name" yaml:"name"`
	Background       string `json:"background" yaml:"background"`
	Foreground       string `json:"foreground" yaml:"foreground"`
	Prompt           string `json:"prompt" yaml:"prompt"`
	Command          string `json:"command" yaml:"command"`
	Cursor           string `json:"cursor" yaml:"cursor"`
	HeaderBackground string `json:"headerBackground" yaml:"header_background"`
	ButtonClose      string `json:"buttonClose" yaml:"button_close"`
	ButtonMinimize   string `json:"buttonMinimize" yaml:"button_minimize"`
	ButtonMaximize   string `json:"buttonMaximize" yaml:"button_maximize"`
	Gray             string `json:"gray" yaml:"gray"`
	Green            string `json:"green" yaml:"green"`
	Cyan             string `json:"cyan" yaml:"cyan"`
	Yellow           string `json:"yellow" yaml:"yellow"`
	Red              string `json:"red" yaml:"red"`
	Purple           string `json:"purple" yaml:"purple"`
	White            string `json:"white" yaml:"white"`
}

var DarkTheme = Theme{
	Name:             "dark",
	Background:       "#0d1117",
	Foreground:       "#c9d1d9",
	Prompt:           "#7ee787",
	Command:          "#f0f6fc",
	Cursor:           "#58a6ff",
	HeaderBackground: "#21262d",
	ButtonClose:      "#ff5f56",
	ButtonMinimize:   "#ffbd2e",
	ButtonMaximize:   "#27c93f",
	Gray:             "#8b949e",
	Green:            "#7ee787",
	Cyan:             "#79c0ff",
	Yellow:           "#e3b341",
	Red:              "#f85149",
	Purple:           "#d2a8ff",
	White:            "#f0f6fc",
}

var LightTheme = Theme{
	Name:             "light",
	Background:       "#ffffff",
	Foreground:       "#24292f",
	Prompt:           "#1a7f37",
	Command:          "#24292f",
	Cursor:           "#0969da",
	HeaderBackground: "#f6f8fa",
	ButtonClose:      "#ff5f56",
	ButtonMinimize:   "#ffbd2e",
	ButtonMaximize:   "#27c93f",
	Gray:             "#57606a",
	Green:            "#1a7f37",
	Cyan:             "#0969da",
	Yellow:           "#9a6700",
	Red:              "#cf222e",
	Purple:           "#8250df",
	White:            "#24292f",
}

// ResolveTheme maps a theme name to its palette. Empty means dark.
func ResolveTheme(name string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "dark":
		return DarkTheme, nil
	case "light":
		return LightTheme, nil
	default:
		return Theme{}, fmt.Errorf("unknown theme %q (want dark or light)", name)
	}
}
