package scenario

import (
	"fmt"
	"strconv"
	"strings"
)

// Format serializes scenarios back to script text. For any value returned by
// Parse, Parse(Format(v)) is equal to v.
func Format(scenarios []Scenario) string {
	var lines []string

	for _, sc := range scenarios {
		lines = append(lines, "# "+sc.Name)
		if sc.Description != "" {
			lines = append(lines, sc.Description)
		}
		lines = append(lines, "")

		for _, step := range sc.Steps {
			lines = append(lines, FormatStep(step))
		}
		lines = append(lines, "")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// FormatStep renders a single step as one script line.
func FormatStep(step Step) string {
	switch step.Kind {
	case KindPrompt:
		return "---"
	case KindCommand:
		if step.Delay != DefaultCommandDelay {
			return fmt.Sprintf("$[delay:%d] %s", step.Delay, step.Text)
		}
		return "$ " + step.Text
	case KindOutput:
		return "> " + step.Text
	case KindQuestion:
		return "? " + step.Text
	case KindAnswer:
		return ": " + step.Text
	case KindSpinner:
		return fmt.Sprintf("[spinner:%d] %s", step.Duration, step.Text)
	case KindWait:
		return fmt.Sprintf("[wait:%d]", step.Ms)
	case KindSelect:
		return fmt.Sprintf("[select:%d] %s | %s | %d",
			step.Duration, step.Question, strings.Join(step.Options, ", "), step.Selected)
	case KindMultiselect:
		picks := make([]string, len(step.Picks))
		for i, p := range step.Picks {
			picks[i] = strconv.Itoa(p)
		}
		return fmt.Sprintf("[multiselect:%d] %s | %s | %s",
			step.Duration, step.Question, strings.Join(step.Options, ", "), strings.Join(picks, ","))
	case KindProgress:
		if step.Percent != DefaultProgressPercent {
			return fmt.Sprintf("[progress:%d:%d] %s", step.Duration, step.Percent, step.Text)
		}
		return fmt.Sprintf("[progress:%d] %s", step.Duration, step.Text)
	default:
		return "> " + step.Text
	}
}
