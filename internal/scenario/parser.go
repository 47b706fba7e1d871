package scenario

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	commandDelayPattern = regexp.MustCompile(`^\$\[delay:(\d+)\]\s*(.*)$`)
	spinnerPattern      = regexp.MustCompile(`^\[spinner:(\d+)\]\s*(.*)$`)
	waitPattern         = regexp.MustCompile(`^\[wait:(\d+)\]$`)
	selectPattern       = regexp.MustCompile(`^\[select:(\d+)\]\s*(.*?)\s*\|\s*(.*?)\s*\|\s*(\d+)$`)
	multiselectPattern  = regexp.MustCompile(`^\[multiselect:(\d+)\]\s*(.*?)\s*\|\s*(.*?)\s*\|\s*(\d+(?:\s*,\s*\d+)*)$`)
	progressPattern     = regexp.MustCompile(`^\[progress:(\d+)(?::(\d+))?\]\s*(.*)$`)
)

// descriptionExclusions are prefixes that keep the line after a header from
// being read as the scenario description.
var descriptionExclusions = []string{"$", ">", "?", ":", "[", "---"}

// Parse compiles script text into scenarios. It never fails: lines that do
// not match any step syntax become output steps carrying the line verbatim.
//
//	# scenario name
//	optional description
//
//	---                               prompt
//	$ text | $[delay:30] text         command
//	> text                            output
//	? text                            question
//	: text                            answer
//	[spinner:ms] text                 spinner
//	[wait:ms]                         wait
//	[select:ms] q | a, b, c | 1       select
//	[multiselect:ms] q | a, b | 0,1   multiselect
//	[progress:ms] text                progress to 100%
//	[progress:ms:pct] text            progress to pct%
func Parse(text string) []Scenario {
	var (
		scenarios         []Scenario
		current           *Scenario
		expectDescription bool
	)

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			expectDescription = false
			continue
		}

		if strings.HasPrefix(trimmed, "# ") {
			if current != nil {
				scenarios = append(scenarios, *current)
			}
			current = &Scenario{Name: strings.TrimSpace(trimmed[2:])}
			expectDescription = true
			continue
		}

		if expectDescription && current != nil && isDescription(trimmed) {
			current.Description = trimmed
			expectDescription = false
			continue
		}
		expectDescription = false

		if current == nil {
			current = &Scenario{Name: DefaultName}
		}
		current.Steps = append(current.Steps, parseLine(trimmed))
	}

	if current != nil {
		scenarios = append(scenarios, *current)
	}
	return scenarios
}

func isDescription(line string) bool {
	for _, prefix := range descriptionExclusions {
		if strings.HasPrefix(line, prefix) {
			return false
		}
	}
	return true
}

// parseLine classifies a single non-empty trimmed line.
func parseLine(line string) Step {
	if line == "---" {
		return Prompt()
	}

	if strings.HasPrefix(line, "$") {
		if m := commandDelayPattern.FindStringSubmatch(line); m != nil {
			return Step{Kind: KindCommand, Text: strings.TrimSpace(m[2]), Delay: parseInt(m[1])}
		}
		return Command(strings.TrimSpace(line[1:]))
	}

	if line == ">" || strings.HasPrefix(line, "> ") {
		return Output(strings.TrimSpace(line[1:]))
	}
	if strings.HasPrefix(line, "? ") {
		return Question(line[2:])
	}
	if strings.HasPrefix(line, ": ") {
		return Answer(line[2:])
	}

	if strings.HasPrefix(line, "[") {
		if step, ok := parseBracket(line); ok {
			return step
		}
	}

	return Output(line)
}

func parseBracket(line string) (Step, bool) {
	if m := spinnerPattern.FindStringSubmatch(line); m != nil {
		return Spinner(strings.TrimSpace(m[2]), parseInt(m[1])), true
	}
	if m := waitPattern.FindStringSubmatch(line); m != nil {
		return Wait(parseInt(m[1])), true
	}
	if m := selectPattern.FindStringSubmatch(line); m != nil {
		return Step{
			Kind:     KindSelect,
			Question: strings.TrimSpace(m[2]),
			Options:  splitList(m[3]),
			Selected: parseInt(m[4]),
			Duration: parseInt(m[1]),
		}, true
	}
	if m := multiselectPattern.FindStringSubmatch(line); m != nil {
		picks := splitList(m[4])
		step := Step{
			Kind:     KindMultiselect,
			Question: strings.TrimSpace(m[2]),
			Options:  splitList(m[3]),
			Picks:    make([]int, 0, len(picks)),
			Duration: parseInt(m[1]),
		}
		for _, p := range picks {
			step.Picks = append(step.Picks, parseInt(p))
		}
		return step, true
	}
	if m := progressPattern.FindStringSubmatch(line); m != nil {
		step := Progress(strings.TrimSpace(m[3]), parseInt(m[1]))
		if m[2] != "" {
			step.Percent = parseInt(m[2])
		}
		return step, true
	}
	return Step{}, false
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseInt reads a digit sequence already matched by the grammar. Values
// that overflow int saturate at math.MaxInt.
func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return math.MaxInt
	}
	return n
}
