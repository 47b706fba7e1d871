package scenario

// Kind identifies the variant of a Step.
type Kind string

const (
	KindPrompt      Kind = "prompt"
	KindCommand     Kind = "command"
	KindOutput      Kind = "output"
	KindQuestion    Kind = "question"
	KindAnswer      Kind = "answer"
	KindSpinner     Kind = "spinner"
	KindWait        Kind = "wait"
	KindSelect      Kind = "select"
	KindMultiselect Kind = "multiselect"
	KindProgress    Kind = "progress"
)

// Defaults applied by the script grammar and the step constructors.
const (
	DefaultName                = "demo"
	DefaultCommandDelay        = 60
	DefaultSelectDuration      = 1500
	DefaultMultiselectDuration = 2000
	DefaultProgressPercent     = 100
)

// Step is one scripted action. Only the fields relevant to Kind are set:
//
//	prompt       -
//	command      Text, Delay
//	output       Text
//	question     Text
//	answer       Text
//	spinner      Text, Duration
//	wait         Ms
//	select       Question, Options, Selected, Duration
//	multiselect  Question, Options, Picks, Duration
//	progress     Text, Duration, Percent
//
// All durations are milliseconds. Zero is a literal zero, not "unset";
// use the constructors below to get the documented defaults.
type Step struct {
	Kind     Kind     `json:"type" yaml:"type"`
	Text     string   `json:"text,omitempty" yaml:"text,omitempty"`
	Delay    int      `json:"delay,omitempty" yaml:"delay,omitempty"`
	Duration int      `json:"duration,omitempty" yaml:"duration,omitempty"`
	Ms       int      `json:"ms,omitempty" yaml:"ms,omitempty"`
	Question string   `json:"question,omitempty" yaml:"question,omitempty"`
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
	Selected int      `json:"selected,omitempty" yaml:"selected,omitempty"`
	Picks    []int    `json:"picks,omitempty" yaml:"picks,omitempty"`
	Percent  int      `json:"percent,omitempty" yaml:"percent,omitempty"`
}

// Scenario is a named, ordered script of steps.
type Scenario struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

func Prompt() Step { return Step{Kind: KindPrompt} }

func Command(text string) Step {
	return Step{Kind: KindCommand, Text: text, Delay: DefaultCommandDelay}
}

func Output(text string) Step { return Step{Kind: KindOutput, Text: text} }

func Question(text string) Step { return Step{Kind: KindQuestion, Text: text} }

func Answer(text string) Step { return Step{Kind: KindAnswer, Text: text} }

func Spinner(text string, durationMs int) Step {
	return Step{Kind: KindSpinner, Text: text, Duration: durationMs}
}

func Wait(ms int) Step { return Step{Kind: KindWait, Ms: ms} }

// Select builds a single-choice step with the default reveal duration.
func Select(question string, options []string, selected int) Step {
	return Step{
		Kind:     KindSelect,
		Question: question,
		Options:  options,
		Selected: selected,
		Duration: DefaultSelectDuration,
	}
}

// Multiselect builds a multi-choice step with the default reveal duration.
// The order of picks is the order the choices are listed once collapsed.
func Multiselect(question string, options []string, picks []int) Step {
	return Step{
		Kind:     KindMultiselect,
		Question: question,
		Options:  options,
		Picks:    picks,
		Duration: DefaultMultiselectDuration,
	}
}

// Progress builds a progress bar that fills to 100%.
func Progress(text string, durationMs int) Step {
	return Step{Kind: KindProgress, Text: text, Duration: durationMs, Percent: DefaultProgressPercent}
}

// Clone returns a deep copy of the scenario.
func (s Scenario) Clone() Scenario {
	out := s
	out.Steps = make([]Step, len(s.Steps))
	for i, step := range s.Steps {
		step.Options = append([]string(nil), step.Options...)
		step.Picks = append([]int(nil), step.Picks...)
		out.Steps[i] = step
	}
	return out
}
