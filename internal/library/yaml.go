package library

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/user/termdemo/internal/scenario"
)

type yamlScript struct {
	Title     string         `yaml:"title,omitempty"`
	Scenarios []yamlScenario `yaml:"scenarios"`
}

type yamlScenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Steps       []yamlStep `yaml:"steps"`
}

// yamlStep leaves the timing fields nil when a file omits them, so the
// grammar defaults can fill them in.
type yamlStep struct {
	Type     scenario.Kind `yaml:"type"`
	Text     string        `yaml:"text,omitempty"`
	Delay    *int          `yaml:"delay,omitempty"`
	Duration *int          `yaml:"duration,omitempty"`
	Ms       int           `yaml:"ms,omitempty"`
	Question string        `yaml:"question,omitempty"`
	Options  []string      `yaml:"options,omitempty"`
	Selected int           `yaml:"selected,omitempty"`
	Picks    []int         `yaml:"picks,omitempty"`
	Percent  *int          `yaml:"percent,omitempty"`
}

// DecodeYAML reads a YAML script. Unknown fields are rejected.
func DecodeYAML(data []byte) (title string, scenarios []scenario.Scenario, err error) {
	var doc yamlScript
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return "", nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidScript, err)
	}

	scenarios = make([]scenario.Scenario, 0, len(doc.Scenarios))
	for i, ys := range doc.Scenarios {
		sc := scenario.Scenario{Name: ys.Name, Description: ys.Description, Steps: []scenario.Step{}}
		if sc.Name == "" {
			sc.Name = scenario.DefaultName
		}
		for j, st := range ys.Steps {
			step, err := st.step()
			if err != nil {
				return "", nil, fmt.Errorf("scenario %d step %d: %w", i, j+1, err)
			}
			sc.Steps = append(sc.Steps, step)
		}
		scenarios = append(scenarios, sc)
	}
	return doc.Title, scenarios, nil
}

func (s yamlStep) step() (scenario.Step, error) {
	intOr := func(p *int, def int) int {
		if p == nil {
			return def
		}
		return *p
	}

	switch s.Type {
	case scenario.KindPrompt:
		return scenario.Prompt(), nil
	case scenario.KindCommand:
		return scenario.Step{Kind: scenario.KindCommand, Text: s.Text, Delay: intOr(s.Delay, scenario.DefaultCommandDelay)}, nil
	case scenario.KindOutput:
		return scenario.Output(s.Text), nil
	case scenario.KindQuestion:
		return scenario.Question(s.Text), nil
	case scenario.KindAnswer:
		return scenario.Answer(s.Text), nil
	case scenario.KindSpinner:
		return scenario.Spinner(s.Text, intOr(s.Duration, 0)), nil
	case scenario.KindWait:
		return scenario.Wait(s.Ms), nil
	case scenario.KindSelect:
		step := scenario.Select(s.Question, s.Options, s.Selected)
		step.Duration = intOr(s.Duration, scenario.DefaultSelectDuration)
		return step, nil
	case scenario.KindMultiselect:
		step := scenario.Multiselect(s.Question, s.Options, s.Picks)
		step.Duration = intOr(s.Duration, scenario.DefaultMultiselectDuration)
		return step, nil
	case scenario.KindProgress:
		step := scenario.Progress(s.Text, intOr(s.Duration, 0))
		step.Percent = intOr(s.Percent, scenario.DefaultProgressPercent)
		return step, nil
	default:
		return scenario.Step{}, fmt.Errorf("%w: unknown step type %q", ErrInvalidScript, s.Type)
	}
}

// EncodeYAML writes scenarios in the YAML script form.
func EncodeYAML(title string, scenarios []scenario.Scenario) ([]byte, error) {
	doc := yamlScript{Title: title, Scenarios: make([]yamlScenario, len(scenarios))}
	for i, sc := range scenarios {
		ys := yamlScenario{Name: sc.Name, Description: sc.Description, Steps: make([]yamlStep, len(sc.Steps))}
		for j, st := range sc.Steps {
			ys.Steps[j] = fromStep(st)
		}
		doc.Scenarios[i] = ys
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func fromStep(st scenario.Step) yamlStep {
	ptr := func(v int) *int { return &v }
	ys := yamlStep{Type: st.Kind}
	switch st.Kind {
	case scenario.KindCommand:
		ys.Text, ys.Delay = st.Text, ptr(st.Delay)
	case scenario.KindOutput, scenario.KindQuestion, scenario.KindAnswer:
		ys.Text = st.Text
	case scenario.KindSpinner:
		ys.Text, ys.Duration = st.Text, ptr(st.Duration)
	case scenario.KindWait:
		ys.Ms = st.Ms
	case scenario.KindSelect:
		ys.Question, ys.Options, ys.Selected, ys.Duration = st.Question, st.Options, st.Selected, ptr(st.Duration)
	case scenario.KindMultiselect:
		ys.Question, ys.Options, ys.Picks, ys.Duration = st.Question, st.Options, st.Picks, ptr(st.Duration)
	case scenario.KindProgress:
		ys.Text, ys.Duration, ys.Percent = st.Text, ptr(st.Duration), ptr(st.Percent)
	}
	return ys
}
