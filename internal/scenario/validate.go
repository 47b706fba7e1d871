package scenario

import (
	"errors"
	"fmt"
)

var ErrInvalidStep = errors.New("invalid step")

// Validate checks that every step can be played. Parse itself never range
// checks, so callers that hand scripts to the player should validate first.
func Validate(scenarios []Scenario) error {
	for i, sc := range scenarios {
		for j, step := range sc.Steps {
			if err := ValidateStep(step); err != nil {
				return fmt.Errorf("scenario %d (%s) step %d: %w", i, sc.Name, j+1, err)
			}
		}
	}
	return nil
}

// ValidateStep reports the first problem with a single step.
func ValidateStep(step Step) error {
	switch step.Kind {
	case KindPrompt, KindOutput, KindQuestion, KindAnswer:
		return nil
	case KindCommand:
		if step.Delay < 0 {
			return fmt.Errorf("%w: command delay %d is negative", ErrInvalidStep, step.Delay)
		}
	case KindSpinner:
		if step.Duration < 0 {
			return fmt.Errorf("%w: spinner duration %d is negative", ErrInvalidStep, step.Duration)
		}
	case KindWait:
		if step.Ms < 0 {
			return fmt.Errorf("%w: wait %d is negative", ErrInvalidStep, step.Ms)
		}
	case KindSelect:
		if err := validateChoices(step); err != nil {
			return err
		}
		if step.Selected < 0 || step.Selected >= len(step.Options) {
			return fmt.Errorf("%w: selected index %d out of range [0,%d)", ErrInvalidStep, step.Selected, len(step.Options))
		}
	case KindMultiselect:
		if err := validateChoices(step); err != nil {
			return err
		}
		seen := make(map[int]struct{}, len(step.Picks))
		for _, p := range step.Picks {
			if p < 0 || p >= len(step.Options) {
				return fmt.Errorf("%w: selected index %d out of range [0,%d)", ErrInvalidStep, p, len(step.Options))
			}
			if _, dup := seen[p]; dup {
				return fmt.Errorf("%w: selected index %d listed twice", ErrInvalidStep, p)
			}
			seen[p] = struct{}{}
		}
	case KindProgress:
		if step.Duration < 0 {
			return fmt.Errorf("%w: progress duration %d is negative", ErrInvalidStep, step.Duration)
		}
		if step.Percent < 0 || step.Percent > 100 {
			return fmt.Errorf("%w: progress percent %d outside [0,100]", ErrInvalidStep, step.Percent)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidStep, step.Kind)
	}
	return nil
}

func validateChoices(step Step) error {
	if len(step.Options) == 0 {
		return fmt.Errorf("%w: %s has no options", ErrInvalidStep, step.Kind)
	}
	if step.Duration < 0 {
		return fmt.Errorf("%w: %s duration %d is negative", ErrInvalidStep, step.Kind, step.Duration)
	}
	return nil
}
