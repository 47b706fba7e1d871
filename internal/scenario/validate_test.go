package scenario

import (
	"errors"
	"testing"
)

func TestValidateStep(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr bool
	}{
		{"prompt", Prompt(), false},
		{"select ok", Select("q", []string{"a", "b"}, 1), false},
		{"select out of range", Select("q", []string{"a", "b"}, 2), true},
		{"select negative", Select("q", []string{"a"}, -1), true},
		{"select no options", Select("q", nil, 0), true},
		{"multiselect ok", Multiselect("q", []string{"a", "b"}, []int{1, 0}), false},
		{"multiselect empty picks", Multiselect("q", []string{"a"}, nil), false},
		{"multiselect out of range", Multiselect("q", []string{"a", "b"}, []int{0, 5}), true},
		{"multiselect duplicate", Multiselect("q", []string{"a", "b"}, []int{1, 1}), true},
		{"negative wait", Wait(-1), true},
		{"negative delay", Step{Kind: KindCommand, Text: "x", Delay: -5}, true},
		{"percent too large", Step{Kind: KindProgress, Duration: 10, Percent: 120}, true},
		{"unknown kind", Step{Kind: "dance"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStep(tt.step)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStep() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidStep) {
				t.Fatalf("error %v does not wrap ErrInvalidStep", err)
			}
		})
	}
}

func TestValidateParsedSelectOutOfRange(t *testing.T) {
	scenarios := Parse("# menu\n[select:100] q | a, b | 7")
	err := Validate(scenarios)
	if !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("Validate() error = %v, want ErrInvalidStep", err)
	}
}

func TestValidateSampleScript(t *testing.T) {
	if err := Validate(Parse(sampleScript)); err != nil {
		t.Fatalf("Validate(sample) error = %v", err)
	}
}
