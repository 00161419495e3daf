package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStep_Valid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want StepKind
	}{
		{"plan", `{"step":"plan","content":"do things"}`, StepPlan},
		{"observe", `{"step":"observe","content":"looks fine"}`, StepObserve},
		{"output", `{"step":"output","content":"done"}`, StepOutput},
		{"action", `{"step":"action","content":"run it","function":"shell","input":{"command":"pwd"}}`, StepAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := ParseStep(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.Kind)
		})
	}
}

func TestParseStep_IgnoresSurroundingProse(t *testing.T) {
	raw := "Sure! Here is my step:\n```json\n{\"step\":\"plan\",\"content\":\"x\"}\n```\nHope that helps."
	s, err := ParseStep(raw)
	require.NoError(t, err)
	assert.Equal(t, StepPlan, s.Kind)
	assert.Equal(t, "x", s.Content)
}

func TestParseStep_Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no json", "I cannot do that"},
		{"bad json", `{"step": "plan", `},
		{"missing step key", `{"content":"x"}`},
		{"unknown kind", `{"step":"reflect","content":"x"}`},
		{"action without function", `{"step":"action","content":"x","input":{}}`},
		{"action without input", `{"step":"action","content":"x","function":"shell"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStep(tc.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedStep), "want ErrMalformedStep, got %v", err)
		})
	}
}

func TestObservationJSON(t *testing.T) {
	out := observationJSON("tool said hi")
	s, err := ParseStep(out)
	require.NoError(t, err)
	assert.Equal(t, StepObserve, s.Kind)
	assert.Equal(t, "tool said hi", s.Content)
}
