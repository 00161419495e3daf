package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StepKind tags a single unit of agent output.
type StepKind string

const (
	StepPlan    StepKind = "plan"
	StepAction  StepKind = "action"
	StepObserve StepKind = "observe"
	StepOutput  StepKind = "output"
)

func (k StepKind) Valid() bool {
	switch k {
	case StepPlan, StepAction, StepObserve, StepOutput:
		return true
	}
	return false
}

// Step is the structured record the planner emits one at a time. Action
// steps carry a tool name and a single argument string (a JSON object the
// tool decodes itself).
type Step struct {
	Kind    StepKind        `json:"step"`
	Content string          `json:"content"`
	Tool    string          `json:"function,omitempty"`
	Input   json.RawMessage `json:"input,omitempty"`
}

// ErrMalformedStep marks replies the loop should answer with a corrective
// observation instead of aborting.
var ErrMalformedStep = errors.New("malformed step")

// ParseStep extracts the outermost JSON object from a model reply and
// validates it as a Step. Models occasionally wrap the object in prose or
// code fences; everything outside the braces is ignored.
func ParseStep(raw string) (Step, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return Step{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformedStep)
	}

	var s Step
	if err := json.Unmarshal([]byte(raw[start:end+1]), &s); err != nil {
		return Step{}, fmt.Errorf("%w: %v", ErrMalformedStep, err)
	}

	if s.Kind == "" {
		return Step{}, fmt.Errorf("%w: missing 'step' key", ErrMalformedStep)
	}
	if !s.Kind.Valid() {
		return Step{}, fmt.Errorf("%w: unknown step type %q", ErrMalformedStep, s.Kind)
	}
	if s.Kind == StepAction {
		if s.Tool == "" || len(s.Input) == 0 {
			return Step{}, fmt.Errorf("%w: action step missing 'function' or 'input'", ErrMalformedStep)
		}
	}
	return s, nil
}

// observationJSON renders an observe step the way the model is prompted to
// expect them in the transcript.
func observationJSON(content string) string {
	data, _ := json.Marshal(Step{Kind: StepObserve, Content: content})
	return string(data)
}
