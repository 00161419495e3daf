package governance

import (
	"context"
	"fmt"
	"regexp"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the context of an action step to be evaluated before the
// tool is dispatched.
type Request struct {
	Tool      string
	Arguments string
	SessionID string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates action steps against a set of rules. A deny is not
// fatal: the loop reports the reason back to the model as an observation.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine denies tool calls by tool name or by regular
// expressions matched against the raw argument string.
type DefaultPolicyEngine struct {
	deniedTools map[string]bool
	deniedRegex []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		deniedTools: make(map[string]bool),
	}
}

// NewPolicyEngineFromRules builds an engine from configured rules. Bad
// patterns fail construction so a typo cannot silently disable a rule.
func NewPolicyEngineFromRules(deniedTools, deniedPatterns []string) (*DefaultPolicyEngine, error) {
	e := NewDefaultPolicyEngine()
	for _, name := range deniedTools {
		e.DenyTool(name)
	}
	for _, pattern := range deniedPatterns {
		if err := e.DenyArguments(pattern); err != nil {
			return nil, fmt.Errorf("invalid policy pattern %q: %w", pattern, err)
		}
	}
	return e, nil
}

func (e *DefaultPolicyEngine) DenyTool(name string) {
	e.deniedTools[name] = true
}

func (e *DefaultPolicyEngine) DenyArguments(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.deniedRegex = append(e.deniedRegex, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.deniedTools[req.Tool] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Tool %q is restricted by system policy", req.Tool),
		}, nil
	}

	for _, re := range e.deniedRegex {
		if re.MatchString(req.Arguments) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Arguments match restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}

// DefaultDeniedPatterns are the argument patterns blocked when the config
// file does not define its own rules.
func DefaultDeniedPatterns() []string {
	return []string{
		`rm\s+-rf\s+/`,
		`mkfs`,
		`shutdown`,
		`reboot`,
		`dd\s+if=`,
		`:\(\)\s*\{.*\};\s*:`,
	}
}
