package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"codesmith/internal/governance"
	"codesmith/internal/observability"
	"codesmith/internal/tools"
)

// Brain defines the core intelligence interface for the agent.
type Brain interface {
	Think(ctx context.Context, sessionID string, input string) (string, error)
}

// HistoryRecorder persists the conversation and tool calls for auditing.
// Recording is write-only bookkeeping; the loop never reads it back.
type HistoryRecorder interface {
	AddMessage(sessionID, role, content string) error
	RecordToolCall(sessionID, taskID, tool, arguments, result string) error
}

// StepBrain drives the plan → action → observe → output loop: it repeatedly
// asks the Planner for the next Step and either dispatches a tool call,
// feeding the result back as an observation, or terminates on an output
// step.
type StepBrain struct {
	Planner  *Planner
	Registry *tools.Registry
	Policy   governance.PolicyEngine
	History  HistoryRecorder
	Logger   *observability.Logger
	Prompts  *PromptManager

	// MaxIterations bounds one Think call; 0 means the default of 25.
	MaxIterations int
	// MaxToolOutput caps observation size; 0 means the default of 5000.
	MaxToolOutput int
}

const (
	defaultMaxIterations = 25
	defaultMaxToolOutput = 5000
)

func NewStepBrain(planner *Planner, registry *tools.Registry, policy governance.PolicyEngine, history HistoryRecorder, logger *observability.Logger, prompts *PromptManager) *StepBrain {
	return &StepBrain{
		Planner:  planner,
		Registry: registry,
		Policy:   policy,
		History:  history,
		Logger:   logger,
		Prompts:  prompts,
	}
}

func (b *StepBrain) maxIterations() int {
	if b.MaxIterations > 0 {
		return b.MaxIterations
	}
	return defaultMaxIterations
}

func (b *StepBrain) maxToolOutput() int {
	if b.MaxToolOutput > 0 {
		return b.MaxToolOutput
	}
	return defaultMaxToolOutput
}

// Think runs a full interaction for one user query. The transcript starts
// fresh each call: system prompt plus the query, nothing carried over from
// earlier queries.
func (b *StepBrain) Think(ctx context.Context, sessionID string, query string) (string, error) {
	taskID := uuid.NewString()

	system, err := b.Prompts.SystemPrompt(b.Registry)
	if err != nil {
		return "", fmt.Errorf("failed to build system prompt: %w", err)
	}

	transcript := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	}
	b.record(sessionID, "human", query)

	for i := 0; i < b.maxIterations(); i++ {
		step, raw, usage, err := b.Planner.Next(ctx, transcript)
		b.Logger.LogLLM(sessionID, taskID, raw, usage.PromptTokens, usage.CompletionTokens, b.Planner.ModelName)

		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, ErrMalformedStep) {
				// Keep the messy reply in the transcript so the model can
				// see what it did wrong, then correct it.
				if raw != "" {
					transcript = append(transcript, llms.TextParts(llms.ChatMessageTypeAI, raw))
				}
				correction := fmt.Sprintf("Error: your previous reply was not a valid step (%v). Respond with exactly one JSON object in the required format, with all necessary keys and nothing else.", err)
				transcript = b.observe(transcript, correction)
				b.Logger.LogError(sessionID, taskID, err)
				continue
			}
			// Transport-level failure: report it into the loop and let the
			// model decide how to proceed, bounded by the iteration cap.
			b.Logger.LogError(sessionID, taskID, err)
			transcript = b.observe(transcript, fmt.Sprintf("Error: language model call failed: %v. The request may need to be retried or simplified.", err))
			continue
		}

		transcript = append(transcript, llms.TextParts(llms.ChatMessageTypeAI, raw))

		switch step.Kind {
		case StepPlan:
			b.Logger.LogPlan(sessionID, taskID, step.Content)

		case StepObserve:
			// The model narrating its own analysis; nothing to dispatch.
			b.Logger.LogObservation(sessionID, taskID, "", step.Content)

		case StepAction:
			transcript = b.observe(transcript, b.runAction(ctx, sessionID, taskID, step))

		case StepOutput:
			b.Logger.LogOutput(sessionID, taskID, step.Content)
			b.record(sessionID, "ai", step.Content)
			return step.Content, nil
		}
	}

	final := fmt.Sprintf("Reached maximum iterations (%d). The task may be incomplete; please review the steps or refine the request.", b.maxIterations())
	b.Logger.LogOutput(sessionID, taskID, final)
	b.record(sessionID, "ai", final)
	return final, nil
}

// runAction policy-checks and dispatches one action step, returning the
// observation content for the next planner turn.
func (b *StepBrain) runAction(ctx context.Context, sessionID, taskID string, step Step) string {
	input := string(step.Input)
	b.Logger.LogAction(sessionID, taskID, step.Tool, input)

	verdict, err := b.Policy.Evaluate(ctx, governance.Request{
		Tool:      step.Tool,
		Arguments: input,
		SessionID: sessionID,
	})
	if err != nil {
		b.Logger.LogError(sessionID, taskID, err)
		return fmt.Sprintf("Error: policy evaluation failed: %v", err)
	}
	b.Logger.LogPolicyCheck(sessionID, taskID, step.Tool, string(verdict.Effect), verdict.Reason)
	if verdict.Effect == governance.EffectDeny {
		return fmt.Sprintf("Action blocked by policy: %s. Choose a different approach or ask the user.", verdict.Reason)
	}

	result := tools.Truncate(b.Registry.Dispatch(ctx, step.Tool, input), b.maxToolOutput())

	if b.History != nil {
		if err := b.History.RecordToolCall(sessionID, taskID, step.Tool, input, result); err != nil {
			b.Logger.LogError(sessionID, taskID, err)
		}
	}
	b.Logger.LogObservation(sessionID, taskID, step.Tool, result)
	return result
}

// observe appends an observe step to the transcript in the protocol's JSON
// shape.
func (b *StepBrain) observe(transcript []llms.MessageContent, content string) []llms.MessageContent {
	return append(transcript, llms.TextParts(llms.ChatMessageTypeHuman, observationJSON(content)))
}

func (b *StepBrain) record(sessionID, role, content string) {
	if b.History == nil {
		return
	}
	if err := b.History.AddMessage(sessionID, role, content); err != nil {
		b.Logger.LogError(sessionID, "", err)
	}
}
