package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"
)

// Planner asks the language model for the next Step given the transcript so
// far. Calls run in JSON mode and are rate limited so a runaway loop cannot
// hammer the provider.
type Planner struct {
	Model       llms.Model
	ModelName   string
	Temperature float64
	limiter     *rate.Limiter
}

func NewPlanner(model llms.Model, modelName string, callsPerMinute int) *Planner {
	if callsPerMinute <= 0 {
		callsPerMinute = 30
	}
	return &Planner{
		Model:       model,
		ModelName:   modelName,
		Temperature: 0.5,
		limiter:     rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), callsPerMinute),
	}
}

// Usage carries the token counts reported by the provider, when available.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Next performs one planner round-trip. It returns the parsed Step together
// with the raw reply text; a parse failure returns ErrMalformedStep and the
// raw text so the caller can feed a corrective observation back.
func (p *Planner) Next(ctx context.Context, transcript []llms.MessageContent) (Step, string, Usage, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Step{}, "", Usage{}, err
	}

	resp, err := p.Model.GenerateContent(ctx, transcript,
		llms.WithJSONMode(),
		llms.WithTemperature(p.Temperature),
	)
	if err != nil {
		return Step{}, "", Usage{}, fmt.Errorf("llm call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Step{}, "", Usage{}, fmt.Errorf("llm returned no choices")
	}

	choice := resp.Choices[0]
	usage := usageFromInfo(choice.GenerationInfo)

	raw := strings.TrimSpace(choice.Content)
	if raw == "" {
		return Step{}, "", usage, fmt.Errorf("%w: llm returned empty content", ErrMalformedStep)
	}

	step, err := ParseStep(raw)
	if err != nil {
		return Step{}, raw, usage, err
	}
	return step, raw, usage, nil
}

func usageFromInfo(info map[string]any) Usage {
	var u Usage
	if n, ok := info["PromptTokens"].(int); ok {
		u.PromptTokens = n
	}
	if n, ok := info["CompletionTokens"].(int); ok {
		u.CompletionTokens = n
	}
	return u
}
