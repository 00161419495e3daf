package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"codesmith/internal/governance"
	"codesmith/internal/observability"
	"codesmith/internal/tools"
)

// scriptedModel replays canned replies and records every transcript it was
// called with. After the script runs out it keeps returning the last reply.
type scriptedModel struct {
	replies     []string
	err         error
	calls       int
	transcripts [][]llms.MessageContent
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	snapshot := make([]llms.MessageContent, len(messages))
	copy(snapshot, messages)
	m.transcripts = append(m.transcripts, snapshot)

	if m.err != nil {
		return nil, m.err
	}
	idx := m.calls
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	m.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.replies[idx]}},
	}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

type echoTool struct {
	calls []string
}

func (e *echoTool) Name() string        { return "echo" }
func (e *echoTool) Description() string { return "echoes its input back" }

func (e *echoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}
}

func (e *echoTool) Execute(ctx context.Context, input string) (string, error) {
	e.calls = append(e.calls, input)
	var args struct {
		Text string `json:"text"`
	}
	_ = json.Unmarshal([]byte(input), &args)
	return "echo: " + args.Text, nil
}

func newTestBrain(t *testing.T, model llms.Model, tool tools.Tool, policy governance.PolicyEngine) *StepBrain {
	t.Helper()
	registry := tools.NewRegistry()
	if tool != nil {
		registry.Register(tool)
	}
	if policy == nil {
		policy = governance.NewDefaultPolicyEngine()
	}
	b := NewStepBrain(
		NewPlanner(model, "test-model", 6000),
		registry,
		policy,
		nil,
		observability.NewLogger(t.TempDir()),
		NewPromptManager(""),
	)
	return b
}

// lastObservation digs the most recent observe step out of the transcript
// the model saw on its final call.
func lastObservation(t *testing.T, m *scriptedModel) string {
	t.Helper()
	require.NotEmpty(t, m.transcripts)
	last := m.transcripts[len(m.transcripts)-1]
	for i := len(last) - 1; i >= 0; i-- {
		if last[i].Role != llms.ChatMessageTypeHuman {
			continue
		}
		text, ok := last[i].Parts[0].(llms.TextContent)
		require.True(t, ok)
		s, err := ParseStep(text.Text)
		if err == nil && s.Kind == StepObserve {
			return s.Content
		}
	}
	t.Fatal("no observation found in transcript")
	return ""
}

func TestThink_ActionThenOutput(t *testing.T) {
	tool := &echoTool{}
	model := &scriptedModel{replies: []string{
		`{"step":"action","content":"echoing","function":"echo","input":{"text":"ping"}}`,
		`{"step":"output","content":"all done"}`,
	}}
	b := newTestBrain(t, model, tool, nil)

	out, err := b.Think(context.Background(), "sess", "please echo ping")
	require.NoError(t, err)
	assert.Equal(t, "all done", out)

	require.Len(t, tool.calls, 1, "exactly one tool invocation")
	assert.JSONEq(t, `{"text":"ping"}`, tool.calls[0])
	assert.Equal(t, 2, model.calls, "no planner calls after the output step")
	assert.Equal(t, "echo: ping", lastObservation(t, model))
}

func TestThink_FullStepSequence(t *testing.T) {
	tool := &echoTool{}
	model := &scriptedModel{replies: []string{
		`{"step":"plan","content":"1. echo 2. report"}`,
		`{"step":"action","content":"","function":"echo","input":{"text":"a"}}`,
		`{"step":"observe","content":"the echo worked"}`,
		`{"step":"output","content":"finished"}`,
	}}
	b := newTestBrain(t, model, tool, nil)

	out, err := b.Think(context.Background(), "sess", "run the steps")
	require.NoError(t, err)
	assert.Equal(t, "finished", out)
	assert.Len(t, tool.calls, 1)
	assert.Equal(t, 4, model.calls)
}

func TestThink_UnknownToolFedBack(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{"step":"action","content":"","function":"ghost","input":{"x":"y"}}`,
		`{"step":"output","content":"recovered"}`,
	}}
	b := newTestBrain(t, model, &echoTool{}, nil)

	out, err := b.Think(context.Background(), "sess", "use a ghost tool")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Contains(t, lastObservation(t, model), `tool "ghost" not found`)
}

func TestThink_PolicyDenyBlocksTool(t *testing.T) {
	tool := &echoTool{}
	policy := governance.NewDefaultPolicyEngine()
	policy.DenyTool("echo")
	model := &scriptedModel{replies: []string{
		`{"step":"action","content":"","function":"echo","input":{"text":"x"}}`,
		`{"step":"output","content":"gave up"}`,
	}}
	b := newTestBrain(t, model, tool, policy)

	out, err := b.Think(context.Background(), "sess", "echo something")
	require.NoError(t, err)
	assert.Equal(t, "gave up", out)
	assert.Empty(t, tool.calls, "denied tool must not run")
	assert.Contains(t, lastObservation(t, model), "blocked by policy")
}

func TestThink_MalformedReplyCorrected(t *testing.T) {
	model := &scriptedModel{replies: []string{
		"I will not use JSON today.",
		`{"step":"output","content":"sorry, here it is"}`,
	}}
	b := newTestBrain(t, model, &echoTool{}, nil)

	out, err := b.Think(context.Background(), "sess", "hello")
	require.NoError(t, err)
	assert.Equal(t, "sorry, here it is", out)
	assert.Contains(t, lastObservation(t, model), "not a valid step")
}

func TestThink_IterationCap(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{"step":"plan","content":"thinking forever"}`,
	}}
	b := newTestBrain(t, model, &echoTool{}, nil)
	b.MaxIterations = 3

	out, err := b.Think(context.Background(), "sess", "never finish")
	require.NoError(t, err)
	assert.Contains(t, out, "maximum iterations (3)")
	assert.Equal(t, 3, model.calls)
}

func TestThink_LLMErrorBecomesObservation(t *testing.T) {
	// Every call fails at the transport level; the loop must stay bounded
	// and return the iteration-cap output instead of an error.
	model := &scriptedModel{err: errors.New("connection reset")}
	registry := tools.NewRegistry()
	b := NewStepBrain(
		NewPlanner(model, "test-model", 6000),
		registry,
		governance.NewDefaultPolicyEngine(),
		nil,
		observability.NewLogger(t.TempDir()),
		NewPromptManager(""),
	)
	b.MaxIterations = 2

	out, err := b.Think(context.Background(), "sess", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, "maximum iterations", "loop stays bounded under persistent failure")
}

func TestThink_TranscriptResetsPerQuery(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{"step":"output","content":"one"}`,
	}}
	b := newTestBrain(t, model, &echoTool{}, nil)

	_, err := b.Think(context.Background(), "sess", "first")
	require.NoError(t, err)
	_, err = b.Think(context.Background(), "sess", "second")
	require.NoError(t, err)

	// Each query starts from system prompt + query only.
	assert.Equal(t, 2, len(model.transcripts[0]))
	assert.Equal(t, 2, len(model.transcripts[1]))
}
