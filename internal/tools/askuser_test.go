package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedPrompter struct {
	question string
	answer   string
}

func (p *cannedPrompter) Prompt(ctx context.Context, question string) (string, error) {
	p.question = question
	return p.answer, nil
}

func TestAskUser(t *testing.T) {
	p := &cannedPrompter{answer: "yes"}
	tool := NewAskUserTool(p)

	out, err := tool.Execute(context.Background(), `{"question":"Delete the directory?"}`)
	require.NoError(t, err)
	assert.Equal(t, "Delete the directory?", p.question)
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "Delete the directory?")
}

func TestAskUser_EmptyQuestion(t *testing.T) {
	tool := NewAskUserTool(&cannedPrompter{})

	out, err := tool.Execute(context.Background(), `{"question":"   "}`)
	require.NoError(t, err)
	assert.Contains(t, out, "'question' is required")
}
