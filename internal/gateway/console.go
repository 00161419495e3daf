package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"codesmith/internal/agent"
)

// Console is the interactive terminal gateway: it reads user queries from
// stdin, hands them to the brain, and prints the final output. It also
// serves as the prompter behind the ask_user tool, so mid-task questions
// reach the same console.
type Console struct {
	Brain     agent.Brain
	SessionID string

	in  *bufio.Scanner
	out io.Writer
}

func NewConsole(brain agent.Brain, sessionID string, in io.Reader, out io.Writer) *Console {
	scanner := bufio.NewScanner(in)
	// Large buffer so long pasted queries are not silently truncated.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Console{
		Brain:     brain,
		SessionID: sessionID,
		in:        scanner,
		out:       out,
	}
}

// Run drives the query loop until exit/quit, EOF, or context cancellation.
func (c *Console) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fmt.Fprint(c.out, "\nUser>> ")
		line, ok := c.readLine()
		if !ok {
			return c.in.Err()
		}
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		answer, err := c.Brain.Think(ctx, c.SessionID, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(c.out, "\n[ERROR] %v\n", err)
			continue
		}
		fmt.Fprintf(c.out, "\n%s\n", answer)
	}
}

// Prompt implements tools.Prompter: the agent asks, the human answers.
func (c *Console) Prompt(ctx context.Context, question string) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	fmt.Fprintf(c.out, "\n[AGENT ASKS] %s\nYour response>> ", question)
	line, ok := c.readLine()
	if !ok {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return line, nil
}

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}
