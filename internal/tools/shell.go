package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const maxShellOutput = 4000

// ShellTool executes commands that run to completion (compile, install,
// test, one-off scripts) in the agent's working directory and reports the
// exit code together with captured stdout and stderr.
type ShellTool struct {
	Dir     string
	Timeout time.Duration
}

func NewShellTool(dir string, timeout time.Duration) *ShellTool {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ShellTool{Dir: dir, Timeout: timeout}
}

func (s *ShellTool) Name() string {
	return "shell"
}

func (s *ShellTool) Description() string {
	return "Execute a shell command that completes and exits (compile, install, test, run scripts, pwd). Returns the exit code, stdout, and stderr."
}

func (s *ShellTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute (e.g., 'go test ./...', 'npm install', 'pwd')",
			},
		},
		"required": []string{"command"},
	}
}

func (s *ShellTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Command string `json:"command"`
	}

	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	if strings.TrimSpace(args.Command) == "" {
		return "Error: empty command", nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", args.Command)
	cmd.Dir = s.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return fmt.Sprintf("Error running command: %v", err), nil
		}
	}
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("Error: command timed out after %s", s.Timeout), nil
	}

	return formatCommandResult(exitCode, stdout.String(), stderr.String()), nil
}

// formatCommandResult renders the exit code, stdout, and stderr in a fixed
// layout the model is prompted to analyze.
func formatCommandResult(exitCode int, stdout, stderr string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exit Code: %d\n", exitCode)

	if out := strings.TrimSpace(stdout); out != "" {
		fmt.Fprintf(&b, "STDOUT:\n%s\n", out)
	} else {
		b.WriteString("STDOUT: (empty)\n")
	}
	if errOut := strings.TrimSpace(stderr); errOut != "" {
		fmt.Fprintf(&b, "STDERR:\n%s\n", errOut)
	} else {
		b.WriteString("STDERR: (empty)\n")
	}

	if exitCode != 0 {
		fmt.Fprintf(&b, "\nCommand execution may have failed (non-zero exit code: %d). Review STDERR.", exitCode)
	}

	return strings.TrimSpace(Truncate(b.String(), maxShellOutput))
}
