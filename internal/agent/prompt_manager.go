package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codesmith/internal/tools"
)

// PromptManager assembles the system prompt from an optional directory of
// markdown fragments. When the directory is missing or empty, the built-in
// base prompt is used so the binary works without any files on disk.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// basePrompt is the default agent contract when no prompt files override it.
const basePrompt = `You are a capable coding agent with file system, shell, and web access, designed to work across programming languages and frameworks. For any user request, follow this workflow:

1. **Plan:** Briefly state your plan. Outline the steps, including the specific shell commands, and identify commands that need to run in specific directories.
2. **Act:** Execute steps sequentially using *only* the available tools, one tool per action.
3. **Observe:** After each action you receive the tool's output (or the user's response).
4. **Analyze & Iterate:** Check observations for errors, extract needed information (like paths from 'pwd'), and adjust the plan. Before destructive operations, ask the user with 'ask_user'.
5. **Output:** Once the request is fully addressed, provide the final result or confirmation.

KEY RULES:
* Use 'shell' only for commands that finish and exit. Analyze its exit code, stdout, and stderr.
* Be precise with relative and absolute paths; run 'pwd' if unsure about the current location.
* Diagnose errors and try to fix them (install missing dependencies, correct syntax).
* Use the "output" step only when the *entire* request is fulfilled.
* Adhere strictly to the JSON format below for *every* response. Only output the JSON object itself, nothing else.`

// formatContract describes the step protocol. It is always appended after
// the base prompt and the tool catalog.
const formatContract = `OUTPUT JSON FORMAT:
{
  "step": "string",     // One of: "plan", "action", "observe", "output"
  "content": "string",  // Plan description, reasoning, or final user message
  "function": "string", // Tool name. Required only for step="action"
  "input": {}           // Tool parameters object. Required only for step="action"
}

STEP DESCRIPTIONS:
* plan: outline strategy, commands, and path considerations.
* action: a *single* tool call.
* observe: provided by the system with the tool result or user response.
* output: the final response to the user.`

// fragmentOrder fixes the position of well-known prompt files; anything
// else sorts after them by name.
var fragmentOrder = map[string]int{
	"identity.md": 1,
	"rules.md":    2,
	"workflow.md": 3,
	"user.md":     4,
}

// Base returns the prompt body without the tool catalog: the concatenated
// fragment files, or the built-in default when none exist.
func (pm *PromptManager) Base() (string, error) {
	if pm.Directory == "" {
		return basePrompt, nil
	}

	entries, err := os.ReadDir(pm.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return basePrompt, nil
		}
		return "", fmt.Errorf("failed to read prompts directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return basePrompt, nil
	}

	sort.Slice(names, func(i, j int) bool {
		oi, okI := fragmentOrder[names[i]]
		oj, okJ := fragmentOrder[names[j]]
		if okI && okJ {
			return oi < oj
		}
		if okI {
			return true
		}
		if okJ {
			return false
		}
		return names[i] < names[j]
	})

	var contents []string
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(pm.Directory, name))
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file %s: %w", name, err)
		}
		contents = append(contents, strings.TrimSpace(string(data)))
	}
	return strings.Join(contents, "\n\n---\n\n"), nil
}

// SystemPrompt renders the full system prompt: base text, the JSON schema
// catalog of every registered tool, and the output format contract.
func (pm *PromptManager) SystemPrompt(registry *tools.Registry) (string, error) {
	base, err := pm.Base()
	if err != nil {
		return "", err
	}

	catalog := make(map[string]map[string]any)
	for _, t := range registry.All() {
		catalog[t.Name()] = map[string]any{
			"description": t.Description(),
			"parameters":  t.Parameters(),
		}
	}
	formatted, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render tool catalog: %w", err)
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nAVAILABLE TOOLS:\n")
	b.Write(formatted)
	b.WriteString("\n\n")
	b.WriteString(formatContract)
	return b.String(), nil
}
