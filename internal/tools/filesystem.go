package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const maxSearchMatches = 50

// FilesystemTool manages files under a single workspace root. Every path in
// the input is resolved against the root and requests that escape it are
// rejected before touching the disk.
type FilesystemTool struct {
	Root string
}

func NewFilesystemTool(root string) *FilesystemTool {
	absRoot, _ := filepath.Abs(root)
	return &FilesystemTool{Root: absRoot}
}

func (f *FilesystemTool) Name() string {
	return "filesystem"
}

func (f *FilesystemTool) Description() string {
	return "Manage files in the local workspace: read, write, append, list, search, delete, mkdir, and rmdir. Writing over an existing file reports a unified diff of the change."
}

func (f *FilesystemTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"enum":        []string{"read", "write", "append", "list", "search", "delete", "mkdir", "rmdir"},
				"description": "The operation to perform",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "File or directory path, relative to the workspace root",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The content to write or append (for 'write' and 'append')",
			},
			"query": map[string]any{
				"type":        "string",
				"description": "The string to look for (for 'search')",
			},
		},
		"required": []string{"command", "path"},
	}
}

func (f *FilesystemTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Command string `json:"command"`
		Path    string `json:"path"`
		Content string `json:"content"`
		Query   string `json:"query"`
	}

	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	target, err := f.resolve(args.Path)
	if err != nil {
		return "", err
	}

	switch args.Command {
	case "read":
		data, err := os.ReadFile(target)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil

	case "write":
		return f.write(target, args.Path, args.Content)

	case "append":
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return "", fmt.Errorf("failed to create parent directory: %w", err)
		}
		fh, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return "", fmt.Errorf("failed to open file: %w", err)
		}
		defer fh.Close()
		if _, err := fh.WriteString(args.Content); err != nil {
			return "", fmt.Errorf("failed to append: %w", err)
		}
		return fmt.Sprintf("Appended %d bytes to %s", len(args.Content), args.Path), nil

	case "list":
		entries, err := os.ReadDir(target)
		if err != nil {
			return "", fmt.Errorf("failed to list directory: %w", err)
		}
		var b strings.Builder
		for _, entry := range entries {
			typeStr := "file"
			if entry.IsDir() {
				typeStr = "dir"
			}
			fmt.Fprintf(&b, "[%s] %s\n", typeStr, entry.Name())
		}
		if b.Len() == 0 {
			return "Directory is empty", nil
		}
		return b.String(), nil

	case "search":
		if args.Query == "" {
			return "Error: 'query' is required for search", nil
		}
		return f.search(target, args.Path, args.Query)

	case "delete":
		if err := os.Remove(target); err != nil {
			return "", fmt.Errorf("failed to delete: %w", err)
		}
		return fmt.Sprintf("Successfully deleted %s", args.Path), nil

	case "mkdir":
		if err := os.MkdirAll(target, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
		return fmt.Sprintf("Successfully created directory %s", args.Path), nil

	case "rmdir":
		return f.rmdir(target, args.Path)

	default:
		return "Invalid command. Use 'read', 'write', 'append', 'list', 'search', 'delete', 'mkdir', or 'rmdir'", nil
	}
}

// resolve joins a request path onto the workspace root and rejects anything
// that would land outside it.
func (f *FilesystemTool) resolve(path string) (string, error) {
	target := filepath.Join(f.Root, path)
	rel, err := filepath.Rel(f.Root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("unsafe path attempt: %s", path)
	}
	return target, nil
}

func (f *FilesystemTool) write(target, name, content string) (string, error) {
	old, readErr := os.ReadFile(target)
	existed := readErr == nil

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if !existed {
		return fmt.Sprintf("Successfully wrote %s", name), nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(old)),
		B:        difflib.SplitLines(content),
		FromFile: name + " (before)",
		ToFile:   name + " (after)",
		Context:  3,
	}
	diffText, err := difflib.GetUnifiedDiffString(diff)
	if err != nil || strings.TrimSpace(diffText) == "" {
		return fmt.Sprintf("Successfully wrote %s (content unchanged)", name), nil
	}
	return fmt.Sprintf("Successfully overwrote %s. Changes:\n%s", name, diffText), nil
}

func (f *FilesystemTool) search(target, name, query string) (string, error) {
	data, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var matches []string
	total := 0
	for i, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, query) {
			total++
			if total <= maxSearchMatches {
				matches = append(matches, fmt.Sprintf("%d: %s", i+1, strings.TrimSpace(line)))
			}
		}
	}

	if total == 0 {
		return fmt.Sprintf("No matches found for %q in %s", query, name), nil
	}
	out := strings.Join(matches, "\n")
	if total > maxSearchMatches {
		out += fmt.Sprintf("\n... (truncated, %d more matches found)", total-maxSearchMatches)
	}
	return out, nil
}

// rmdir removes a directory recursively. The workspace root itself and
// anything that resolves to it stay off limits.
func (f *FilesystemTool) rmdir(target, name string) (string, error) {
	cleaned := strings.TrimSpace(name)
	if cleaned == "" || cleaned == "." || cleaned == ".." || cleaned == "/" || target == f.Root {
		return "", fmt.Errorf("refusing to delete %q", name)
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("failed to stat: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory, use 'delete'", name)
	}
	if err := os.RemoveAll(target); err != nil {
		return "", fmt.Errorf("failed to remove directory: %w", err)
	}
	return fmt.Sprintf("Directory %s and its contents deleted", name), nil
}
