package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan        EventType = "plan"
	EventTypeAction      EventType = "action"
	EventTypeObservation EventType = "observation"
	EventTypeOutput      EventType = "output"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeLLM         EventType = "llm"
	EventTypeError       EventType = "error"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger emits structured JSON events. LLM round-trips additionally go to a
// size-rotated jsonl file so prompts can be inspected after the fact.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger(logDir string) *Logger {
	if logDir == "" {
		logDir = "logs"
	}
	return &Logger{
		llmLogPath: filepath.Join(logDir, "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotate()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

// rotate keeps a single .old generation.
func (l *Logger) rotate() {
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events.

func (l *Logger) LogPlan(sessionID, taskID, content string) {
	l.Log(Event{
		Type:      EventTypePlan,
		SessionID: sessionID,
		TaskID:    taskID,
		Data:      map[string]string{"content": content},
	})
}

func (l *Logger) LogAction(sessionID, taskID, tool, args string) {
	l.Log(Event{
		Type:      EventTypeAction,
		SessionID: sessionID,
		TaskID:    taskID,
		Data: map[string]string{
			"tool": tool,
			"args": args,
		},
	})
}

func (l *Logger) LogObservation(sessionID, taskID, tool, result string) {
	l.Log(Event{
		Type:      EventTypeObservation,
		SessionID: sessionID,
		TaskID:    taskID,
		Data: map[string]string{
			"tool":   tool,
			"result": result,
		},
	})
}

func (l *Logger) LogPolicyCheck(sessionID, taskID, tool, effect, reason string) {
	l.Log(Event{
		Type:      EventTypePolicyCheck,
		SessionID: sessionID,
		TaskID:    taskID,
		Data: map[string]string{
			"tool":   tool,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogOutput(sessionID, taskID, content string) {
	l.Log(Event{
		Type:      EventTypeOutput,
		SessionID: sessionID,
		TaskID:    taskID,
		Data:      map[string]string{"content": content},
	})
}

func (l *Logger) LogError(sessionID, taskID string, err error) {
	l.Log(Event{
		Type:      EventTypeError,
		SessionID: sessionID,
		TaskID:    taskID,
		Data:      map[string]string{"error": err.Error()},
	})
}

func (l *Logger) LogLLM(sessionID, taskID string, raw string, promptTokens, completionTokens int, model string) {
	l.Log(Event{
		Type:      EventTypeLLM,
		SessionID: sessionID,
		TaskID:    taskID,
		Data: map[string]any{
			"response":          raw,
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"model":             model,
		},
	})
}
