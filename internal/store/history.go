package store

import (
	"database/sql"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Message is one persisted transcript entry.
type Message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// ToolCall is one persisted tool invocation, kept for auditing what an
// agent session actually did on the machine.
type ToolCall struct {
	TaskID    string
	Tool      string
	Arguments string
	Result    string
	CreatedAt time.Time
}

// HistoryStore records session transcripts and tool invocations in sqlite.
// The loop only ever writes to it; nothing here feeds back into planning.
type HistoryStore struct {
	DB *sql.DB
}

func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT,
			role TEXT,
			content TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tool_calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT,
			task_id TEXT,
			tool TEXT,
			arguments TEXT,
			result TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &HistoryStore{DB: db}, nil
}

func (h *HistoryStore) Close() error {
	return h.DB.Close()
}

func (h *HistoryStore) AddMessage(sessionID, role, content string) error {
	query := `INSERT INTO messages (session_id, role, content) VALUES (?, ?, ?)`
	_, err := h.DB.Exec(query, sessionID, role, content)
	return err
}

func (h *HistoryStore) RecordToolCall(sessionID, taskID, tool, arguments, result string) error {
	query := `INSERT INTO tool_calls (session_id, task_id, tool, arguments, result) VALUES (?, ?, ?, ?, ?)`
	_, err := h.DB.Exec(query, sessionID, taskID, tool, arguments, result)
	return err
}

// GetTranscript returns the most recent messages of a session in
// chronological order.
func (h *HistoryStore) GetTranscript(sessionID string, limit int) ([]Message, error) {
	query := `SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := h.DB.Query(query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// GetToolCalls returns the tool invocations recorded for a session in
// chronological order.
func (h *HistoryStore) GetToolCalls(sessionID string) ([]ToolCall, error) {
	query := `SELECT task_id, tool, arguments, result, timestamp FROM tool_calls WHERE session_id = ? ORDER BY id ASC`
	rows, err := h.DB.Query(query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ToolCall
	for rows.Next() {
		var c ToolCall
		if err := rows.Scan(&c.TaskID, &c.Tool, &c.Arguments, &c.Result, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
