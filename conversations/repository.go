// Package conversations persists the append-only per-session message log.
package conversations

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound means no conversation exists for that (session, user) pair.
var ErrNotFound = errors.New("conversation not found")

// Source is one cited passage attached to an assistant message. Page is
// 1-indexed for display.
type Source struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
}

// Message is immutable once appended.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the ordered turn log for one (sessionID, user) pair.
type Conversation struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the history-listing projection.
type Summary struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// AppendTurn appends a user/assistant message pair, creating the
// conversation on first use with the given title. Appends are row inserts,
// so concurrent turns on one session interleave instead of overwriting.
func (r *Repository) AppendTurn(sessionID, userID, title string, userMsg, botMsg Message) error {
	now := time.Now().UTC()
	// INSERT ... ON DUPLICATE KEY leaves an existing conversation's title
	// alone and only touches updated_at.
	res, err := r.db.Exec(
		`INSERT INTO conversations (session_id, user_id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE updated_at = VALUES(updated_at), id = LAST_INSERT_ID(id)`,
		sessionID, userID, title, now, now)
	if err != nil {
		return err
	}
	convID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for _, msg := range []Message{userMsg, botMsg} {
		var sources any
		if len(msg.Sources) > 0 {
			data, err := json.Marshal(msg.Sources)
			if err != nil {
				return err
			}
			sources = string(data)
		}
		if _, err := r.db.Exec(
			`INSERT INTO conversation_messages (conversation_id, role, content, sources, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			convID, msg.Role, msg.Content, sources, msg.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

// History lists the user's conversations, most recently updated first.
func (r *Repository) History(userID string) ([]Summary, error) {
	rows, err := r.db.Query(
		`SELECT session_id, title, updated_at FROM conversations
		 WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.SessionID, &s.Title, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Get returns the full conversation with its messages in append order.
func (r *Repository) Get(sessionID, userID string) (*Conversation, error) {
	var conv Conversation
	var convID int
	err := r.db.QueryRow(
		`SELECT id, session_id, user_id, title, created_at, updated_at
		 FROM conversations WHERE session_id = ? AND user_id = ? LIMIT 1`,
		sessionID, userID).
		Scan(&convID, &conv.SessionID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT role, content, COALESCE(sources, ''), created_at
		 FROM conversation_messages WHERE conversation_id = ? ORDER BY id`, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	conv.Messages = []Message{}
	for rows.Next() {
		var m Message
		var rawSources string
		if err := rows.Scan(&m.Role, &m.Content, &rawSources, &m.Timestamp); err != nil {
			return nil, err
		}
		if rawSources != "" {
			if err := json.Unmarshal([]byte(rawSources), &m.Sources); err != nil {
				return nil, err
			}
		}
		conv.Messages = append(conv.Messages, m)
	}
	return &conv, rows.Err()
}

// DeleteAll wipes every conversation; the message rows cascade.
func (r *Repository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM conversations`)
	return err
}
