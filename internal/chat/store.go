package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/mapview/internal/db"
	"github.com/ziadkadry99/mapview/internal/llm"
)

// ErrNotFound is returned for unknown conversations or messages.
var ErrNotFound = errors.New("chat: not found")

// Status is the delivery state of a transcript entry.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Message is one transcript entry.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Seq            int       `json:"seq"`
	Role           llm.Role  `json:"role"`
	Content        string    `json:"content"`
	Status         Status    `json:"status"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists conversations and their transcripts. Writes that read a
// sequence number and insert are serialized so concurrent replies to the
// same conversation never race for the same slot.
type Store struct {
	db *db.DB
	mu sync.Mutex
}

// NewStore creates a new chat store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateConversation starts an empty conversation, optionally tied to a
// viewer session id.
func (s *Store) CreateConversation(ctx context.Context, viewerSession string) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_conversations (id, viewer_session, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, viewerSession, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("inserting conversation: %w", err)
	}
	return id, nil
}

// ConversationExists reports whether id names a stored conversation.
func (s *Store) ConversationExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM chat_conversations WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up conversation: %w", err)
	}
	return true, nil
}

// Append adds a message at the end of the conversation's transcript.
func (s *Store) Append(ctx context.Context, conversationID string, role llm.Role, content string, status Status) (*Message, error) {
	var m *Message
	err := s.write(ctx, func(tx *sql.Tx) error {
		var err error
		m, err = appendTx(ctx, tx, conversationID, role, content, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Deliver marks a user message delivered and appends the assistant reply
// in one transaction, so a stored prompt is never left without its answer.
func (s *Store) Deliver(ctx context.Context, userMsg *Message, reply string) (*Message, error) {
	var m *Message
	err := s.write(ctx, func(tx *sql.Tx) error {
		if err := setStatusTx(ctx, tx, userMsg.ID, StatusDelivered, ""); err != nil {
			return err
		}
		var err error
		m, err = appendTx(ctx, tx, userMsg.ConversationID, llm.RoleAssistant, reply, StatusDelivered)
		return err
	})
	if err != nil {
		return nil, err
	}
	userMsg.Status = StatusDelivered
	return m, nil
}

func (s *Store) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing message: %w", err)
	}
	return nil
}

func appendTx(ctx context.Context, tx *sql.Tx, conversationID string, role llm.Role, content string, status Status) (*Message, error) {
	var seq int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE conversation_id = ?`, conversationID,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("computing sequence: %w", err)
	}

	m := Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Seq:            seq,
		Role:           role,
		Content:        content,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_messages (id, conversation_id, seq, role, content, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.Seq, string(m.Role), m.Content, string(m.Status), m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE chat_conversations SET updated_at = ? WHERE id = ?`, m.CreatedAt, conversationID,
	); err != nil {
		return nil, fmt.Errorf("touching conversation: %w", err)
	}
	return &m, nil
}

// SetStatus updates a message's delivery state and error text.
func (s *Store) SetStatus(ctx context.Context, messageID string, status Status, errText string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		return setStatusTx(ctx, tx, messageID, status, errText)
	})
}

func setStatusTx(ctx context.Context, tx *sql.Tx, messageID string, status Status, errText string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE chat_messages SET status = ?, error = ? WHERE id = ?`,
		string(status), errText, messageID,
	)
	if err != nil {
		return fmt.Errorf("updating message status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating message status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	return nil
}

// Messages returns the whole transcript in order.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	return s.query(ctx,
		`SELECT id, conversation_id, seq, role, content, status, error, created_at
		 FROM chat_messages WHERE conversation_id = ? ORDER BY seq ASC`, conversationID)
}

// Recent returns up to limit of the latest delivered messages in order,
// for use as model context. Sent and failed entries are skipped.
func (s *Store) Recent(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	msgs, err := s.query(ctx,
		`SELECT id, conversation_id, seq, role, content, status, error, created_at
		 FROM chat_messages WHERE conversation_id = ? AND status = 'delivered'
		 ORDER BY seq DESC LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var role, status string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Seq, &role, &m.Content, &status, &m.Error, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = llm.Role(role)
		m.Status = Status(status)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
