// Package store persists conversations and their messages in a local SQLite
// database and answers list, search, and resume queries over them.
//
// Every operation is connection-scoped: it borrows a connection from the
// pool, runs its statements (multi-statement writes inside one transaction),
// and releases the connection before returning. There is no cache; reads
// always reflect the latest committed write.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/quantyverse/qv-session-manager/internal/logger"
	"github.com/quantyverse/qv-session-manager/internal/model"
)

// timeLayout is fixed-width UTC so persisted timestamps sort
// lexicographically. Date-prefix strings such as "2025-08-30" remain valid
// range bounds against stored values.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store is a conversation store bound to one SQLite file.
type Store struct {
	db *sql.DB
}

// New opens the database at path, creating the file if absent, and
// guarantees the schema is current before returning. A store whose
// construction failed must not be used.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	logger.L.Info("session store ready", "path", path)
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ConversationSummary is the flat row shape returned by list and search
// operations; messages are not loaded.
type ConversationSummary struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  model.Metadata `json:"metadata"`
}

// ResumedConversation pairs a loaded conversation with its most recent
// message, the point a caller continues from.
type ResumedConversation struct {
	Conversation *model.Conversation `json:"conversation"`
	LastMessage  model.Message       `json:"last_message"`
}

// SaveConversation upserts the conversation row and every message row in a
// single transaction; a failed message write rolls the whole batch back.
// UpdatedAt is refreshed to the time of the call, so a later re-save moves
// the conversation to the front of ListConversations. created_at is written
// once and never overwritten by an upsert.
func (s *Store) SaveConversation(ctx context.Context, conv *model.Conversation, messages []model.Message) error {
	convMeta, err := encodeMetadata(conv.Metadata)
	if err != nil {
		return err
	}
	conv.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, title, created_at, updated_at, metadata, model_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    title = excluded.title,
		    updated_at = excluded.updated_at,
		    metadata = excluded.metadata,
		    model_name = excluded.model_name`,
		conv.ID, conv.Title, formatTime(conv.CreatedAt), formatTime(conv.UpdatedAt), convMeta, conv.ModelName,
	); err != nil {
		return err
	}

	for i := range messages {
		m := &messages[i]
		msgMeta, err := encodeMetadata(m.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, role, content, created_at, metadata)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
			    conversation_id = excluded.conversation_id,
			    role = excluded.role,
			    content = excluded.content,
			    created_at = excluded.created_at,
			    metadata = excluded.metadata`,
			m.ID, conv.ID, string(m.Role), m.Content, formatTime(m.CreatedAt), msgMeta,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadConversation returns the conversation with all its messages in
// chronological order. The boolean reports whether the id exists; a missing
// conversation is not an error.
func (s *Store) LoadConversation(ctx context.Context, id string) (*model.Conversation, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, created_at, updated_at, metadata, model_name
		FROM conversations WHERE id = ?`, id)

	var (
		conv                 model.Conversation
		title, modelName     sql.NullString
		createdAt, updatedAt string
		meta                 sql.NullString
	)
	if err := row.Scan(&conv.ID, &title, &createdAt, &updatedAt, &meta, &modelName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	conv.Title = title.String
	conv.ModelName = modelName.String

	var err error
	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, false, err
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, false, err
	}
	if conv.Metadata, err = decodeMetadata(meta); err != nil {
		return nil, false, err
	}

	if conv.Messages, err = s.loadMessages(ctx, conv.ID); err != nil {
		return nil, false, err
	}
	return &conv, true, nil
}

// GetConversationByID is an alias for LoadConversation, kept for API parity
// with the public surface this store replaces.
func (s *Store) GetConversationByID(ctx context.Context, id string) (*model.Conversation, bool, error) {
	return s.LoadConversation(ctx, id)
}

func (s *Store) loadMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	// rowid breaks created_at ties in insertion order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at, metadata
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var (
			m         model.Message
			role      string
			createdAt string
			meta      sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &createdAt, &meta); err != nil {
			return nil, err
		}
		m.Role = model.Role(role)
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if m.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ListConversations returns summaries of every conversation, most recently
// updated first.
func (s *Store) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at, updated_at, metadata
		FROM conversations
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// SearchConversations matches query case-insensitively against conversation
// titles and message content. A conversation matched through several
// messages appears once.
func (s *Store) SearchConversations(ctx context.Context, query string) ([]ConversationSummary, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT c.id, c.title, c.created_at, c.updated_at, c.metadata
		FROM conversations c
		LEFT JOIN messages m ON c.id = m.conversation_id
		WHERE c.title LIKE ? OR m.content LIKE ?
		ORDER BY c.updated_at DESC`, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// SearchByTime returns conversations whose updated_at falls within
// [start, end]. Bounds are ISO-8601 strings compared lexicographically and
// either may be empty for an open end; a bare date such as "2025-08-30" is
// a valid lower bound. Only updated_at is consulted, never created_at.
func (s *Store) SearchByTime(ctx context.Context, start, end string) ([]ConversationSummary, error) {
	q := `SELECT id, title, created_at, updated_at, metadata FROM conversations WHERE 1=1`
	var args []any
	if start != "" {
		q += ` AND updated_at >= ?`
		args = append(args, start)
	}
	if end != "" {
		q += ` AND updated_at <= ?`
		args = append(args, end)
	}
	q += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// DeleteConversation removes the conversation and, through the foreign-key
// cascade, all of its messages. Unknown ids are a no-op.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	return err
}

// ResumeConversation loads the conversation and returns it together with its
// last message by chronological order. An absent id and a conversation with
// zero messages both report not found.
func (s *Store) ResumeConversation(ctx context.Context, id string) (*ResumedConversation, bool, error) {
	conv, ok, err := s.LoadConversation(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}
	last := conv.LastMessage()
	if last == nil {
		return nil, false, nil
	}
	return &ResumedConversation{Conversation: conv, LastMessage: *last}, true, nil
}

func scanSummaries(rows *sql.Rows) ([]ConversationSummary, error) {
	summaries := []ConversationSummary{}
	for rows.Next() {
		var (
			sum                  ConversationSummary
			title                sql.NullString
			createdAt, updatedAt string
			meta                 sql.NullString
		)
		if err := rows.Scan(&sum.ID, &title, &createdAt, &updatedAt, &meta); err != nil {
			return nil, err
		}
		sum.Title = title.String

		var err error
		if sum.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if sum.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		if sum.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func encodeMetadata(m model.Metadata) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMetadataEncoding, err)
	}
	return string(b), nil
}

func decodeMetadata(raw sql.NullString) (model.Metadata, error) {
	if !raw.Valid || raw.String == "" {
		return model.Metadata{}, nil
	}
	var m model.Metadata
	if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataEncoding, err)
	}
	if m == nil {
		m = model.Metadata{}
	}
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts this store's fixed-width layout plus the variants older
// tooling wrote (RFC3339 and zoneless ISO-8601).
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("store: unparseable timestamp %q", s)
}
