package convo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists conversations in Postgres via database/sql with the
// pgx driver. The schema is created lazily on first use.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// NewPostgresStore opens and pings dsn.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) ensureSchema() error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS conversations (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  repository_name TEXT NOT NULL,
  iteration INTEGER NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  UNIQUE (user_id, repository_name, iteration)
);

CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  conversation_id TEXT NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
  role TEXT NOT NULL,
  content TEXT NOT NULL,
  sequence INTEGER NOT NULL,
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  UNIQUE (conversation_id, sequence)
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages (conversation_id);
`)
	})
	return s.schemaErr
}

func scanConversation(row interface{ Scan(...any) error }) (Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.RepositoryName, &c.Iteration, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, err
	}
	return c, nil
}

func (s *PostgresStore) Find(ctx context.Context, userID, repository string, iteration int) (Conversation, error) {
	if err := s.ensureSchema(); err != nil {
		return Conversation{}, err
	}
	if iteration == LatestIteration {
		row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, repository_name, iteration, name, created_at
FROM conversations
WHERE user_id = $1 AND repository_name = $2
ORDER BY iteration DESC LIMIT 1`, userID, repository)
		return scanConversation(row)
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, repository_name, iteration, name, created_at
FROM conversations
WHERE user_id = $1 AND repository_name = $2 AND iteration = $3`, userID, repository, iteration)
	return scanConversation(row)
}

func (s *PostgresStore) List(ctx context.Context, userID, repository string) ([]Conversation, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, repository_name, iteration, name, created_at
FROM conversations
WHERE user_id = $1 AND repository_name = $2
ORDER BY iteration ASC`, userID, repository)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.RepositoryName, &c.Iteration, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, userID, repository string, iteration int, name string) (Conversation, error) {
	if err := s.ensureSchema(); err != nil {
		return Conversation{}, err
	}
	id := uuid.NewString()
	row := s.db.QueryRowContext(ctx, `
INSERT INTO conversations (id, user_id, repository_name, iteration, name)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, repository_name, iteration, name, created_at`,
		id, userID, repository, iteration, name)
	return scanConversation(row)
}

func (s *PostgresStore) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, conversation_id, role, content, sequence, created_at
FROM messages
WHERE conversation_id = $1
ORDER BY sequence ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Sequence, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Append(ctx context.Context, conversationID string, role Role, content string, sequence int) (Message, error) {
	if err := s.ensureSchema(); err != nil {
		return Message{}, err
	}
	var m Message
	row := s.db.QueryRowContext(ctx, `
INSERT INTO messages (id, conversation_id, role, content, sequence)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, conversation_id, role, content, sequence, created_at`,
		uuid.NewString(), conversationID, string(role), content, sequence)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Sequence, &m.CreatedAt); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (s *PostgresStore) NextSequence(ctx context.Context, conversationID string) (int, error) {
	if err := s.ensureSchema(); err != nil {
		return 0, err
	}
	var next int
	row := s.db.QueryRowContext(ctx, `
SELECT COALESCE(MAX(sequence), 0) + 1 FROM messages WHERE conversation_id = $1`, conversationID)
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *PostgresStore) DeleteFrom(ctx context.Context, conversationID string, fromSequence int) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
DELETE FROM messages WHERE conversation_id = $1 AND sequence >= $2`, conversationID, fromSequence)
	return err
}

func (s *PostgresStore) Close() error { return s.db.Close() }
