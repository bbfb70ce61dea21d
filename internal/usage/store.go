package usage

import (
	"database/sql"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MemoryStore keeps per-turn records in memory. It backs deployments
// without a database and the test suite.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

// Records returns a copy of everything recorded so far.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// PostgresStore writes one token_usage row per model invocation. Inserts are
// best effort: failures are logged and never surfaced to the caller.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// NewPostgresStore opens and pings dsn.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) ensureSchema() error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS token_usage (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  model TEXT NOT NULL,
  input_tokens INTEGER NOT NULL,
  output_tokens INTEGER NOT NULL,
  failed BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_token_usage_user_id ON token_usage (user_id);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Record(r Record) {
	if err := s.ensureSchema(); err != nil {
		log.Printf("usage: schema: %v", err)
		return
	}
	_, err := s.db.Exec(
		`INSERT INTO token_usage (id, user_id, model, input_tokens, output_tokens, failed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), r.UserID, r.Model, r.InputTokens, r.OutputTokens, r.Failed, time.Now().UTC(),
	)
	if err != nil {
		log.Printf("usage: insert: %v", err)
	}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Multi fans a record out to every recorder.
type Multi []Recorder

func (m Multi) Record(r Record) {
	for _, rec := range m {
		rec.Record(r)
	}
}
