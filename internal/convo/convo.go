// Package convo persists conversations and their ordered message logs, and
// implements the turn state machine: lazy creation on the first iteration,
// append on a normal turn, truncate-then-append on an edited turn.
package convo

import (
	"context"
	"errors"
	"time"
)

// Role tags a stored message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation is one thread, addressed by (user, repository, iteration).
// Iteration numbers start at 1 and the triple is unique.
type Conversation struct {
	ID             string
	UserID         string
	RepositoryName string
	Iteration      int
	Name           string
	CreatedAt      time.Time
}

// Message is one entry in a conversation's log. Sequence is contiguous from 1
// within a conversation; assistant content is stored raw, edit payloads
// included.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	Sequence       int
	CreatedAt      time.Time
}

// ErrNotFound is returned when the addressed conversation does not exist and
// lazy creation does not apply.
var ErrNotFound = errors.New("conversation not found")

// LatestIteration addresses the newest conversation for a (user, repository)
// pair instead of a concrete iteration number.
const LatestIteration = -1

// Store is the persistence backend. Find with LatestIteration returns the
// highest-iteration conversation for the pair; both Find variants return
// ErrNotFound when nothing matches.
type Store interface {
	Find(ctx context.Context, userID, repository string, iteration int) (Conversation, error)
	List(ctx context.Context, userID, repository string) ([]Conversation, error)
	Create(ctx context.Context, userID, repository string, iteration int, name string) (Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]Message, error)
	Append(ctx context.Context, conversationID string, role Role, content string, sequence int) (Message, error)
	NextSequence(ctx context.Context, conversationID string) (int, error)
	DeleteFrom(ctx context.Context, conversationID string, fromSequence int) error
	Close() error
}
