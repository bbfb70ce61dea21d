package convo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. It backs tests and
// database-less development runs.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	messages      map[string][]Message
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]Conversation),
		messages:      make(map[string][]Message),
	}
}

func (s *MemoryStore) Find(ctx context.Context, userID, repository string, iteration int) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best Conversation
	found := false
	for _, c := range s.conversations {
		if c.UserID != userID || c.RepositoryName != repository {
			continue
		}
		if iteration == LatestIteration {
			if !found || c.Iteration > best.Iteration {
				best = c
				found = true
			}
			continue
		}
		if c.Iteration == iteration {
			return c, nil
		}
	}
	if found {
		return best, nil
	}
	return Conversation{}, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context, userID, repository string) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Conversation
	for _, c := range s.conversations {
		if c.UserID == userID && c.RepositoryName == repository {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Iteration < out[j].Iteration })
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, userID, repository string, iteration int, name string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.conversations {
		if c.UserID == userID && c.RepositoryName == repository && c.Iteration == iteration {
			return Conversation{}, fmt.Errorf("conversation %s/%s iteration %d already exists", userID, repository, iteration)
		}
	}
	c := Conversation{
		ID:             uuid.NewString(),
		UserID:         userID,
		RepositoryName: repository,
		Iteration:      iteration,
		Name:           name,
		CreatedAt:      time.Now().UTC(),
	}
	s.conversations[c.ID] = c
	return c, nil
}

func (s *MemoryStore) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, conversationID string, role Role, content string, sequence int) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Sequence:       sequence,
		CreatedAt:      time.Now().UTC(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], m)
	return m, nil
}

func (s *MemoryStore) NextSequence(ctx context.Context, conversationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, m := range s.messages[conversationID] {
		if m.Sequence > max {
			max = m.Sequence
		}
	}
	return max + 1, nil
}

func (s *MemoryStore) DeleteFrom(ctx context.Context, conversationID string, fromSequence int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[conversationID]
	kept := msgs[:0]
	for _, m := range msgs {
		if m.Sequence < fromSequence {
			kept = append(kept, m)
		}
	}
	s.messages[conversationID] = kept
	return nil
}

func (s *MemoryStore) Close() error { return nil }
