package convo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"codeassist/internal/stream"
)

// historyWindow is how many trailing messages a turn feeds back to the
// models.
const historyWindow = 6

// resolveCacheSize bounds the (user, repository, iteration) -> conversation
// cache. Conversations are immutable once created, so entries never go stale.
const resolveCacheSize = 1024

// Manager runs the turn state machine over a Store.
type Manager struct {
	store   Store
	resolve *lru.Cache[string, Conversation]
}

// NewManager wraps store.
func NewManager(store Store) (*Manager, error) {
	cache, err := lru.New[string, Conversation](resolveCacheSize)
	if err != nil {
		return nil, err
	}
	return &Manager{store: store, resolve: cache}, nil
}

func resolveKey(userID, repository string, iteration int) string {
	return fmt.Sprintf("%s|%s|%d", userID, repository, iteration)
}

// Lookup finds the addressed conversation and never creates one. The read
// path uses it; lazy creation belongs to the turn state machine alone.
func (m *Manager) Lookup(ctx context.Context, userID, repository string, iteration int) (Conversation, error) {
	userID = strings.TrimSpace(userID)
	repository = strings.TrimSpace(repository)
	if userID == "" || repository == "" {
		return Conversation{}, fmt.Errorf("lookup conversation: empty user or repository")
	}
	return m.find(ctx, userID, repository, iteration)
}

// Resolve finds the addressed conversation for a turn. Iteration
// LatestIteration picks the newest one for the pair. A missing conversation
// is created only when iteration is exactly 1; any other missing iteration is
// ErrNotFound.
func (m *Manager) Resolve(ctx context.Context, userID, repository string, iteration int) (Conversation, error) {
	userID = strings.TrimSpace(userID)
	repository = strings.TrimSpace(repository)
	if userID == "" || repository == "" {
		return Conversation{}, fmt.Errorf("resolve conversation: empty user or repository")
	}

	c, err := m.find(ctx, userID, repository, iteration)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) || iteration != 1 {
		return Conversation{}, err
	}
	c, err = m.store.Create(ctx, userID, repository, 1, repository)
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	m.resolve.Add(resolveKey(userID, repository, 1), c)
	return c, nil
}

func (m *Manager) find(ctx context.Context, userID, repository string, iteration int) (Conversation, error) {
	if iteration != LatestIteration {
		if c, ok := m.resolve.Get(resolveKey(userID, repository, iteration)); ok {
			return c, nil
		}
	}
	c, err := m.store.Find(ctx, userID, repository, iteration)
	if err == nil {
		if c.Iteration > 0 {
			m.resolve.Add(resolveKey(userID, repository, c.Iteration), c)
		}
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Conversation{}, fmt.Errorf("find conversation: %w", err)
	}
	return Conversation{}, fmt.Errorf("%w: %s/%s iteration %d", ErrNotFound, userID, repository, iteration)
}

// StartTurn records the user message opening a turn and returns its sequence.
// editSequence >= 1 marks an edited turn: every message at that sequence or
// later is discarded first, so re-editing the same point is idempotent.
// editSequence 0 appends normally.
func (m *Manager) StartTurn(ctx context.Context, conversationID, content string, editSequence int) (int, error) {
	seq := editSequence
	if seq >= 1 {
		if err := m.store.DeleteFrom(ctx, conversationID, seq); err != nil {
			return 0, fmt.Errorf("truncate conversation: %w", err)
		}
	} else {
		next, err := m.store.NextSequence(ctx, conversationID)
		if err != nil {
			return 0, fmt.Errorf("next sequence: %w", err)
		}
		seq = next
	}
	if _, err := m.store.Append(ctx, conversationID, RoleUser, content, seq); err != nil {
		return 0, fmt.Errorf("append user message: %w", err)
	}
	return seq, nil
}

// FinishTurn records the assistant response, raw payloads included, directly
// after the user message at userSequence.
func (m *Manager) FinishTurn(ctx context.Context, conversationID, raw string, userSequence int) error {
	if _, err := m.store.Append(ctx, conversationID, RoleAssistant, raw, userSequence+1); err != nil {
		return fmt.Errorf("append assistant message: %w", err)
	}
	return nil
}

// History returns the trailing window of messages for model context.
// Assistant content has its edit payloads stripped so the model is not re-fed
// machine output.
func (m *Manager) History(ctx context.Context, conversationID string) ([]Message, error) {
	msgs, err := m.store.Messages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(msgs) > historyWindow {
		msgs = msgs[len(msgs)-historyWindow:]
	}
	out := make([]Message, len(msgs))
	for i, msg := range msgs {
		if msg.Role == RoleAssistant {
			msg.Content = stream.StripPayloads(msg.Content)
		}
		out[i] = msg
	}
	return out, nil
}

// Messages returns the full ordered log, raw.
func (m *Manager) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	return m.store.Messages(ctx, conversationID)
}

// Iterations lists every conversation for the pair, ascending by iteration.
func (m *Manager) Iterations(ctx context.Context, userID, repository string) ([]Conversation, error) {
	return m.store.List(ctx, userID, repository)
}

// Transcript returns the full ordered log for display. Assistant content has
// its edit payloads stripped; the payloads are editing artifacts, not prose.
func (m *Manager) Transcript(ctx context.Context, conversationID string) ([]Message, error) {
	msgs, err := m.store.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]Message, len(msgs))
	for i, msg := range msgs {
		if msg.Role == RoleAssistant {
			msg.Content = stream.StripPayloads(msg.Content)
		}
		out[i] = msg
	}
	return out, nil
}
