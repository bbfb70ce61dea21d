package convo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"codeassist/internal/stream"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(NewMemoryStore())
	require.NoError(t, err)
	return m
}

func TestResolveCreatesFirstIteration(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	c, err := m.Resolve(ctx, "u1", "repo", 1)
	require.NoError(t, err)
	require.Equal(t, 1, c.Iteration)
	require.Equal(t, "u1", c.UserID)

	// Resolving again returns the same conversation, not a second one.
	again, err := m.Resolve(ctx, "u1", "repo", 1)
	require.NoError(t, err)
	require.Equal(t, c.ID, again.ID)
}

func TestLookupNeverCreates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, err := NewManager(store)
	require.NoError(t, err)

	_, err = m.Lookup(ctx, "u1", "repo", 1)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.Lookup(ctx, "u1", "repo", LatestIteration)
	require.ErrorIs(t, err, ErrNotFound)

	// The store must still be empty afterwards.
	_, err = store.Find(ctx, "u1", "repo", 1)
	require.ErrorIs(t, err, ErrNotFound)

	c, err := m.Resolve(ctx, "u1", "repo", 1)
	require.NoError(t, err)
	got, err := m.Lookup(ctx, "u1", "repo", 1)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
}

func TestResolveMissingLaterIteration(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Resolve(context.Background(), "u1", "repo", 3)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveLatest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, err := NewManager(store)
	require.NoError(t, err)
	for it := 1; it <= 3; it++ {
		_, err := store.Create(ctx, "u1", "repo", it, "repo")
		require.NoError(t, err)
	}

	c, err := m.Resolve(ctx, "u1", "repo", LatestIteration)
	require.NoError(t, err)
	require.Equal(t, 3, c.Iteration)
}

func TestResolveLatestMissing(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Resolve(context.Background(), "u1", "repo", LatestIteration)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTurnAppends(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	c, err := m.Resolve(ctx, "u1", "repo", 1)
	require.NoError(t, err)

	seq, err := m.StartTurn(ctx, c.ID, "first question", 0)
	require.NoError(t, err)
	require.Equal(t, 1, seq)
	require.NoError(t, m.FinishTurn(ctx, c.ID, "first answer", seq))

	seq, err = m.StartTurn(ctx, c.ID, "second question", 0)
	require.NoError(t, err)
	require.Equal(t, 3, seq)
	require.NoError(t, m.FinishTurn(ctx, c.ID, "second answer", seq))

	msgs, err := m.Messages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	require.Equal(t, RoleUser, msgs[2].Role)
	require.Equal(t, "second question", msgs[2].Content)
	require.Equal(t, 4, msgs[3].Sequence)
}

func TestEditTruncates(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	c, err := m.Resolve(ctx, "u1", "repo", 1)
	require.NoError(t, err)

	// Build sequences 1..8.
	for i := 0; i < 4; i++ {
		seq, err := m.StartTurn(ctx, c.ID, "q", 0)
		require.NoError(t, err)
		require.NoError(t, m.FinishTurn(ctx, c.ID, "a", seq))
	}

	// Editing at sequence 5 keeps 1..4 and rewrites the turn.
	seq, err := m.StartTurn(ctx, c.ID, "edited question", 5)
	require.NoError(t, err)
	require.Equal(t, 5, seq)
	require.NoError(t, m.FinishTurn(ctx, c.ID, "edited answer", seq))

	msgs, err := m.Messages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	require.Equal(t, "edited question", msgs[4].Content)
	require.Equal(t, "edited answer", msgs[5].Content)

	// Re-editing the same point is idempotent on length.
	seq, err = m.StartTurn(ctx, c.ID, "edited again", 5)
	require.NoError(t, err)
	require.Equal(t, 5, seq)
	require.NoError(t, m.FinishTurn(ctx, c.ID, "answer again", seq))

	msgs, err = m.Messages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	require.Equal(t, "edited again", msgs[4].Content)
}

func TestIterationsListing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, err := NewManager(store)
	require.NoError(t, err)
	for it := 1; it <= 3; it++ {
		_, err := store.Create(ctx, "u1", "repo", it, "repo")
		require.NoError(t, err)
	}
	_, err = store.Create(ctx, "u1", "other", 1, "other")
	require.NoError(t, err)

	all, err := m.Iterations(ctx, "u1", "repo")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, c := range all {
		require.Equal(t, i+1, c.Iteration)
	}
}

func TestTranscriptStripsPayloads(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	c, err := m.Resolve(ctx, "u1", "repo", 1)
	require.NoError(t, err)

	raw := "Fix: " + stream.SentinelString + `{"modifications_array":[]}` + stream.SentinelString + " done."
	seq, err := m.StartTurn(ctx, c.ID, "q", 0)
	require.NoError(t, err)
	require.NoError(t, m.FinishTurn(ctx, c.ID, raw, seq))

	msgs, err := m.Transcript(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "q", msgs[0].Content)
	require.Equal(t, "Fix:  done.", msgs[1].Content)
}

func TestHistoryWindowAndStripping(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	c, err := m.Resolve(ctx, "u1", "repo", 1)
	require.NoError(t, err)

	raw := "Fix: " + stream.SentinelString + `{"modifications_array":[]}` + stream.SentinelString + " done."
	for i := 0; i < 5; i++ {
		seq, err := m.StartTurn(ctx, c.ID, "q", 0)
		require.NoError(t, err)
		require.NoError(t, m.FinishTurn(ctx, c.ID, raw, seq))
	}

	hist, err := m.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, hist, 6)
	for _, msg := range hist {
		if msg.Role == RoleAssistant {
			require.Equal(t, "Fix:  done.", msg.Content)
		}
	}

	// The stored log still carries the payload verbatim.
	msgs, err := m.Messages(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, raw, msgs[len(msgs)-1].Content)
}
