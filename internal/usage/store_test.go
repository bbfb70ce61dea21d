package usage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreKeepsPerTurnRecords(t *testing.T) {
	s := NewMemoryStore()
	s.Record(Record{UserID: "u1", Model: "gpt", InputTokens: 100, OutputTokens: 40})
	s.Record(Record{UserID: "u1", Model: "claude", InputTokens: 50, Failed: true})

	got := s.Records()
	require.Len(t, got, 2)
	require.Equal(t, "gpt", got[0].Model)
	require.Equal(t, 40, got[0].OutputTokens)
	require.True(t, got[1].Failed)

	// Records returns a copy.
	got[0].Model = "mutated"
	require.Equal(t, "gpt", s.Records()[0].Model)
}

func TestMemoryStoreConcurrentRecord(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record(Record{UserID: "u1", Model: "gpt", InputTokens: 1})
		}()
	}
	wg.Wait()
	require.Len(t, s.Records(), 50)
}

func TestMultiFansOut(t *testing.T) {
	a := NewMemoryStore()
	b := NewMemoryStore()
	Multi{a, b}.Record(Record{UserID: "u1", Model: "gpt", InputTokens: 7})

	require.Len(t, a.Records(), 1)
	require.Len(t, b.Records(), 1)
	require.Equal(t, 7, b.Records()[0].InputTokens)
}
