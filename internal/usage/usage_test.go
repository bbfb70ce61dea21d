package usage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLedgerAccumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")
	l := NewLedger(path)

	l.Record(Record{UserID: "u1", Model: "gpt", InputTokens: 100, OutputTokens: 40})
	l.Record(Record{UserID: "u1", Model: "claude", InputTokens: 50, OutputTokens: 10, Failed: true})
	l.Record(Record{UserID: "u2", Model: "gpt", InputTokens: 30, OutputTokens: 5})

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var f ledgerFile
	require.NoError(t, json.Unmarshal(b, &f))

	day := f.Days[time.Now().UTC().Format("2006-01-02")]
	require.EqualValues(t, 3, day.Requests)
	require.EqualValues(t, 180, day.InputTokens)
	require.EqualValues(t, 55, day.OutputTokens)
	require.EqualValues(t, 1, day.Errors)

	require.EqualValues(t, 2, day.Users["u1"].Requests)
	require.EqualValues(t, 150, day.Users["u1"].InputTokens)
	require.EqualValues(t, 2, day.Models["gpt"].Requests)
	require.EqualValues(t, 1, day.Models["claude"].Errors)
}

func TestLedgerEmptyPathIsNoop(t *testing.T) {
	l := NewLedger("")
	l.Record(Record{UserID: "u1", Model: "gpt"})
}

func TestLedgerSurvivesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	l := NewLedger(path)
	l.Record(Record{UserID: "u1", Model: "gpt", InputTokens: 1})

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var f ledgerFile
	require.NoError(t, json.Unmarshal(b, &f))
	require.Len(t, f.Days, 1)
}
