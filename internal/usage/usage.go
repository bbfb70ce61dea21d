// Package usage tracks per-user, per-model token consumption to a daily JSON
// ledger file.
package usage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is one model invocation's accounting.
type Record struct {
	UserID       string
	Model        string
	InputTokens  int
	OutputTokens int
	Failed       bool
}

// Recorder receives usage records. Recording is best effort and must never
// block or fail a chat turn.
type Recorder interface {
	Record(r Record)
}

// NopRecorder discards records.
type NopRecorder struct{}

func (NopRecorder) Record(Record) {}

// Ledger appends records to a JSON file keyed by UTC day, then by user, then
// by model. Writes go through a temp file and rename.
type Ledger struct {
	mu   sync.Mutex
	path string
}

type ledgerFile struct {
	UpdatedAt string               `json:"updated_at"`
	Days      map[string]ledgerDay `json:"days"`
}

type ledgerDay struct {
	Requests     int64                `json:"requests"`
	InputTokens  int64                `json:"input_tokens"`
	OutputTokens int64                `json:"output_tokens"`
	Errors       int64                `json:"errors"`
	Users        map[string]ledgerRow `json:"users"`
	Models       map[string]ledgerRow `json:"models"`
}

type ledgerRow struct {
	Requests     int64 `json:"requests"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	Errors       int64 `json:"errors"`
}

// NewLedger returns a ledger writing to path.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

func (l *Ledger) Record(r Record) {
	if l == nil || l.path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	dayKey := time.Now().UTC().Format("2006-01-02")
	f := ledgerFile{Days: map[string]ledgerDay{}}
	if b, err := os.ReadFile(l.path); err == nil {
		_ = json.Unmarshal(b, &f)
		if f.Days == nil {
			f.Days = map[string]ledgerDay{}
		}
	}

	d := f.Days[dayKey]
	if d.Users == nil {
		d.Users = map[string]ledgerRow{}
	}
	if d.Models == nil {
		d.Models = map[string]ledgerRow{}
	}
	d.Requests++
	d.InputTokens += int64(r.InputTokens)
	d.OutputTokens += int64(r.OutputTokens)
	if r.Failed {
		d.Errors++
	}
	d.Users[r.UserID] = bump(d.Users[r.UserID], r)
	d.Models[r.Model] = bump(d.Models[r.Model], r)
	f.Days[dayKey] = d
	f.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, l.path)
}

func bump(row ledgerRow, r Record) ledgerRow {
	row.Requests++
	row.InputTokens += int64(r.InputTokens)
	row.OutputTokens += int64(r.OutputTokens)
	if r.Failed {
		row.Errors++
	}
	return row
}
