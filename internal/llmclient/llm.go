// Package llmclient talks to language-model providers. Every provider is
// exposed through the same Capability shape: a message list in, a normalized
// delta/done/error event sequence out, regardless of the transport the
// provider actually uses.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// EventKind discriminates normalized provider events.
type EventKind int

const (
	EventDelta EventKind = iota
	EventDone
	EventError
)

// Event is one element of a provider's normalized output sequence. A stream
// carries zero or more deltas followed by exactly one done or error event.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Capability is a single provider callable resolved from the catalog.
//
// Invoke never blocks: it returns a channel that the provider goroutine feeds.
// The channel is closed after the terminal done/error event. Cancelling ctx
// aborts the upstream call; the stream then terminates with an error event.
// When streaming is false the provider performs one complete call and the
// result is still delivered as a single delta followed by done, so consumers
// never need to distinguish the two transports.
type Capability interface {
	Name() string
	Invoke(ctx context.Context, messages []Message, streaming bool) <-chan Event
	Close() error
}

// JSONClient generates one schema-constrained JSON document per call. Used by
// the task classifier, which has no use for token streaming.
type JSONClient interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	Close() error
}

var ErrInvalidJSON = errors.New("llmclient: invalid JSON from model")

// PermanentError marks a provider failure that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error { return &PermanentError{Err: err} }

// emit pushes ev unless ctx is already gone and the consumer stopped reading.
func emit(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
