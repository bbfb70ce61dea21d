package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

// FakeCapability replays a scripted chunk sequence. Used by tests and by the
// offline catalog when no provider keys are configured.
type FakeCapability struct {
	Label  string
	Chunks []string
	// FailAfter, when >= 0, aborts the stream with Err after that many chunks.
	FailAfter int
	Err       error
}

func NewFakeCapability(label string, chunks ...string) *FakeCapability {
	return &FakeCapability{Label: label, Chunks: chunks, FailAfter: -1}
}

func (f *FakeCapability) Name() string {
	if f.Label == "" {
		return "Fake"
	}
	return "Fake:" + f.Label
}

func (f *FakeCapability) Close() error { return nil }

func (f *FakeCapability) Invoke(ctx context.Context, _ []Message, streaming bool) <-chan Event {
	out := make(chan Event, len(f.Chunks)+1)
	go func() {
		defer close(out)
		chunks := f.Chunks
		if !streaming {
			// Non-streaming transport delivers everything at once.
			joined := ""
			for _, c := range chunks {
				joined += c
			}
			chunks = []string{joined}
		}
		for i, c := range chunks {
			if f.FailAfter >= 0 && i >= f.FailAfter {
				err := f.Err
				if err == nil {
					err = errors.New("fake: scripted failure")
				}
				emit(ctx, out, Event{Kind: EventError, Err: err})
				return
			}
			if !emit(ctx, out, Event{Kind: EventDelta, Text: c}) {
				return
			}
		}
		emit(ctx, out, Event{Kind: EventDone})
	}()
	return out
}

// FakeJSONClient returns canned JSON documents, in order, then repeats the
// last one. An empty script yields ErrInvalidJSON.
type FakeJSONClient struct {
	Docs  []json.RawMessage
	Errs  []error
	calls int
}

func (f *FakeJSONClient) Name() string { return "FakeJSON" }
func (f *FakeJSONClient) Close() error { return nil }

func (f *FakeJSONClient) GenerateJSON(context.Context, string, any) (json.RawMessage, error) {
	i := f.calls
	f.calls++
	if i < len(f.Errs) && f.Errs[i] != nil {
		return nil, f.Errs[i]
	}
	if len(f.Docs) == 0 {
		return nil, ErrInvalidJSON
	}
	if i >= len(f.Docs) {
		i = len(f.Docs) - 1
	}
	return f.Docs[i], nil
}
