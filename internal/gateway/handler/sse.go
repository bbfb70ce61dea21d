package handler

import (
	"log"
	"net/http"

	"codeassist/internal/stream"
	"codeassist/internal/util/jsonutil"
)

// sseSink writes chat output as server-sent events. Prose arrives as "delta"
// events carrying {"v": ...}, parsed edit payloads as "payload" events, and
// the turn ends with either "done" carrying [DONE] or "error".
//
// The sink is lazy: the event-stream headers go out with the first event, not
// before. Failures that happen before any event can therefore still be
// reported as a plain synchronous HTTP error.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	opened  bool
}

func newSSESink(w http.ResponseWriter) (*sseSink, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &sseSink{w: w, flusher: flusher}, true
}

// Opened reports whether the event-stream response has started, which is the
// point of no return for rewriting the status code.
func (s *sseSink) Opened() bool { return s.opened }

func (s *sseSink) open() {
	if s.opened {
		return
	}
	s.opened = true
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

func (s *sseSink) event(name string, data []byte) {
	s.open()
	_, _ = s.w.Write([]byte("event: " + name + "\ndata: "))
	_, _ = s.w.Write(data)
	_, _ = s.w.Write([]byte("\n\n"))
	s.flusher.Flush()
}

func (s *sseSink) Delta(text string) {
	b, err := jsonutil.MarshalNoEscape(map[string]string{"v": text})
	if err != nil {
		log.Printf("sse: encode delta: %v", err)
		return
	}
	s.event("delta", b)
}

func (s *sseSink) Payload(m stream.ModificationArray) {
	b, err := jsonutil.MarshalNoEscape(m)
	if err != nil {
		log.Printf("sse: encode payload: %v", err)
		return
	}
	s.event("payload", b)
}

func (s *sseSink) Done() {
	s.event("done", []byte("[DONE]"))
}

func (s *sseSink) Error(err error) {
	b, encErr := jsonutil.MarshalNoEscape(map[string]string{"error": err.Error()})
	if encErr != nil {
		b = []byte(`{"error":"stream failed"}`)
	}
	s.event("error", b)
}
