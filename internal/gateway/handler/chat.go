package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"codeassist/internal/bundle"
	"codeassist/internal/chat"
	"codeassist/internal/convo"
	"codeassist/internal/gateway/middleware"
)

type chatRequest struct {
	Message        string     `json:"message"`
	Model          string     `json:"model"`
	RepositoryName string     `json:"repository_name"`
	Iteration      int        `json:"iteration"`
	EditSequence   int        `json:"edit_sequence"`
	Streaming      *bool      `json:"streaming"`
	Files          []chatFile `json:"files"`
}

type chatFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// HandleChat runs one assistant turn and streams the response as SSE.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := middleware.UserID(r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Model == "" || req.RepositoryName == "" {
		writeError(w, http.StatusBadRequest, "model and repository_name are required")
		return
	}
	if req.Iteration == 0 {
		req.Iteration = convo.LatestIteration
	}

	names := make([]string, len(req.Files))
	contents := make([]string, len(req.Files))
	for i, f := range req.Files {
		names[i] = f.Name
		contents[i] = f.Content
	}
	b, err := bundle.Split(names, contents)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// An empty message is fine as long as there is code to infer intent from.
	if req.Message == "" && b.Empty() {
		writeError(w, http.StatusBadRequest, "message or files are required")
		return
	}

	// Full files stick around for later turns; snippets are per-request.
	for _, f := range b.Files {
		if err := h.uploads.Put(r.Context(), userID, f.Name, []byte(f.Content)); err != nil {
			log.Printf("chat: persist upload %q: %v", f.Name, err)
		}
	}

	streaming := true
	if req.Streaming != nil {
		streaming = *req.Streaming
	}

	sink, ok := newSSESink(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	err = h.engine.Run(r.Context(), chat.Request{
		UserID:         userID,
		RepositoryName: req.RepositoryName,
		Iteration:      req.Iteration,
		Query:          req.Message,
		ModelID:        req.Model,
		Bundle:         b,
		EditSequence:   req.EditSequence,
		Streaming:      streaming,
	}, sink)
	if err != nil {
		// Failures before the first event never opened the stream, so they
		// can still be a plain HTTP error. After that, headers are out and
		// only the in-band error event remains.
		if sink.Opened() {
			sink.Error(err)
		} else {
			writeError(w, statusFor(err), err.Error())
		}
	}
}
