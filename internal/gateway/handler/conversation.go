package handler

import (
	"net/http"
	"strconv"

	"codeassist/internal/convo"
	"codeassist/internal/gateway/middleware"
)

type conversationResponse struct {
	RepositoryName string             `json:"repository_name"`
	Iteration      int                `json:"iteration"`
	Iterations     []iterationSummary `json:"iterations"`
	Messages       []messageResponse  `json:"messages"`
}

type iterationSummary struct {
	ID        string `json:"id"`
	Iteration int    `json:"iteration"`
	Name      string `json:"name"`
}

type messageResponse struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	Sequence int    `json:"sequence"`
}

// HandleConversation returns every iteration's metadata for the repository
// plus the message log of the resolved target iteration, assistant payloads
// stripped. iteration omitted or -1 resolves to the latest.
func (h *Handler) HandleConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := middleware.UserID(r)

	repository := r.URL.Query().Get("repository_name")
	if repository == "" {
		writeError(w, http.StatusBadRequest, "repository_name is required")
		return
	}
	iteration := convo.LatestIteration
	if raw := r.URL.Query().Get("iteration"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "iteration must be an integer")
			return
		}
		iteration = v
	}

	c, err := h.convos.Lookup(r.Context(), userID, repository, iteration)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	all, err := h.convos.Iterations(r.Context(), userID, repository)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	msgs, err := h.convos.Transcript(r.Context(), c.ID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := conversationResponse{
		RepositoryName: c.RepositoryName,
		Iteration:      c.Iteration,
		Iterations:     make([]iterationSummary, len(all)),
		Messages:       make([]messageResponse, len(msgs)),
	}
	for i, it := range all {
		resp.Iterations[i] = iterationSummary{ID: it.ID, Iteration: it.Iteration, Name: it.Name}
	}
	for i, m := range msgs {
		resp.Messages[i] = messageResponse{Role: string(m.Role), Content: m.Content, Sequence: m.Sequence}
	}
	writeJSON(w, http.StatusOK, resp)
}
