package handler

import (
	"encoding/json"
	"net/http"

	"codeassist/internal/stream"
)

type reconcileRequest struct {
	Filename string          `json:"filename"`
	Content  string          `json:"content"`
	Original string          `json:"original_content"`
	Changes  []stream.Change `json:"changes_array"`
}

type reconcileResponse struct {
	Filename string          `json:"filename"`
	Changes  []stream.Change `json:"changes_array"`
	Patched  string          `json:"patched_content"`
}

// HandleReconcile adjusts a possibly stale edit payload against the file's
// current content and returns the surviving changes with the patched result.
func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	fm := stream.FileModification{Filename: req.Filename, Changes: req.Changes}
	var reconciled stream.FileModification
	if req.Original != "" {
		reconciled = stream.ReconcileAgainst(req.Original, req.Content, fm)
	} else {
		reconciled = stream.Reconcile(req.Content, fm)
	}
	patched, err := stream.Apply(req.Content, reconciled)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if reconciled.Changes == nil {
		reconciled.Changes = []stream.Change{}
	}
	writeJSON(w, http.StatusOK, reconcileResponse{
		Filename: req.Filename,
		Changes:  reconciled.Changes,
		Patched:  patched,
	})
}

// HandleModels lists the model identifiers the catalog can route to.
func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"models": h.catalog.Models()})
}
