package handler

import (
	"net/http"

	"codeassist/internal/gateway/middleware"
)

// HandleFiles lists the caller's stored uploads.
func (h *Handler) HandleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	names, err := h.uploads.List(r.Context(), middleware.UserID(r))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": names})
}

// HandleDeleteFile removes one stored upload.
func (h *Handler) HandleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.uploads.Delete(r.Context(), middleware.UserID(r), name); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}
