// Package handler implements the HTTP API surface of the gateway.
package handler

import (
	"errors"
	"log"
	"net/http"

	"codeassist/internal/chat"
	"codeassist/internal/convo"
	"codeassist/internal/llmclient"
	"codeassist/internal/segregate"
	"codeassist/internal/uploads"
	"codeassist/internal/util/jsonutil"
)

type Handler struct {
	engine  *chat.Engine
	convos  *convo.Manager
	uploads uploads.Store
	catalog *llmclient.Catalog
}

func New(engine *chat.Engine, convos *convo.Manager, uploadStore uploads.Store, catalog *llmclient.Catalog) *Handler {
	return &Handler{engine: engine, convos: convos, uploads: uploadStore, catalog: catalog}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		log.Printf("handler: encode response: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, llmclient.ErrUnknownModel):
		return http.StatusBadRequest
	case errors.Is(err, convo.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, uploads.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, segregate.ErrClassification):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
