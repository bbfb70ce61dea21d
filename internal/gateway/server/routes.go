package server

import (
	"net/http"

	"codeassist/internal/gateway/handler"
	"codeassist/internal/gateway/middleware"
)

func NewMux(h *handler.Handler, jwtSecret string) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/api/chat", h.HandleChat)
	api.HandleFunc("/api/conversation", h.HandleConversation)
	api.HandleFunc("/api/files", h.HandleFiles)
	api.HandleFunc("/api/delete-file", h.HandleDeleteFile)
	api.HandleFunc("/api/reconcile", h.HandleReconcile)
	api.HandleFunc("/api/models", h.HandleModels)

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware.Auth(jwtSecret, api))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return middleware.CORS(mux)
}
