// Package app wires configuration, stores, model clients and the HTTP server
// into one runnable gateway.
package app

import (
	"context"
	"fmt"
	"log"

	"codeassist/internal/chat"
	"codeassist/internal/convo"
	"codeassist/internal/gateway/config"
	"codeassist/internal/gateway/handler"
	"codeassist/internal/gateway/server"
	"codeassist/internal/llmclient"
	"codeassist/internal/segregate"
)

type App struct {
	server  *server.Server
	catalog *llmclient.Catalog
	convos  convo.Store
	closers []func() error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	convoStore, err := newConvoStore(cfg)
	if err != nil {
		return nil, err
	}
	convos, err := convo.NewManager(convoStore)
	if err != nil {
		_ = convoStore.Close()
		return nil, err
	}

	uploadStore, err := newUploadStore(cfg)
	if err != nil {
		_ = convoStore.Close()
		return nil, err
	}

	catalog := newCatalog(cfg)
	classifier, closeClassifier, err := newClassifier(ctx, cfg)
	if err != nil {
		_ = convoStore.Close()
		_ = catalog.Close()
		return nil, err
	}

	recorder, closeUsage, err := newUsageRecorder(cfg)
	if err != nil {
		_ = convoStore.Close()
		_ = catalog.Close()
		_ = closeClassifier()
		return nil, err
	}
	engine := chat.NewEngine(segregate.New(classifier), catalog, convos, recorder)

	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.Env != "local" {
			_ = convoStore.Close()
			_ = catalog.Close()
			return nil, fmt.Errorf("JWT_SECRET is required outside local")
		}
		log.Printf("JWT_SECRET not set, using the development secret")
		secret = "dev-secret"
	}

	h := handler.New(engine, convos, uploadStore, catalog)
	srv := server.New(cfg.Port, server.NewMux(h, secret))

	return &App{
		server:  srv,
		catalog: catalog,
		convos:  convoStore,
		closers: []func() error{closeClassifier, closeUsage},
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	for _, c := range a.closers {
		_ = c()
	}
	_ = a.catalog.Close()
	_ = a.convos.Close()
	return err
}
