// Package app implements the BookSwap core: registration and email
// verification, the book catalog, and the swap negotiation workflow.
package app

import (
	"fmt"
	"time"

	"bookswap/pkg/mail"
	"bookswap/pkg/storage"
	"bookswap/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	SessionTTL  time.Duration

	Store    store.Store
	Sessions store.SessionStore
	Covers   storage.CoverStore
	Mailer   mail.Mailer
	Notifier Notifier

	// Production withholds OTP previews from API responses.
	Production bool
}

// App wires the stores and side channels behind the business operations.
type App struct {
	store      store.Store
	sessions   store.SessionStore
	covers     storage.CoverStore
	mailer     mail.Mailer
	notifier   Notifier
	production bool
}

// New constructs the application with database storage and session management.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	sessionStore := cfg.Sessions
	if sessionStore == nil {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("jwt secret required")
		}
		sessionStore = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
	}
	a := &App{
		store:      dataStore,
		sessions:   sessionStore,
		covers:     cfg.Covers,
		mailer:     cfg.Mailer,
		notifier:   cfg.Notifier,
		production: cfg.Production,
	}
	if a.notifier == nil {
		a.notifier = &storeNotifier{store: dataStore}
	}
	return a, nil
}
