package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/habedi/pldl/auth"
	"github.com/habedi/pldl/client"
	"github.com/habedi/pldl/db"
	"github.com/rs/zerolog/log"
)

// app is the object graph a command works with.
type app struct {
	cfg         *Config
	store       auth.CredentialStore
	coordinator *auth.Coordinator
	client      *client.Client
	api         *client.API
	session     *auth.Session
}

func newApp(cfg *Config) (*app, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	endpoint := client.NewTokenEndpoint(cfg.BackendURL, httpClient)
	coordinator := auth.NewCoordinator(store, endpoint)
	coordinator.Timeout = cfg.Timeout

	c := client.New(cfg.BackendURL, httpClient, store, coordinator)
	downloads := client.New(cfg.BackendURL, &http.Client{Timeout: cfg.DownloadTimeout}, store, coordinator)
	client.SetGlobalDownloadRateLimit(cfg.DownloadRateLimit)

	log.Debug().Str("backend", cfg.BackendURL).Str("store", cfg.Store).Msg("Session configured")
	return &app{
		cfg:         cfg,
		store:       store,
		coordinator: coordinator,
		client:      c,
		api:         client.NewAPI(c).WithDownloadClient(downloads),
		session:     auth.NewSession(store, endpoint, coordinator, cfg.RenewalInterval),
	}, nil
}

func openStore(cfg *Config) (auth.CredentialStore, error) {
	switch cfg.Store {
	case storeKeyring:
		return auth.NewKeyringStore(), nil
	case storeMemory:
		return auth.NewMemoryStore(nil), nil
	default:
		db.Path = cfg.DBPath
		if err := db.InitDB(); err != nil {
			return nil, fmt.Errorf("failed to open credential database: %w", err)
		}
		return auth.NewRepositoryStore(db.NewTokenRepository(db.GetDB())), nil
	}
}

// resume starts background renewal for stored credentials and fails when there are none.
func (a *app) resume(ctx context.Context) error {
	ok, err := a.session.Resume(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ErrUnauthenticated
	}
	return nil
}

func (a *app) close() {
	a.session.Close()
}
