package app

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/auth"
	"github.com/abhisek/threatlab/internal/catalog"
	"github.com/abhisek/threatlab/internal/coach"
	"github.com/abhisek/threatlab/internal/config"
	"github.com/abhisek/threatlab/internal/diagram"
	"github.com/abhisek/threatlab/internal/llm"
	"github.com/abhisek/threatlab/internal/logging"
	"github.com/abhisek/threatlab/internal/notify"
	"github.com/abhisek/threatlab/internal/progress"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/store"
)

// NewServices wires the API client, session and stores on top of an open
// local store. The coach is left nil when no LLM provider is configured.
// Nav is not set; the TUI fills it in.
func NewServices(ctx context.Context, cfg *config.Config, st *store.Store) (*services.Services, error) {
	client, err := api.New(api.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create api client")
	}

	center := notify.NewCenter()
	sess := auth.New(client, st.KV(), auth.WithNotifier(center))
	client.SetTokenSource(sess)
	client.OnUnauthorized(sess.ForceLogout)

	svc := &services.Services{
		Client:       client,
		Session:      sess,
		Catalog:      catalog.New(client, center),
		Diagram:      diagram.New(client, diagram.WithNotifier(center)),
		Progress:     progress.New(client, center),
		Notifier:     center,
		Autosaver:    diagram.NewAutosaver(st.DraftRepo(), cfg.Editor.AutosaveInterval),
		SyncInterval: cfg.Editor.SyncInterval,
	}

	llmCfg := llm.FromSettings(cfg.LLM)
	if !llmCfg.Enabled() {
		return svc, nil
	}
	provider, err := llm.NewProvider(ctx, llmCfg, st.EventRepo())
	if err != nil {
		logging.Component("app").Warnw("coach disabled", logging.FieldError, err)
		center.Error("Coach unavailable", err)
		return svc, nil
	}
	svc.Coach = coach.New(provider, coach.DefaultConfig())
	return svc, nil
}
