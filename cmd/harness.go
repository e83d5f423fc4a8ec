// File: cmd/harness.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kestrelqa/kestrel-cli/internal/actuator"
	"github.com/kestrelqa/kestrel-cli/internal/browser"
	"github.com/kestrelqa/kestrel-cli/internal/config"
	"github.com/kestrelqa/kestrel-cli/internal/model/gemini"
	"github.com/kestrelqa/kestrel-cli/internal/perception"
	"github.com/kestrelqa/kestrel-cli/internal/runner"
	"github.com/kestrelqa/kestrel-cli/internal/store"
)

// harness bundles the live components a run needs: the browser under test,
// the model client, and the runner wired over both.
type harness struct {
	session *browser.Session
	model   *gemini.Client
	runner  *runner.Runner
}

// newHarness launches the browser and model client per the config. Callers
// must invoke close when done.
func newHarness(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*harness, error) {
	model, err := gemini.NewClient(ctx, cfg.Model, logger)
	if err != nil {
		return nil, runner.NewConfigurationError(err)
	}

	session, err := browser.NewSession(ctx, cfg.Browser, logger)
	if err != nil {
		model.Close()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	translator := actuator.NewTranslator(session, logger, cfg.Browser.DispatchTimeout)
	capturer := perception.NewCapturer(session, logger)

	r := runner.New(model, translator, capturer, logger, cfg.Runner, cfg.Model.MaxOutputTokens)
	return &harness{session: session, model: model, runner: r}, nil
}

func (h *harness) close() {
	h.session.Close()
	h.model.Close()
}

// openStore connects to the Postgres suite store and ensures its schema.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*store.Store, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, runner.NewConfigurationError(fmt.Errorf("connecting to store: %w", err))
	}
	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, runner.NewConfigurationError(err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}
