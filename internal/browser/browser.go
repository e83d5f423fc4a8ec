// File: internal/browser/browser.go

// Package browser owns the lifecycle of the Chrome instance under test and
// exposes a serialized action runner over its CDP connection. All input
// dispatch and perception capture funnels through Session.Run, which holds a
// single-slot semaphore so concurrent callers can never interleave input
// events on the shared screen.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kestrelqa/kestrel-cli/internal/config"
)

// Session is one running browser instance plus its CDP connection.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	// sem serializes all CDP traffic; the screen is a shared mutable
	// resource and interleaved input corrupts gestures.
	sem *semaphore.Weighted

	closeOnce sync.Once
}

// NewSession launches a browser per the config and navigates it to the
// configured start URL. The caller must Close the session when done.
func NewSession(parentCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	log := logger.Named("browser").With(zap.String("session_id", sessionID))

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
		chromedp.Flag("disable-gpu", true),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:          sessionID,
		logger:      log,
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		sem:         semaphore.NewWeighted(1),
	}

	// The first Run starts the browser process.
	startURL := cfg.StartURL
	if startURL == "" {
		startURL = "about:blank"
	}
	if err := chromedp.Run(ctx, chromedp.Navigate(startURL)); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	log.Info("Browser session started",
		zap.Bool("headless", cfg.Headless),
		zap.Int("viewport_width", cfg.ViewportWidth),
		zap.Int("viewport_height", cfg.ViewportHeight),
		zap.String("start_url", startURL))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run executes the actions against the live browser under the single-slot
// semaphore. The session context carries the CDP connection; the caller's
// context carries the operational deadline, and cancellation of either stops
// the run.
func (s *Session) Run(ctx context.Context, actions ...chromedp.Action) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquiring screen lock: %w", err)
	}
	defer s.sem.Release(1)

	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		// Report the caller's cancellation rather than the derived one.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Close tears down the browser process and its allocator. Safe to call more
// than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser session")
		s.shutdown()
	})
	return nil
}

func (s *Session) shutdown() {
	// Ask the browser to close gracefully even when the caller's context is
	// already gone; the detached context keeps the CDP target reachable.
	if err := chromedp.Cancel(Detach(s.ctx)); err != nil {
		s.logger.Debug("Graceful browser close failed", zap.Error(err))
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}
