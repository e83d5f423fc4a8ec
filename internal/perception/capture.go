// File: internal/perception/capture.go

// Package perception reads the visual and auxiliary state of the browser
// under test: screenshots, the active URL, and the viewport geometry.
package perception

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
	"github.com/kestrelqa/kestrel-cli/internal/actuator"
)

// captureTimeout bounds a single screenshot round trip.
const captureTimeout = 15 * time.Second

// Capturer implements schemas.Capturer over a live browser session.
type Capturer struct {
	exec   actuator.Executor
	logger *zap.Logger
}

var _ schemas.Capturer = (*Capturer)(nil)

// NewCapturer builds a capturer over the given action runner.
func NewCapturer(exec actuator.Executor, logger *zap.Logger) *Capturer {
	return &Capturer{
		exec:   exec,
		logger: logger.Named("perception"),
	}
}

// Capture takes a PNG screenshot of the current viewport.
func (c *Capturer) Capture(ctx context.Context) (*schemas.PerceptionArtifact, error) {
	opCtx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	var png []byte
	if err := c.exec.Run(opCtx, chromedp.CaptureScreenshot(&png)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}

	artifact := &schemas.PerceptionArtifact{
		PNG:        png,
		CapturedAt: time.Now(),
	}
	c.logger.Debug("Captured screenshot", zap.Int("bytes", len(png)))
	return artifact, nil
}

// CurrentURL reports the active page URL.
func (c *Capturer) CurrentURL(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	var url string
	if err := c.exec.Run(opCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("reading current URL: %w", err)
	}
	if url == "" {
		url = "about:blank"
	}
	return url, nil
}

// ScreenSize reports the current viewport geometry in CSS pixels, which is
// the coordinate space input events are dispatched in.
func (c *Capturer) ScreenSize(ctx context.Context) (schemas.ScreenSize, error) {
	opCtx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	var dims [2]int
	err := c.exec.Run(opCtx, chromedp.Evaluate(`[window.innerWidth, window.innerHeight]`, &dims))
	if err != nil {
		return schemas.ScreenSize{}, fmt.Errorf("reading viewport size: %w", err)
	}
	size := schemas.ScreenSize{Width: dims[0], Height: dims[1]}
	if size.Width <= 0 || size.Height <= 0 {
		return schemas.ScreenSize{}, fmt.Errorf("viewport reported degenerate size %dx%d", size.Width, size.Height)
	}
	return size, nil
}
