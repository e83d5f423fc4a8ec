// File: internal/loop/observers.go
package loop

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

// ZapNarrativeObserver logs each narrative fragment the model emits.
type ZapNarrativeObserver struct {
	Logger *zap.Logger
}

func (o *ZapNarrativeObserver) OnNarrative(text string) {
	o.Logger.Info("Model narrative", zap.String("text", text))
}

var _ schemas.NarrativeObserver = (*ZapNarrativeObserver)(nil)

// ScreenshotSaver persists each action's post-action screenshot under the
// configured directory and remembers the written paths per step.
type ScreenshotSaver struct {
	Dir    string
	Logger *zap.Logger

	mu    sync.Mutex
	seq   int
	paths map[string][]string
}

var _ schemas.ToolObserver = (*ScreenshotSaver)(nil)

// NewScreenshotSaver builds a saver rooted at dir.
func NewScreenshotSaver(dir string, logger *zap.Logger) *ScreenshotSaver {
	return &ScreenshotSaver{
		Dir:    dir,
		Logger: logger.Named("screenshots"),
		paths:  make(map[string][]string),
	}
}

// OnActionResult writes the screenshot to disk. Failures are logged, never
// fatal: losing an artifact must not abort a run.
func (s *ScreenshotSaver) OnActionResult(stepID string, result schemas.ActionResult) {
	if result.Screenshot == nil || len(result.Screenshot.PNG) == 0 {
		return
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	name := fmt.Sprintf("%s_%03d_%s_%s.png",
		stepID, seq, result.Name, time.Now().Format("150405"))
	path := filepath.Join(s.Dir, name)

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		s.Logger.Warn("Could not create screenshot directory", zap.Error(err))
		return
	}
	if err := os.WriteFile(path, result.Screenshot.PNG, 0o644); err != nil {
		s.Logger.Warn("Could not write screenshot", zap.String("path", path), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.paths[stepID] = append(s.paths[stepID], path)
	s.mu.Unlock()

	s.Logger.Debug("Saved screenshot", zap.String("path", path))
}

// Paths returns the screenshots written for the given step, in write order.
func (s *ScreenshotSaver) Paths(stepID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.paths[stepID]))
	copy(out, s.paths[stepID])
	return out
}

// ConsoleProgressObserver prints a one-line progress marker per action so an
// operator watching the terminal can follow the run.
type ConsoleProgressObserver struct {
	Logger *zap.Logger
}

var _ schemas.ToolObserver = (*ConsoleProgressObserver)(nil)

func (o *ConsoleProgressObserver) OnActionResult(stepID string, result schemas.ActionResult) {
	o.Logger.Info("Action executed",
		zap.String("step", stepID),
		zap.String("action", string(result.Name)),
		zap.String("outcome", result.Outcome),
		zap.String("url", result.URL))
}
