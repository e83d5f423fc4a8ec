// File: api/schemas/results.go
package schemas

import "time"

// Usage accumulates token counters reported by the reasoning model. Counters
// add across turns within a step and across steps within a test.
type Usage struct {
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model,omitempty"`
}

// Add merges another usage sample into the receiver. The model name of the
// most recent non-empty sample wins.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	if other.Model != "" {
		u.Model = other.Model
	}
}

// StepStatus is the verdict recorded for a single test step.
type StepStatus string

const (
	StepPass  StepStatus = "pass"
	StepFail  StepStatus = "fail"
	StepError StepStatus = "error"
)

// TestStatus is the aggregate verdict for a whole test.
type TestStatus string

const (
	TestPass  TestStatus = "pass"
	TestFail  TestStatus = "fail"
	TestError TestStatus = "error"
)

// StepResult captures everything observed while executing one test step.
type StepResult struct {
	StepNumber      int        `json:"step_number"`
	Action          string     `json:"action"`
	Expected        string     `json:"expected"`
	Status          StepStatus `json:"status"`
	Actual          string     `json:"actual,omitempty"`
	ScreenshotPaths []string   `json:"screenshot_paths,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
	Duration        time.Duration `json:"duration"`
	StateBefore     string     `json:"state_before,omitempty"`
	StateAfter      string     `json:"state_after,omitempty"`
	TestName        string     `json:"test_name,omitempty"`
	Grouping        string     `json:"grouping,omitempty"`
	Usage           Usage      `json:"usage"`
}

// TestResult aggregates the ordered step results of one test run.
type TestResult struct {
	Name      string       `json:"name"`
	Platform  string       `json:"platform"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Status    TestStatus   `json:"status"`
	Steps     []StepResult `json:"steps"`
	Usage     Usage        `json:"usage"`
}

// PassedCount returns the number of steps that passed verification.
func (t *TestResult) PassedCount() int { return t.countStatus(StepPass) }

// FailedCount returns the number of steps that failed verification.
func (t *TestResult) FailedCount() int { return t.countStatus(StepFail) }

// ErrorCount returns the number of steps that aborted with an error.
func (t *TestResult) ErrorCount() int { return t.countStatus(StepError) }

func (t *TestResult) countStatus(s StepStatus) int {
	n := 0
	for _, step := range t.Steps {
		if step.Status == s {
			n++
		}
	}
	return n
}
