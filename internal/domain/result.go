package domain

import "time"

type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusSkip  Status = "SKIP"
	StatusError Status = "ERROR"
)

// Failing reports whether the status counts against the overall verdict.
func (s Status) Failing() bool {
	return s == StatusFail || s == StatusError
}

// TestResult is the outcome of one test execution. Duration is in seconds.
type TestResult struct {
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Duration  float64        `json:"duration"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewResult stamps a result with the current UTC time and clamps a negative
// duration to zero.
func NewResult(name string, status Status, d time.Duration, msg string, details map[string]any) TestResult {
	secs := d.Seconds()
	if secs < 0 {
		secs = 0
	}
	return TestResult{
		Name:      name,
		Status:    status,
		Duration:  secs,
		Message:   msg,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// QualifiedName joins suite and test names the way results are reported.
func QualifiedName(suite, test string) string {
	return suite + "." + test
}
