package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/hamed0406/infraprobe/internal/domain"
)

// ErrNotFound is returned by Load for a missing report file.
var ErrNotFound = errors.New("report not found")

type Summary struct {
	StartTime            time.Time     `json:"start_time"`
	EndTime              time.Time     `json:"end_time"`
	TotalDurationSeconds float64       `json:"total_duration_seconds"`
	Environment          string        `json:"environment"`
	Region               string        `json:"region"`
	TotalTests           int           `json:"total_tests"`
	Passed               int           `json:"passed"`
	Failed               int           `json:"failed"`
	Errors               int           `json:"errors"`
	Skipped              int           `json:"skipped"`
	SuccessRate          float64       `json:"success_rate"`
	OverallStatus        domain.Status `json:"overall_status"`
}

type Metadata struct {
	RunnerVersion string    `json:"runner_version"`
	AWSRegion     string    `json:"aws_region"`
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
}

type Report struct {
	Summary  Summary             `json:"summary"`
	Results  []domain.TestResult `json:"results"`
	Metadata Metadata            `json:"metadata"`
}

// Meta describes the run a report is built for.
type Meta struct {
	Start       time.Time
	End         time.Time
	Environment string
	Region      string
	RunID       string
	Version     string
}

// Build aggregates results into a report. It does not modify results and
// may be called any number of times.
func Build(results []domain.TestResult, m Meta) Report {
	s := Summary{
		StartTime:            m.Start.UTC(),
		EndTime:              m.End.UTC(),
		TotalDurationSeconds: math.Max(0, m.End.Sub(m.Start).Seconds()),
		Environment:          m.Environment,
		Region:               m.Region,
		TotalTests:           len(results),
	}
	for _, r := range results {
		switch r.Status {
		case domain.StatusPass:
			s.Passed++
		case domain.StatusFail:
			s.Failed++
		case domain.StatusError:
			s.Errors++
		case domain.StatusSkip:
			s.Skipped++
		}
	}
	s.SuccessRate = SuccessRate(s.Passed, s.TotalTests)
	s.OverallStatus = domain.StatusPass
	if s.Failed > 0 || s.Errors > 0 {
		s.OverallStatus = domain.StatusFail
	}

	out := make([]domain.TestResult, len(results))
	copy(out, results)

	return Report{
		Summary: s,
		Results: out,
		Metadata: Metadata{
			RunnerVersion: m.Version,
			AWSRegion:     m.Region,
			RunID:         m.RunID,
			Timestamp:     m.End.UTC(),
		},
	}
}

// SuccessRate is passed/total as a percentage rounded to one decimal.
func SuccessRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(passed)/float64(total)*1000) / 10
}

// Counts returns the number of results per status, keyed by status name.
func (r Report) Counts() map[string]int {
	return map[string]int{
		string(domain.StatusPass):  r.Summary.Passed,
		string(domain.StatusFail):  r.Summary.Failed,
		string(domain.StatusError): r.Summary.Errors,
		string(domain.StatusSkip):  r.Summary.Skipped,
	}
}

// Encode renders the report as indented JSON without HTML escaping.
func Encode(r Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the report next to path and renames it into place, so a
// failed write never leaves a truncated file behind.
func Save(path string, r Report) error {
	b, err := Encode(r)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

func Load(path string) (Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Report{}, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return Report{}, err
	}
	var r Report
	if err := json.Unmarshal(b, &r); err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", path, err)
	}
	return r, nil
}
