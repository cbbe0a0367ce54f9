package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hamed0406/infraprobe/internal/domain"
)

const rule = "============================================================"

// PrintSummary writes the human-readable run summary. Colour styles are
// used only when color is set.
func PrintSummary(w io.Writer, r Report, color bool) {
	s := r.Summary

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "INFRASTRUCTURE TEST SUMMARY")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Environment: %s\n", s.Environment)
	fmt.Fprintf(w, "Region:      %s\n", s.Region)
	fmt.Fprintf(w, "Duration:    %.2f seconds\n", s.TotalDurationSeconds)
	fmt.Fprintf(w, "Start:       %s\n", s.StartTime.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(w, "End:         %s\n", s.EndTime.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintln(w)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Total", "Passed", "Failed", "Errors", "Skipped", "Success Rate"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Total", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Errors", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Success Rate", Align: text.AlignRight},
	})
	t.AppendRow(table.Row{s.TotalTests, s.Passed, s.Failed, s.Errors, s.Skipped, fmt.Sprintf("%.1f%%", s.SuccessRate)})
	if color {
		if s.OverallStatus == domain.StatusPass {
			t.SetStyle(table.StyleColoredBlackOnGreenWhite)
		} else {
			t.SetStyle(table.StyleColoredBlackOnRedWhite)
		}
	} else {
		t.SetStyle(table.StyleLight)
	}
	t.Render()

	var failed, passed []domain.TestResult
	for _, res := range r.Results {
		switch {
		case res.Status.Failing():
			failed = append(failed, res)
		case res.Status == domain.StatusPass:
			passed = append(passed, res)
		}
	}

	if len(failed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "FAILED TESTS:")
		for _, res := range failed {
			fmt.Fprintf(w, "  ✗ %s: %s\n", res.Name, res.Message)
		}
	}
	if len(passed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "PASSED TESTS:")
		for _, res := range passed {
			fmt.Fprintf(w, "  ✓ %s: %s\n", res.Name, res.Message)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, Verdict(r))
	fmt.Fprintln(w, rule)
}

// Verdict is the one-line overall outcome.
func Verdict(r Report) string {
	if r.Summary.OverallStatus == domain.StatusPass {
		return "OVERALL STATUS: PASS"
	}
	return "OVERALL STATUS: " + strings.ToUpper(string(r.Summary.OverallStatus)) +
		fmt.Sprintf(" (%d failed, %d errors)", r.Summary.Failed, r.Summary.Errors)
}
