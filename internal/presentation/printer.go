package presentation

import (
	"fmt"
	"io"
	"strings"
	"time"

	"camport/internal/domain"
)

// Printer renders the human-readable run log: counts first, then every
// failure with its reason. No item is dropped silently.
type Printer struct {
	Writer io.Writer
}

func (p Printer) PrintReport(report domain.RunReport) {
	w := p.Writer

	fmt.Fprintln(w, "Import run")
	fmt.Fprintf(w, "  started:  %s\n", report.StartedAt.Format("2006-01-02 15:04:05"))
	if !report.FinishedAt.IsZero() {
		fmt.Fprintf(w, "  finished: %s (%s)\n",
			report.FinishedAt.Format("2006-01-02 15:04:05"),
			report.FinishedAt.Sub(report.StartedAt).Round(10*time.Millisecond))
	}
	fmt.Fprintln(w, strings.Repeat("-", 40))

	fmt.Fprintf(w, "Found:     %d\n", report.Found)
	fmt.Fprintf(w, "Supported: %d\n", report.Supported)
	fmt.Fprintf(w, "Copied:    %d\n", report.Copied)
	fmt.Fprintf(w, "Skipped:   %d\n", report.Skipped)
	fmt.Fprintf(w, "Failed:    %d\n", report.Failed)
	if report.Converted > 0 || report.ConversionsFailed > 0 {
		fmt.Fprintf(w, "Converted: %d (%d failed)\n", report.Converted, report.ConversionsFailed)
	}

	if len(report.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failures:")
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Reason)
		}
	}
	if len(report.ConversionFailures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Conversion failures (primary copies unaffected):")
		for _, f := range report.ConversionFailures {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Reason)
		}
	}
}
