package services

import (
	"fmt"
	"io"
	"strings"

	"rightmove-ingest/models"
)

// Summarize counts outcomes per status.
func Summarize(outcomes []models.Outcome) models.BatchSummary {
	s := models.BatchSummary{Total: len(outcomes)}

	for _, o := range outcomes {
		switch o.Status {
		case models.OutcomeInserted:
			s.Inserted++
		case models.OutcomeExists:
			s.Exists++
		case models.OutcomeInvalid:
			s.Invalid++
		case models.OutcomeError:
			s.Errors++
			s.FailedURLs = append(s.FailedURLs, o.URL)
		}
	}
	return s
}

// PrintSummary writes a human-readable batch report to w.
func PrintSummary(w io.Writer, s models.BatchSummary, outcomes []models.Outcome) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  INGESTION SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "  Submitted : \033[1m%d\033[0m\n", s.Total)
	fmt.Fprintf(w, "  Inserted  : \033[1;32m%d\033[0m\n", s.Inserted)
	fmt.Fprintf(w, "  Exists    : \033[1m%d\033[0m\n", s.Exists)
	fmt.Fprintf(w, "  Invalid   : \033[1;33m%d\033[0m\n", s.Invalid)
	fmt.Fprintf(w, "  Errors    : \033[1;31m%d\033[0m\n\n", s.Errors)

	fmt.Fprintf(w, "\033[1;33m  Per URL\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, o := range outcomes {
		line := fmt.Sprintf("  %-9s %s", o.Status, truncate(o.URL, 60))
		if o.Error != nil {
			line += "  (" + truncate(*o.Error, 60) + ")"
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
