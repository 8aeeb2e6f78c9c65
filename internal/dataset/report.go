package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tunelab/tunelab/internal/store"
)

// AuditReportPath is where WriteAuditReport places the report, relative to
// the project root. The data quality gate scans this file.
const AuditReportPath = "reports/data_audit.md"

// WriteAuditReport renders the report as the markdown document the data
// quality gate inspects.
func (r *Report) WriteAuditReport(root string) error {
	var b strings.Builder
	b.WriteString("# Data Audit\n\n")
	fmt.Fprintf(&b, "files: %d\n", r.Files)
	fmt.Fprintf(&b, "sample_count: %d\n", r.SampleCount)
	fmt.Fprintf(&b, "token_estimate: %d\n", r.TokenEstimate)
	fmt.Fprintf(&b, "coverage: %.1f%%\n", r.Coverage)
	fmt.Fprintf(&b, "duplicate_rate: %.1f%%\n", r.DuplicateRate)
	fmt.Fprintf(&b, "format_errors: %d\n", len(r.FormatErrors))
	fmt.Fprintf(&b, "readiness: %s\n", r.Readiness)

	b.WriteString("\n## Leakage check\n\n")
	if len(r.LeakedPairs) == 0 {
		b.WriteString("clean: no train/eval overlap detected\n")
	} else {
		for _, l := range r.LeakedPairs {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}

	if len(r.FormatErrors) > 0 {
		b.WriteString("\n## Format errors\n\n")
		for _, e := range r.FormatErrors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return store.WriteAtomic(filepath.Join(root, AuditReportPath), []byte(b.String()))
}
