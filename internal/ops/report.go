package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ReportInput contains parameters for the Report operation.
type ReportInput struct {
	Owner  Owner
	Months *int      // monthly window, see MonthlyInput
	Now    time.Time // zero means time.Now()
}

// Report renders every distribution as a Markdown document with GFM tables.
// Each section is its own query; sections are not mutually consistent if
// migraines are logged while the report is built.
func Report(ctx context.Context, database *sql.DB, input ReportInput) (string, error) {
	owner := input.Owner
	if err := validateOwner(owner); err != nil {
		return "", err
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	overview, err := Overview(ctx, database, owner)
	if err != nil {
		return "", err
	}
	monthly, err := Monthly(ctx, database, MonthlyInput{Owner: owner, Months: input.Months, Now: now})
	if err != nil {
		return "", err
	}
	weekdays, err := ByWeekday(ctx, database, owner)
	if err != nil {
		return "", err
	}
	meds, err := ByMedication(ctx, database, owner)
	if err != nil {
		return "", err
	}
	natures, err := ByNature(ctx, database, owner)
	if err != nil {
		return "", err
	}
	intensities, err := ByIntensity(ctx, database, owner)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	title := "Migraine report"
	if owner.Email != "" {
		title += " for " + owner.Email
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "_Generated %s_\n\n", now.UTC().Format(time.RFC3339))

	b.WriteString("## Overview\n\n")
	b.WriteString("| Metric | Value |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Total migraines | %d |\n", overview.TotalMigraines)
	fmt.Fprintf(&b, "| With medication | %d |\n", overview.WithMedication)
	fmt.Fprintf(&b, "| Without medication | %d |\n", overview.WithoutMedication)
	fmt.Fprintf(&b, "| Average intensity | %.1f |\n", overview.AverageIntensity)
	fmt.Fprintf(&b, "| On period | %d |\n\n", overview.OnPeriodCount)

	fmt.Fprintf(&b, "## Monthly (%s to %s)\n\n", monthly.PeriodStart, monthly.PeriodEnd)
	b.WriteString("| Month | Count |\n|---|---:|\n")
	for _, m := range monthly.Months {
		fmt.Fprintf(&b, "| %s | %d |\n", m.MonthName, m.Count)
	}
	b.WriteString("\n")

	b.WriteString("## By day of week\n\n")
	b.WriteString("| Day | Count |\n|---|---:|\n")
	for _, d := range weekdays.Days {
		fmt.Fprintf(&b, "| %s | %d |\n", capitalize(d.Day), d.Count)
	}
	b.WriteString("\n")

	b.WriteString("## By medication\n\n")
	if len(meds.Medications) == 0 {
		b.WriteString("No migraines logged.\n\n")
	} else {
		b.WriteString("| Medication | Count |\n|---|---:|\n")
		for _, m := range meds.Medications {
			fmt.Fprintf(&b, "| %s | %d |\n", escapeCell(m.Name), m.Count)
		}
		b.WriteString("\n")
	}

	b.WriteString("## By nature\n\n")
	b.WriteString("| Nature | Count |\n|---|---:|\n")
	for _, n := range natures.Natures {
		fmt.Fprintf(&b, "| %s | %d |\n", n.Label, n.Count)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## By intensity (average %.1f)\n\n", intensities.Average)
	b.WriteString("| Intensity | Count |\n|---:|---:|\n")
	for _, i := range intensities.Intensities {
		fmt.Fprintf(&b, "| %d | %d |\n", i.Intensity, i.Count)
	}

	return b.String(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// escapeCell keeps user-supplied text from breaking a table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
