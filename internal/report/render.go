package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"sgjobs/internal/formatter"
	"sgjobs/pkg/metadata"
)

const notAvailable = "n/a"

// RenderOptions describes the document around the summary.
type RenderOptions struct {
	Title       string
	Source      string
	GeneratedAt time.Time
}

// Render writes the summary as a signed markdown document.
func Render(s *Summary, opts RenderOptions) string {
	title := opts.Title
	if title == "" {
		title = "Singapore Job Postings Summary"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", title)

	sb.WriteString("## Overview\n\n")
	sb.WriteString(formatter.RenderTable(
		[]string{"Metric", "Value"},
		[][]string{
			{"Job postings", humanize.Comma(int64(s.KPIs.Postings))},
			{"Hiring companies", humanize.Comma(int64(s.KPIs.Companies))},
			{"Sectors", humanize.Comma(int64(s.KPIs.Sectors))},
			{"Mean salary (SGD)", money(s.KPIs.MeanSalary)},
			{"Median salary (SGD)", money(s.KPIs.MedianSalary)},
			{"Median experience (years)", decimal(s.KPIs.MedianExperience, 1)},
			{"Total vacancies", money(s.KPIs.TotalVacancies)},
			{"Total applications", money(s.KPIs.TotalApplications)},
			{"Applications per vacancy", decimal(s.KPIs.AppsPerVacancy, 2)},
		},
		formatter.AlignLeft, formatter.AlignRight,
	))

	writeGroups(&sb, fmt.Sprintf("Top %d sectors", len(s.TopCategories)), "Sector", s.TopCategories)
	writeGroups(&sb, "Employment types", "Employment type", s.EmploymentTypes)

	if len(s.Months) > 0 {
		rows := make([][]string, 0, len(s.Months))
		for _, m := range s.Months {
			rows = append(rows, []string{
				m.Month,
				humanize.Comma(int64(m.Postings)),
				decimal(m.AppsPerPost, 2),
				decimal(m.ViewsPerPost, 2),
				money(m.MedianSalary),
			})
		}

		sb.WriteString("\n## Monthly trend\n\n")
		sb.WriteString(formatter.RenderTable(
			[]string{"Month", "Postings", "Applications per posting", "Views per posting", "Median salary"},
			rows,
			formatter.AlignLeft, formatter.AlignRight, formatter.AlignRight, formatter.AlignRight, formatter.AlignRight,
		))
	}

	writeGroups(&sb, "Salary by experience", "Experience (years)", s.ExperienceBands)

	return metadata.Sign(sb.String(), metadata.Metadata{GeneratedAt: opts.GeneratedAt, Source: opts.Source})
}

func writeGroups(sb *strings.Builder, heading, label string, groups []Group) {
	if len(groups) == 0 {
		return
	}

	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g.Label, humanize.Comma(int64(g.Postings)), money(g.MedianSalary)})
	}

	fmt.Fprintf(sb, "\n## %s\n\n", heading)
	sb.WriteString(formatter.RenderTable(
		[]string{label, "Postings", "Median salary"},
		rows,
		formatter.AlignLeft, formatter.AlignRight, formatter.AlignRight,
	))
}

// money formats a whole-number amount with thousands separators.
func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}

	return humanize.Comma(int64(math.Round(v)))
}

func decimal(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}

	return strconv.FormatFloat(v, 'f', digits, 64)
}
