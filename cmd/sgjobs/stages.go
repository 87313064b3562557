package main

import (
	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sgjobs/internal/pipeline"
)

func (a *app) ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Read the raw CSV and write the structured Parquet and CSV snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, done := a.pipeline()
			defer done()

			res, err := p.Ingest(cmd.Context())
			if err != nil {
				return hint(err)
			}

			printIngest(res)

			return nil
		},
	}
}

func (a *app) cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Clean the structured snapshot into the clean CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, done := a.pipeline()
			defer done()

			res, err := p.Clean(cmd.Context())
			if err != nil {
				return hint(err)
			}

			return printClean(res)
		},
	}
}

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Ingest then clean in one locked run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, done := a.pipeline()
			defer done()

			res, err := p.Run(cmd.Context())
			if res != nil && res.Ingest != nil {
				printIngest(res.Ingest)
			}

			if err != nil {
				return hint(err)
			}

			return printClean(res.Clean)
		},
	}
}

func (a *app) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Summarise the clean CSV into a signed markdown report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, done := a.pipeline()
			defer done()

			res, err := p.Report(cmd.Context())
			if err != nil {
				return hint(err)
			}

			k := res.Summary.KPIs
			pterm.Info.Printfln("Loaded %s of %s rows (%s salary outliers, %s outside the experience range)",
				humanize.Comma(int64(res.Load.Rows)), humanize.Comma(int64(res.Load.RowsRead)),
				humanize.Comma(int64(res.Load.SalaryOutliers)), humanize.Comma(int64(res.Load.ExperienceOut)))
			pterm.Info.Printfln("%s postings from %s companies across %s sectors",
				humanize.Comma(int64(k.Postings)), humanize.Comma(int64(k.Companies)), humanize.Comma(int64(k.Sectors)))
			pterm.Success.Printfln("Report written to %s", res.Output)

			return nil
		},
	}
}

func printIngest(res *pipeline.IngestResult) {
	n := res.Normalize
	if len(n.MissingColumns) > 0 {
		pterm.Warning.Printfln("Columns absent from the raw file: %v", n.MissingColumns)
	}

	if n.UnknownBools+n.InvalidDates+n.InvalidNumbers > 0 {
		pterm.Warning.Printfln("Values set to null: %s booleans, %s dates, %s numbers",
			humanize.Comma(int64(n.UnknownBools)), humanize.Comma(int64(n.InvalidDates)), humanize.Comma(int64(n.InvalidNumbers)))
	}

	pterm.Success.Printfln("Ingested %s rows and %d columns", humanize.Comma(int64(res.Rows)), res.Columns)

	for _, out := range res.Outputs {
		pterm.Info.Printfln("Wrote %s", out)
	}
}

func printClean(res *pipeline.CleanResult) error {
	s := res.Stats

	data := pterm.TableData{
		{"Step", "Rows"},
		{"Input", humanize.Comma(int64(s.InputRows))},
		{"Duplicate ids", humanize.Comma(int64(s.Duplicates))},
		{"Missing title", humanize.Comma(int64(s.MissingTitle))},
		{"Invalid salary", humanize.Comma(int64(s.InvalidSalary))},
		{"Output", humanize.Comma(int64(s.OutputRows))},
	}

	if err := pterm.DefaultTable.WithHasHeader().WithRightAlignment().WithData(data).Render(); err != nil {
		return err
	}

	if len(s.DroppedColumns) > 0 {
		pterm.Info.Printfln("Dropped columns: %v", s.DroppedColumns)
	}

	if s.FilledValues > 0 {
		pterm.Info.Printfln("Filled %s numeric gaps with 0", humanize.Comma(int64(s.FilledValues)))
	}

	pterm.Success.Printfln("Clean table written to %s (%d columns)", res.Output, res.Columns)

	return nil
}
