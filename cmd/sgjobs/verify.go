package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sgjobs/internal/validator"
)

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [report.md]",
		Short: "Check the signature and table structure of a generated report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Pipeline.Paths.Report
			if len(args) == 1 {
				path = args[0]
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}

			result := validator.NewReportValidator("Overview").Validate(string(content))

			for _, w := range result.Warnings {
				pterm.Warning.Println(w)
			}

			for _, e := range result.Errors {
				pterm.Error.Println(e.String())
			}

			if err := result.Err(); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			pterm.Success.Printfln("%s is intact (%s)", path, result)

			if meta := result.Metadata; meta != nil {
				pterm.Info.Printfln("Generated %s from %s", meta.GeneratedAt.Format("2006-01-02 15:04:05 MST"), meta.Source)
			}

			return nil
		},
	}
}
