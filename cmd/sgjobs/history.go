package main

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func (a *app) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openLedger()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				pterm.Info.Println("No runs recorded yet")
				return nil
			}

			data := pterm.TableData{{"ID", "Stage", "Started", "Duration", "Rows in", "Rows out", "Status"}}

			for _, r := range runs {
				status := pterm.Green("ok")
				if r.Failed() {
					status = pterm.Red(r.Error)
				}

				data = append(data, []string{
					humanize.Comma(r.ID),
					r.Stage,
					humanize.Time(r.StartedAt),
					r.Duration().Round(time.Millisecond).String(),
					humanize.Comma(int64(r.RowsIn)),
					humanize.Comma(int64(r.RowsOut)),
					status,
				})
			}

			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")

	return cmd
}
