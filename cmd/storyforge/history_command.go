package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <project-id>",
		Short: "Show recent generation events for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := service.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no history")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				target := shortID(e.EntityID)
				if e.Kind != "" {
					target = fmt.Sprintf("%s %s", e.Kind, shortID(e.EntityID))
				}
				rows = append(rows, []string{
					formatTime(e.RecordedAt),
					e.Category,
					target,
					displayLabel(e.Stage),
					e.Model,
					e.Outcome,
					e.Duration.Round(time.Millisecond).String(),
				})
			}
			printRows(
				[]string{"When", "Type", "Target", "Stage", "Model", "Outcome", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to show (default 50)")
	return cmd
}
