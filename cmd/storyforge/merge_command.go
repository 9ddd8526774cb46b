package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <project-id>",
		Short: "Concatenate frame videos into the final cut",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			output, err := service.Merge(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("final video written to %s\n", output)
			return nil
		},
	}
}
