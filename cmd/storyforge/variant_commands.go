package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyforge/internal/api"
)

func newVariantCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "variant",
		Short: "Manage variant pools",
	}
	cmd.AddCommand(newVariantSelectCommand(ctx))
	cmd.AddCommand(newVariantDeleteCommand(ctx))
	cmd.AddCommand(newVariantFavoriteCommand(ctx))
	cmd.AddCommand(newVariantUploadCommand(ctx))
	return cmd
}

func slotFlags(cmd *cobra.Command, stage *string) {
	cmd.Flags().StringVar(stage, "stage", "", "Asset slot (characters: full_body/three_view/headshot, frames: sketch/rendered)")
}

func slotFromArgs(args []string, stage string) (api.SlotRef, error) {
	kind, err := parseKind(args[1])
	if err != nil {
		return api.SlotRef{}, err
	}
	return api.SlotRef{
		ProjectID: args[0],
		Kind:      kind,
		EntityID:  args[2],
		Stage:     stage,
	}, nil
}

func newVariantSelectCommand(ctx *commandContext) *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "select <project-id> <kind> <entity-id> <variant-id>",
		Short: "Select the active variant for a slot",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := slotFromArgs(args, stage)
			if err != nil {
				return err
			}
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			if err := service.SelectVariant(cmd.Context(), slot, args[3]); err != nil {
				return err
			}
			fmt.Printf("selected variant %s\n", args[3])
			return nil
		},
	}
	slotFlags(cmd, &stage)
	return cmd
}

func newVariantDeleteCommand(ctx *commandContext) *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "delete <project-id> <kind> <entity-id> <variant-id>",
		Short: "Delete a variant (selection falls to the newest remaining)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := slotFromArgs(args, stage)
			if err != nil {
				return err
			}
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			if err := service.DeleteVariant(cmd.Context(), slot, args[3]); err != nil {
				return err
			}
			fmt.Printf("deleted variant %s\n", args[3])
			return nil
		},
	}
	slotFlags(cmd, &stage)
	return cmd
}

func newVariantFavoriteCommand(ctx *commandContext) *cobra.Command {
	var stage string
	var remove bool
	cmd := &cobra.Command{
		Use:   "favorite <project-id> <kind> <entity-id> <variant-id>",
		Short: "Protect a variant from retention eviction",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := slotFromArgs(args, stage)
			if err != nil {
				return err
			}
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			if err := service.FavoriteVariant(cmd.Context(), slot, args[3], !remove); err != nil {
				return err
			}
			if remove {
				fmt.Printf("unfavorited variant %s\n", args[3])
			} else {
				fmt.Printf("favorited variant %s\n", args[3])
			}
			return nil
		},
	}
	slotFlags(cmd, &stage)
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the favorite flag")
	return cmd
}

func newVariantUploadCommand(ctx *commandContext) *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "upload <project-id> <kind> <entity-id> <image-url>",
		Short: "Register an uploaded image as the slot's selected source",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := slotFromArgs(args, stage)
			if err != nil {
				return err
			}
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			id, err := service.RegisterUpload(cmd.Context(), slot, args[3])
			if err != nil {
				return err
			}
			fmt.Printf("registered uploaded source %s\n", id)
			return nil
		},
	}
	slotFlags(cmd, &stage)
	return cmd
}
