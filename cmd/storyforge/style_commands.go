package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"storyforge/internal/generation"
	"storyforge/internal/project"
)

func newStyleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "style",
		Short: "Configure project-wide style and model settings",
	}
	cmd.AddCommand(newStylePresetCommand(ctx))
	cmd.AddCommand(newStyleDirectionCommand(ctx))
	cmd.AddCommand(newStyleModelsCommand(ctx))
	return cmd
}

func newStylePresetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preset <project-id> <preset>",
		Short: "Apply a built-in style preset",
		Long: fmt.Sprintf("Apply a built-in style preset.\n\nAvailable presets: %s.",
			strings.Join(generation.StylePresetNames(), ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			if err := service.SetStylePreset(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("style preset set to %s\n", args[1])
			return nil
		},
	}
}

func newStyleDirectionCommand(ctx *commandContext) *cobra.Command {
	var (
		name     string
		prompt   string
		negative string
	)
	cmd := &cobra.Command{
		Use:   "direction <project-id>",
		Short: "Set custom art direction (overrides any preset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt is required")
			}
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			err = service.SetArtDirection(cmd.Context(), args[0], project.ArtDirection{
				StyleName:      name,
				StylePrompt:    prompt,
				NegativePrompt: negative,
			})
			if err != nil {
				return err
			}
			fmt.Println("art direction updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name for the art direction")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Style prompt appended to every generation")
	cmd.Flags().StringVar(&negative, "negative", "", "Negative prompt appended to every generation")
	return cmd
}

func newStyleModelsCommand(ctx *commandContext) *cobra.Command {
	var (
		imageModel  string
		videoModel  string
		aspectRatio string
	)
	cmd := &cobra.Command{
		Use:   "models <project-id>",
		Short: "Set per-project model and aspect ratio overrides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			err = service.SetModelSettings(cmd.Context(), args[0], project.ModelSettings{
				ImageModel:  imageModel,
				VideoModel:  videoModel,
				AspectRatio: aspectRatio,
			})
			if err != nil {
				return err
			}
			fmt.Println("model settings updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&imageModel, "image-model", "", "Image generation model")
	cmd.Flags().StringVar(&videoModel, "video-model", "", "Video generation model")
	cmd.Flags().StringVar(&aspectRatio, "aspect-ratio", "", fmt.Sprintf("Aspect ratio (%s)", strings.Join(project.SupportedAspectRatios(), ", ")))
	return cmd
}
