package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"storyforge/internal/generation"
	"storyforge/internal/project"
)

func newAssetCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Generate and manage asset entities",
	}
	cmd.AddCommand(newAssetGenerateCommand(ctx))
	cmd.AddCommand(newAssetPatchCommand(ctx))
	cmd.AddCommand(newAssetLockCommand(ctx))
	cmd.AddCommand(newAssetVoiceCommand(ctx))
	return cmd
}

func newAssetPatchCommand(ctx *commandContext) *cobra.Command {
	var patchJSON string
	cmd := &cobra.Command{
		Use:   "patch <project-id> <kind> <entity-id>",
		Short: "Update entity fields from a JSON patch",
		Long: `Update entity fields from a JSON patch.

Only fields present in the JSON are changed; unknown fields are rejected.
For example: --json '{"description":"a rusting lighthouse"}'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[1])
			if err != nil {
				return err
			}
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			data := []byte(patchJSON)
			switch kind {
			case project.KindCharacter:
				var patch project.CharacterPatch
				if err := project.DecodePatch(data, &patch); err != nil {
					return err
				}
				err = service.PatchCharacter(cmd.Context(), args[0], args[2], patch)
			case project.KindScene:
				var patch project.ScenePatch
				if err := project.DecodePatch(data, &patch); err != nil {
					return err
				}
				err = service.PatchScene(cmd.Context(), args[0], args[2], patch)
			case project.KindProp:
				var patch project.PropPatch
				if err := project.DecodePatch(data, &patch); err != nil {
					return err
				}
				err = service.PatchProp(cmd.Context(), args[0], args[2], patch)
			case project.KindFrame:
				var patch project.FramePatch
				if err := project.DecodePatch(data, &patch); err != nil {
					return err
				}
				err = service.PatchFrame(cmd.Context(), args[0], args[2], patch)
			}
			if err != nil {
				return err
			}
			fmt.Printf("patched %s %s\n", kind, args[2])
			return nil
		},
	}
	cmd.Flags().StringVar(&patchJSON, "json", "", "JSON object with the fields to change")
	_ = cmd.MarkFlagRequired("json")
	return cmd
}

func newAssetGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		stage    string
		batch    int
		prompt   string
		style    string
		negative string
		noStyle  bool
		model    string
	)

	cmd := &cobra.Command{
		Use:   "generate <project-id> <kind> <entity-id>",
		Short: "Run an image batch for an asset slot",
		Long: `Run an image batch for an asset slot.

Characters use --stage full_body, three_view, or headshot; frames use
--stage sketch or rendered. Scenes and props have a single slot.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[1])
			if err != nil {
				return err
			}
			if stage == "" {
				switch kind {
				case project.KindCharacter:
					stage = string(project.StageFullBody)
				case project.KindFrame:
					stage = string(project.FrameStageRendered)
				}
			}

			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			err = service.GenerateAsset(cmd.Context(), generation.Request{
				ProjectID:      args[0],
				Kind:           kind,
				EntityID:       args[2],
				Stage:          stage,
				BatchSize:      batch,
				Prompt:         prompt,
				StyleOverride:  style,
				NegativePrompt: negative,
				ApplyStyle:     !noStyle,
				Model:          model,
			})
			if err != nil {
				return err
			}
			fmt.Printf("generated %s %s (%s), batch of %s\n",
				kind, args[2], displayLabel(stage), strconv.Itoa(max(batch, 1)))
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "Asset slot (characters: full_body/three_view/headshot, frames: sketch/rendered)")
	cmd.Flags().IntVar(&batch, "batch", 1, "Number of variants to generate")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Override the default prompt")
	cmd.Flags().StringVar(&style, "style", "", "Per-request style prompt (art direction still wins)")
	cmd.Flags().StringVar(&negative, "negative", "", "Negative prompt")
	cmd.Flags().BoolVar(&noStyle, "no-style", false, "Skip style application entirely")
	cmd.Flags().StringVar(&model, "model", "", "Override the configured image model")
	return cmd
}

func newAssetLockCommand(ctx *commandContext) *cobra.Command {
	var unlock bool
	cmd := &cobra.Command{
		Use:   "lock <project-id> <kind> <entity-id>",
		Short: "Lock an entity against generation and edits",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[1])
			if err != nil {
				return err
			}
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := service.SetLocked(cmd.Context(), args[0], kind, args[2], !unlock); err != nil {
				return err
			}
			state := "locked"
			if unlock {
				state = "unlocked"
			}
			fmt.Printf("%s %s %s\n", state, kind, args[2])
			return nil
		},
	}
	cmd.Flags().BoolVar(&unlock, "unlock", false, "Unlock instead of lock")
	return cmd
}

func newAssetVoiceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "voice <project-id> <character-id> <voice-id>",
		Short: "Bind a voice to a character",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := service.BindVoice(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Printf("bound voice %s to character %s\n", args[2], args[1])
			return nil
		},
	}
}
