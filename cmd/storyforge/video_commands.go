package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyforge/internal/project"
	"storyforge/internal/videotask"
)

func newVideoCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Manage image-to-video tasks",
	}
	cmd.AddCommand(newVideoCreateCommand(ctx))
	cmd.AddCommand(newVideoProcessCommand(ctx))
	cmd.AddCommand(newVideoListCommand(ctx))
	cmd.AddCommand(newVideoSelectCommand(ctx))
	cmd.AddCommand(newVideoDeleteCommand(ctx))
	return cmd
}

func newVideoCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		variantID string
		prompt    string
		mode      string
		audio     bool
		process   bool
	)
	cmd := &cobra.Command{
		Use:   "create <project-id> <kind> <owner-id>",
		Short: "Create a video task from an entity's selected image",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[1])
			if err != nil {
				return err
			}
			audioMode := project.AudioModeNone
			if audio {
				audioMode = project.AudioModeAuto
			}

			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			taskID, err := service.CreateVideoTask(cmd.Context(), videotask.CreateRequest{
				ProjectID: args[0],
				OwnerKind: kind,
				OwnerID:   args[2],
				VariantID: variantID,
				Prompt:    prompt,
				Mode:      project.VideoMode(mode),
				AudioMode: audioMode,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created video task %s\n", taskID)
			if !process {
				return nil
			}
			if err := service.ProcessVideoTask(cmd.Context(), args[0], taskID); err != nil {
				return err
			}
			fmt.Printf("video task %s completed\n", taskID)
			return nil
		},
	}
	cmd.Flags().StringVar(&variantID, "variant", "", "Source variant (defaults to the slot's selection)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Motion prompt")
	cmd.Flags().StringVar(&mode, "mode", string(project.VideoModeImage), "Generation mode (i2v or r2v)")
	cmd.Flags().BoolVar(&audio, "audio", false, "Request automatic audio")
	cmd.Flags().BoolVar(&process, "process", false, "Run the task to completion instead of leaving it pending")
	return cmd
}

func newVideoProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <project-id> <task-id>",
		Short: "Run a pending video task to completion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			if err := service.ProcessVideoTask(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("video task %s completed\n", args[1])
			return nil
		},
	}
}

func newVideoListCommand(ctx *commandContext) *cobra.Command {
	var (
		kindFlag string
		ownerID  string
	)
	cmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List video tasks, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind project.Kind
			if kindFlag != "" {
				parsed, err := parseKind(kindFlag)
				if err != nil {
					return err
				}
				kind = parsed
			}

			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			tasks, err := service.ListTasks(cmd.Context(), args[0], kind, ownerID)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Println("no video tasks")
				return nil
			}

			rows := make([][]string, 0, len(tasks))
			for i := range tasks {
				t := &tasks[i]
				detail := t.VideoURL
				if t.Status == project.StatusFailed {
					detail = t.ErrorMessage
				}
				rows = append(rows, []string{
					shortID(t.ID),
					string(t.OwnerKind),
					shortID(t.OwnerID),
					string(t.Mode),
					string(t.Status),
					formatTime(t.CreatedAt),
					detail,
				})
			}
			printRows(
				[]string{"ID", "Kind", "Owner", "Mode", "Status", "Created", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", "", "Filter by owner kind")
	cmd.Flags().StringVar(&ownerID, "owner", "", "Filter by owner entity id (requires --kind)")
	return cmd
}

func newVideoSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select <project-id> <frame-id> <task-id>",
		Short: "Pick the video used for a frame during final assembly",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			if err := service.SelectFrameVideo(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Printf("frame %s now uses video from task %s\n", args[1], args[2])
			return nil
		},
	}
}

func newVideoDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id> <task-id>",
		Short: "Delete a video task and its input snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			if err := service.DeleteVideoTask(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("deleted video task %s\n", args[1])
			return nil
		},
	}
}
