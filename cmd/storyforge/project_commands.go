package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storyforge/internal/api"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage productions",
	}
	cmd.AddCommand(newProjectCreateCommand(ctx))
	cmd.AddCommand(newProjectListCommand(ctx))
	cmd.AddCommand(newProjectShowCommand(ctx))
	cmd.AddCommand(newProjectDeleteCommand(ctx))
	cmd.AddCommand(newProjectReparseCommand(ctx))
	return cmd
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	var scriptFile string
	var draft bool

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a project from a script (or as an empty draft)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			var script string
			if scriptFile != "" {
				data, err := os.ReadFile(scriptFile)
				if err != nil {
					return fmt.Errorf("read script: %w", err)
				}
				script = string(data)
			}
			if script == "" && !draft {
				return fmt.Errorf("either --script or --draft is required")
			}

			p, err := service.CreateProject(cmd.Context(), api.CreateProjectRequest{
				Title:        args[0],
				Script:       script,
				SkipAnalysis: draft,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created project %s (%d characters, %d scenes, %d frames)\n",
				p.ID, len(p.Characters), len(p.Scenes), len(p.Frames))
			return nil
		},
	}
	cmd.Flags().StringVar(&scriptFile, "script", "", "Path to the script or novel excerpt")
	cmd.Flags().BoolVar(&draft, "draft", false, "Skip analysis and create an empty draft")
	return cmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			projects, err := service.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Println("no projects")
				return nil
			}

			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{
					p.ID,
					p.Title,
					fmt.Sprintf("%d", len(p.Characters)),
					fmt.Sprintf("%d", len(p.Frames)),
					fmt.Sprintf("%d", len(p.Tasks)),
					formatTime(p.CreatedAt),
				})
			}
			printRows(
				[]string{"ID", "Title", "Characters", "Frames", "Tasks", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			)
			return nil
		},
	}
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project's entities and storyboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := service.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s (%s)\n", p.Title, p.ID)
			if p.Genre != "" {
				fmt.Printf("genre: %s\n", p.Genre)
			}
			if !p.ArtDirection.Empty() {
				fmt.Printf("art direction: %s\n", p.ArtDirection.StyleName)
			} else if p.StylePreset != "" {
				fmt.Printf("style preset: %s\n", p.StylePreset)
			}
			if p.MergedVideoURL != "" {
				fmt.Printf("final video: %s\n", p.MergedVideoURL)
			}

			if len(p.Characters) > 0 {
				rows := make([][]string, 0, len(p.Characters))
				for i := range p.Characters {
					c := &p.Characters[i]
					consistent := "yes"
					if !c.IsConsistent() {
						consistent = "stale"
					}
					rows = append(rows, []string{
						shortID(c.ID), c.Name, string(c.Status),
						fmt.Sprintf("%d/%d/%d", c.FullBody.Len(), c.ThreeView.Len(), c.Headshot.Len()),
						consistent,
						lockedLabel(c.Locked),
					})
				}
				fmt.Println("\ncharacters:")
				printRows(
					[]string{"ID", "Name", "Status", "Variants", "Derived", "Locked"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
			}

			if len(p.Scenes) > 0 {
				rows := make([][]string, 0, len(p.Scenes))
				for i := range p.Scenes {
					sc := &p.Scenes[i]
					rows = append(rows, []string{
						shortID(sc.ID), sc.Name, string(sc.Status),
						fmt.Sprintf("%d", sc.Image.Len()), lockedLabel(sc.Locked),
					})
				}
				fmt.Println("\nscenes:")
				printRows(
					[]string{"ID", "Name", "Status", "Variants", "Locked"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
			}

			if len(p.Frames) > 0 {
				rows := make([][]string, 0, len(p.Frames))
				for i := range p.Frames {
					f := &p.Frames[i]
					desc := f.Description
					if len(desc) > 48 {
						desc = desc[:48] + "..."
					}
					video := "-"
					if f.SelectedVideoID != "" {
						video = shortID(f.SelectedVideoID)
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", f.Order), shortID(f.ID), string(f.Status),
						fmt.Sprintf("%d/%d", f.Sketch.Len(), f.Rendered.Len()),
						video, desc,
					})
				}
				fmt.Println("\nstoryboard:")
				printRows(
					[]string{"#", "ID", "Status", "Sketch/Render", "Video", "Description"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
			}
			return nil
		},
	}
}

func newProjectDeleteCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to delete without --force")
			}
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			if err := service.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted project %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm deletion")
	return cmd
}

func newProjectReparseCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reparse <project-id>",
		Short: "Re-run script analysis, replacing entities and storyboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("reparse discards all generated assets; pass --force to confirm")
			}
			service, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()
			if err := service.Reparse(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("reparsed project %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm discarding generated assets")
	return cmd
}

func lockedLabel(locked bool) string {
	if locked {
		return "locked"
	}
	return "-"
}
