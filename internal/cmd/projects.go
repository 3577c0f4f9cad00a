package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewProjectsCommand creates the 'devscan projects' command
func NewProjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List accepted projects and their tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			projects, err := a.store.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No accepted projects. Accept one with: devscan suggestions accept <id>")
				return nil
			}
			for _, p := range projects {
				fmt.Fprintf(out, "%-5d %-24s %s\n", p.ID, p.Name, p.Path)
				if len(p.AssignedTags) > 0 {
					fmt.Fprintf(out, "      tags: %s\n", strings.Join(p.AssignedTags, ", "))
				}
			}
			return nil
		},
	}
}
