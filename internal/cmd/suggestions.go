package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/harrison/devscan/internal/logger"
	"github.com/harrison/devscan/internal/models"
	"github.com/harrison/devscan/internal/store"
	"github.com/spf13/cobra"
)

// NewSuggestionsCommand creates the 'devscan suggestions' command group
func NewSuggestionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "Review project suggestions produced by scans",
	}

	cmd.AddCommand(newSuggestionsListCommand())
	cmd.AddCommand(newProjectDecisionCommand("accept", models.StatusAccepted))
	cmd.AddCommand(newProjectDecisionCommand("reject", models.StatusRejected))
	return cmd
}

func newSuggestionsListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List project suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID, _ := cmd.Flags().GetString("scan")
			statusFlag, _ := cmd.Flags().GetString("status")

			var status models.DecisionStatus
			if statusFlag != "" && !strings.EqualFold(statusFlag, "all") {
				st, err := models.ParseDecisionStatus(statusFlag)
				if err != nil {
					return err
				}
				status = st
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			suggestions, err := a.store.ListProjectSuggestions(cmd.Context(), scanID, status)
			if err != nil {
				return err
			}
			printProjectSuggestions(cmd.OutOrStdout(), suggestions)
			return nil
		},
	}
	cmd.Flags().String("scan", "", "Only show suggestions from this scan")
	cmd.Flags().String("status", "Pending", "Filter by status: Pending, Accepted, Rejected or all")
	return cmd
}

func newProjectDecisionCommand(verb string, status models.DecisionStatus) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <suggestion-id>...",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " project suggestions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, arg := range args {
				id, err := parseID("suggestion", arg)
				if err != nil {
					return err
				}
				projectID, err := a.store.DecideProjectSuggestion(cmd.Context(), id, status)
				if err != nil {
					return fmt.Errorf("%s suggestion %d: %w", verb, id, err)
				}
				if projectID != 0 {
					fmt.Fprintf(out, "suggestion %d accepted as project %d\n", id, projectID)
				} else {
					fmt.Fprintf(out, "suggestion %d %s\n", id, strings.ToLower(string(status)))
				}
			}
			return nil
		},
	}
}

func printProjectSuggestions(w io.Writer, suggestions []*store.StoredProjectSuggestion) {
	if len(suggestions) == 0 {
		fmt.Fprintln(w, "No project suggestions.")
		return
	}
	fmt.Fprintf(w, "%-5s %-9s %-5s %-22s %s\n", "ID", "STATUS", "SCORE", "KIND", "PATH")
	for _, sg := range suggestions {
		score := fmt.Sprintf("%.2f", sg.Score)
		fmt.Fprintf(w, "%-5d %-9s %-5s %-22s %s\n",
			sg.ID, logger.ColorStatus(sg.Status), logger.ColorConfidence(sg.Score, score), sg.Kind, sg.Path)
		if sg.Reason != "" {
			fmt.Fprintf(w, "      %s\n", sg.Reason)
		}
	}
}
