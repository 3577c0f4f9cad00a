package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/harrison/devscan/internal/classify/tag"
	"github.com/harrison/devscan/internal/logger"
	"github.com/harrison/devscan/internal/models"
	"github.com/harrison/devscan/internal/store"
	"github.com/spf13/cobra"
)

// NewTagsCommand creates the 'devscan tags' command group
func NewTagsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage the tag catalog and tag suggestions",
	}

	cmd.AddCommand(newTagsAddCommand())
	cmd.AddCommand(newTagsListCommand())
	cmd.AddCommand(newTagsSuggestCommand())
	cmd.AddCommand(newTagsPendingCommand())
	cmd.AddCommand(newTagDecisionCommand("accept", models.StatusAccepted))
	cmd.AddCommand(newTagDecisionCommand("reject", models.StatusRejected))
	return cmd
}

func newTagsAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>...",
		Short: "Add tags to the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, name := range args {
				t, err := a.store.AddTag(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("add tag %q: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "tag %d: %s\n", t.ID, t.Name)
			}
			return nil
		},
	}
}

func newTagsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tag catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tags, err := a.store.ListTags(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tags) == 0 {
				fmt.Fprintln(out, "Tag catalog is empty. Add tags with: devscan tags add <name>")
				return nil
			}
			for _, t := range tags {
				fmt.Fprintf(out, "%-5d %s\n", t.ID, t.Name)
			}
			return nil
		},
	}
}

func newTagsSuggestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest catalog tags for accepted projects",
		Long: `Collect evidence for accepted projects (markers, tech hints, extension
counts, path names, file contents, size, README code fences, git remotes)
and store tag suggestions for catalog tags that clear the confidence
threshold. Evidence combinations you rejected before are not suggested
again.`,
		Args: cobra.NoArgs,
		RunE: runTagsSuggest,
	}
	cmd.Flags().Int64("project", 0, "Only suggest tags for this project")
	return cmd
}

func runTagsSuggest(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	projects, err := selectProjects(ctx, cmd, a.store)
	if err != nil {
		return err
	}
	catalog, err := a.store.ListTags(ctx)
	if err != nil {
		return err
	}
	if len(catalog) == 0 {
		a.log.Warnf("Tag catalog is empty; nothing to suggest")
		return nil
	}

	classifier, err := tag.NewClassifier(tag.Options{
		MinConfidence:   a.cfg.Tags.MinConfidence,
		ContentMaxFiles: a.cfg.Tags.ContentMaxFiles,
		SizeMaxFiles:    a.cfg.Tags.SizeMaxFiles,
		CacheEntries:    a.cfg.Tags.CacheEntries,
	}, a.store)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range projects {
		suggestions, err := classifier.Suggest(ctx, p, catalog)
		if err != nil {
			return fmt.Errorf("suggest tags for project %d: %w", p.ID, err)
		}
		if err := a.store.SaveTagSuggestions(ctx, p.ID, suggestions); err != nil {
			return err
		}
		a.log.Debugf("Project %d: %d tag suggestions", p.ID, len(suggestions))

		fmt.Fprintf(out, "%s (%s)\n", p.Name, p.Path)
		if len(suggestions) == 0 {
			fmt.Fprintln(out, "  no suggestions")
			continue
		}
		for _, sg := range suggestions {
			conf := fmt.Sprintf("%.2f", sg.Confidence)
			fmt.Fprintf(out, "  %-20s %s  %s\n", sg.TagName, logger.ColorConfidence(sg.Confidence, conf), sg.Reason)
		}
	}
	return nil
}

func selectProjects(ctx context.Context, cmd *cobra.Command, st *store.Store) ([]models.ProjectRecord, error) {
	if !cmd.Flags().Changed("project") {
		return st.ListProjects(ctx)
	}
	id, _ := cmd.Flags().GetInt64("project")
	if id <= 0 {
		return nil, fmt.Errorf("invalid project id %d", id)
	}
	p, err := st.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("project %d: %w", id, err)
	}
	return []models.ProjectRecord{p}, nil
}

func newTagsPendingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List stored tag suggestions awaiting a decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, _ := cmd.Flags().GetInt64("project")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			suggestions, err := a.store.ListTagSuggestions(cmd.Context(), projectID, models.StatusPending)
			if err != nil {
				return err
			}
			printTagSuggestions(cmd.OutOrStdout(), suggestions)
			return nil
		},
	}
	cmd.Flags().Int64("project", 0, "Only show suggestions for this project")
	return cmd
}

func newTagDecisionCommand(verb string, status models.DecisionStatus) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <tag-suggestion-id>...",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " tag suggestions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, arg := range args {
				id, err := parseID("tag suggestion", arg)
				if err != nil {
					return err
				}
				if err := a.store.DecideTagSuggestion(cmd.Context(), id, status); err != nil {
					return fmt.Errorf("%s tag suggestion %d: %w", verb, id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "tag suggestion %d %s\n", id, strings.ToLower(string(status)))
			}
			return nil
		},
	}
}

func printTagSuggestions(w io.Writer, suggestions []*store.StoredTagSuggestion) {
	if len(suggestions) == 0 {
		fmt.Fprintln(w, "No tag suggestions.")
		return
	}
	fmt.Fprintf(w, "%-5s %-8s %-20s %-5s %s\n", "ID", "PROJECT", "TAG", "CONF", "REASON")
	for _, sg := range suggestions {
		conf := fmt.Sprintf("%.2f", sg.Confidence)
		fmt.Fprintf(w, "%-5d %-8d %-20s %-5s %s\n",
			sg.ID, sg.ProjectID, sg.TagName, logger.ColorConfidence(sg.Confidence, conf), sg.Reason)
	}
}
