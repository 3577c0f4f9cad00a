package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/harrison/devscan/internal/classify/project"
	"github.com/harrison/devscan/internal/regression"
	"github.com/spf13/cobra"
)

// NewRegressCommand creates the 'devscan regress' command
func NewRegressCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regress",
		Short: "Replay saved snapshots against the current classifier",
		Long: `Re-run the project classifier over every saved scan snapshot that has
decided suggestions and report drift:
  - accepted projects the classifier no longer finds
  - rejected paths it no longer produces
  - candidates with no recorded decision

Exit code: 0 when no accepted project went missing, 1 otherwise`,
		Args: cobra.NoArgs,
		RunE: runRegress,
	}
	cmd.Flags().Bool("json", false, "Print the summary as JSON")
	return cmd
}

func runRegress(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	scans, err := a.store.ScanDecisions(ctx)
	if err != nil {
		return err
	}

	summary, err := regression.NewAnalyzer(project.NewClassifier(), a.log).Analyze(ctx, scans)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
	} else {
		printRegression(cmd.OutOrStdout(), summary)
	}

	if summary.HasRegressions() {
		return fmt.Errorf("%d accepted project(s) no longer detected", summary.AcceptedMissingCount)
	}
	return nil
}

func printRegression(w io.Writer, s *regression.Summary) {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	fmt.Fprintf(w, "=== Regression Summary ===\n")
	fmt.Fprintf(w, "Scans analyzed: %d (skipped %d)\n", s.ScansAnalyzed, len(s.Skipped))

	for _, r := range s.Reports {
		fmt.Fprintf(w, "\nScan %s: %d candidates, %d accepted, %d rejected\n",
			r.ScanID, r.CandidateCount, r.AcceptedCount, r.RejectedCount)
		for _, p := range r.AcceptedMissingPaths {
			red.Fprintf(w, "  accepted missing: %s\n", p)
		}
		for _, p := range r.RejectedMissingPaths {
			yellow.Fprintf(w, "  rejected missing: %s\n", p)
		}
		if r.NewCandidateCount > 0 {
			fmt.Fprintf(w, "  new candidates: %d\n", r.NewCandidateCount)
		}
	}
	for _, sk := range s.Skipped {
		fmt.Fprintf(w, "Skipped %s: %s\n", sk.ScanID, sk.Reason)
	}

	fmt.Fprintln(w)
	if s.HasRegressions() {
		red.Fprintf(w, "Accepted missing: %d\n", s.AcceptedMissingCount)
	} else {
		green.Fprintf(w, "Accepted missing: %d\n", s.AcceptedMissingCount)
	}
	fmt.Fprintf(w, "Rejected missing: %d\n", s.RejectedMissingCount)
	fmt.Fprintf(w, "New candidates: %d\n", s.NewCandidateCount)
}
