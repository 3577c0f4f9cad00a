package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/harrison/devscan/internal/classify/project"
	"github.com/harrison/devscan/internal/logger"
	"github.com/harrison/devscan/internal/models"
	"github.com/harrison/devscan/internal/scan"
	"github.com/harrison/devscan/internal/store"
	"github.com/spf13/cobra"
)

// NewScanCommand creates the 'devscan scan' command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan roots and suggest developer projects",
		Long: `Scan one root, every local volume, or the roots flagged as changed, and
store the project suggestions found in the resulting snapshot.

Exactly one of --root, --whole or --changed selects what is scanned;
--changed may be combined with --root to rescan a single flagged root.
Scans on the same disk wait for each other, and a whole-computer scan
waits for every other scan. Press Ctrl-C to stop the scan.`,
		Args: cobra.NoArgs,
		RunE: runScan,
	}

	cmd.Flags().Int64("root", 0, "ID of the root to scan")
	cmd.Flags().Bool("whole", false, "Scan every ready local volume")
	cmd.Flags().Bool("changed", false, "Scan roots flagged as changed")
	cmd.Flags().Int("depth", -1, "Maximum directory depth (default unlimited)")
	return cmd
}

// scanRequestFromFlags maps the mode flags onto a ScanRequest.
func scanRequestFromFlags(cmd *cobra.Command) (models.ScanRequest, error) {
	rootID, _ := cmd.Flags().GetInt64("root")
	whole, _ := cmd.Flags().GetBool("whole")
	changed, _ := cmd.Flags().GetBool("changed")

	switch {
	case whole && (changed || cmd.Flags().Changed("root")):
		return models.ScanRequest{}, errors.New("--whole cannot be combined with --root or --changed")
	case whole:
		return models.ScanRequest{Mode: models.ModeWhole}, nil
	case changed:
		if cmd.Flags().Changed("root") && rootID <= 0 {
			return models.ScanRequest{}, fmt.Errorf("invalid root id %d", rootID)
		}
		return models.ScanRequest{Mode: models.ModeChanged, RootID: rootID}, nil
	case cmd.Flags().Changed("root"):
		if rootID <= 0 {
			return models.ScanRequest{}, fmt.Errorf("invalid root id %d", rootID)
		}
		return models.ScanRequest{Mode: models.ModeRoots, RootID: rootID}, nil
	default:
		return models.ScanRequest{}, errors.New("one of --root, --whole or --changed is required")
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	req, err := scanRequestFromFlags(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	req.DepthLimit = a.cfg.Scan.DepthLimit

	sinks := []logger.Sink{a.log}
	fileLog, err := logger.NewFileLogger(a.cfg.LogDir, a.cfg.LogLevel)
	if err != nil {
		a.log.Warnf("File logging disabled: %v", err)
	} else {
		defer fileLog.Close()
		sinks = append(sinks, fileLog)
	}
	events := logger.NewMulti(sinks...)

	coord := scan.NewCoordinator(scanOptions(a), scan.Deps{
		Roots:       a.store,
		Sessions:    a.store,
		Events:      events,
		Suggestions: a.store,
		History:     a.store,
		Classifier:  project.NewClassifier(),
		Logger:      events,
	})
	defer coord.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	id, err := coord.Start(ctx, req)
	if err != nil {
		var cfgErr *scan.ConfigError
		if errors.As(err, &cfgErr) {
			return fmt.Errorf("cannot start scan: %w", err)
		}
		return err
	}

	final, err := coord.Wait(ctx, id)
	if err != nil {
		a.log.Warnf("Interrupt received, stopping scan %s", id)
		if stopErr := coord.Stop(id); stopErr != nil && !errors.Is(stopErr, scan.ErrScanNotFound) {
			return stopErr
		}
		final, err = coord.Wait(context.Background(), id)
		if err != nil {
			return err
		}
	}

	suggestions, err := a.store.ListProjectSuggestions(context.Background(), id.String(), "")
	if err != nil {
		return fmt.Errorf("load suggestions for scan %s: %w", id, err)
	}
	a.log.LogScanSummary(final, len(suggestions), time.Since(started))
	printProjectSuggestions(cmd.OutOrStdout(), suggestions)

	if final.State == models.StateFailed {
		return fmt.Errorf("scan %s failed: %s", id, final.Error)
	}
	return nil
}

func scanOptions(a *app) scan.Options {
	return scan.Options{
		SnapshotDir:       a.cfg.SnapshotDir,
		ProgressInterval:  a.cfg.Scan.ProgressInterval,
		QueuePollInterval: a.cfg.Scan.QueuePollInterval,
		MaxSampleLines:    a.cfg.Scan.SampleMaxLines,
		MaxSampleChars:    a.cfg.Scan.SampleMaxChars,
		IgnoreFile:        a.cfg.Scan.IgnoreFile,
	}
}

// NewSessionsCommand creates the 'devscan sessions' command
func NewSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			sessions, err := a.store.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of scans to show")
	return cmd
}

func printSessions(w io.Writer, sessions []*store.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No scans recorded yet.")
		return
	}
	fmt.Fprintf(w, "%-36s %-8s %-10s %10s  %-16s %s\n", "SCAN", "MODE", "STATE", "FILES", "STARTED", "SNAPSHOT")
	for _, s := range sessions {
		fmt.Fprintf(w, "%-36s %-8s %-10s %10s  %-16s %s\n",
			s.ScanID, s.Mode, s.State, humanize.Comma(s.FilesScanned), humanize.Time(s.StartedAt), s.OutputPath)
		if s.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", s.Error)
		}
	}
}
