package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/harrison/devscan/internal/scan"
	"github.com/spf13/cobra"
)

// NewRootsCommand creates the 'devscan roots' command group
func NewRootsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roots",
		Short: "Manage the directory roots devscan scans",
	}

	cmd.AddCommand(newRootsAddCommand())
	cmd.AddCommand(newRootsListCommand())
	cmd.AddCommand(newRootsDirtyCommand())
	return cmd
}

func newRootsAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <directory>...",
		Short: "Register directories as scan roots",
		Long: `Register one or more directories as scan roots. Each root is keyed to the
disk holding it so scans on the same disk run one at a time. New roots
start flagged as changed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRootsAdd,
	}
}

func runRootsAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	lister := scan.NewMountTableLister()
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("root %s: %w", abs, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("root %s is not a directory", abs)
		}

		rec, err := a.store.AddRoot(cmd.Context(), abs, lister.DiskKey(abs))
		if err != nil {
			return fmt.Errorf("add root %s: %w", abs, err)
		}
		fmt.Fprintf(out, "root %d: %s (disk %s)\n", rec.ID, rec.Path, rec.DiskKey)
	}
	return nil
}

func newRootsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered roots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			roots, err := a.store.ListRoots(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(roots) == 0 {
				fmt.Fprintln(out, "No roots registered. Add one with: devscan roots add <directory>")
				return nil
			}

			yellow := color.New(color.FgYellow)
			fmt.Fprintf(out, "%-5s %-8s %-20s %s\n", "ID", "CHANGED", "DISK", "PATH")
			for _, r := range roots {
				changed := "no"
				if r.Dirty {
					changed = yellow.Sprint("yes")
				}
				fmt.Fprintf(out, "%-5d %-8s %-20s %s\n", r.ID, changed, r.DiskKey, r.Path)
			}
			return nil
		},
	}
}

func newRootsDirtyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dirty <root-id>...",
		Short: "Flag roots as changed so 'scan --changed' picks them up",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, arg := range args {
				id, err := parseID("root", arg)
				if err != nil {
					return err
				}
				if err := a.store.MarkDirty(cmd.Context(), id); err != nil {
					return fmt.Errorf("mark root %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "root %d flagged as changed\n", id)
			}
			return nil
		},
	}
}
