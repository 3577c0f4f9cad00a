package cmd

import (
	"fmt"
	"strconv"

	"github.com/harrison/devscan/internal/config"
	"github.com/harrison/devscan/internal/logger"
	"github.com/harrison/devscan/internal/store"
	"github.com/spf13/cobra"
)

// app bundles what every command needs: resolved config, the opened store
// and a console logger on stderr.
type app struct {
	cfg   *config.Config
	home  string
	store *store.Store
	log   *logger.ConsoleLogger
}

// openApp loads .env files, the config under the devscan home, applies
// persistent flag overrides and opens the database.
func openApp(cmd *cobra.Command) (*app, error) {
	if err := config.LoadEnv("."); err != nil {
		return nil, err
	}

	cfg, home, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.LoadEnv(home); err != nil {
		return nil, err
	}

	var levelFlag, dbFlag *string
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		levelFlag = &v
	}
	if cmd.Flags().Changed("db") {
		v, _ := cmd.Flags().GetString("db")
		dbFlag = &v
	}
	var depthFlag *int
	if f := cmd.Flags().Lookup("depth"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetInt("depth")
		depthFlag = &v
	}
	cfg.MergeWithFlags(levelFlag, dbFlag, depthFlag)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DBPath, err)
	}

	return &app{
		cfg:   cfg,
		home:  home,
		store: st,
		log:   logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// parseID parses a positive numeric identifier argument.
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}
