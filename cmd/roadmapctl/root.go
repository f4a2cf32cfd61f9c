package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openroadmap/roadmap/internal/engine"
	"github.com/openroadmap/roadmap/internal/model"
	"github.com/openroadmap/roadmap/internal/secret"
	"github.com/openroadmap/roadmap/internal/store"
)

var (
	configPath string
	verbose    bool

	appCfg *model.AppConfig
	db     *store.SQLiteStore
	eng    *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:          "roadmapctl",
	Short:        "Manage and sync roadmap datasources",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))

		var err error
		appCfg, err = model.LoadConfig(configPath)
		if err != nil {
			return err
		}

		db, err = store.NewSQLiteStore(appCfg.DBPath)
		if err != nil {
			return err
		}

		key, err := secret.LoadMasterKey(appCfg.Keyring.FileDir)
		if err != nil {
			return err
		}
		cipher, err := secret.NewAESCipher(key)
		if err != nil {
			return err
		}

		eng = engine.New(db, cipher, nil, appCfg.HTTPTimeout())
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			return db.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", model.DefaultConfigPath(), "path to config file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(watchCmd)
}
