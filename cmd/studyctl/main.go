package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"studydeck/internal/config"
	"studydeck/internal/database"
	"studydeck/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:          "studyctl",
		Short:        "Maintenance tool for studydeck storage and content",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.DatabaseType, "db-type", cfg.DatabaseType, "storage backend: sqlite, postgres or mysql")
	flags.StringVar(&cfg.DatabasePath, "db-path", cfg.DatabasePath, "SQLite database file")
	flags.StringVar(&cfg.DatabaseURL, "db-url", cfg.DatabaseURL, "PostgreSQL or MySQL connection URL")

	root.AddCommand(
		newBackupCmd(cfg),
		newActivityCmd(cfg),
		newProgressCmd(cfg),
		newContentCmd(),
	)
	return root
}

// openStore connects the configured database. Maintenance commands need
// a persistent backend, so the memory store is rejected.
func openStore(cfg *config.Config) (*storage.Store, *database.DB, error) {
	if cfg.UsesMemoryStore() {
		return nil, nil, fmt.Errorf("the memory store has nothing to maintain, choose a database backend")
	}
	return storage.Open(cfg, cfg.NewLogger())
}
