package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"campus_coffee/internal/app"
	"campus_coffee/internal/seed"
	"campus_coffee/internal/storage"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		backend, err := storage.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = backend.Close() }()

		if err := backend.Migrate(cmd.Context(), migrationsDir); err != nil {
			return err
		}
		log.Info().Str("driver", cfg.StoreDriver).Msg("schema up to date")
		return nil
	},
}

var (
	seedFile    string
	seedWorkers int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load users and points of sale from a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := seed.LoadFile(seedFile)
		if err != nil {
			return err
		}
		workers := cfg.SeedWorkers
		if cmd.Flags().Changed("workers") {
			workers = seedWorkers
		}

		backend, err := storage.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = backend.Close() }()

		log.Info().Str("file", seedFile).Int("users", len(f.Users)).Int("pos", len(f.Pos)).Int("workers", workers).
			Msg("seeding starting")
		s := seed.New(app.NewUserService(backend.Store), app.NewPosService(backend.Store), workers)
		_, err = s.Run(cmd.Context(), f)
		return err
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "migrations", "migrations", "directory holding the MySQL *.sql migrations")
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "seed.yaml", "seed file")
	seedCmd.Flags().IntVarP(&seedWorkers, "workers", "w", 0, "concurrent writes (default SEED_WORKERS)")
}
