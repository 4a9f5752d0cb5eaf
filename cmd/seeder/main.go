// Command seeder prepares a Campus Coffee database: it applies the schema and
// loads users and points of sale from a YAML file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"campus_coffee/internal/adapters/observability"
	"campus_coffee/internal/shared"
)

var cfg shared.Config

var rootCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Campus Coffee database seeder",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg = shared.Load()
		if d, _ := cmd.Flags().GetString("driver"); d != "" {
			cfg.StoreDriver = d
		}
		log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
		return cfg.Validate()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("driver", "", "store driver (mysql|sqlite), overrides STORE_DRIVER")
	rootCmd.AddCommand(migrateCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
