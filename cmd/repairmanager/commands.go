package main

import (
	"context"
	"time"

	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/config"
	"github.com/macfixkou/repair-manager/internal/migration"
	"github.com/macfixkou/repair-manager/internal/observability"
	"github.com/macfixkou/repair-manager/internal/server"
	"github.com/macfixkou/repair-manager/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var (
	migrateOnServe bool

	rootCmd = &cobra.Command{
		Use:   "repair-manager",
		Short: "Case tracking for device repair shops",
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Run: func(cmd *cobra.Command, args []string) {
			options := []fx.Option{
				config.Module,
				observability.Module,
				fx.Provide(RegisterSnowflake),
				db.Module,
				clock.Module,
			}
			if migrateOnServe {
				options = append(options, migration.Module)
			}
			options = append(options, server.Module)
			fx.New(options...).Run()
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				config.Module,
				observability.Module,
				db.Module,
				migration.Module,
			)
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			if err := app.Start(ctx); err != nil {
				return err
			}
			return app.Stop(ctx)
		},
	}
)

func init() {
	serveCmd.Flags().BoolVar(&migrateOnServe, "migrate", true, "apply schema migrations before serving")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}
