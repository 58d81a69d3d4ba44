package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"transit-map-service/internal/adapters/repositories"
	"transit-map-service/internal/config"
	"transit-map-service/internal/platform/db"
	"transit-map-service/internal/platform/logging"

	"github.com/spf13/cobra"
)

type options struct {
	driver      string
	databaseURL string
	seedPath    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	config.LoadDotEnv()
	opts := &options{}

	root := &cobra.Command{
		Use:          "dbtool",
		Short:        "Create and seed the transit map database.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := logging.Init(logging.Options{
				Level:  config.Get("LOG_LEVEL", "info"),
				Format: config.Get("LOG_FORMAT", "console"),
			})
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.driver, "driver", config.Get("DB_DRIVER", "pgx"), "database driver (pgx or sqlite)")
	pf.StringVar(&opts.databaseURL, "database-url", config.Get("DATABASE_URL", ""), "Postgres URL or SQLite path")

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Create the schema, then load routes, stops, waypoints and vehicles from a YAML file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), opts, func(ctx context.Context, conn *sql.DB, dialect repositories.Dialect) error {
				if err := initSchema(ctx, conn); err != nil {
					return err
				}

				log := logging.Std()
				log.Info("seeding database", "path", opts.seedPath)
				if err := repositories.SeedFromYAML(ctx, conn, dialect, opts.seedPath); err != nil {
					return fmt.Errorf("seeding failed: %w", err)
				}
				log.Info("seeding complete")
				return nil
			})
		},
	}
	seed.Flags().StringVar(&opts.seedPath, "file", config.Get("SEED_PATH", "data/seeds/routes.yaml"), "seed document")

	root.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the routes, stops, waypoints and vehicles tables.",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), opts, func(ctx context.Context, conn *sql.DB, _ repositories.Dialect) error {
					return initSchema(ctx, conn)
				})
			},
		},
		seed,
	)

	return root
}

func initSchema(ctx context.Context, conn *sql.DB) error {
	log := logging.Std()
	log.Info("initializing database schema")
	if err := repositories.InitSchema(ctx, conn); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	log.Info("schema ready")
	return nil
}

func withDB(
	ctx context.Context,
	opts *options,
	fn func(ctx context.Context, conn *sql.DB, dialect repositories.Dialect) error,
) error {
	if opts.databaseURL == "" {
		return errors.New("--database-url or DATABASE_URL is required")
	}

	dialect, err := repositories.ParseDialect(opts.driver)
	if err != nil {
		return err
	}

	conn, err := db.Open(ctx, opts.driver, opts.databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := fn(ctx, conn, dialect); err != nil {
		logging.Std().Error(err, "dbtool failed")
		return err
	}
	return nil
}
