// Command migrate manages the wellness database schema and seed data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Armour007/wellness-backend/db"
	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/config"
	"github.com/Armour007/wellness-backend/internal/logging"
	"github.com/Armour007/wellness-backend/internal/seed"
)

var (
	cfg     *config.Config
	log     *zap.Logger
	steps   int
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the wellness database schema",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		l, err := logging.Init(c.Debug)
		if err != nil {
			return err
		}
		log = l
		return nil
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrate()
		if err != nil {
			return err
		}
		defer m.Close()
		return report("up", m.Up())
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (all, or --steps N)",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrate()
		if err != nil {
			return err
		}
		defer m.Close()
		if steps > 0 {
			return report("down", m.Steps(-steps))
		}
		return report("down", m.Down())
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Roll back every migration and re-apply them",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrate()
		if err != nil {
			return err
		}
		defer m.Close()
		if err := report("down", m.Down()); err != nil {
			return err
		}
		return report("up", m.Up())
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert reference data and the initial accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		if err := database.Connect(ctx, cfg.Database.DSN()); err != nil {
			return err
		}
		defer database.Close()
		st, err := seed.Run(ctx, database.DB, log)
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d rows\n", st.Total())
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrate()
		if err != nil {
			return err
		}
		defer m.Close()
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty=%t)\n", v, dirty)
		return nil
	},
}

func newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(db.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.Database.MigrateURL())
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

func report(op string, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no change", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("migrations applied", zap.String("op", op))
	return nil
}

func init() {
	downCmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back (0 = all)")
	seedCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "seed timeout")
	rootCmd.AddCommand(upCmd, downCmd, resetCmd, seedCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
