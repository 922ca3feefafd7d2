package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"estate/internal/config"
	"estate/internal/db"
)

type appliedRow struct {
	Filename  string    `db:"filename"`
	AppliedAt time.Time `db:"applied_at"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir, databaseURL string
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply and inspect the estate database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", "migrations", "directory holding *.sql migrations")
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "overrides DATABASE_URL")

	connect := func(ctx context.Context) (*sqlx.DB, error) {
		url := databaseURL
		if url == "" {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			url = cfg.DatabaseURL
		}
		database, err := db.Connect(ctx, url, db.PoolOptions{MaxOpenConns: 2, MaxIdleConns: 1})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if _, err := database.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz not null default now())`); err != nil {
			database.Close()
			return nil, fmt.Errorf("ensure schema_migrations: %w", err)
		}
		return database, nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			all, err := loadMigrations(dir)
			if err != nil {
				return err
			}
			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()
			applied, err := appliedSet(ctx, database)
			if err != nil {
				return err
			}
			todo := pending(all, applied)
			for _, m := range todo {
				if err := apply(ctx, database, m.Name, m.Up, true); err != nil {
					return fmt.Errorf("apply %s: %w", m.Name, err)
				}
				cmd.Printf("applied %s\n", m.Name)
			}
			if len(todo) == 0 {
				cmd.Println("schema is up to date")
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recently applied migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			all, err := loadMigrations(dir)
			if err != nil {
				return err
			}
			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()
			var last string
			if err := database.GetContext(ctx, &last, `SELECT COALESCE(MAX(filename), '') FROM schema_migrations`); err != nil {
				return err
			}
			if last == "" {
				cmd.Println("nothing to roll back")
				return nil
			}
			for _, m := range all {
				if m.Name != last {
					continue
				}
				if err := apply(ctx, database, m.Name, m.Down, false); err != nil {
					return fmt.Errorf("roll back %s: %w", m.Name, err)
				}
				cmd.Printf("rolled back %s\n", m.Name)
				return nil
			}
			return fmt.Errorf("migration file %s not found in %s", last, dir)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			all, err := loadMigrations(dir)
			if err != nil {
				return err
			}
			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()
			var rows []appliedRow
			if err := database.SelectContext(ctx, &rows, `SELECT filename, applied_at FROM schema_migrations ORDER BY filename`); err != nil {
				return err
			}
			appliedAt := make(map[string]time.Time, len(rows))
			for _, row := range rows {
				appliedAt[row.Filename] = row.AppliedAt
			}
			for _, m := range all {
				if at, ok := appliedAt[m.Name]; ok {
					cmd.Printf("%-40s applied %s\n", m.Name, at.Format(time.RFC3339))
					continue
				}
				cmd.Printf("%-40s pending\n", m.Name)
			}
			return nil
		},
	})
	return root
}

func appliedSet(ctx context.Context, database *sqlx.DB) (map[string]bool, error) {
	var names []string
	if err := database.SelectContext(ctx, &names, `SELECT filename FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("read migration state: %w", err)
	}
	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}
	return applied, nil
}

// apply runs the statements and the bookkeeping row in one transaction.
func apply(ctx context.Context, database *sqlx.DB, name string, statements []string, up bool) error {
	return db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		if up {
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name)
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE filename = $1`, name)
		return err
	})
}
