// Command migrate manages the Postgres schema of the ranking store.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	"github.com/okian/cuerank/internal/adapters/repository"
	"github.com/okian/cuerank/internal/adapters/repository/migrations"
	"github.com/okian/cuerank/internal/config"
	"github.com/okian/cuerank/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := newApp().Run(os.Args); err != nil {
		logger.Get().Error(context.Background(), "migrate failed", logger.Error(err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "migrate",
		Usage: "cuerank database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "Postgres DSN; defaults to the configured postgres_dsn",
				EnvVars: []string{"CUERANK_POSTGRES_DSN"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					return m.Init(c.Context)
				}),
			},
			{
				Name:  "up",
				Usage: "apply pending migrations",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Init(c.Context); err != nil {
						return err
					}
					group, err := m.Migrate(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Fprintln(c.App.Writer, "no new migrations to run")
						return nil
					}
					fmt.Fprintf(c.App.Writer, "migrated to %s\n", group)
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					group, err := m.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Fprintln(c.App.Writer, "no groups to roll back")
						return nil
					}
					fmt.Fprintf(c.App.Writer, "rolled back %s\n", group)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					ms, err := m.MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "migrations: %s\n", ms)
					fmt.Fprintf(c.App.Writer, "unapplied:  %s\n", ms.Unapplied())
					fmt.Fprintf(c.App.Writer, "last group: %s\n", ms.LastGroup())
					return nil
				}),
			},
			{
				Name:      "create_go",
				Usage:     "create a Go migration",
				ArgsUsage: "<name words...>",
				Action: func(c *cli.Context) error {
					name, err := migrationName(c)
					if err != nil {
						return err
					}
					mf, err := migrate.NewMigrator(nil, migrations.Migrations).CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created %s (%s)\n", mf.Name, mf.Path)
					return nil
				},
			},
		},
	}
}

// withMigrator opens the database for the duration of one command.
func withMigrator(fn func(*cli.Context, *migrate.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := open(c.Context, c.String("dsn"))
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(c, migrate.NewMigrator(db, migrations.Migrations))
	}
}

func open(ctx context.Context, dsn string) (*bun.DB, error) {
	if dsn == "" {
		cfg, err := config.Load(ctx)
		if err != nil {
			return nil, err
		}
		dsn = cfg.PostgresDSN
	}
	if dsn == "" {
		return nil, fmt.Errorf("no postgres dsn: pass --dsn or set CUERANK_POSTGRES_DSN")
	}
	return repository.OpenPostgres(ctx, dsn)
}

func migrationName(c *cli.Context) (string, error) {
	if c.NArg() == 0 {
		return "", fmt.Errorf("migration name is required")
	}
	return strings.ToLower(strings.Join(c.Args().Slice(), "_")), nil
}
