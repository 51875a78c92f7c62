// Command wheeldealsctl is the operator tool: schema migrations, admin
// accounts, demo fixtures and guest cleanup.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"wheeldeals/internal/config"
	"wheeldeals/internal/database"
	"wheeldeals/internal/events"
	"wheeldeals/internal/log"
	"wheeldeals/internal/repository"
	"wheeldeals/internal/seed"
	"wheeldeals/internal/service"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "wheeldealsctl",
		Usage: "WheelDeals operator commands",
		Commands: []*cli.Command{
			migrateCommand(),
			createAdminCommand(),
			seedCommand(),
			purgeGuestsCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type env struct {
	cfg   *config.AppConfig
	log   zerolog.Logger
	pool  *pgxpool.Pool
	store *repository.PostgresStore
}

func (e *env) Close() {
	e.pool.Close()
}

// connect loads configuration and opens the database, applying pending
// migrations first.
func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := log.New(cfg.Environment, cfg.LogLevel)

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: logger, pool: pool, store: repository.NewPostgresStore(pool)}, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.Close()
			e.log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create an administrator account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "email"},
			&cli.StringFlag{Name: "password", Required: true, Usage: "at least 8 characters"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			user, err := service.NewAuthService(e.store, e.cfg, e.log).CreateAdmin(ctx, c.String("username"), c.String("email"), c.String("password"))
			if err != nil {
				return err
			}
			fmt.Printf("created admin %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load accounts and listings from a YAML fixture",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Value: "seed.yaml", Usage: "fixture path"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			fx, err := seed.Load(c.String("file"))
			if err != nil {
				return err
			}
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			auth := service.NewAuthService(e.store, e.cfg, e.log)
			listings := service.NewListingService(e.store, nil, events.Nop{}, e.log)
			res, err := seed.New(e.store, auth, listings, e.log).Apply(ctx, fx)
			if err != nil {
				return err
			}
			fmt.Printf("users created: %d, existing: %d, listings: %d\n", res.Users, res.Skipped, res.Cars)
			return nil
		},
	}
}

func purgeGuestsCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge-guests",
		Usage: "Delete expired guest accounts now",
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := service.NewAuthService(e.store, e.cfg, e.log).PurgeGuests(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("purged %d guest accounts\n", n)
			return nil
		},
	}
}
