package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/noah-isme/backend-checkout/internal/app"
	"github.com/noah-isme/backend-checkout/internal/catalog"
	"github.com/noah-isme/backend-checkout/internal/obs"
	"github.com/noah-isme/backend-checkout/internal/payment"
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger("console", "info")

	cliApp := &cli.App{
		Name:  "catalog",
		Usage: "Manage the service catalog used by hosted checkout",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Postgres connection string",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection string used to invalidate cached products",
				EnvVars: []string{"REDIS_URL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply or roll back catalog migrations",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "Apply all pending migrations",
						Action: func(c *cli.Context) error {
							if err := catalog.MigrateUp(c.String("database-url"), logger); err != nil {
								return err
							}
							logger.Info().Msg("catalog migrations applied")
							return nil
						},
					},
					{
						Name:  "down",
						Usage: "Roll back migrations",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
						},
						Action: func(c *cli.Context) error {
							if err := catalog.MigrateDown(c.String("database-url"), c.Int("steps"), logger); err != nil {
								return err
							}
							logger.Info().Int("steps", c.Int("steps")).Msg("catalog migrations rolled back")
							return nil
						},
					},
				},
			},
			{
				Name:  "products",
				Usage: "Inspect catalog products",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List active products",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
						},
						Action: func(c *cli.Context) error {
							return withStore(c, logger, func(ctx context.Context, store catalog.PGStore) error {
								products, err := store.ListProducts(ctx)
								if err != nil {
									return err
								}
								if c.Bool("json") {
									enc := json.NewEncoder(os.Stdout)
									enc.SetIndent("", "  ")
									return enc.Encode(products)
								}
								tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
								fmt.Fprintln(tw, "SERVICE ID\tNAME\tPRICE\tTYPE")
								for _, p := range products {
									fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ServiceID, p.Name, payment.FormatAmount(p.PriceCents), p.Type)
								}
								return tw.Flush()
							})
						},
					},
					{
						Name:      "deactivate",
						Usage:     "Hide a product from checkout",
						ArgsUsage: "<service-id>",
						Action: func(c *cli.Context) error {
							if c.NArg() != 1 {
								return cli.Exit("exactly one service id is required", 2)
							}
							return withStore(c, logger, func(ctx context.Context, store catalog.PGStore) error {
								serviceID := c.Args().First()
								if err := store.Deactivate(ctx, serviceID); err != nil {
									return err
								}
								if err := invalidate(ctx, c.String("redis-url"), serviceID); err != nil {
									logger.Warn().Err(err).Msg("invalidate cached product")
								}
								logger.Info().Str("service_id", serviceID).Msg("product deactivated")
								return nil
							})
						},
					},
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("catalog command failed")
	}
}

func withStore(c *cli.Context, logger zerolog.Logger, fn func(context.Context, catalog.PGStore) error) error {
	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()
	pool, err := app.OpenDB(ctx, c.String("database-url"))
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Debug().Msg("catalog database connected")
	return fn(ctx, catalog.PGStore{DB: pool})
}

func invalidate(ctx context.Context, redisURL, serviceID string) error {
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return err
	}
	client := redis.NewClient(opts)
	defer client.Close()
	return catalog.NewCache(client, time.Minute).Delete(ctx, catalog.KeyProduct(serviceID))
}
