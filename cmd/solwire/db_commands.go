package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solwire/solwire/service/db"
	"github.com/urfave/cli/v2"
)

func listConstructionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-constructions",
		Usage:   "List recorded transaction constructions, newest first",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Value:   50,
				Usage:   "Maximum rows to return",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Rows to skip",
			},
			&cli.StringFlag{
				Name:    "operation",
				Aliases: []string{"op"},
				Usage:   "Filter by operation (transfer, swap, stake)",
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			rows, err := store.ListConstructions(context.Background(), int32(c.Int("limit")), int32(c.Int("offset")))
			if err != nil {
				return fmt.Errorf("failed to list constructions: %w", err)
			}

			if opFilter := c.String("operation"); opFilter != "" {
				filtered := make([]*db.Construction, 0)
				for _, row := range rows {
					if row.Operation == opFilter {
						filtered = append(filtered, row)
					}
				}
				rows = filtered
			}

			if c.Bool("json") {
				return outputJSON(rows)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tOPERATION\tCALLER\tAMOUNT\tEXPECTED OUT\tBUILT AT")
			for _, row := range rows {
				expectedOut := "-"
				if row.ExpectedOutBaseUnits != nil {
					expectedOut = fmt.Sprintf("%d", *row.ExpectedOutBaseUnits)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
					row.ID,
					row.Operation,
					row.Caller,
					row.AmountBaseUnits,
					expectedOut,
					row.BuiltAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d constructions\n", len(rows))
			return nil
		},
	}
}

// getStore connects to the audit database from the global flags.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := db.NewStore(pool)
	closer := func() { pool.Close() }

	return store, closer, nil
}
