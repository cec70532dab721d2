package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/solwire/solwire/client"
	"github.com/urfave/cli/v2"
)

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "Token metadata commands",
		Subcommands: []*cli.Command{
			tokensSearchCommand(),
		},
	}
}

func tokensSearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search tokens by symbol, name, or mint address",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			serverFlag(),
			jqFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Value:   20,
				Usage:   "Maximum number of results (1-100)",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			query := ""
			if c.NArg() > 0 {
				query = c.Args().Get(0)
			}

			cl := client.NewClient(c.String("server"), nil, newCLILogger())
			tokens, err := cl.SearchTokens(context.Background(), query, c.Int("limit"))
			if err != nil {
				return fmt.Errorf("failed to search tokens: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return outputResult(c, tokens)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tNAME\tMINT\tDECIMALS\tVERIFIED")
			for _, tok := range tokens {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n",
					tok.Symbol,
					tok.Name,
					tok.Mint,
					tok.Decimals,
					tok.Verified,
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d tokens\n", len(tokens))
			return nil
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve an address, .sol domain, or AllDomains name",
		ArgsUsage: "INPUT",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("input is required")
			}

			input := c.Args().Get(0)
			cl := client.NewClient(c.String("server"), nil, newCLILogger())
			address, err := cl.Resolve(context.Background(), input)
			if err != nil {
				return fmt.Errorf("failed to resolve %q: %w", input, err)
			}

			if c.Bool("json") {
				return outputJSON(map[string]string{
					"input":   input,
					"address": address,
				})
			}

			fmt.Println(address)
			return nil
		},
	}
}
