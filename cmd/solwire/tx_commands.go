package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/itchyny/gojq"
	"github.com/solwire/solwire/client"
	"github.com/urfave/cli/v2"
)

func txCommands() *cli.Command {
	return &cli.Command{
		Name:  "tx",
		Usage: "Build unsigned transactions",
		Subcommands: []*cli.Command{
			txTransferCommand(),
			txSwapCommand(),
			txStakeCommand(),
		},
	}
}

func serverFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Value:   "http://localhost:8080",
		Usage:   "HTTP server URL",
		EnvVars: []string{"SOLWIRE_SERVER_URL"},
	}
}

func callerFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "caller",
		Aliases:  []string{"c"},
		Usage:    "Base58 public key that will sign and pay fees",
		EnvVars:  []string{"SOLWIRE_CALLER"},
		Required: true,
	}
}

func jqFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "jq",
		Usage: "jq expression applied to the JSON result (implies --json)",
	}
}

func newCLILogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func txTransferCommand() *cli.Command {
	return &cli.Command{
		Name:      "transfer",
		Usage:     "Build an unsigned native SOL transfer",
		ArgsUsage: "DESTINATION AMOUNT",
		Flags: []cli.Flag{
			serverFlag(),
			callerFlag(),
			jqFlag(),
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("destination and amount are required")
			}

			destination := c.Args().Get(0)
			amount := c.Args().Get(1)

			cl := client.NewClient(c.String("server"), nil, newCLILogger())
			result, err := cl.Transfer(context.Background(), destination, amount, c.String("caller"))
			if err != nil {
				return fmt.Errorf("failed to build transfer: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return outputResult(c, result)
			}

			fmt.Printf("✓ Transfer built\n")
			fmt.Printf("  Destination: %s\n", result.Destination)
			fmt.Printf("  Resolved:    %s\n", result.ResolvedDestination)
			fmt.Printf("  Amount:      %s %s (%d lamports)\n", result.Amount, result.Unit, result.Lamports)
			fmt.Printf("  Fee Payer:   %s\n", result.FeePayer)
			fmt.Printf("  Valid Until: block height %d\n", result.LastValidBlockHeight)
			fmt.Printf("  Transaction: %s\n", result.Transaction)
			return nil
		},
	}
}

func txSwapCommand() *cli.Command {
	return &cli.Command{
		Name:      "swap",
		Usage:     "Build an unsigned token swap",
		ArgsUsage: "AMOUNT",
		Flags: []cli.Flag{
			serverFlag(),
			callerFlag(),
			jqFlag(),
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Value:   "SOL",
				Usage:   "Input token symbol or mint address",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "USDC",
				Usage:   "Output token symbol or mint address",
			},
			&cli.IntFlag{
				Name:  "slippage-bps",
				Usage: "Slippage tolerance in basis points (0 uses the server default)",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("amount is required")
			}

			cl := client.NewClient(c.String("server"), nil, newCLILogger())
			result, err := cl.Swap(context.Background(), client.SwapParams{
				InputToken:  c.String("input"),
				OutputToken: c.String("output"),
				Amount:      c.Args().Get(0),
				SlippageBps: c.Int("slippage-bps"),
				Caller:      c.String("caller"),
			})
			if err != nil {
				return fmt.Errorf("failed to build swap: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return outputResult(c, result)
			}

			fmt.Printf("✓ Swap built\n")
			fmt.Printf("  Input:        %s %s (%s)\n", result.InAmount, result.InputSymbol, result.InputMint)
			fmt.Printf("  Expected Out: %s %s (%s)\n", result.ExpectedOutAmount, result.OutputSymbol, result.OutputMint)
			fmt.Printf("  Slippage:     %d bps\n", result.SlippageBps)
			fmt.Printf("  Valid Until:  block height %d\n", result.LastValidBlockHeight)
			fmt.Printf("  Transaction:  %s\n", result.Transaction)
			return nil
		},
	}
}

func txStakeCommand() *cli.Command {
	return &cli.Command{
		Name:      "stake",
		Usage:     "Build an unsigned liquid-stake transaction",
		ArgsUsage: "AMOUNT",
		Flags: []cli.Flag{
			serverFlag(),
			callerFlag(),
			jqFlag(),
			&cli.StringFlag{
				Name:  "lst",
				Usage: "Liquid staking token symbol or mint (defaults to the server's choice)",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("amount is required")
			}

			cl := client.NewClient(c.String("server"), nil, newCLILogger())
			result, err := cl.Stake(context.Background(), c.Args().Get(0), c.String("lst"), c.String("caller"))
			if err != nil {
				return fmt.Errorf("failed to build stake: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return outputResult(c, result)
			}

			fmt.Printf("✓ Stake built\n")
			fmt.Printf("  LST:          %s (%s)\n", result.LSTSymbol, result.LSTMint)
			fmt.Printf("  Amount:       %s SOL (%d lamports)\n", result.Amount, result.AmountLamports)
			fmt.Printf("  Expected Out: %s %s\n", result.ExpectedOutAmount, result.LSTSymbol)
			fmt.Printf("  Valid Until:  block height %d\n", result.LastValidBlockHeight)
			fmt.Printf("  Transaction:  %s\n", result.Transaction)
			return nil
		},
	}
}

// outputResult prints v as JSON, optionally filtered through a jq expression.
func outputResult(c *cli.Context, v any) error {
	filter := c.String("jq")
	if filter == "" {
		return outputJSON(v)
	}

	query, err := gojq.Parse(filter)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	// Round-trip through JSON so gojq sees plain maps and numbers.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}

	iter := code.Run(doc)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := out.(error); isErr {
			return fmt.Errorf("jq filter failed: %w", err)
		}
		if err := outputJSON(out); err != nil {
			return err
		}
	}
	return nil
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
