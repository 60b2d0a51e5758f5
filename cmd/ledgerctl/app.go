package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/persist"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// Register adds every ledgerctl command to c.
func Register(c *subcommands.Commander) {
	c.Register(&walletsCmd{}, "wallets")
	c.Register(&addWalletCmd{}, "wallets")
	c.Register(&rmWalletCmd{}, "wallets")

	c.Register(&moneyCmd{kind: services.KindDeposit}, "transactions")
	c.Register(&moneyCmd{kind: services.KindWithdrawal}, "transactions")
	c.Register(&rmTxCmd{}, "transactions")
	c.Register(&txsCmd{}, "transactions")

	c.Register(&trendCmd{}, "reports")

	c.Register(&exportCmd{}, "data")
	c.Register(&importCmd{}, "data")
	c.Register(&clearCmd{}, "data")
	c.Register(&currencyCmd{}, "data")
}

// app is handed to every command through Execute's arguments.
type app struct {
	svc    *services.LedgerService
	writer *persist.Writer
	out    io.Writer
}

func newApp(ctx context.Context, blobs storage.BlobStore, cfg *config.Config, out io.Writer) (*app, error) {
	l, err := cli.LoadLedger(ctx, blobs, cfg)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	svc := services.NewLedgerService(l.Store, services.WithLocation(loc))
	return &app{svc: svc, writer: l.Writer, out: out}, nil
}

// flush persists the mutation the command just made.
func (a *app) flush(ctx context.Context) subcommands.ExitStatus {
	if err := a.writer.Flush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error saving ledger:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func appFrom(args []interface{}) *app {
	if len(args) == 0 {
		return nil
	}
	a, _ := args[0].(*app)
	return a
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}

func usage(f *flag.FlagSet, msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, msg)
	f.Usage()
	return subcommands.ExitUsageError
}
