package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the ledger to a JSON file" }
func (*exportCmd) Usage() string {
	return `ledgerctl export [-o <file>]

  Writes wallets, transactions and currency. The default file name is
  finance-data-YYYY-MM-DD.json; use -o - for standard output.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file.")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	data, name, err := a.svc.Export(ctx)
	if err != nil {
		return fail(err)
	}
	if c.output == "-" {
		fmt.Fprintln(a.out, string(data))
		return subcommands.ExitSuccess
	}
	if c.output != "" {
		name = c.output
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fail(err)
	}
	fmt.Fprintln(a.out, "exported to", name)
	return subcommands.ExitSuccess
}

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace the ledger with an exported file" }
func (*importCmd) Usage() string {
	return `ledgerctl import <file>

  Replaces every wallet and transaction. Nothing changes when the file is
  invalid.
`
}
func (*importCmd) SetFlags(*flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(f, "Error: exactly one file is required.")
	}
	a := appFrom(args)
	data, err := os.ReadFile(f.Arg(0))
	if err != nil {
		return fail(err)
	}
	n, err := a.svc.Import(ctx, data)
	if err != nil {
		return fail(err)
	}
	if st := a.flush(ctx); st != subcommands.ExitSuccess {
		return st
	}
	fmt.Fprintf(a.out, "imported %d wallet(s) and %d transaction(s)\n", len(n.Wallets), len(n.Transactions))
	if n.RecomputedBalances > 0 {
		fmt.Fprintf(a.out, "recomputed %d wallet balance(s) from their transactions\n", n.RecomputedBalances)
	}
	return subcommands.ExitSuccess
}

type clearCmd struct {
	yes bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "delete every wallet and transaction" }
func (*clearCmd) Usage() string {
	return `ledgerctl clear -yes

  Deletes all wallets and transactions. Currency and theme are kept.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "Confirm the deletion.")
}

func (c *clearCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		return usage(f, "Error: clear deletes everything; pass -yes to confirm.")
	}
	a := appFrom(args)
	wallets, txs := a.svc.Clear(ctx)
	if st := a.flush(ctx); st != subcommands.ExitSuccess {
		return st
	}
	fmt.Fprintf(a.out, "deleted %d wallet(s) and %d transaction(s)\n", wallets, txs)
	return subcommands.ExitSuccess
}

type currencyCmd struct{}

func (*currencyCmd) Name() string     { return "currency" }
func (*currencyCmd) Synopsis() string { return "show or set the display currency" }
func (*currencyCmd) Usage() string {
	return `ledgerctl currency [<ISO 4217 code>]

  Amounts are never converted; the currency only changes how they are shown.
`
}
func (*currencyCmd) SetFlags(*flag.FlagSet) {}

func (*currencyCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if f.NArg() == 0 {
		fmt.Fprintln(a.out, a.svc.Settings(ctx).Currency)
		return subcommands.ExitSuccess
	}
	code := f.Arg(0)
	settings, err := a.svc.UpdateSettings(ctx, &code, nil)
	if err != nil {
		return fail(err)
	}
	if st := a.flush(ctx); st != subcommands.ExitSuccess {
		return st
	}
	fmt.Fprintln(a.out, settings.Currency)
	return subcommands.ExitSuccess
}
