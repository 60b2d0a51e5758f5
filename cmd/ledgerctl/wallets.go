package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"fintrack/internal/core"
)

type walletsCmd struct{}

func (*walletsCmd) Name() string     { return "wallets" }
func (*walletsCmd) Synopsis() string { return "list wallets and their balances" }
func (*walletsCmd) Usage() string {
	return `ledgerctl wallets

  Lists every wallet in creation order, followed by the total balance.
`
}
func (*walletsCmd) SetFlags(*flag.FlagSet) {}

func (*walletsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tICON\tCOLOR\tBALANCE")
	for _, w := range a.svc.Wallets(ctx) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", w.ID, w.Name, w.IconKind(), w.Color, a.svc.Format(w.Balance))
	}
	dash := a.svc.Dashboard(ctx)
	fmt.Fprintf(tw, "\t\t\tTOTAL\t%s\n", a.svc.Format(dash.TotalBalance))
	tw.Flush()
	return subcommands.ExitSuccess
}

type addWalletCmd struct {
	icon string
}

func (*addWalletCmd) Name() string     { return "add-wallet" }
func (*addWalletCmd) Synopsis() string { return "create a wallet" }
func (*addWalletCmd) Usage() string {
	return fmt.Sprintf(`ledgerctl add-wallet [-icon %s] <name...>

  Creates a wallet with a zero balance and prints its ID. Unknown icon tags
  are kept and shown as %q.
`, iconTags(), core.IconWallet)
}

func (c *addWalletCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.icon, "icon", string(core.IconWallet), "Icon tag for the wallet, one of "+iconTags()+".")
}

func iconTags() string {
	tags := make([]string, 0, len(core.Icons()))
	for _, icon := range core.Icons() {
		tags = append(tags, string(icon))
	}
	return strings.Join(tags, "|")
}

func (c *addWalletCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usage(f, "Error: a wallet name is required.")
	}
	a := appFrom(args)
	w, err := a.svc.CreateWallet(ctx, strings.Join(f.Args(), " "), c.icon)
	if err != nil {
		return fail(err)
	}
	if st := a.flush(ctx); st != subcommands.ExitSuccess {
		return st
	}
	fmt.Fprintln(a.out, w.ID)
	return subcommands.ExitSuccess
}

type rmWalletCmd struct{}

func (*rmWalletCmd) Name() string     { return "rm-wallet" }
func (*rmWalletCmd) Synopsis() string { return "delete a wallet and its transactions" }
func (*rmWalletCmd) Usage() string {
	return `ledgerctl rm-wallet <wallet-id>

  Deletes the wallet and every transaction recorded against it.
`
}
func (*rmWalletCmd) SetFlags(*flag.FlagSet) {}

func (*rmWalletCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(f, "Error: exactly one wallet ID is required.")
	}
	a := appFrom(args)
	removed, ok := a.svc.DeleteWallet(ctx, f.Arg(0))
	if !ok {
		fmt.Fprintf(a.out, "wallet %s does not exist\n", f.Arg(0))
		return subcommands.ExitSuccess
	}
	if st := a.flush(ctx); st != subcommands.ExitSuccess {
		return st
	}
	fmt.Fprintf(a.out, "deleted wallet %s and %d transaction(s)\n", f.Arg(0), removed)
	return subcommands.ExitSuccess
}
