package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// moneyCmd implements deposit and withdraw, which differ only in kind.
type moneyCmd struct {
	kind services.TxKind
}

func (c *moneyCmd) Name() string {
	if c.kind == services.KindWithdrawal {
		return "withdraw"
	}
	return "deposit"
}

func (c *moneyCmd) Synopsis() string {
	if c.kind == services.KindWithdrawal {
		return "take money out of a wallet"
	}
	return "add money to a wallet"
}

func (c *moneyCmd) Usage() string {
	return fmt.Sprintf(`ledgerctl %s <wallet-id> <amount> [description...]

  Records a %s. The amount is positive; both 12.50 and 12,50 are accepted.
`, c.Name(), c.kind)
}

func (*moneyCmd) SetFlags(*flag.FlagSet) {}

func (c *moneyCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		return usage(f, "Error: a wallet ID and an amount are required.")
	}
	a := appFrom(args)
	amount, err := core.ParseAmount(f.Arg(1))
	if err != nil {
		return fail(err)
	}
	signed, err := services.SignedAmount(string(c.kind), amount)
	if err != nil {
		return fail(err)
	}
	tx, err := a.svc.CreateTransaction(ctx, f.Arg(0), signed, strings.Join(f.Args()[2:], " "))
	if err != nil {
		return fail(err)
	}
	if st := a.flush(ctx); st != subcommands.ExitSuccess {
		return st
	}
	summary, err := a.svc.Wallet(ctx, tx.WalletID)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(a.out, "%s %s, balance %s\n", tx.ID, a.svc.Format(tx.Amount), a.svc.Format(summary.Wallet.Balance))
	return subcommands.ExitSuccess
}

type rmTxCmd struct{}

func (*rmTxCmd) Name() string     { return "rm-tx" }
func (*rmTxCmd) Synopsis() string { return "delete a transaction and reverse its effect" }
func (*rmTxCmd) Usage() string {
	return `ledgerctl rm-tx <transaction-id>
`
}
func (*rmTxCmd) SetFlags(*flag.FlagSet) {}

func (*rmTxCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(f, "Error: exactly one transaction ID is required.")
	}
	a := appFrom(args)
	tx, ok := a.svc.DeleteTransaction(ctx, f.Arg(0))
	if !ok {
		fmt.Fprintf(a.out, "transaction %s does not exist\n", f.Arg(0))
		return subcommands.ExitSuccess
	}
	if st := a.flush(ctx); st != subcommands.ExitSuccess {
		return st
	}
	fmt.Fprintf(a.out, "deleted transaction %s (%s)\n", tx.ID, a.svc.Format(tx.Amount))
	return subcommands.ExitSuccess
}

type txsCmd struct {
	wallet string
	limit  int
}

func (*txsCmd) Name() string     { return "txs" }
func (*txsCmd) Synopsis() string { return "list transactions, newest first" }
func (*txsCmd) Usage() string {
	return `ledgerctl txs [-w <wallet-id>] [-n <count>]
`
}

func (c *txsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.wallet, "w", "", "Only list transactions of this wallet.")
	f.IntVar(&c.limit, "n", 0, "Show at most n transactions; 0 shows all.")
}

func (c *txsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	var txs []core.Transaction
	if c.wallet != "" {
		var err error
		if txs, err = a.svc.WalletTransactions(ctx, c.wallet); err != nil {
			return fail(err)
		}
		if c.limit > 0 && len(txs) > c.limit {
			txs = txs[:c.limit]
		}
	} else {
		txs = a.svc.Transactions(ctx, c.limit)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tWALLET\tAMOUNT\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.Date.Local().Format("2006-01-02 15:04"), tx.WalletID, a.svc.Format(tx.Amount), tx.Description)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}
