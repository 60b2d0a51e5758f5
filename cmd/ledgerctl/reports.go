package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"

	"fintrack/internal/projection"
)

type trendCmd struct {
	bucketing string
	wallet    string
}

func (*trendCmd) Name() string     { return "trend" }
func (*trendCmd) Synopsis() string { return "show the balance over time" }
func (*trendCmd) Usage() string {
	return `ledgerctl trend [-b weekly|monthly|yearly] [-w <wallet-id>]

  Prints the cumulative balance at the end of each bucket: 7 days, 30 days or
  12 months ending today.
`
}

func (c *trendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.bucketing, "b", "weekly", "Bucketing: weekly, monthly or yearly.")
	f.StringVar(&c.wallet, "w", "", "Chart a single wallet instead of the whole ledger.")
}

func (c *trendCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	b, err := projection.ParseBucketing(c.bucketing)
	if err != nil {
		return fail(err)
	}
	points, err := a.svc.Projection(ctx, b, c.wallet)
	if err != nil {
		return fail(err)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%s\t\n", p.Label, a.svc.Format(p.Balance))
	}
	tw.Flush()
	return subcommands.ExitSuccess
}
