// Package projection turns a transaction history into balance-over-time
// series for charts. Everything here is pure: the same inputs and the same
// reference time always give the same points.
package projection

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/errs"
)

type Bucketing int

const (
	Weekly Bucketing = iota
	Monthly
	Yearly
)

const (
	weeklyBuckets  = 7
	monthlyBuckets = 30
	yearlyBuckets  = 12
)

func (b Bucketing) String() string {
	switch b {
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return fmt.Sprintf("Bucketing(%d)", int(b))
	}
}

// Len is the number of points a projection with this bucketing yields.
func (b Bucketing) Len() int {
	switch b {
	case Weekly:
		return weeklyBuckets
	case Monthly:
		return monthlyBuckets
	case Yearly:
		return yearlyBuckets
	default:
		return 0
	}
}

func (b Bucketing) labelLayout() string {
	switch b {
	case Weekly:
		return "02/01"
	case Monthly:
		return "01/06"
	default:
		return "01/2006"
	}
}

// ParseBucketing accepts weekly|week, monthly|month and yearly|year. An empty
// string selects Weekly.
func ParseBucketing(s string) (Bucketing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	case "yearly", "year":
		return Yearly, nil
	}
	return 0, errs.NewValidationError("unknown bucketing %q", s)
}

// Point is one chart sample: the balance at the end of the bucket.
type Point struct {
	Label   string      `json:"label"`
	Start   time.Time   `json:"start"`
	Cutoff  time.Time   `json:"cutoff"`
	Balance core.Amount `json:"balance"`
}

// Project computes the running balance at the end of every bucket of the
// window ending at now. Buckets are laid out in now's location; a transaction
// counts toward a bucket when its date is not after the bucket cutoff.
func Project(txs []core.Transaction, initial core.Amount, b Bucketing, now time.Time) []Point {
	n := b.Len()
	if n == 0 {
		return nil
	}
	points := make([]Point, n)
	layout := b.labelLayout()
	for i := 0; i < n; i++ {
		start, next := bucket(b, now, i-(n-1))
		cutoff := next.Add(-time.Nanosecond)
		points[i] = Point{
			Label:   start.Format(layout),
			Start:   start,
			Cutoff:  cutoff,
			Balance: balanceAt(txs, initial, cutoff),
		}
	}
	return points
}

// ForWallet keeps the transactions of one wallet.
func ForWallet(txs []core.Transaction, walletID string) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.WalletID == walletID {
			out = append(out, tx)
		}
	}
	return out
}

// bucket returns the start of the bucket offset steps away from the one
// containing now, and the start of the bucket after it.
func bucket(b Bucketing, now time.Time, offset int) (start, next time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	if b == Yearly {
		start = time.Date(y, m+time.Month(offset), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	}
	start = time.Date(y, m, d+offset, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func balanceAt(txs []core.Transaction, initial core.Amount, cutoff time.Time) core.Amount {
	total := initial
	for _, tx := range txs {
		if !tx.Date.After(cutoff) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}
