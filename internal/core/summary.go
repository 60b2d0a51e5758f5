package core

import "sort"

// RecentLimit is the number of transactions shown on the dashboard.
const RecentLimit = 5

// AllocationSlice is one wallet's share of the positive balances.
type AllocationSlice struct {
	WalletID string `json:"walletId"`
	Name     string `json:"name"`
	Color    Color  `json:"color"`
	Balance  Amount `json:"balance"`
}

// DashboardSummary aggregates every wallet.
type DashboardSummary struct {
	TotalBalance     Amount            `json:"totalBalance"`
	WalletCount      int               `json:"walletCount"`
	TransactionCount int               `json:"transactionCount"`
	Recent           []Transaction     `json:"recent"`
	Allocation       []AllocationSlice `json:"allocation"`
}

// WalletSummary describes a single wallet and its history.
type WalletSummary struct {
	Wallet           Wallet        `json:"wallet"`
	TotalDeposits    Amount        `json:"totalDeposits"`
	TotalWithdrawals Amount        `json:"totalWithdrawals"` // magnitude, always >= 0
	TransactionCount int           `json:"transactionCount"`
	Transactions     []Transaction `json:"transactions"`
}

// NewestFirst returns a copy of txs sorted by date, most recent first.
// Ties keep their insertion order.
func NewestFirst(txs []Transaction) []Transaction {
	out := append([]Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out
}

// Summarize builds the dashboard view from the wallets and all transactions.
func Summarize(wallets []Wallet, txs []Transaction) DashboardSummary {
	s := DashboardSummary{
		WalletCount:      len(wallets),
		TransactionCount: len(txs),
		Allocation:       []AllocationSlice{},
	}
	for _, w := range wallets {
		s.TotalBalance = s.TotalBalance.Add(w.Balance)
		if w.Balance.IsPositive() {
			s.Allocation = append(s.Allocation, AllocationSlice{
				WalletID: w.ID,
				Name:     w.Name,
				Color:    w.Color,
				Balance:  w.Balance,
			})
		}
	}
	recent := NewestFirst(txs)
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	s.Recent = recent
	return s
}

// SummarizeWallet builds the wallet view. txs must already be filtered to w.
func SummarizeWallet(w Wallet, txs []Transaction) WalletSummary {
	s := WalletSummary{
		Wallet:           w,
		TransactionCount: len(txs),
		Transactions:     NewestFirst(txs),
	}
	for _, tx := range txs {
		if tx.Amount.IsNegative() {
			s.TotalWithdrawals = s.TotalWithdrawals.Add(tx.Amount.Abs())
		} else {
			s.TotalDeposits = s.TotalDeposits.Add(tx.Amount)
		}
	}
	return s
}
