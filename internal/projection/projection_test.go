package projection

import (
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/errs"
)

func tx(wallet, amount string, at time.Time) core.Transaction {
	return core.Transaction{
		ID:       wallet + amount + at.String(),
		WalletID: wallet,
		Amount:   core.MustParseAmount(amount),
		Date:     core.NewTimestamp(at),
	}
}

func TestProjectLengths(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := map[Bucketing]int{Weekly: 7, Monthly: 30, Yearly: 12}
	for b, want := range cases {
		if got := len(Project(nil, core.Zero, b, now)); got != want {
			t.Errorf("%s: got %d points, want %d", b, got, want)
		}
	}
}

func TestProjectWeeklyLabelsAndBalances(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx("w", "100", time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)),  // before window
		tx("w", "-20", time.Date(2025, 3, 5, 23, 59, 0, 0, time.UTC)), // 05/03
		tx("w", "5", time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)),   // today
		tx("w", "1000", time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)), // future
	}
	points := Project(txs, core.Zero, Weekly, now)

	wantLabels := []string{"04/03", "05/03", "06/03", "07/03", "08/03", "09/03", "10/03"}
	wantBalances := []string{"100", "80", "80", "80", "80", "80", "85"}
	for i, p := range points {
		if p.Label != wantLabels[i] {
			t.Errorf("point %d: label %q, want %q", i, p.Label, wantLabels[i])
		}
		if p.Balance.String() != wantBalances[i] {
			t.Errorf("point %d: balance %s, want %s", i, p.Balance, wantBalances[i])
		}
	}
}

func TestProjectCutoffIsEndOfDay(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 1, 0, time.UTC)
	points := Project(nil, core.Zero, Weekly, now)
	last := points[len(points)-1]
	want := time.Date(2025, 3, 10, 23, 59, 59, 999999999, time.UTC)
	if !last.Cutoff.Equal(want) {
		t.Fatalf("cutoff %v, want %v", last.Cutoff, want)
	}
	if !last.Start.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start %v", last.Start)
	}
}

func TestProjectMonthlyLabels(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	points := Project(nil, core.Zero, Monthly, now)
	if points[0].Label != "02/25" {
		t.Errorf("first label %q, want 02/25 (9 Feb)", points[0].Label)
	}
	if points[29].Label != "03/25" {
		t.Errorf("last label %q, want 03/25", points[29].Label)
	}
	if !points[0].Start.Equal(time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first start %v", points[0].Start)
	}
}

func TestProjectYearlyCrossesYearBoundary(t *testing.T) {
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx("w", "10", time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC)),
		tx("w", "10", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
	}
	points := Project(txs, core.AmountFromInt(1), Yearly, now)
	if points[0].Label != "04/2024" || points[11].Label != "03/2025" {
		t.Fatalf("labels %q..%q", points[0].Label, points[11].Label)
	}
	if points[0].Balance.String() != "11" {
		t.Errorf("April balance %s, want 11", points[0].Balance)
	}
	if points[1].Balance.String() != "21" {
		t.Errorf("May balance %s, want 21", points[1].Balance)
	}
	wantCutoff := time.Date(2024, 4, 30, 23, 59, 59, 999999999, time.UTC)
	if !points[0].Cutoff.Equal(wantCutoff) {
		t.Errorf("April cutoff %v", points[0].Cutoff)
	}
}

func TestProjectUsesLocationOfNow(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, loc)
	// 2025-03-09T20:00Z is already 10 March in UTC+10.
	txs := []core.Transaction{tx("w", "7", time.Date(2025, 3, 9, 20, 0, 0, 0, time.UTC))}
	points := Project(txs, core.Zero, Weekly, now)
	if got := points[5].Balance.String(); got != "0" {
		t.Errorf("09/03 balance %s, want 0", got)
	}
	if got := points[6].Balance.String(); got != "7" {
		t.Errorf("10/03 balance %s, want 7", got)
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx("a", "3.5", now.AddDate(0, 0, -3)),
		tx("b", "-1.25", now.AddDate(0, 0, -1)),
	}
	first := Project(txs, core.AmountFromInt(2), Monthly, now)
	second := Project(txs, core.AmountFromInt(2), Monthly, now)
	for i := range first {
		if first[i].Label != second[i].Label || !first[i].Balance.Equal(second[i].Balance) {
			t.Fatalf("point %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestForWallet(t *testing.T) {
	now := time.Now()
	txs := []core.Transaction{tx("a", "1", now), tx("b", "2", now), tx("a", "3", now)}
	got := ForWallet(txs, "a")
	if len(got) != 2 || got[0].Amount.String() != "1" || got[1].Amount.String() != "3" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if len(ForWallet(txs, "none")) != 0 {
		t.Fatal("expected no transactions")
	}
}

func TestParseBucketing(t *testing.T) {
	cases := map[string]Bucketing{
		"":        Weekly,
		"week":    Weekly,
		"Monthly": Monthly,
		"month":   Monthly,
		" year ":  Yearly,
		"yearly":  Yearly,
	}
	for in, want := range cases {
		got, err := ParseBucketing(in)
		if err != nil || got != want {
			t.Errorf("ParseBucketing(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseBucketing("daily"); !errs.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
