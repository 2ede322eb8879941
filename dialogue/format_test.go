package dialogue

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/p2pbot/records"
)

func newTestFormatter(t *testing.T) Formatter {
	t.Helper()
	f, err := NewFormatter("RUB", time.UTC)
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	return f
}

func TestFormatterAmount(t *testing.T) {
	f := newTestFormatter(t)
	tests := []struct {
		in   string
		want string
	}{
		{"1500.50", "1 500,50 ₽"},
		{"200", "200,00 ₽"},
		{"0", "0,00 ₽"},
		{"0.05", "0,05 ₽"},
		{"1234567.891", "1 234 567,89 ₽"},
	}
	for _, tt := range tests {
		if got := f.Amount(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Fatalf("Amount(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatterDateUsesZone(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)
	f, err := NewFormatter("RUB", loc)
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	// 22:30 UTC is already the next day in MSK.
	ts := time.Date(2024, 2, 24, 22, 30, 0, 0, time.UTC)
	if got := f.Date(ts); got != "25.02.2024" {
		t.Fatalf("Date = %q", got)
	}
}

func TestNewFormatterUnknownCurrency(t *testing.T) {
	if _, err := NewFormatter("XXQ", time.UTC); err == nil {
		t.Fatal("expected error for unknown currency")
	}
}

func rec(id int64, kind records.Kind, amount string, day int) records.Record {
	return records.Record{
		ID:      id,
		OwnerID: 1,
		Kind:    kind,
		Amount:  decimal.RequireFromString(amount),
		Date:    time.Date(2024, 2, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestSummarizeTotalsAndRecent(t *testing.T) {
	list := []records.Record{
		rec(1, records.KindDeposit, "100", 1),
		rec(2, records.KindDeposit, "50.25", 3),
		rec(3, records.KindWithdrawal, "10", 2),
		rec(4, records.KindDeposit, "1", 3),
	}
	for i := 5; i <= 11; i++ {
		list = append(list, rec(int64(i), records.KindDeposit, "1", 10+i))
	}
	st := Summarize(list, 5)

	if st.Deposits.Count != 10 || !st.Deposits.Total.Equal(decimal.RequireFromString("158.25")) {
		t.Fatalf("deposits = %+v", st.Deposits)
	}
	if st.Withdrawals.Count != 1 || !st.Withdrawals.Total.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("withdrawals = %+v", st.Withdrawals)
	}
	if len(st.Deposits.Recent) != 5 {
		t.Fatalf("recent = %d", len(st.Deposits.Recent))
	}
	for i, want := range []int64{11, 10, 9, 8, 7} {
		if st.Deposits.Recent[i].ID != want {
			t.Fatalf("recent[%d] = %d, want %d", i, st.Deposits.Recent[i].ID, want)
		}
	}
}

func TestSummarizeTieBreakByID(t *testing.T) {
	list := []records.Record{
		rec(2, records.KindDeposit, "1", 3),
		rec(7, records.KindDeposit, "1", 3),
		rec(5, records.KindDeposit, "1", 3),
	}
	st := Summarize(list, 5)
	got := []int64{st.Deposits.Recent[0].ID, st.Deposits.Recent[1].ID, st.Deposits.Recent[2].ID}
	if got[0] != 7 || got[1] != 5 || got[2] != 2 {
		t.Fatalf("order = %v", got)
	}
	if list[0].ID != 2 {
		t.Fatal("input slice was reordered")
	}
}

func TestFormatStatsOnlyWithdrawals(t *testing.T) {
	f := newTestFormatter(t)
	list := []records.Record{
		rec(1, records.KindWithdrawal, "100", 1),
		rec(2, records.KindWithdrawal, "1500.5", 20),
		rec(3, records.KindWithdrawal, "3", 10),
	}
	got := f.Stats(Summarize(list, DefaultRecentLimit))
	want := "📊 Статистика ваших P2P транзакций:\n\n" +
		"💰 Всего внесено: 0,00 ₽\n" +
		"📈 Всего покупок: 0\n" +
		"💸 Всего продано: 1 603,50 ₽\n" +
		"📉 Всего продаж: 3\n" +
		"\n🔴 Последние продажи:" +
		"\n• 20.02.2024: 1 500,50 ₽" +
		"\n• 10.02.2024: 3,00 ₽" +
		"\n• 01.02.2024: 100,00 ₽"
	if got != want {
		t.Fatalf("stats text:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatStatsBothKinds(t *testing.T) {
	f := newTestFormatter(t)
	list := []records.Record{
		rec(1, records.KindDeposit, "1500.5", 25),
		rec(2, records.KindWithdrawal, "200", 3),
	}
	got := f.Stats(Summarize(list, DefaultRecentLimit))
	want := "📊 Статистика ваших P2P транзакций:\n\n" +
		"💰 Всего внесено: 1 500,50 ₽\n" +
		"📈 Всего покупок: 1\n" +
		"💸 Всего продано: 200,00 ₽\n" +
		"📉 Всего продаж: 1\n" +
		"\n🔵 Последние пополнения:" +
		"\n• 25.02.2024: 1 500,50 ₽\n" +
		"\n🔴 Последние продажи:" +
		"\n• 03.02.2024: 200,00 ₽"
	if got != want {
		t.Fatalf("stats text:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatStatsEmpty(t *testing.T) {
	f := newTestFormatter(t)
	got := f.Stats(Summarize(nil, DefaultRecentLimit))
	if strings.Contains(got, "Последние") {
		t.Fatalf("empty stats lists records:\n%s", got)
	}
	if !strings.HasSuffix(got, "📉 Всего продаж: 0") {
		t.Fatalf("unexpected text:\n%s", got)
	}
}
