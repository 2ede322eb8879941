package dialogue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/p2pbot/records"
)

// DefaultRecentLimit is how many recent records are listed per kind.
const DefaultRecentLimit = 5

// KindSummary aggregates the records of one kind.
type KindSummary struct {
	Total  decimal.Decimal
	Count  int
	Recent []records.Record
}

// Stats is the per-user summary shown by the statistics action.
type Stats struct {
	Deposits    KindSummary
	Withdrawals KindSummary
}

// Summarize totals list per kind and keeps the recent most recent records of
// each kind, newest date first. Records sharing a date are ordered by id,
// newest first.
func Summarize(list []records.Record, recent int) Stats {
	if recent < 0 {
		recent = 0
	}
	sorted := sortRecent(list)

	st := Stats{
		Deposits:    KindSummary{Total: decimal.Zero},
		Withdrawals: KindSummary{Total: decimal.Zero},
	}
	for _, r := range sorted {
		var ks *KindSummary
		switch r.Kind {
		case records.KindDeposit:
			ks = &st.Deposits
		case records.KindWithdrawal:
			ks = &st.Withdrawals
		default:
			continue
		}
		ks.Total = ks.Total.Add(r.Amount)
		ks.Count++
		if len(ks.Recent) < recent {
			ks.Recent = append(ks.Recent, r)
		}
	}
	return st
}

// sortRecent returns a copy of list ordered by date, newest first; records
// sharing a date are ordered by id, newest first.
func sortRecent(list []records.Record) []records.Record {
	sorted := make([]records.Record, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted
}

// Stats renders the statistics message.
func (f Formatter) Stats(st Stats) string {
	var b strings.Builder
	b.WriteString("📊 Статистика ваших P2P транзакций:\n\n")
	fmt.Fprintf(&b, "💰 Всего внесено: %s\n", f.Amount(st.Deposits.Total))
	fmt.Fprintf(&b, "📈 Всего покупок: %d\n", st.Deposits.Count)
	fmt.Fprintf(&b, "💸 Всего продано: %s\n", f.Amount(st.Withdrawals.Total))
	fmt.Fprintf(&b, "📉 Всего продаж: %d", st.Withdrawals.Count)

	f.writeRecent(&b, "🔵 Последние пополнения:", st.Deposits.Recent)
	f.writeRecent(&b, "🔴 Последние продажи:", st.Withdrawals.Recent)
	return b.String()
}

// writeRecent appends a titled list, set off from the text before it by a
// blank line. Empty lists are omitted.
func (f Formatter) writeRecent(b *strings.Builder, title string, list []records.Record) {
	if len(list) == 0 {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(title)
	for _, r := range list {
		fmt.Fprintf(b, "\n• %s: %s", f.Date(r.Date), f.Amount(r.Amount))
	}
}

// RecordLabel is the one-line caption of a record in the edit list.
func (f Formatter) RecordLabel(r records.Record) string {
	return fmt.Sprintf("%s %s · %s", kindIcon(r.Kind), f.Date(r.Date), f.Amount(r.Amount))
}

// RecordCard describes a record opened for editing.
func (f Formatter) RecordCard(r records.Record) string {
	return fmt.Sprintf("Редактирование транзакции:\nТип: %s\nСумма: %s\nДата: %s\n\n%s",
		kindTitle(r.Kind), f.Amount(r.Amount), f.Date(r.Date), msgPickField)
}
