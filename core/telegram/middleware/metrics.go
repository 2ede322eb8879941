package middleware

import (
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/p2pbot/core/observe"
	tghelpers "github.com/m3rciful/p2pbot/core/telegram/helpers"
)

// Update kinds reported by UpdateKind.
const (
	KindMessage     = "message"
	KindCallback    = "callback"
	KindInlineQuery = "inline_query"
	KindOther       = "other"
)

// UpdateKind names the type of the update behind c.
func UpdateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil:
		return KindMessage
	case upd.Query != nil:
		return KindInlineQuery
	}
	return KindOther
}

// UpdateMetricsMiddleware counts handled updates by kind and status and
// records how long the handler chain took. A nil m disables recording.
func UpdateMetricsMiddleware(m *observe.Metrics) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if m == nil {
			return next
		}
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)
			m.RecordUpdate(tghelpers.BuildContext(c), UpdateKind(c), time.Since(start), err)
			return err
		}
	}
}
