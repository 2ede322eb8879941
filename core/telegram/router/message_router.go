package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/p2pbot/core/telegram"
	"github.com/m3rciful/p2pbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the dialogue that consumes text of users inside a flow.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	// UnknownCommand answers slash commands the registry does not serve.
	// It runs before the FSM so that such commands never reach a flow.
	UnknownCommand tele.HandlerFunc
}

// TextRoutes builds handlers for text and document routing. Order: unknown
// commands, text of users inside a flow, registered commands, fallbacks.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if opts.UnknownCommand != nil && isUnknownCommand(reg, text) {
			return handleWithSummary(c, "unknown_command", start, "", "", func() error {
				return opts.UnknownCommand(c)
			})
		}

		if c.Sender() != nil && fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm", start, "", "", func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if c.Sender() != nil && fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm_document", start, "", "", func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", start, "", "", func() error {
				return opts.UnknownDocument(c)
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}

// isUnknownCommand reports whether text is a slash command that reg does not
// know. Arguments and a "@botname" suffix are ignored.
func isUnknownCommand(reg *tg.Registry, text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 || len(fields[0]) < 2 || !strings.HasPrefix(fields[0], "/") {
		return false
	}
	name, _, _ := strings.Cut(fields[0], "@")
	if reg == nil {
		return true
	}
	_, _, ok := reg.LookupCommand(name)
	return !ok
}
