package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider answers updates no command or callback claimed.
type FallbackProvider interface {
	UnknownCommand() tele.HandlerFunc
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
