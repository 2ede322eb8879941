package app

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/p2pbot/core/telegram/keyboard"
	"github.com/m3rciful/p2pbot/dialogue"
)

// sendOptions turns directive options into Telegram markup. Inline options
// become one inline button per row; reply labels become a reply keyboard
// with one button per row.
func sendOptions(d dialogue.Directive) *tele.SendOptions {
	if len(d.Options) == 0 {
		return nil
	}
	if d.Options[0].Inline() {
		btns := make([]keyboard.InlineBtn, 0, len(d.Options))
		for _, o := range d.Options {
			unique, data, _ := strings.Cut(o.Payload, "|")
			btns = append(btns, keyboard.InlineBtn{Text: o.Label, Unique: unique, Data: data})
		}
		return &tele.SendOptions{ReplyMarkup: keyboard.InlineButtons(btns)}
	}
	rows := make([][]string, 0, len(d.Options))
	for _, o := range d.Options {
		rows = append(rows, []string{o.Label})
	}
	return &tele.SendOptions{ReplyMarkup: keyboard.ReplyButtonsWithPlaceholder(d.Placeholder, rows...)}
}
