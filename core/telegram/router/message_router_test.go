package router

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/p2pbot/core/telegram"
	"github.com/m3rciful/p2pbot/core/telegram/commands"
)

type fakeFSM struct {
	active  map[int64]bool
	handled []string
}

func (f *fakeFSM) InProgress(userID int64) bool { return f.active[userID] }

func (f *fakeFSM) ManagerHandler(c tele.Context) error {
	f.handled = append(f.handled, c.Text())
	return nil
}

func newTextRoute(t *testing.T, fsm FSM, reg *tg.Registry, opts TextOptions) (*tele.Bot, tele.HandlerFunc) {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("NewBot: %v", err)
	}
	routes := TextRoutes(fsm, reg, opts)
	if len(routes) == 0 || routes[0].Endpoint != tele.OnText {
		t.Fatalf("unexpected routes: %+v", routes)
	}
	return bot, routes[0].Handler
}

func textUpdate(id int, userID int64, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		},
	}
}

func TestTextRoutesKeepUnknownCommandsOutOfFlow(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: func(tele.Context) error { return nil }, Description: "menu"})
	fsm := &fakeFSM{active: map[int64]bool{5: true}}

	var unknown []string
	bot, h := newTextRoute(t, fsm, reg, TextOptions{
		UnknownCommand: func(c tele.Context) error {
			unknown = append(unknown, c.Text())
			return nil
		},
	})

	for i, text := range []string{"/status", "/status@p2p_bot now", "150,00"} {
		if err := h(bot.NewContext(textUpdate(i+1, 5, text))); err != nil {
			t.Fatalf("handler(%q): %v", text, err)
		}
	}
	if len(unknown) != 2 {
		t.Fatalf("unknown commands = %q", unknown)
	}
	if len(fsm.handled) != 1 || fsm.handled[0] != "150,00" {
		t.Fatalf("flow received %q", fsm.handled)
	}
}

func TestTextRoutesRegisteredCommandByText(t *testing.T) {
	reg := tg.NewRegistry()
	var started int
	reg.RegisterCommand("/start", commands.Command{
		Handler: func(tele.Context) error {
			started++
			return nil
		},
		Description: "menu",
	})
	bot, h := newTextRoute(t, &fakeFSM{}, reg, TextOptions{
		UnknownCommand: func(tele.Context) error {
			t.Fatal("registered command treated as unknown")
			return nil
		},
	})
	if err := h(bot.NewContext(textUpdate(1, 5, "/start"))); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if started != 1 {
		t.Fatalf("start handler ran %d times", started)
	}
}

func TestIsUnknownCommand(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     func(tele.Context) error { return nil },
		Description: "cancel",
		Aliases:     []string{"stop"},
	})
	tests := []struct {
		text string
		want bool
	}{
		{"/cancel", false},
		{"/cancel@p2p_bot", false},
		{"/stop", false},
		{"/status", true},
		{"/status extra args", true},
		{"/", false},
		{"", false},
		{"1500,50", false},
		{"📊 Статистика", false},
	}
	for _, tt := range tests {
		if got := isUnknownCommand(reg, tt.text); got != tt.want {
			t.Errorf("isUnknownCommand(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
