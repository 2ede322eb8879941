package app

import (
	"context"
	"strings"
	"testing"

	"github.com/m3rciful/p2pbot/dialogue"
	"github.com/m3rciful/p2pbot/records"
)

func newTestApp(t *testing.T, store records.Store) *App {
	t.Helper()
	cfg := &Config{Ledger: LedgerConfig{Storage: StorageMemory}}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	a, err := newWithStore(cfg, store)
	if err != nil {
		t.Fatalf("newWithStore: %v", err)
	}
	t.Cleanup(func() { _ = a.close(context.Background()) })
	return a
}

func TestInProgressFollowsDialogue(t *testing.T) {
	a := newTestApp(t, records.NewMemoryStore())
	ctx := context.Background()

	if a.InProgress(5) {
		t.Fatal("new user must be idle")
	}
	a.engine.Handle(ctx, dialogue.TextEvent(5, dialogue.LabelNewWithdrawal))
	if !a.InProgress(5) {
		t.Fatal("user entering an amount must be in progress")
	}
	if a.InProgress(6) {
		t.Fatal("other users stay idle")
	}
	a.engine.Handle(ctx, dialogue.TextEvent(5, dialogue.CmdCancel))
	if a.InProgress(5) {
		t.Fatal("cancel must return to idle")
	}
}

func TestStatusText(t *testing.T) {
	a := newTestApp(t, records.NewMemoryStore())
	a.engine.Handle(context.Background(), dialogue.TextEvent(9, dialogue.LabelNewDeposit))

	got := a.statusText()
	for _, want := range []string{
		"p2pbot ",
		"Хранилище: memory",
		"Активных диалогов: 1",
		"Пользователей в очереди: 0",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("status %q does not contain %q", got, want)
		}
	}
	if strings.Contains(got, "Ошибок отправки") {
		t.Fatalf("dispatcher line shown before start: %q", got)
	}
}

func TestRunOptionsRegistersRoutes(t *testing.T) {
	a := newTestApp(t, records.NewMemoryStore())
	a.cfg.Core.Telegram.AdminID = 1

	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("TelegramRunOptions: %v", err)
	}
	if !opts.Synchronous {
		t.Fatal("updates must be handled synchronously")
	}
	if len(opts.Routes) == 0 || opts.Registry == nil {
		t.Fatal("expected routes and registry")
	}
	if opts.OnStart == nil || opts.OnStop == nil {
		t.Fatal("expected lifecycle hooks")
	}
}

func TestCommandHintLeavesDialogue(t *testing.T) {
	a := newTestApp(t, records.NewMemoryStore())
	a.engine.Handle(context.Background(), dialogue.TextEvent(5, dialogue.LabelNewWithdrawal))

	d := a.commandHint(5)
	if !strings.HasPrefix(d.Text, msgUnknownCommand) || !strings.Contains(d.Text, dialogue.LabelCancel) {
		t.Fatalf("hint = %q", d.Text)
	}
	if sendOptions(d) != nil {
		t.Fatalf("hint inside a flow must keep the current keyboard: %v", d.Labels())
	}
	if _, ok := a.engine.State(5).(dialogue.AwaitingAmount); !ok {
		t.Fatalf("state = %#v", a.engine.State(5))
	}

	idle := a.commandHint(6)
	if idle.UserID != 6 || len(idle.Options) != 4 {
		t.Fatalf("idle hint = %+v", idle)
	}
	if a.InProgress(6) {
		t.Fatal("hint must not start a flow")
	}
}
