package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/p2pbot/core/buildinfo"
	"github.com/m3rciful/p2pbot/core/logger"
	coretelegram "github.com/m3rciful/p2pbot/core/telegram"
	"github.com/m3rciful/p2pbot/core/telegram/callbacks"
	"github.com/m3rciful/p2pbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/p2pbot/core/telegram/helpers"
	"github.com/m3rciful/p2pbot/core/telegram/router"
	"github.com/m3rciful/p2pbot/core/telegram/ui"
	"github.com/m3rciful/p2pbot/dialogue"
)

const (
	msgStartup     = "✅ Бот запущен и готов к работе!"
	msgBusy        = "⏳ Слишком много сообщений подряд. Подождите немного и повторите."
	msgTextOnly    = "Я понимаю только текст и кнопки. Выберите действие на клавиатуре ниже."
	msgStaleButton = "Эта кнопка больше не активна."
	msgRateLimited = "⏳ Не так быстро, пожалуйста."

	msgUnknownCommand = "Неизвестная команда."
	msgResumeFlow     = "Продолжите ввод или нажмите «" + dialogue.LabelCancel + "»."
	msgPickAction     = "Выберите действие на клавиатуре ниже."
)

var (
	_ router.FSM          = (*App)(nil)
	_ ui.FallbackProvider = (*App)(nil)
)

// TelegramRunOptions registers commands, callbacks and text routes.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand(dialogue.CmdStart, commands.Command{
		Handler:     a.onText,
		Description: "Главное меню",
	})
	reg.RegisterCommand(dialogue.CmdCancel, commands.Command{
		Handler:     a.onText,
		Description: "Отменить текущую операцию",
	})
	reg.RegisterCommand("/status", commands.Command{
		Handler:     a.onStatus,
		Description: "Состояние бота",
		AdminOnly:   true,
		Hidden:      true,
	})
	for _, key := range []string{dialogue.SelectEditRecord, dialogue.SelectCancelEdit} {
		if err := reg.RegisterCallback(key, a.onSelection); err != nil {
			return coretelegram.RunOptions{}, err
		}
	}
	reg.SetCallbackNotFound(a.UnknownCallback())
	reg.SetTextFallback(a.onText)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: core.Telegram.AdminID,
		// Admin commands do not exist for anyone else.
		OnAdminReject: a.UnknownCommand(),
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{NotFound: a.UnknownCallback()}))
	routes = append(routes, router.TextRoutes(a, reg, router.TextOptions{
		UnknownCommand:  a.UnknownCommand(),
		UnknownText:     a.UnknownText(),
		UnknownDocument: a.UnknownDocument(),
	})...)

	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(core, a.metrics, a.onRateLimited),
		Routes:      routes,
		Synchronous: true,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

// InProgress reports whether the user is inside a dialogue flow.
func (a *App) InProgress(userID int64) bool {
	return !dialogue.IsIdle(a.engine.State(userID))
}

// ManagerHandler feeds text of a user inside a flow to the dialogue.
func (a *App) ManagerHandler(c tele.Context) error { return a.onText(c) }

// UnknownCommand answers commands the sender cannot use. The dialogue is
// left untouched: a flow in progress keeps its state and keyboard.
func (a *App) UnknownCommand() tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil {
			return nil
		}
		userID := c.Sender().ID
		return a.enqueue(c, userID, func(context.Context) dialogue.Directive {
			return a.commandHint(userID)
		})
	}
}

func (a *App) commandHint(userID int64) dialogue.Directive {
	if a.InProgress(userID) {
		return dialogue.Directive{UserID: userID, Text: msgUnknownCommand + "\n" + msgResumeFlow}
	}
	return dialogue.MainMenu(userID, msgUnknownCommand+"\n"+msgPickAction)
}

// UnknownText handles text no route claimed.
func (a *App) UnknownText() tele.HandlerFunc { return a.onText }

// UnknownDocument answers files and media.
func (a *App) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, msgTextOnly)
	}
}

// UnknownCallback answers buttons of keyboards the bot no longer serves.
func (a *App) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, msgStaleButton)
	}
}

func (a *App) onRateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgRateLimited})
	}
	return nil
}

func (a *App) onText(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	return a.submit(c, dialogue.TextEvent(c.Sender().ID, c.Text()))
}

func (a *App) onSelection(c tele.Context) error {
	if c.Sender() == nil || c.Callback() == nil {
		return nil
	}
	key, payload := callbacks.ParseCallbackData(c.Callback())
	return a.submit(c, dialogue.SelectionEvent(c.Sender().ID, key, payload))
}

// submit queues the event behind earlier events of the same user.
func (a *App) submit(c tele.Context, ev dialogue.Event) error {
	return a.enqueue(c, ev.UserID, func(ctx context.Context) dialogue.Directive {
		return a.engine.Handle(ctx, ev)
	})
}

// enqueue runs build in the user's mailbox and sends its reply from there,
// so replies keep the order of the updates that caused them.
func (a *App) enqueue(c tele.Context, userID int64, build func(context.Context) dialogue.Directive) error {
	ctx := tghelpers.BuildContext(c)
	err := a.seq.Submit(ctx, userID, func(ctx context.Context) {
		d := build(ctx)
		if err := tghelpers.SendTextNow(c, d.Text, sendOptions(d)); err != nil {
			logger.Error(ctx, "app", "reply.fail",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
	})
	switch {
	case errors.Is(err, dialogue.ErrQueueFull):
		return tghelpers.SendText(c, msgBusy)
	case errors.Is(err, dialogue.ErrSequencerClosed):
		return nil
	}
	return err
}

func (a *App) onStatus(c tele.Context) error {
	return tghelpers.SendText(c, a.statusText())
}

func (a *App) statusText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "p2pbot %s (%s)\n", buildinfo.Version, buildinfo.Commit)
	fmt.Fprintf(&b, "Хранилище: %s\n", a.cfg.Ledger.Storage)
	fmt.Fprintf(&b, "Активных диалогов: %d\n", a.engine.ActiveSessions())
	fmt.Fprintf(&b, "Пользователей в очереди: %d", a.seq.Active())
	if a.dispatcher != nil {
		fmt.Fprintf(&b, "\nОшибок отправки: %d", a.dispatcher.ErrorCount())
	}
	return b.String()
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	a.dispatcher = rt.Dispatcher
	a.startBackground()
	a.notifyAdmin(ctx, rt)
	return nil
}

// notifyAdmin tells the admin the bot is up. Delivery failures are logged by
// the dispatcher and never stop the bot.
func (a *App) notifyAdmin(ctx context.Context, rt coretelegram.Runtime) {
	adminID := a.cfg.Core.Telegram.AdminID
	if adminID == 0 || rt.Bot == nil || rt.Dispatcher == nil {
		return
	}
	opts := sendOptions(dialogue.MainMenu(adminID, msgStartup))
	err := rt.Dispatcher.Enqueue(ctx, "send.startup", "sendMessage", func() error {
		_, err := rt.Bot.Send(&tele.User{ID: adminID}, msgStartup, opts)
		return err
	})
	if err != nil {
		logger.Warn(ctx, "app", "startup.notify.skip", slog.String("err", err.Error()))
	}
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	return a.close(stopCtx)
}
