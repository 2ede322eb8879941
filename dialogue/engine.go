package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/m3rciful/p2pbot/core/logger"
	"github.com/m3rciful/p2pbot/core/observe"
	"github.com/m3rciful/p2pbot/core/telegram/state"
	"github.com/m3rciful/p2pbot/records"
)

const (
	// DefaultStoreTimeout bounds every record store call.
	DefaultStoreTimeout = 5 * time.Second
	// DefaultEditListLimit caps the number of records offered for editing.
	DefaultEditListLimit = 20

	payloadLogLimit = 64
)

// Options configures an Engine.
type Options struct {
	Records  records.Store
	Sessions state.Store[State]
	Format   Formatter

	StoreTimeout  time.Duration
	EditListLimit int
	RecentLimit   int

	Metrics *observe.Metrics
	Now     func() time.Time
}

// Engine drives the dialogue for all users.
type Engine struct {
	records  records.Store
	sessions state.Store[State]
	format   Formatter

	storeTimeout  time.Duration
	editListLimit int
	recentLimit   int

	metrics *observe.Metrics
	now     func() time.Time
}

// New validates opts and returns an engine.
func New(opts Options) (*Engine, error) {
	if opts.Records == nil {
		return nil, errors.New("dialogue: record store is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("dialogue: session store is required")
	}
	if opts.Format.money == nil {
		return nil, errors.New("dialogue: formatter is required")
	}
	e := &Engine{
		records:       opts.Records,
		sessions:      opts.Sessions,
		format:        opts.Format,
		storeTimeout:  opts.StoreTimeout,
		editListLimit: opts.EditListLimit,
		recentLimit:   opts.RecentLimit,
		metrics:       opts.Metrics,
		now:           opts.Now,
	}
	if e.storeTimeout <= 0 {
		e.storeTimeout = DefaultStoreTimeout
	}
	if e.editListLimit <= 0 {
		e.editListLimit = DefaultEditListLimit
	}
	if e.recentLimit <= 0 {
		e.recentLimit = DefaultRecentLimit
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// ActiveSessions reports how many users are inside a flow.
func (e *Engine) ActiveSessions() int { return e.sessions.Len() }

// State returns the current state of a user; users without a session are Idle.
func (e *Engine) State(userID int64) State {
	sess, ok := e.sessions.Get(userID)
	if !ok || sess.State == nil {
		return Idle{}
	}
	return sess.State
}

// Handle processes one event and returns the reply for the user. Events of
// one user are serialized by the session store lock.
func (e *Engine) Handle(ctx context.Context, ev Event) (out Directive) {
	unlock := e.sessions.Lock(ev.UserID)
	defer unlock()

	from := e.State(ev.UserID)
	wasActive := !IsIdle(from)
	ctx = logger.WithState(ctx, from.Name())

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "dialogue", "dialogue.panic",
				e.eventAttrs(ev, from,
					slog.String("err", fmt.Sprint(r)),
					slog.String("stack", string(debug.Stack())),
				)...,
			)
			e.metrics.RecordFailure(ctx, "panic")
			e.save(ctx, ev.UserID, wasActive, Idle{})
			out = Failure(ev.UserID)
		}
	}()

	step := Transition(from, ev, Env{Now: e.now(), Format: e.format})
	e.metrics.RecordEvent(ctx, from.Name(), step.Intent.String())

	if step.Err != nil {
		logger.Info(ctx, "dialogue", "input.invalid",
			e.eventAttrs(ev, from, slog.String("err", step.Err.Error()))...)
		e.metrics.RecordFailure(ctx, "validation")
	}

	next, reply := e.apply(ctx, ev, from, step)
	e.save(ctx, ev.UserID, wasActive, next)

	logger.Debug(ctx, "dialogue", "dialogue.step",
		e.eventAttrs(ev, from,
			slog.String("intent", step.Intent.String()),
			slog.String("effect", EffectName(step.Effect)),
			slog.String("next_state", next.Name()),
		)...,
	)

	reply.UserID = ev.UserID
	return reply
}

func (e *Engine) save(ctx context.Context, userID int64, wasActive bool, next State) {
	if IsIdle(next) {
		e.sessions.Clear(userID)
		if wasActive {
			e.metrics.SessionsChanged(ctx, -1)
		}
		return
	}
	e.sessions.Put(userID, state.Session[State]{State: next, Updated: e.now()})
	if !wasActive {
		e.metrics.SessionsChanged(ctx, 1)
	}
}

// apply executes the step's effect and returns the state to keep and the
// reply to send.
func (e *Engine) apply(ctx context.Context, ev Event, from State, step Step) (State, Directive) {
	switch eff := step.Effect.(type) {
	case nil:
		return step.Next, step.Reply

	case CreateRecord:
		id, err := call(ctx, e, "create", func(ctx context.Context) (int64, error) {
			return e.records.Create(ctx, records.NewRecord{
				OwnerID: ev.UserID,
				Amount:  eff.Amount,
				Kind:    eff.Kind,
				Date:    eff.Date,
			})
		})
		if err != nil {
			return e.fail(ctx, ev, from, err)
		}
		logger.Info(ctx, "dialogue", "record.created",
			slog.Int64("record_id", id),
			slog.String("kind", string(eff.Kind)),
		)
		return step.Next, step.Reply

	case UpdateRecord:
		if _, err := e.owned(ctx, ev.UserID, eff.RecordID); err != nil {
			return e.fail(ctx, ev, from, err)
		}
		_, err := call(ctx, e, "update", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.records.Update(ctx, eff.RecordID, eff.Changes)
		})
		if err != nil {
			return e.fail(ctx, ev, from, err)
		}
		return step.Next, step.Reply

	case ShowStats:
		list, err := e.list(ctx, ev.UserID)
		if err != nil {
			return e.fail(ctx, ev, from, err)
		}
		text := e.format.Stats(Summarize(list, e.recentLimit))
		return step.Next, reply(text, mainMenu())

	case ListRecords:
		list, err := e.list(ctx, ev.UserID)
		if err != nil {
			return e.fail(ctx, ev, from, err)
		}
		if len(list) == 0 {
			return Idle{}, reply(msgNoRecords, mainMenu())
		}
		return step.Next, e.editList(list)

	case OpenRecord:
		rec, err := e.owned(ctx, ev.UserID, eff.RecordID)
		if err != nil {
			return e.fail(ctx, ev, from, err)
		}
		return step.Next, reply(e.format.RecordCard(rec), editFieldMenu())
	}
	panic(fmt.Sprintf("dialogue: unhandled effect %T", step.Effect))
}

// editList offers the newest records as inline selections.
func (e *Engine) editList(list []records.Record) Directive {
	ordered := sortRecent(list)
	if len(ordered) > e.editListLimit {
		ordered = ordered[:e.editListLimit]
	}
	opts := make([]Option, 0, len(ordered)+1)
	for _, r := range ordered {
		opts = append(opts, Option{
			Label:   e.format.RecordLabel(r),
			Payload: fmt.Sprintf("%s|%d", SelectEditRecord, r.ID),
		})
	}
	opts = append(opts, Option{Label: LabelCancelEdit, Payload: SelectCancelEdit})
	return Directive{Text: msgPickRecord, Options: opts}
}

// owned loads a record and hides records of other users as not found.
func (e *Engine) owned(ctx context.Context, userID, id int64) (records.Record, error) {
	rec, err := call(ctx, e, "get", func(ctx context.Context) (records.Record, error) {
		return e.records.Get(ctx, id)
	})
	if err != nil {
		return records.Record{}, err
	}
	if rec.OwnerID != userID {
		return records.Record{}, fmt.Errorf("record %d belongs to another user: %w", id, records.ErrNotFound)
	}
	return rec, nil
}

func (e *Engine) list(ctx context.Context, userID int64) ([]records.Record, error) {
	return call(ctx, e, "list", func(ctx context.Context) ([]records.Record, error) {
		return e.records.ListByOwner(ctx, userID)
	})
}

type callResult[T any] struct {
	val T
	err error
}

// call runs fn under the store timeout. A store that ignores its context
// still cannot hold the user longer than the timeout; its late result is
// dropped.
func call[T any](ctx context.Context, e *Engine, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan callResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult[T]{err: &records.StoreError{Op: op, Err: fmt.Errorf("panic: %v", r)}}
			}
		}()
		v, err := fn(ctx)
		done <- callResult[T]{val: v, err: err}
	}()

	var res callResult[T]
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = &records.StoreError{Op: op, Err: ctx.Err()}
	}
	e.metrics.RecordStore(ctx, op, time.Since(start), res.err)
	if res.err != nil {
		var zero T
		return zero, res.err
	}
	return res.val, nil
}

// fail applies the failure rules: a missing record ends the flow with a
// not-found reply, anything else with the generic failure reply.
func (e *Engine) fail(ctx context.Context, ev Event, from State, err error) (State, Directive) {
	if errors.Is(err, records.ErrNotFound) {
		logger.Warn(ctx, "dialogue", "record.not_found",
			e.eventAttrs(ev, from, slog.String("err", err.Error()))...)
		e.metrics.RecordFailure(ctx, "not_found")
		return Idle{}, reply(msgNotFound, mainMenu())
	}
	logger.Error(ctx, "dialogue", "store.fail",
		e.eventAttrs(ev, from,
			slog.String("err", err.Error()),
			slog.String("err_code", errCode(err)),
		)...,
	)
	e.metrics.RecordFailure(ctx, "store")
	return Idle{}, Failure(ev.UserID)
}

func (e *Engine) eventAttrs(ev Event, from State, extra ...slog.Attr) []slog.Attr {
	attrs := []slog.Attr{
		slog.Int64("user_id", ev.UserID),
		slog.String("state", from.Name()),
		slog.String("event", ev.Kind.String()),
		slog.String("payload", logger.SanitizeLimit(strings.TrimSpace(ev.Payload), payloadLogLimit)),
	}
	return append(attrs, extra...)
}

// Sweep drops sessions idle for longer than ttl when the session store
// supports expiry, and returns how many were dropped.
func (e *Engine) Sweep(ctx context.Context, ttl time.Duration) int {
	sw, ok := e.sessions.(interface{ Sweep(cutoff time.Time) int })
	if !ok || ttl <= 0 {
		return 0
	}
	n := sw.Sweep(e.now().Add(-ttl))
	if n > 0 {
		e.metrics.SessionsChanged(ctx, -int64(n))
		logger.Info(ctx, "dialogue", "sessions.expired", slog.Int("count", n))
	}
	return n
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (e *Engine) RunJanitor(ctx context.Context, ttl, interval time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = ttl / 2
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			e.Sweep(ctx, ttl)
		}
	}
}

func errCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return "INTERNAL"
}
