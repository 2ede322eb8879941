package dialogue

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/p2pbot/records"
)

// Effect is a record store operation requested by a transition.
type Effect interface {
	effect() string
}

// CreateRecord stores a new record for the event's user.
type CreateRecord struct {
	Kind   records.Kind
	Amount decimal.Decimal
	Date   time.Time
}

// UpdateRecord overwrites fields of a record owned by the event's user.
type UpdateRecord struct {
	RecordID int64
	Changes  records.Changes
}

// ShowStats loads the user's records and replies with the summary.
type ShowStats struct{}

// ListRecords loads the user's records and offers them for editing.
type ListRecords struct{}

// OpenRecord loads one record of the user and shows its edit card.
type OpenRecord struct {
	RecordID int64
}

func (CreateRecord) effect() string { return "create" }
func (UpdateRecord) effect() string { return "update" }
func (ShowStats) effect() string    { return "stats" }
func (ListRecords) effect() string  { return "list" }
func (OpenRecord) effect() string   { return "open" }

// EffectName names an effect for logs; nil yields "".
func EffectName(e Effect) string {
	if e == nil {
		return ""
	}
	return e.effect()
}

// Env is what a transition may read besides its state and event.
type Env struct {
	Now    time.Time
	Format Formatter
}

// Step is the outcome of one transition. Reply is final unless Effect is set;
// the executor then builds the reply from the effect's result.
type Step struct {
	Next   State
	Effect Effect
	Reply  Directive
	Intent Intent
	// Err holds the validation error that caused a re-prompt.
	Err error
}

// Transition computes the next step for st given ev. It performs no I/O.
func Transition(st State, ev Event, env Env) Step {
	if st == nil {
		st = Idle{}
	}
	in := classify(ev)
	step := transition(st, in, env)
	step.Intent = in.Intent
	return step
}

func transition(st State, in classified, env Env) Step {
	switch in.Intent {
	case IntentStart:
		return Step{Next: Idle{}, Reply: welcome()}
	case IntentCancel:
		return Step{Next: Idle{}, Reply: reply(msgCancelled, mainMenu())}
	case IntentCancelEdit:
		return Step{Next: Idle{}, Reply: reply(msgEditCancelled, mainMenu())}
	}

	switch s := st.(type) {
	case Idle:
		return fromIdle(in)
	case AwaitingAmount:
		return fromAwaitingAmount(s, in)
	case AwaitingDate:
		return fromAwaitingDate(s, in, env)
	case AwaitingEditSelection:
		return fromAwaitingEditSelection(s, in)
	case AwaitingEditField:
		return fromAwaitingEditField(s, in)
	case AwaitingEditAmount:
		return fromAwaitingEditAmount(s, in, env)
	case AwaitingEditDate:
		return fromAwaitingEditDate(s, in, env)
	case AwaitingEditType:
		return fromAwaitingEditType(s, in)
	}
	panic(fmt.Sprintf("dialogue: unhandled state %T", st))
}

func fromIdle(in classified) Step {
	switch in.Intent {
	case IntentNewDeposit:
		return Step{Next: AwaitingAmount{Kind: records.KindDeposit}, Reply: reply(msgAskDeposit, cancelMenu())}
	case IntentNewWithdrawal:
		return Step{Next: AwaitingAmount{Kind: records.KindWithdrawal}, Reply: reply(msgAskWithdrawal, cancelMenu())}
	case IntentStats:
		return Step{Next: Idle{}, Effect: ShowStats{}}
	case IntentEditList:
		return Step{Next: AwaitingEditSelection{}, Effect: ListRecords{}}
	case IntentSelectRecord:
		// Buttons of an earlier list stay clickable after the flow ended.
		return Step{Next: AwaitingEditField{RecordID: in.RecordID}, Effect: OpenRecord{RecordID: in.RecordID}}
	case IntentUnknownSelection:
		return Step{Next: Idle{}, Reply: reply(msgStaleSelection, mainMenu())}
	}
	return Step{Next: Idle{}, Reply: reply(msgChooseAction, mainMenu())}
}

// stale keeps st and repeats its prompt after a selection that does not
// belong to it.
func stale(st State, prompt Directive) Step {
	prompt.Text = msgStaleSelection + "\n" + prompt.Text
	return Step{Next: st, Reply: prompt}
}

func isSelection(in classified) bool {
	return in.Intent == IntentSelectRecord || in.Intent == IntentUnknownSelection
}

func fromAwaitingAmount(s AwaitingAmount, in classified) Step {
	prompt := reply(msgAskDeposit, cancelMenu())
	if s.Kind == records.KindWithdrawal {
		prompt = reply(msgAskWithdrawal, cancelMenu())
	}
	if isSelection(in) {
		return stale(s, prompt)
	}
	amount, err := ParseAmount(in.Text)
	if err != nil {
		return Step{Next: s, Reply: reply(msgBadAmount, cancelMenu()), Err: err}
	}
	return Step{Next: AwaitingDate{Kind: s.Kind, Amount: amount}, Reply: reply(msgAskDate, dateMenu())}
}

func fromAwaitingDate(s AwaitingDate, in classified, env Env) Step {
	if isSelection(in) {
		return stale(s, reply(msgAskDate, dateMenu()))
	}
	date, err := pickDate(in, env)
	if err != nil {
		return Step{Next: s, Reply: reply(msgBadDate, dateMenu()), Err: err}
	}
	text := fmt.Sprintf("✅ %s на сумму %s от %s успешно %s!",
		capitalKind(s.Kind), env.Format.Amount(s.Amount), env.Format.Date(date), savedWord(s.Kind))
	return Step{
		Next:   Idle{},
		Effect: CreateRecord{Kind: s.Kind, Amount: s.Amount, Date: date},
		Reply:  reply(text, mainMenu()),
	}
}

func fromAwaitingEditSelection(s AwaitingEditSelection, in classified) Step {
	switch in.Intent {
	case IntentSelectRecord:
		return Step{Next: AwaitingEditField{RecordID: in.RecordID}, Effect: OpenRecord{RecordID: in.RecordID}}
	case IntentUnknownSelection:
		return stale(s, reply(msgPickFromList, cancelMenu()))
	}
	return Step{Next: s, Reply: reply(msgPickFromList, cancelMenu())}
}

func fromAwaitingEditField(s AwaitingEditField, in classified) Step {
	switch in.Intent {
	case IntentEditAmount:
		return Step{Next: AwaitingEditAmount{RecordID: s.RecordID}, Reply: reply(msgAskNewAmount, cancelMenu())}
	case IntentEditDate:
		return Step{Next: AwaitingEditDate{RecordID: s.RecordID}, Reply: reply(msgAskNewDate, dateMenu())}
	case IntentEditType:
		return Step{Next: AwaitingEditType{RecordID: s.RecordID}, Reply: reply(msgAskNewType, typeMenu())}
	}
	if isSelection(in) {
		return stale(s, reply(msgPickField, editFieldMenu()))
	}
	return Step{Next: s, Reply: reply(msgPickField, editFieldMenu())}
}

func fromAwaitingEditAmount(s AwaitingEditAmount, in classified, env Env) Step {
	if isSelection(in) {
		return stale(s, reply(msgAskNewAmount, cancelMenu()))
	}
	amount, err := ParseAmount(in.Text)
	if err != nil {
		return Step{Next: s, Reply: reply(msgBadAmount, cancelMenu()), Err: err}
	}
	return Step{
		Next:   Idle{},
		Effect: UpdateRecord{RecordID: s.RecordID, Changes: records.Changes{Amount: &amount}},
		Reply:  reply("✅ Сумма транзакции успешно изменена на "+env.Format.Amount(amount), mainMenu()),
	}
}

func fromAwaitingEditDate(s AwaitingEditDate, in classified, env Env) Step {
	if isSelection(in) {
		return stale(s, reply(msgAskNewDate, dateMenu()))
	}
	date, err := pickDate(in, env)
	if err != nil {
		return Step{Next: s, Reply: reply(msgBadDate, dateMenu()), Err: err}
	}
	return Step{
		Next:   Idle{},
		Effect: UpdateRecord{RecordID: s.RecordID, Changes: records.Changes{Date: &date}},
		Reply:  reply("✅ Дата транзакции успешно изменена на "+env.Format.Date(date), mainMenu()),
	}
}

func fromAwaitingEditType(s AwaitingEditType, in classified) Step {
	if isSelection(in) {
		return stale(s, reply(msgAskNewType, typeMenu()))
	}
	var kind records.Kind
	switch in.Text {
	case LabelTypeDeposit:
		kind = records.KindDeposit
	case LabelTypeWithdrawal:
		kind = records.KindWithdrawal
	default:
		err := &ValidationError{Field: "type", Input: in.Text, Reason: "expected a type button"}
		return Step{Next: s, Reply: reply(msgBadType, typeMenu()), Err: err}
	}
	return Step{
		Next:   Idle{},
		Effect: UpdateRecord{RecordID: s.RecordID, Changes: records.Changes{Kind: &kind}},
		Reply:  reply("✅ Тип транзакции успешно изменен на "+kindAccusative(kind), mainMenu()),
	}
}

func pickDate(in classified, env Env) (time.Time, error) {
	if in.Intent == IntentUseCurrentDate {
		return env.Now.In(env.Format.Location()), nil
	}
	return ParseDate(in.Text, env.Format.Location())
}

func capitalKind(k records.Kind) string {
	if k == records.KindWithdrawal {
		return "Продажа"
	}
	return "Пополнение"
}

func savedWord(k records.Kind) string {
	if k == records.KindWithdrawal {
		return "сохранена"
	}
	return "сохранено"
}
