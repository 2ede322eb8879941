package dialogue

import (
	"github.com/shopspring/decimal"

	"github.com/m3rciful/p2pbot/records"
)

// State is one step of the conversation. The concrete types below are the
// only implementations; each carries exactly the data its step needs.
type State interface {
	Name() string
	isState()
}

// Idle means no flow is in progress.
type Idle struct{}

// AwaitingAmount waits for the amount of a new record.
type AwaitingAmount struct {
	Kind records.Kind
}

// AwaitingDate waits for the date of a new record whose amount is known.
type AwaitingDate struct {
	Kind   records.Kind
	Amount decimal.Decimal
}

// AwaitingEditSelection waits for the user to pick a record from the list.
type AwaitingEditSelection struct{}

// AwaitingEditField waits for the field to change on the selected record.
type AwaitingEditField struct {
	RecordID int64
}

// AwaitingEditAmount waits for the new amount of a record.
type AwaitingEditAmount struct {
	RecordID int64
}

// AwaitingEditDate waits for the new date of a record.
type AwaitingEditDate struct {
	RecordID int64
}

// AwaitingEditType waits for the new kind of a record.
type AwaitingEditType struct {
	RecordID int64
}

func (Idle) Name() string                  { return "idle" }
func (AwaitingAmount) Name() string        { return "awaiting_amount" }
func (AwaitingDate) Name() string          { return "awaiting_date" }
func (AwaitingEditSelection) Name() string { return "awaiting_edit_selection" }
func (AwaitingEditField) Name() string     { return "awaiting_edit_field" }
func (AwaitingEditAmount) Name() string    { return "awaiting_edit_amount" }
func (AwaitingEditDate) Name() string      { return "awaiting_edit_date" }
func (AwaitingEditType) Name() string      { return "awaiting_edit_type" }

func (Idle) isState()                  {}
func (AwaitingAmount) isState()        {}
func (AwaitingDate) isState()          {}
func (AwaitingEditSelection) isState() {}
func (AwaitingEditField) isState()     {}
func (AwaitingEditAmount) isState()    {}
func (AwaitingEditDate) isState()      {}
func (AwaitingEditType) isState()      {}

// IsIdle reports whether st is Idle; a nil state counts as Idle.
func IsIdle(st State) bool {
	if st == nil {
		return true
	}
	_, ok := st.(Idle)
	return ok
}
