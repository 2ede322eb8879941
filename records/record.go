package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the transaction category.
type Kind string

const (
	// KindDeposit marks money put into the account (a P2P buy).
	KindDeposit Kind = "deposit"
	// KindWithdrawal marks money taken out of the account (a P2P sell).
	KindWithdrawal Kind = "withdrawal"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// Record is a stored transaction.
type Record struct {
	ID        int64           `db:"id"`
	OwnerID   int64           `db:"user_id"`
	Amount    decimal.Decimal `db:"amount"`
	Kind      Kind            `db:"transaction_type"`
	Date      time.Time       `db:"date"`
	Comment   *string         `db:"comment"`
	CreatedAt time.Time       `db:"created_at"`
}

// NewRecord carries the fields required to create a record.
// A zero Date means "now" for the store.
type NewRecord struct {
	OwnerID int64
	Amount  decimal.Decimal
	Kind    Kind
	Date    time.Time
	Comment *string
}

// Changes lists the fields to overwrite; nil fields are left untouched.
type Changes struct {
	Amount  *decimal.Decimal
	Kind    *Kind
	Date    *time.Time
	Comment *string
}

// Empty reports whether no field is set.
func (c Changes) Empty() bool {
	return c.Amount == nil && c.Kind == nil && c.Date == nil && c.Comment == nil
}

// Store is the persistence contract used by the dialogue engine.
type Store interface {
	Create(ctx context.Context, rec NewRecord) (int64, error)
	Get(ctx context.Context, id int64) (Record, error)
	Update(ctx context.Context, id int64, ch Changes) error
	ListByOwner(ctx context.Context, ownerID int64) ([]Record, error)
}

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("records: not found")

// StoreError reports an unavailable backend or a failed write.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("records: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Code is picked up by the router when deriving err_code for logs.
func (e *StoreError) Code() string { return "STORE_UNAVAILABLE" }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func validateNew(rec NewRecord) error {
	if !rec.Amount.IsPositive() {
		return fmt.Errorf("records: amount must be positive, got %s", rec.Amount)
	}
	if !rec.Kind.Valid() {
		return fmt.Errorf("records: invalid kind %q", rec.Kind)
	}
	return nil
}

func validateChanges(ch Changes) error {
	if ch.Empty() {
		return errors.New("records: empty change set")
	}
	if ch.Amount != nil && !ch.Amount.IsPositive() {
		return fmt.Errorf("records: amount must be positive, got %s", *ch.Amount)
	}
	if ch.Kind != nil && !ch.Kind.Valid() {
		return fmt.Errorf("records: invalid kind %q", *ch.Kind)
	}
	return nil
}

func (ch Changes) apply(r *Record) {
	if ch.Amount != nil {
		r.Amount = *ch.Amount
	}
	if ch.Kind != nil {
		r.Kind = *ch.Kind
	}
	if ch.Date != nil {
		r.Date = *ch.Date
	}
	if ch.Comment != nil {
		c := *ch.Comment
		r.Comment = &c
	}
}
