package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMemoryStoreCreateGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	date := time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC)

	id, err := s.Create(ctx, NewRecord{OwnerID: 7, Amount: decimal.RequireFromString("1500.50"), Kind: KindDeposit, Date: date})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OwnerID != 7 || got.Kind != KindDeposit || !got.Date.Equal(date) {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.Amount.Equal(decimal.RequireFromString("1500.5")) {
		t.Fatalf("amount = %s", got.Amount)
	}
}

func TestMemoryStoreCreateDefaultsDate(t *testing.T) {
	s := NewMemoryStore()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	id, err := s.Create(context.Background(), NewRecord{OwnerID: 1, Amount: decimal.NewFromInt(1), Kind: KindWithdrawal})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := s.Get(context.Background(), id)
	if !got.Date.Equal(fixed) {
		t.Fatalf("date = %v, want %v", got.Date, fixed)
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	cases := []NewRecord{
		{OwnerID: 1, Amount: decimal.Zero, Kind: KindDeposit},
		{OwnerID: 1, Amount: decimal.NewFromInt(-5), Kind: KindDeposit},
		{OwnerID: 1, Amount: decimal.NewFromInt(5), Kind: Kind("buy")},
	}
	for _, rec := range cases {
		if _, err := s.Create(ctx, rec); err == nil {
			t.Fatalf("expected error for %+v", rec)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("store should stay empty, has %d", s.Len())
	}
}

func TestMemoryStoreUpdate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	date := time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC)
	id, _ := s.Create(ctx, NewRecord{OwnerID: 1, Amount: decimal.NewFromInt(100), Kind: KindDeposit, Date: date})

	amount := decimal.NewFromInt(200)
	if err := s.Update(ctx, id, Changes{Amount: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.Get(ctx, id)
	if !got.Amount.Equal(amount) || got.Kind != KindDeposit || !got.Date.Equal(date) {
		t.Fatalf("only amount should change: %+v", got)
	}

	if err := s.Update(ctx, 999, Changes{Amount: &amount}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Update(ctx, id, Changes{}); err == nil {
		t.Fatal("expected error for empty change set")
	}
}

func TestMemoryStoreListByOwnerOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	first, _ := s.Create(ctx, NewRecord{OwnerID: 1, Amount: decimal.NewFromInt(1), Kind: KindDeposit, Date: day(5)})
	second, _ := s.Create(ctx, NewRecord{OwnerID: 1, Amount: decimal.NewFromInt(2), Kind: KindDeposit, Date: day(5)})
	third, _ := s.Create(ctx, NewRecord{OwnerID: 1, Amount: decimal.NewFromInt(3), Kind: KindWithdrawal, Date: day(9)})
	_, _ = s.Create(ctx, NewRecord{OwnerID: 2, Amount: decimal.NewFromInt(4), Kind: KindWithdrawal, Date: day(10)})

	list, err := s.ListByOwner(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []int64{third, second, first}
	if len(list) != len(want) {
		t.Fatalf("len = %d, want %d", len(list), len(want))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("list[%d].ID = %d, want %d", i, list[i].ID, id)
		}
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, NewRecord{OwnerID: 1, Amount: decimal.NewFromInt(1), Kind: KindDeposit})
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if se.Code() != "STORE_UNAVAILABLE" {
		t.Fatalf("code = %s", se.Code())
	}
}
