package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/p2pbot/core/telegram/state"
	"github.com/m3rciful/p2pbot/records"
)

// flakyStore wraps a MemoryStore and fails or stalls selected operations.
type flakyStore struct {
	*records.MemoryStore

	mu    sync.Mutex
	fail  map[string]error
	stall map[string]bool
	calls []string
}

func newFlakyStore() *flakyStore {
	return &flakyStore{
		MemoryStore: records.NewMemoryStore(),
		fail:        map[string]error{},
		stall:       map[string]bool{},
	}
}

func (s *flakyStore) hook(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls = append(s.calls, op)
	err, stall := s.fail[op], s.stall[op]
	s.mu.Unlock()
	if stall {
		// Ignores ctx on purpose: the engine must still give up.
		time.Sleep(time.Second)
	}
	return err
}

func (s *flakyStore) Create(ctx context.Context, rec records.NewRecord) (int64, error) {
	if err := s.hook(ctx, "create"); err != nil {
		return 0, err
	}
	return s.MemoryStore.Create(ctx, rec)
}

func (s *flakyStore) Get(ctx context.Context, id int64) (records.Record, error) {
	if err := s.hook(ctx, "get"); err != nil {
		return records.Record{}, err
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s *flakyStore) Update(ctx context.Context, id int64, ch records.Changes) error {
	if err := s.hook(ctx, "update"); err != nil {
		return err
	}
	return s.MemoryStore.Update(ctx, id, ch)
}

func (s *flakyStore) ListByOwner(ctx context.Context, owner int64) ([]records.Record, error) {
	if err := s.hook(ctx, "list"); err != nil {
		return nil, err
	}
	return s.MemoryStore.ListByOwner(ctx, owner)
}

var fixedNow = time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, store records.Store) (*Engine, *state.MemoryStore[State]) {
	t.Helper()
	sessions := state.NewMemoryStore[State]()
	e, err := New(Options{
		Records:      store,
		Sessions:     sessions,
		Format:       newTestFormatter(t),
		StoreTimeout: 100 * time.Millisecond,
		Now:          func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, sessions
}

func send(t *testing.T, e *Engine, userID int64, text string) Directive {
	t.Helper()
	return e.Handle(context.Background(), TextEvent(userID, text))
}

func seed(t *testing.T, s records.Store, owner int64, kind records.Kind, amount string, date time.Time) int64 {
	t.Helper()
	id, err := s.Create(context.Background(), records.NewRecord{
		OwnerID: owner, Kind: kind, Amount: decimal.RequireFromString(amount), Date: date,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func TestEngineDepositScenario(t *testing.T) {
	store := records.NewMemoryStore()
	e, sessions := newTestEngine(t, store)

	send(t, e, 7, LabelNewDeposit)
	send(t, e, 7, "1500,50")
	d := send(t, e, 7, "25.02.2024")

	if d.UserID != 7 {
		t.Fatalf("directive user = %d", d.UserID)
	}
	if !strings.Contains(d.Text, "1 500,50") || !strings.Contains(d.Text, "25.02.2024") {
		t.Fatalf("reply = %q", d.Text)
	}
	list, _ := store.ListByOwner(context.Background(), 7)
	if len(list) != 1 {
		t.Fatalf("records = %d", len(list))
	}
	r := list[0]
	if r.Kind != records.KindDeposit || !r.Amount.Equal(decimal.RequireFromString("1500.50")) {
		t.Fatalf("record = %+v", r)
	}
	if !r.Date.Equal(time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", r.Date)
	}
	if sessions.Len() != 0 {
		t.Fatalf("sessions = %d, want cleared", sessions.Len())
	}
}

func TestEngineInvalidAmountScenario(t *testing.T) {
	store := records.NewMemoryStore()
	e, _ := newTestEngine(t, store)

	send(t, e, 7, LabelNewWithdrawal)
	d := send(t, e, 7, "abc")
	if d.Text != msgBadAmount {
		t.Fatalf("reply = %q", d.Text)
	}
	if got := e.State(7); got != (AwaitingAmount{Kind: records.KindWithdrawal}) {
		t.Fatalf("state = %#v", got)
	}
	if store.Len() != 0 {
		t.Fatalf("records = %d", store.Len())
	}
}

func TestEngineInvalidDateKeepsAmount(t *testing.T) {
	e, _ := newTestEngine(t, records.NewMemoryStore())
	send(t, e, 7, LabelNewDeposit)
	send(t, e, 7, "99.9")
	send(t, e, 7, "99.99.9999")

	st, ok := e.State(7).(AwaitingDate)
	if !ok || !st.Amount.Equal(decimal.RequireFromString("99.9")) || st.Kind != records.KindDeposit {
		t.Fatalf("state = %#v", e.State(7))
	}
}

func TestEngineEditAmountScenario(t *testing.T) {
	store := records.NewMemoryStore()
	date := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	id := seed(t, store, 7, records.KindWithdrawal, "1000", date)
	other := seed(t, store, 7, records.KindDeposit, "5", date)
	e, _ := newTestEngine(t, store)

	d := send(t, e, 7, LabelEditList)
	if d.Text != msgPickRecord {
		t.Fatalf("list reply = %q", d.Text)
	}
	if len(d.Options) != 3 || !d.Options[0].Inline() {
		t.Fatalf("options = %+v", d.Options)
	}
	if last := d.Options[len(d.Options)-1]; last.Payload != SelectCancelEdit {
		t.Fatalf("last option = %+v", last)
	}

	d = e.Handle(context.Background(), SelectionEvent(7, SelectEditRecord, fmt.Sprint(id)))
	if !strings.Contains(d.Text, "Тип: продажа") || !strings.Contains(d.Text, "1 000,00 ₽") {
		t.Fatalf("card = %q", d.Text)
	}
	send(t, e, 7, LabelEditAmount)
	d = send(t, e, 7, "200")
	if d.Text != "✅ Сумма транзакции успешно изменена на 200,00 ₽" {
		t.Fatalf("reply = %q", d.Text)
	}

	got, _ := store.Get(context.Background(), id)
	if !got.Amount.Equal(decimal.NewFromInt(200)) || got.Kind != records.KindWithdrawal || !got.Date.Equal(date) {
		t.Fatalf("record = %+v", got)
	}
	untouched, _ := store.Get(context.Background(), other)
	if !untouched.Amount.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("other record changed: %+v", untouched)
	}
	if !IsIdle(e.State(7)) {
		t.Fatalf("state = %#v", e.State(7))
	}
}

func TestEngineEditListEmpty(t *testing.T) {
	e, sessions := newTestEngine(t, records.NewMemoryStore())
	d := send(t, e, 7, LabelEditList)
	if d.Text != msgNoRecords || sessions.Len() != 0 {
		t.Fatalf("reply = %q sessions = %d", d.Text, sessions.Len())
	}
}

func TestEngineEditListLimit(t *testing.T) {
	store := records.NewMemoryStore()
	for i := 1; i <= 25; i++ {
		seed(t, store, 7, records.KindDeposit, "1", time.Date(2024, 1, i, 0, 0, 0, 0, time.UTC))
	}
	e, _ := newTestEngine(t, store)
	d := send(t, e, 7, LabelEditList)
	if len(d.Options) != DefaultEditListLimit+1 {
		t.Fatalf("options = %d", len(d.Options))
	}
	if !strings.Contains(d.Options[0].Label, "25.01.2024") {
		t.Fatalf("first option = %q", d.Options[0].Label)
	}
}

func TestEngineStatistics(t *testing.T) {
	store := records.NewMemoryStore()
	for i, a := range []string{"10", "20", "30"} {
		seed(t, store, 7, records.KindWithdrawal, a, time.Date(2024, 2, i+1, 0, 0, 0, 0, time.UTC))
	}
	seed(t, store, 8, records.KindDeposit, "1000", fixedNow)
	e, _ := newTestEngine(t, store)

	d := send(t, e, 7, LabelStats)
	for _, want := range []string{"💰 Всего внесено: 0,00 ₽", "📈 Всего покупок: 0", "📉 Всего продаж: 3"} {
		if !strings.Contains(d.Text, want) {
			t.Fatalf("stats missing %q:\n%s", want, d.Text)
		}
	}
	first := strings.Index(d.Text, "03.02.2024")
	last := strings.Index(d.Text, "01.02.2024")
	if first < 0 || last < 0 || first > last {
		t.Fatalf("withdrawals not newest first:\n%s", d.Text)
	}
}

func TestEngineSelectMissingRecord(t *testing.T) {
	store := records.NewMemoryStore()
	id := seed(t, store, 7, records.KindDeposit, "1", fixedNow)
	e, sessions := newTestEngine(t, store)

	send(t, e, 7, LabelEditList)
	store.Delete(id)
	d := e.Handle(context.Background(), SelectionEvent(7, SelectEditRecord, fmt.Sprint(id)))
	if d.Text != msgNotFound || sessions.Len() != 0 {
		t.Fatalf("reply = %q sessions = %d", d.Text, sessions.Len())
	}
}

func TestEngineForeignRecordIsNotFound(t *testing.T) {
	store := records.NewMemoryStore()
	id := seed(t, store, 8, records.KindDeposit, "1", fixedNow)
	e, _ := newTestEngine(t, store)

	d := e.Handle(context.Background(), SelectionEvent(7, SelectEditRecord, fmt.Sprint(id)))
	if d.Text != msgNotFound || !IsIdle(e.State(7)) {
		t.Fatalf("reply = %q state = %#v", d.Text, e.State(7))
	}
}

func TestEngineRecordVanishesBeforeUpdate(t *testing.T) {
	store := records.NewMemoryStore()
	id := seed(t, store, 7, records.KindDeposit, "1", fixedNow)
	e, _ := newTestEngine(t, store)

	e.Handle(context.Background(), SelectionEvent(7, SelectEditRecord, fmt.Sprint(id)))
	send(t, e, 7, LabelEditDate)
	store.Delete(id)
	d := send(t, e, 7, "01.01.2024")
	if d.Text != msgNotFound || !IsIdle(e.State(7)) {
		t.Fatalf("reply = %q state = %#v", d.Text, e.State(7))
	}
}

func TestEngineStoreFailureReturnsToIdle(t *testing.T) {
	store := newFlakyStore()
	store.fail["create"] = &records.StoreError{Op: "create", Err: errors.New("connection refused")}
	e, sessions := newTestEngine(t, store)

	send(t, e, 7, LabelNewDeposit)
	send(t, e, 7, "10")
	d := send(t, e, 7, LabelUseCurrentDate)
	if d.Text != msgFailure || d.UserID != 7 {
		t.Fatalf("reply = %+v", d)
	}
	if sessions.Len() != 0 {
		t.Fatalf("session kept after failure")
	}
	if len(d.Options) != 4 {
		t.Fatalf("failure keyboard = %v", d.Labels())
	}
}

func TestEngineStoreTimeout(t *testing.T) {
	store := newFlakyStore()
	store.stall["list"] = true
	e, _ := newTestEngine(t, store)

	start := time.Now()
	d := send(t, e, 7, LabelStats)
	if took := time.Since(start); took > 800*time.Millisecond {
		t.Fatalf("store call not bounded: %v", took)
	}
	if d.Text != msgFailure {
		t.Fatalf("reply = %q", d.Text)
	}
}

func TestEngineLateStoreResultIsDropped(t *testing.T) {
	store := newFlakyStore()
	seed(t, store, 7, records.KindDeposit, "10", fixedNow)
	store.stall["list"] = true
	e, _ := newTestEngine(t, store)

	if d := send(t, e, 7, LabelStats); d.Text != msgFailure {
		t.Fatalf("reply = %q", d.Text)
	}
	// Let the stalled call finish after the engine gave up on it.
	time.Sleep(1200 * time.Millisecond)

	store.mu.Lock()
	store.stall["list"] = false
	store.mu.Unlock()
	d := send(t, e, 7, LabelStats)
	if !strings.Contains(d.Text, "📈 Всего покупок: 1") {
		t.Fatalf("stats after recovery:\n%s", d.Text)
	}
}

func TestEngineUpdateFailureReturnsToIdle(t *testing.T) {
	store := newFlakyStore()
	id := seed(t, store, 7, records.KindDeposit, "10", fixedNow)
	e, sessions := newTestEngine(t, store)

	e.Handle(context.Background(), SelectionEvent(7, SelectEditRecord, fmt.Sprint(id)))
	send(t, e, 7, LabelEditType)
	store.mu.Lock()
	store.fail["update"] = &records.StoreError{Op: "update", Err: errors.New("connection reset")}
	store.mu.Unlock()

	d := send(t, e, 7, LabelTypeWithdrawal)
	if d.Text != msgFailure || sessions.Len() != 0 {
		t.Fatalf("reply = %q sessions = %d", d.Text, sessions.Len())
	}
	got, _ := store.MemoryStore.Get(context.Background(), id)
	if got.Kind != records.KindDeposit {
		t.Fatalf("record changed after failed update: %+v", got)
	}
}

func TestEngineOpenRecordTimeout(t *testing.T) {
	store := newFlakyStore()
	id := seed(t, store, 7, records.KindDeposit, "10", fixedNow)
	store.stall["get"] = true
	e, sessions := newTestEngine(t, store)

	d := e.Handle(context.Background(), SelectionEvent(7, SelectEditRecord, fmt.Sprint(id)))
	if d.Text != msgFailure || sessions.Len() != 0 {
		t.Fatalf("reply = %q sessions = %d", d.Text, sessions.Len())
	}
	time.Sleep(1200 * time.Millisecond)
}

// panicStore panics on every Create.
type panicStore struct {
	*records.MemoryStore
}

func (panicStore) Create(context.Context, records.NewRecord) (int64, error) {
	panic("driver bug")
}

func TestEngineStorePanicIsStoreFailure(t *testing.T) {
	e, sessions := newTestEngine(t, panicStore{records.NewMemoryStore()})

	send(t, e, 7, LabelNewWithdrawal)
	send(t, e, 7, "10")
	d := send(t, e, 7, "01.03.2024")
	if d.Text != msgFailure || sessions.Len() != 0 {
		t.Fatalf("reply = %q sessions = %d", d.Text, sessions.Len())
	}
}

// orphanState is a State the transition function does not know.
type orphanState struct{}

func (orphanState) Name() string { return "orphan" }
func (orphanState) isState()     {}

func TestEngineRecoversFromTransitionPanic(t *testing.T) {
	e, sessions := newTestEngine(t, records.NewMemoryStore())
	sessions.Put(7, state.Session[State]{State: orphanState{}, Updated: fixedNow})

	d := send(t, e, 7, "10")
	if d.Text != msgFailure || d.UserID != 7 {
		t.Fatalf("reply = %+v", d)
	}
	if sessions.Len() != 0 || !IsIdle(e.State(7)) {
		t.Fatalf("session kept after panic: %#v", e.State(7))
	}

	// The user is not stuck: the next event starts a flow normally.
	send(t, e, 7, LabelNewDeposit)
	if _, ok := e.State(7).(AwaitingAmount); !ok {
		t.Fatalf("state after recovery = %#v", e.State(7))
	}
}

func TestEngineSessionsIsolated(t *testing.T) {
	e, _ := newTestEngine(t, records.NewMemoryStore())
	send(t, e, 1, LabelNewDeposit)
	send(t, e, 2, LabelNewWithdrawal)
	send(t, e, 1, "5")

	if _, ok := e.State(1).(AwaitingDate); !ok {
		t.Fatalf("user 1 state = %#v", e.State(1))
	}
	if got := e.State(2); got != (AwaitingAmount{Kind: records.KindWithdrawal}) {
		t.Fatalf("user 2 state = %#v", got)
	}
}

func TestEngineConcurrentUsers(t *testing.T) {
	store := records.NewMemoryStore()
	e, sessions := newTestEngine(t, store)

	const users = 20
	var wg sync.WaitGroup
	for u := int64(1); u <= users; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			kind := LabelNewDeposit
			if u%2 == 0 {
				kind = LabelNewWithdrawal
			}
			send(t, e, u, kind)
			send(t, e, u, fmt.Sprintf("%d", u))
			send(t, e, u, "01.03.2024")
		}(u)
	}
	wg.Wait()

	if store.Len() != users || sessions.Len() != 0 {
		t.Fatalf("records = %d sessions = %d", store.Len(), sessions.Len())
	}
	for u := int64(1); u <= users; u++ {
		list, _ := store.ListByOwner(context.Background(), u)
		if len(list) != 1 || !list[0].Amount.Equal(decimal.NewFromInt(u)) {
			t.Fatalf("user %d records = %+v", u, list)
		}
	}
}

func TestEngineSweep(t *testing.T) {
	e, sessions := newTestEngine(t, records.NewMemoryStore())
	send(t, e, 1, LabelNewDeposit)

	if n := e.Sweep(context.Background(), time.Hour); n != 0 {
		t.Fatalf("fresh session swept: %d", n)
	}
	e.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	if n := e.Sweep(context.Background(), time.Hour); n != 1 || sessions.Len() != 0 {
		t.Fatalf("swept = %d sessions = %d", n, sessions.Len())
	}
	if !IsIdle(e.State(1)) {
		t.Fatalf("state = %#v", e.State(1))
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without stores")
	}
	if _, err := New(Options{Records: records.NewMemoryStore(), Sessions: state.NewMemoryStore[State]()}); err == nil {
		t.Fatal("expected error without formatter")
	}
}
