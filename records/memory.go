package records

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. It is used in tests and for
// running the bot without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Record
	now    func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[int64]Record),
		now:  time.Now,
	}
}

// Create stores rec and assigns it the next id.
func (s *MemoryStore) Create(ctx context.Context, rec NewRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storeErr("create", err)
	}
	if err := validateNew(rec); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now()
	date := rec.Date
	if date.IsZero() {
		date = now
	}
	r := Record{
		ID:        s.nextID,
		OwnerID:   rec.OwnerID,
		Amount:    rec.Amount,
		Kind:      rec.Kind,
		Date:      date,
		CreatedAt: now,
	}
	if rec.Comment != nil {
		c := *rec.Comment
		r.Comment = &c
	}
	s.byID[r.ID] = r
	return r.ID, nil
}

// Get returns the record with id or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, id int64) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, storeErr("get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// Update applies ch to the record with id.
func (s *MemoryStore) Update(ctx context.Context, id int64, ch Changes) error {
	if err := ctx.Err(); err != nil {
		return storeErr("update", err)
	}
	if err := validateChanges(ch); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	ch.apply(&r)
	s.byID[id] = r
	return nil
}

// ListByOwner returns the owner's records, newest first.
func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID int64) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("list", err)
	}
	s.mu.RLock()
	out := make([]Record, 0)
	for _, r := range s.byID {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Delete removes a record. The dialogue never deletes; tests use it to
// simulate a record vanishing mid-flow.
func (s *MemoryStore) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
