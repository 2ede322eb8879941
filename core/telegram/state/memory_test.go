package state

import (
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreGetPutClear(t *testing.T) {
	m := NewMemoryStore[string]()
	if _, ok := m.Get(1); ok {
		t.Fatal("expected no session")
	}
	m.Put(1, Session[string]{State: "amount", Updated: time.Now()})
	sess, ok := m.Get(1)
	if !ok || sess.State != "amount" {
		t.Fatalf("unexpected session: %+v %v", sess, ok)
	}
	m.Clear(1)
	if _, ok := m.Get(1); ok {
		t.Fatal("session should be cleared")
	}
	if m.Len() != 0 {
		t.Fatalf("len = %d", m.Len())
	}
}

func TestMemoryStoreLockSerializesUser(t *testing.T) {
	m := NewMemoryStore[int]()
	var wg sync.WaitGroup
	const workers = 50
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			unlock := m.Lock(42)
			defer unlock()
			sess, _ := m.Get(42)
			sess.State++
			m.Put(42, sess)
		}()
	}
	wg.Wait()
	sess, _ := m.Get(42)
	if sess.State != workers {
		t.Fatalf("state = %d, want %d", sess.State, workers)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.locks) != 0 {
		t.Fatalf("lock entries leaked: %d", len(m.locks))
	}
}

func TestMemoryStoreUnlockIsIdempotent(t *testing.T) {
	m := NewMemoryStore[int]()
	unlock := m.Lock(1)
	unlock()
	unlock()
	done := make(chan struct{})
	go func() {
		m.Lock(1)()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock not released")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	m := NewMemoryStore[string]()
	now := time.Now()
	m.Put(1, Session[string]{State: "old", Updated: now.Add(-time.Hour)})
	m.Put(2, Session[string]{State: "fresh", Updated: now})
	m.Put(3, Session[string]{State: "busy", Updated: now.Add(-time.Hour)})

	unlock := m.Lock(3)
	removed := m.Sweep(now.Add(-30 * time.Minute))
	unlock()

	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := m.Get(1); ok {
		t.Fatal("stale session should be swept")
	}
	if _, ok := m.Get(2); !ok {
		t.Fatal("fresh session should stay")
	}
	if _, ok := m.Get(3); !ok {
		t.Fatal("locked session should stay")
	}
}
