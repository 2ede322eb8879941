package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/p2pbot/core/logger"
)

var (
	// ErrSequencerClosed is returned by Submit after Close.
	ErrSequencerClosed = errors.New("dialogue: sequencer closed")
	// ErrQueueFull is returned when a user's mailbox is at its limit.
	ErrQueueFull = errors.New("dialogue: user queue full")
)

// DefaultQueueLimit is the per-user mailbox size used when none is set.
const DefaultQueueLimit = 32

type seqJob struct {
	ctx context.Context
	run func(context.Context)
}

type mailbox struct {
	jobs []seqJob
}

// Sequencer runs jobs in submission order per key and concurrently across
// keys. A worker goroutine exists only while its key has pending jobs.
type Sequencer struct {
	limit int

	mu     sync.Mutex
	boxes  map[int64]*mailbox
	closed bool
	wg     sync.WaitGroup
}

// NewSequencer returns a sequencer holding at most limit pending jobs per key.
func NewSequencer(limit int) *Sequencer {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &Sequencer{limit: limit, boxes: make(map[int64]*mailbox)}
}

// Submit queues fn for key. It never blocks on running jobs.
func (s *Sequencer) Submit(ctx context.Context, key int64, fn func(context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSequencerClosed
	}
	box, running := s.boxes[key]
	if !running {
		box = &mailbox{}
		s.boxes[key] = box
	}
	if len(box.jobs) >= s.limit {
		logger.Warn(ctx, "dialogue.seq", "queue.full",
			slog.Int64("user_id", key),
			slog.Int("limit", s.limit),
		)
		return ErrQueueFull
	}
	box.jobs = append(box.jobs, seqJob{ctx: ctx, run: fn})
	if !running {
		s.wg.Add(1)
		go s.drain(key, box)
	}
	return nil
}

func (s *Sequencer) drain(key int64, box *mailbox) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(box.jobs) == 0 {
			delete(s.boxes, key)
			s.mu.Unlock()
			return
		}
		j := box.jobs[0]
		box.jobs[0] = seqJob{}
		box.jobs = box.jobs[1:]
		s.mu.Unlock()

		s.exec(key, j)
	}
}

func (s *Sequencer) exec(key int64, j seqJob) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(j.ctx, "dialogue.seq", "job.panic",
				slog.Int64("user_id", key),
				slog.String("err", fmt.Sprint(r)),
			)
		}
	}()
	j.run(j.ctx)
}

// Active reports how many keys have pending or running jobs.
func (s *Sequencer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.boxes)
}

// Close stops accepting jobs and waits for queued ones to finish or ctx to
// end.
func (s *Sequencer) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
