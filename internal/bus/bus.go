// Package bus implements the per-job event channel between pipeline workers
// and the SSE endpoint: one writer, at most one reader, unbounded, delivered
// strictly in publish order.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docstream/internal/domain"
)

// Bus is the job registry. Constructed once at process start and shared by
// reference; safe for concurrent use.
type Bus struct {
	mu   sync.Mutex
	jobs map[string]*jobQueue
}

// jobQueue is one job's ordered, unbounded event queue. Publish appends and
// signals; the single claimed consumer drains. Unread events accumulate in
// memory until the job terminates or is abandoned (accepted: no cancellation).
type jobQueue struct {
	kind    domain.JobKind
	claimed bool // guarded by Bus.mu

	mu     sync.Mutex
	events []domain.Event
	ready  chan struct{} // buffered(1) wakeup for the consumer
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{jobs: make(map[string]*jobQueue)}
}

// Create registers a new job of the given kind and returns its ID.
func (b *Bus) Create(kind domain.JobKind) string {
	id := uuid.NewString()

	b.mu.Lock()
	b.jobs[id] = &jobQueue{kind: kind, ready: make(chan struct{}, 1)}
	b.mu.Unlock()

	return id
}

// Publish appends an event to the job's queue. It never blocks on a slow or
// absent consumer. Publishing to a released job returns ErrJobNotFound;
// workers ignore that, since it only means the stream is already gone.
func (b *Bus) Publish(jobID string, ev domain.Event) error {
	b.mu.Lock()
	q, ok := b.jobs[jobID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("publish to job %s: %w", jobID, domain.ErrJobNotFound)
	}

	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Attach claims the job and returns a channel yielding its events in publish
// order. The channel closes after a terminal event has been sent or ctx is
// done; either way the job is released and a later Attach fails with
// ErrJobNotFound. At most one consumer can hold a job at a time.
func (b *Bus) Attach(ctx context.Context, jobID string, kind domain.JobKind) (<-chan domain.Event, error) {
	b.mu.Lock()
	q, ok := b.jobs[jobID]
	if ok && (q.kind != kind || q.claimed) {
		ok = false
	}
	if ok {
		q.claimed = true
	}
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("attach to job %s: %w", jobID, domain.ErrJobNotFound)
	}

	out := make(chan domain.Event)
	go func() {
		defer b.release(jobID)
		defer close(out)
		q.drain(ctx, out)
	}()
	return out, nil
}

func (b *Bus) release(jobID string) {
	b.mu.Lock()
	delete(b.jobs, jobID)
	b.mu.Unlock()
}

func (q *jobQueue) drain(ctx context.Context, out chan<- domain.Event) {
	for {
		q.mu.Lock()
		pending := q.events
		q.events = nil
		q.mu.Unlock()

		for _, ev := range pending {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Terminal() {
				return
			}
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return
		}
	}
}
