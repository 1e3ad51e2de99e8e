package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an outbox for deployments without Postgres. Events survive
// only as long as the process; failed events go back to pending until they
// reach MaxRetries and are parked as failed.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Append(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.ID = s.nextID
	s.nextID++
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	ev.Status = StatusPending
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for i := range s.events {
		if len(out) == batchSize {
			break
		}
		if s.events[i].Status != StatusPending {
			continue
		}
		s.events[i].Status = StatusInProgress
		s.events[i].RelayID = relayID
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *MemoryStore) MarkSent(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sent := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		sent[id] = struct{}{}
	}
	kept := s.events[:0]
	for _, e := range s.events {
		if _, ok := sent[e.ID]; ok {
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].RetryCount++
			s.events[i].Status = StatusPending
			if s.events[i].RetryCount >= MaxRetries {
				s.events[i].Status = StatusFailed
			}
			msg := errMsg
			s.events[i].LastError = &msg
		}
	}
	return nil
}

// Pending returns a copy of the events not yet sent.
func (s *MemoryStore) Pending() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
