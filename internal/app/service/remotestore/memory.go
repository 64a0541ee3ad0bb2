package remotestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/fatflowers/entitlements/pkg/types"
)

// MemoryStore keeps records in process. It backs single-node deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]types.SubscriptionRecord
	subs    map[string]map[chan types.SubscriptionRecord]struct{}
	writes  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]types.SubscriptionRecord),
		subs:    make(map[string]map[chan types.SubscriptionRecord]struct{}),
	}
}

func (s *MemoryStore) GetRecord(ctx context.Context, userID string) (*types.SubscriptionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) MergeWrite(ctx context.Context, userID string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := map[string]any{}
	if cur, ok := s.records[userID]; ok {
		merged = cur.Fields()
	}
	for k, v := range fields {
		merged[k] = v
	}
	rec, err := types.RecordFromFields(merged)
	if err != nil {
		return fmt.Errorf("failed to merge remote record for %s: %w", userID, err)
	}
	s.records[userID] = rec
	s.writes++

	for ch := range s.subs[userID] {
		// keep only the latest value for slow readers
		select {
		case ch <- rec:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- rec:
			default:
			}
		}
	}
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, userID string) (<-chan types.SubscriptionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan types.SubscriptionRecord, 1)
	s.mu.Lock()
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[chan types.SubscriptionRecord]struct{})
	}
	s.subs[userID][ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[userID], ch)
		if len(s.subs[userID]) == 0 {
			delete(s.subs, userID)
		}
		s.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// Writes counts successful merge-writes.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Subscribers counts live subscriptions of a user.
func (s *MemoryStore) Subscribers(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[userID])
}
