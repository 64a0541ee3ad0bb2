package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	natsplatform "github.com/fatflowers/entitlements/internal/platform/nats"
	"github.com/fatflowers/entitlements/pkg/tool"
	"github.com/fatflowers/entitlements/pkg/types"
)

// Bus carries transaction events from purchase verification and store notifications to
// the user's transaction listener.
type Bus interface {
	Publish(ctx context.Context, ev types.TransactionEvent) error
	// Subscribe streams the user's events until ctx ends. Events are triggers, so a
	// subscriber that already has one pending may miss the next.
	Subscribe(ctx context.Context, userID string) (<-chan types.TransactionEvent, error)
}

type MemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[chan types.TransactionEvent]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[chan types.TransactionEvent]struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, ev types.TransactionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, userID string) (<-chan types.TransactionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan types.TransactionEvent, 1)
	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan types.TransactionEvent]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[userID], ch)
		if len(b.subs[userID]) == 0 {
			delete(b.subs, userID)
		}
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// Subscribers counts the live subscriptions of a user.
func (b *MemoryBus) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}

// NATSBus fans events out across instances, one subject per user.
type NATSBus struct {
	log    *zap.SugaredLogger
	dialer *natsplatform.Dialer
	prefix string
}

func NewNATSBus(l *zap.SugaredLogger, dialer *natsplatform.Dialer, prefix string) *NATSBus {
	return &NATSBus{log: l, dialer: dialer, prefix: prefix}
}

func subject(prefix, userID string) string {
	return prefix + "." + tool.SubjectToken(userID)
}

func (b *NATSBus) Publish(_ context.Context, ev types.TransactionEvent) error {
	conn, err := b.dialer.Conn()
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := conn.Publish(subject(b.prefix, ev.UserID), data); err != nil {
		return fmt.Errorf("failed to publish transaction event: %w", err)
	}
	return nil
}

func (b *NATSBus) Subscribe(ctx context.Context, userID string) (<-chan types.TransactionEvent, error) {
	conn, err := b.dialer.Conn()
	if err != nil {
		return nil, err
	}
	msgs := make(chan *nats.Msg, 16)
	sub, err := conn.ChanSubscribe(subject(b.prefix, userID), msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to transaction events: %w", err)
	}

	out := make(chan types.TransactionEvent, 1)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-msgs:
				var ev types.TransactionEvent
				if err := json.Unmarshal(m.Data, &ev); err != nil {
					b.log.Warnw("dropping undecodable transaction event", "subject", m.Subject, "err", err)
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	return out, nil
}
