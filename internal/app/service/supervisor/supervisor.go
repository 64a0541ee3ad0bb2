package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fatflowers/entitlements/internal/app/service/reconcile"
	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/metrics"
)

type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

const defaultRetryInterval = 5 * time.Second

var errStreamClosed = errors.New("stream closed")

// Sink receives reconciliation triggers.
type Sink interface {
	Submit(ctx context.Context, ev reconcile.Event) error
}

// Listener owns one kind of subscription. Connect establishes it; the returned consume
// func pumps it into the sink until the stream ends or ctx is cancelled.
type Listener interface {
	Name() string
	Connect(ctx context.Context, userID string, sink Sink) (consume func(ctx context.Context) error, err error)
}

type slot struct {
	listener Listener
	state    State
	gen      uint64
}

// run is one identity's set of listener loops.
type run struct {
	userID string
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor keeps exactly one live subscription per listener for the current identity,
// retrying failed listeners at a fixed interval until stopped.
type Supervisor struct {
	log      *zap.SugaredLogger
	clock    clock.Clock
	sink     Sink
	interval time.Duration

	// opMu serializes Start and Stop; mu guards the slots and the current run.
	opMu  sync.Mutex
	mu    sync.Mutex
	slots []*slot
	cur   *run
}

func New(l *zap.SugaredLogger, clk clock.Clock, sink Sink, interval time.Duration, listeners ...Listener) *Supervisor {
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	s := &Supervisor{log: l, clock: clk, sink: sink, interval: interval}
	for _, ln := range listeners {
		s.slots = append(s.slots, &slot{listener: ln, state: StateIdle})
	}
	return s
}

// Start activates every listener for userID. Starting the current identity again is a
// no-op; a different identity tears the previous one down first.
func (s *Supervisor) Start(userID string) {
	if userID == "" {
		return
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	same := s.cur != nil && s.cur.userID == userID
	s.mu.Unlock()
	if same {
		return
	}
	s.teardown()

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{userID: userID, cancel: cancel, done: make(chan struct{})}

	var g errgroup.Group
	s.mu.Lock()
	s.cur = r
	for _, sl := range s.slots {
		sl.gen++
		gen := sl.gen
		g.Go(func() error {
			s.loop(ctx, sl, gen, userID)
			return nil
		})
	}
	s.mu.Unlock()

	go func() {
		_ = g.Wait()
		close(r.done)
	}()
	s.log.Infow("listener supervisor started", "user_id", userID)
}

// Stop tears down every listener and cancels pending retries. Calling it again is a no-op.
func (s *Supervisor) Stop() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.teardown()
}

func (s *Supervisor) teardown() {
	s.mu.Lock()
	r := s.cur
	s.cur = nil
	if r != nil {
		for _, sl := range s.slots {
			sl.gen++
			s.setStateLocked(sl, StateIdle)
		}
	}
	s.mu.Unlock()
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
	s.log.Infow("listener supervisor stopped", "user_id", r.userID)
}

// UserID is the identity listeners currently run for, empty when stopped.
func (s *Supervisor) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.userID
}

// State reports the state of the named listener.
func (s *Supervisor) State(name string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		if sl.listener.Name() == name {
			return sl.state
		}
	}
	return StateIdle
}

func (s *Supervisor) loop(ctx context.Context, sl *slot, gen uint64, userID string) {
	name := sl.listener.Name()
	log := s.log.With("listener", name, "user_id", userID)
	policy := backoff.NewConstantBackOff(s.interval)

	for {
		err := s.attempt(ctx, sl, gen, userID)
		if ctx.Err() != nil {
			return
		}
		s.transition(sl, gen, StateIdle)
		metrics.IncListenerRetry(name)
		wait := policy.NextBackOff()
		log.Warnw("listener idle, retrying", "retry_in", wait, "err", err)

		timer := s.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}
	}
}

// attempt connects once and consumes until the stream ends.
func (s *Supervisor) attempt(ctx context.Context, sl *slot, gen uint64, userID string) error {
	consume, err := sl.listener.Connect(ctx, userID, s.sink)
	if err != nil {
		return err
	}
	if !s.transition(sl, gen, StateActive) {
		return ctx.Err()
	}
	s.log.Infow("listener active", "listener", sl.listener.Name(), "user_id", userID)
	return consume(ctx)
}

// transition moves the slot to st unless the loop belongs to an older generation.
func (s *Supervisor) transition(sl *slot, gen uint64, st State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl.gen != gen {
		return false
	}
	s.setStateLocked(sl, st)
	return true
}

func (s *Supervisor) setStateLocked(sl *slot, st State) {
	sl.state = st
	metrics.SetListenerActive(sl.listener.Name(), st == StateActive)
}
