package clock

import (
	"time"

	"go.uber.org/fx"
)

// Timer is the subset of *time.Timer the services rely on.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock is the time source of all expiry math and retry scheduling.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

type realClock struct{}

func New() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) Timer { return &realTimer{t: time.NewTimer(d)} }

type realTimer struct{ t *time.Timer }

func (r *realTimer) C() <-chan time.Time { return r.t.C }
func (r *realTimer) Stop() bool          { return r.t.Stop() }

var Module = fx.Options(
	fx.Provide(New),
)
