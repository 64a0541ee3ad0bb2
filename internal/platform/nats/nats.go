package nats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/entitlements/pkg/config"
)

// Dialer connects to NATS on first use so deployments on the memory bus never dial.
type Dialer struct {
	url string
	log *zap.SugaredLogger

	mu   sync.Mutex
	conn *nats.Conn
}

func NewDialer(l *zap.SugaredLogger, cfg *cfgpkg.Config) *Dialer {
	return &Dialer{url: cfg.NATS.URL, log: l}
}

func (d *Dialer) Conn() (*nats.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil && !d.conn.IsClosed() {
		return d.conn, nil
	}
	conn, err := nats.Connect(d.url,
		nats.Name("entitlements"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				d.log.Warnw("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			d.log.Infow("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", d.url, err)
	}
	d.conn = conn
	return conn, nil
}

func (d *Dialer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func registerClose(lc fx.Lifecycle, d *Dialer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			d.Close()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewDialer),
	fx.Invoke(registerClose),
)
