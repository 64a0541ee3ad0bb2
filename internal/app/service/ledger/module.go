package ledger

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	notificationlog "github.com/fatflowers/entitlements/internal/app/service/notification_log"
	"github.com/fatflowers/entitlements/internal/platform/apple/apple_iap"
	"github.com/fatflowers/entitlements/internal/platform/google/play"
	natsplatform "github.com/fatflowers/entitlements/internal/platform/nats"
	"github.com/fatflowers/entitlements/pkg/config"
)

func NewBus(l *zap.SugaredLogger, cfg *config.Config, dialer *natsplatform.Dialer) Bus {
	if cfg.Events.Driver == config.DriverNATS {
		l.Infow("transaction events over nats", "subject_prefix", cfg.NATS.SubjectPrefix)
		return NewNATSBus(l, dialer, cfg.NATS.SubjectPrefix)
	}
	return NewMemoryBus()
}

func newIndex(db *gorm.DB) (*GormIndex, Index) {
	idx := NewGormIndex(db)
	return idx, idx
}

// NewPublisher returns nil when no service account is configured.
func NewPublisher(l *zap.SugaredLogger, cfg *config.Config) (play.PublisherAPI, error) {
	if cfg.GooglePlay.ServiceAccountJSON == "" {
		l.Warnw("google ledger disabled, credentials missing")
		return nil, nil
	}
	publisher, err := play.NewPublisher(cfg.GooglePlay.ServiceAccountJSON)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

// NewClient routes to the stores that have credentials configured.
func NewClient(l *zap.SugaredLogger, cfg *config.Config, bus Bus, notif notificationlog.Recorder, index Index, publisher play.PublisherAPI) (Client, error) {
	var providers []Provider

	opts := &apple_iap.GetAppleIAPClientOptions{
		KeyID:      cfg.AppleIAP.KeyID,
		KeyContent: cfg.AppleIAP.KeyContent,
		BundleID:   cfg.AppleIAP.BundleID,
		Issuer:     cfg.AppleIAP.Issuer,
		Sandbox:    !cfg.AppleIAP.IsProd,
	}
	if opts.Configured() {
		store, err := apple_iap.GetAppleIAPClient(context.Background(), opts)
		if err != nil {
			return nil, err
		}
		providers = append(providers, NewAppleProvider(l, apple_iap.NewClient(store), cfg, index))
	} else {
		l.Warnw("apple ledger disabled, credentials missing")
	}

	if publisher != nil {
		providers = append(providers, NewGoogleProvider(l, publisher, cfg, index))
	}

	return NewRouter(l, bus, notif, providers...), nil
}

var Module = fx.Options(
	fx.Provide(NewBus, newIndex, NewPublisher, NewClient),
)
