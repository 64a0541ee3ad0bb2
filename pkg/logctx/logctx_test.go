package logctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromCtx_EnrichesBaseWithTraceAndUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core).Sugar()

	ctx := WithUser(WithTraceID(context.Background(), "trace-1"), "u1")
	FromCtx(ctx, base).Infow("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	require.Equal(t, "trace-1", fields["trace_id"])
	require.Equal(t, "u1", fields["user_id"])
}

func TestFromCtx_PrefersStoredLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stored := zap.New(core).Sugar().With("trace_id", "stored")
	other, otherLogs := observer.New(zap.InfoLevel)

	ctx := WithLogger(context.Background(), stored)
	FromCtx(ctx, zap.New(other).Sugar()).Infow("hello")

	require.Equal(t, 1, logs.Len())
	require.Zero(t, otherLogs.Len())
	require.Equal(t, "stored", logs.All()[0].ContextMap()["trace_id"])
}

func TestFromCtx_NilContextReturnsBase(t *testing.T) {
	base := zap.NewNop().Sugar()
	//nolint:staticcheck
	require.Same(t, base, FromCtx(nil, base))
}
