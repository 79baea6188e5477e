package obs

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_InitTracer_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "library-api", "")

	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func Test_NewLogger_Levels(t *testing.T) {
	ctx := context.Background()

	assert.True(t, NewLogger("svc", "debug").Enabled(ctx, slog.LevelDebug))
	assert.False(t, NewLogger("svc", "info").Enabled(ctx, slog.LevelDebug))
	assert.False(t, NewLogger("svc", "WARN").Enabled(ctx, slog.LevelInfo))
	assert.True(t, NewLogger("svc", "bogus").Enabled(ctx, slog.LevelInfo))
}
