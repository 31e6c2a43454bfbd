package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = zerolog.New(io.Discard)
	os.Exit(m.Run())
}

// captureLogs routes the global logger into a buffer at the given level
// until the test ends.
func captureLogs(t *testing.T, level zerolog.Level) *bytes.Buffer {
	t.Helper()
	origLogger := log.Logger
	origLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = origLogger
		zerolog.SetGlobalLevel(origLevel)
	})

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(level)
	return &buf
}

func TestSessionLogsCarrySessionID(t *testing.T) {
	ctx := context.Background()
	engine, err := Open(ctx, Options{Path: ":memory:"})
	require.NoError(t, err)
	defer engine.Close()

	buf := captureLogs(t, zerolog.TraceLevel)

	s, err := engine.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Commit())

	out := buf.String()
	assert.Contains(t, out, `"session":"`+s.ID()+`"`)
	assert.Contains(t, out, "Session started")
	assert.Contains(t, out, "Session committed")
}

func TestSessionLogsSilentAboveTrace(t *testing.T) {
	ctx := context.Background()
	engine, err := Open(ctx, Options{Path: ":memory:"})
	require.NoError(t, err)
	defer engine.Close()

	buf := captureLogs(t, zerolog.WarnLevel)

	require.NoError(t, engine.WithSession(ctx, func(*Session) error { return nil }))
	assert.Empty(t, buf.String())
}
