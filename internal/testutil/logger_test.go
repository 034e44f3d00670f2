package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingLogger(t *testing.T) {
	logger, rec := NewRecordingLogger()

	logger.Debug("skipped", slog.String("k", "v"))
	logger.With(slog.String("component", "sync")).Warn("table skipped", slog.Int("fields", 3))

	all := rec.Records(slog.LevelDebug)
	require.Len(t, all, 2)

	warns := rec.Records(slog.LevelWarn)
	require.Len(t, warns, 1)
	assert.Equal(t, "table skipped", warns[0].Message)
	assert.Equal(t, map[string]string{"component": "sync", "fields": "3"}, warns[0].Attrs)
}
