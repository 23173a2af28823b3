package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("TextToWriter", func(t *testing.T) {
		var console, file bytes.Buffer
		l := NewLogger(WithConsole(&console), WithWriter(&file))
		l.Info("launched", "test", "build")

		require.Contains(t, console.String(), "msg=launched")
		require.Contains(t, file.String(), "test=build")
	})

	t.Run("JSONFormat", func(t *testing.T) {
		var console bytes.Buffer
		l := NewLogger(WithConsole(&console), WithFormat("json"))
		l.Warn("skipped", "test", "run")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(console.Bytes(), &rec))
		require.Equal(t, "skipped", rec["msg"])
		require.Equal(t, "WARN", rec["level"])
		require.Equal(t, "run", rec["test"])
	})

	t.Run("DebugDisabledByDefault", func(t *testing.T) {
		var console bytes.Buffer
		l := NewLogger(WithConsole(&console))
		l.Debug("hidden")
		require.Empty(t, console.String())

		l = NewLogger(WithConsole(&console), WithDebug())
		l.Debug("shown")
		require.Contains(t, console.String(), "shown")
	})

	t.Run("QuietKeepsFileOutput", func(t *testing.T) {
		var console, file bytes.Buffer
		l := NewLogger(WithConsole(&console), WithWriter(&file), WithQuiet())
		l.Error("boom")
		l.Write("free form")

		require.Empty(t, console.String())
		require.Contains(t, file.String(), "boom")
		require.Contains(t, file.String(), "free form\n")
	})

	t.Run("WithSharesFile", func(t *testing.T) {
		var file bytes.Buffer
		l := NewLogger(WithWriter(&file), WithQuiet()).With("series", "s1")
		l.Infof("count=%d", 3)
		require.Contains(t, file.String(), "series=s1")
		require.Contains(t, file.String(), "count=3")
	})
}

func TestContext(t *testing.T) {
	var console bytes.Buffer
	ctx := WithLogger(context.Background(), NewLogger(WithConsole(&console)))
	ctx = WithValues(ctx, "series", "s7")

	Info(ctx, "hello")
	require.Contains(t, console.String(), "series=s7")

	require.Equal(t, Default(), FromContext(context.Background()))
}
