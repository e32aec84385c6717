package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.With(slog.String("component", "test")).Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "component=test")
}

func TestContextLogger(t *testing.T) {
	fallback := Discard()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	scoped := Discard().With(slog.String("request_id", "abc"))
	ctx := WithContext(context.Background(), scoped)
	assert.Same(t, scoped, FromContext(ctx, fallback))
}

type eventRecorder struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (r *eventRecorder) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) recorded() []*sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sentry.Event(nil), r.events...)
}

func TestNewForwardsErrorsToSentry(t *testing.T) {
	rec := &eventRecorder{}
	logger, err := New(Config{
		Level:       "debug",
		SentryDSN:   "https://public@sentry.example.com/1",
		Environment: "test",
		Output:      io.Discard,
		BeforeSend:  rec.beforeSend,
	})
	require.NoError(t, err)
	t.Cleanup(func() { sentry.CurrentHub().BindClient(nil) })

	scoped := logger.With(slog.String("component", "processor")).With(slog.String("request_id", "r-1"))
	scoped.Warn("slow upstream")
	scoped.Info("handled")
	require.Empty(t, rec.recorded())

	scoped.Error("work item update failed", slog.Int("status", 502))

	events := rec.recorded()
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, sentry.LevelError, event.Level)
	assert.Equal(t, "work item update failed", event.Message)
	assert.Equal(t, "processor", event.Extra["component"])
	assert.Equal(t, "r-1", event.Extra["request_id"])
	assert.Equal(t, int64(502), event.Extra["status"])
}

func TestSentryHandlerWithGroupKeepsAttrs(t *testing.T) {
	rec := &eventRecorder{}
	logger, err := New(Config{
		SentryDSN:  "https://public@sentry.example.com/1",
		Output:     io.Discard,
		BeforeSend: rec.beforeSend,
	})
	require.NoError(t, err)
	t.Cleanup(func() { sentry.CurrentHub().BindClient(nil) })

	logger.With(slog.String("component", "devops")).WithGroup("http").Error("request failed", slog.String("method", "PATCH"))

	events := rec.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "devops", events[0].Extra["component"])
	assert.Equal(t, "PATCH", events[0].Extra["method"])
}

func TestNewWithoutDSNSendsNothing(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Output: &buf})
	require.NoError(t, err)

	logger.Error("local only")
	assert.Contains(t, buf.String(), "local only")
}
