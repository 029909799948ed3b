package logging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Redactor tests --

func TestRedactor_Redact(t *testing.T) {
	r := NewRedactor("tok-123", "", "wallet-9")

	assert.Equal(t, "Bearer [REDACTED] for [REDACTED]", r.Redact("Bearer tok-123 for wallet-9"))
	assert.Equal(t, "nothing here", r.Redact("nothing here"))
}

func TestRedactor_NoSecrets(t *testing.T) {
	var nilRedactor *Redactor

	assert.Equal(t, "tok", NewRedactor().Redact("tok"))
	assert.Equal(t, "tok", nilRedactor.Redact("tok"))
}

func TestRedactor_RedactErrorKeepsChain(t *testing.T) {
	sentinel := errors.New("boom")
	err := fmt.Errorf("request with tok-123 failed: %w", sentinel)

	clean := NewRedactor("tok-123").RedactError(err)

	assert.Equal(t, "request with [REDACTED] failed: boom", clean.Error())
	assert.ErrorIs(t, clean, sentinel)
	assert.Nil(t, NewRedactor("x").RedactError(nil))
}

// -- RedactHook tests --

func TestRedactHook_ScrubsMessageAndFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.AddHook(NewRedactHook(NewRedactor("tok-123")))

	logger.WithError(errors.New("401 for tok-123")).
		WithField("header", "Bearer tok-123").
		WithField("page", 5).
		Errorf("Gateway.FetchPage.Error token=%s", "tok-123")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Gateway.FetchPage.Error token=[REDACTED]", entry.Message)
	assert.Equal(t, "401 for [REDACTED]", entry.Data[logrus.ErrorKey])
	assert.Equal(t, "Bearer [REDACTED]", entry.Data["header"])
	assert.Equal(t, 5, entry.Data["page"])
}

func TestSetupLogging_Level(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, SetupLogging("debug").Level)
	assert.Equal(t, logrus.InfoLevel, SetupLogging("not-a-level").Level)
}

// -- LogData tests --

func TestGetLogData(t *testing.T) {
	logger, _ := test.NewNullLogger()
	logData := NewLogData(logger)

	ctx := WithLogData(context.Background(), logData)

	assert.Same(t, logData, GetLogData(ctx))
	assert.NotNil(t, GetLogData(context.Background()))
}

func TestLogData_Fields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logData := NewLogData(logger)

	logData.AddData("page", 3)
	logData.AddTiming("fetch")()
	logData.Log().Info("Sync.Tick.Complete")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, 3, entry.Data["page"])
	assert.Contains(t, entry.Data, "fetch")
}

// -- WithSpan tests --

func TestWithSpan_Complete(t *testing.T) {
	logger, hook := test.NewNullLogger()

	err := WithSpan(context.Background(), logger, "Sync.Tick", func(ctx context.Context) error {
		GetLogData(ctx).AddData("events", 2)
		return nil
	})

	require.NoError(t, err)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Sync.Tick.Complete", entry.Message)
	assert.Equal(t, 2, entry.Data["events"])
	assert.Contains(t, entry.Data, "duration")
}

func TestWithSpan_Error(t *testing.T) {
	logger, hook := test.NewNullLogger()
	boom := errors.New("boom")

	err := WithSpan(context.Background(), logger, "Get.Tick", func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Get.Tick.Error", entry.Message)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
}

// -- LoggingWrapper tests --

func TestLoggingWrapper_PerRequestLogData(t *testing.T) {
	logger, hook := test.NewNullLogger()
	var seen []*LogData

	handler := LoggingWrapper("Status", logger, func(w http.ResponseWriter, r *http.Request, logData *LogData) error {
		seen = append(seen, logData)
		assert.Same(t, logData, GetLogData(r.Context()))
		w.WriteHeader(http.StatusOK)
		return nil
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1])
	assert.Empty(t, hook.AllEntries())
}

func TestLoggingWrapper_Error(t *testing.T) {
	logger, hook := test.NewNullLogger()

	handler := LoggingWrapper("Status", logger, func(w http.ResponseWriter, r *http.Request, logData *LogData) error {
		return errors.New("write failed")
	})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Handler.Status.Error", entry.Message)
}
