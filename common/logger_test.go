package common

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContextLogger(buf *bytes.Buffer) *ContextLogger {
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return NewContextLogger(logger, map[string]interface{}{"service": "altinnaudit"})
}

func TestContextLoggerWithFieldAccumulates(t *testing.T) {
	var buf bytes.Buffer
	cl := testContextLogger(&buf)

	cl.WithField("run_id", "abc123").Info("started")
	out := buf.String()
	assert.Contains(t, out, `service=altinnaudit`)
	assert.Contains(t, out, `run_id=abc123`)
	assert.Contains(t, out, `msg=started`)
}

func TestContextLoggerEntryCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	cl := testContextLogger(&buf).WithField("run_id", "abc123")

	entry := cl.Entry()
	require.NotNil(t, entry)
	assert.Equal(t, "altinnaudit", entry.Data["service"])
	assert.Equal(t, "abc123", entry.Data["run_id"])
}

func TestLogOperationLogsCompletionOnSuccess(t *testing.T) {
	var buf bytes.Buffer
	cl := testContextLogger(&buf)

	err := LogOperation(cl, "acquire_fleet", func() error { return nil })
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Operation completed")
}

func TestLogOperationLogsFailureAndPropagatesError(t *testing.T) {
	var buf bytes.Buffer
	cl := testContextLogger(&buf)
	wantErr := errors.New("boom")

	err := LogOperation(cl, "acquire_fleet", func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Contains(t, buf.String(), "Operation failed")
}

func TestLogPanicRecoversAndLogs(t *testing.T) {
	var buf bytes.Buffer
	cl := testContextLogger(&buf)

	func() {
		defer LogPanic(cl)
		panic("kaboom")
	}()

	assert.Contains(t, buf.String(), "Panic recovered")
	assert.Contains(t, buf.String(), "kaboom")
}

func TestServiceLoggerSetsServiceAndVersionFields(t *testing.T) {
	cl := ServiceLogger("altinnaudit", "download")
	entry := cl.Entry()
	assert.Equal(t, "altinnaudit", entry.Data["service"])
	assert.Equal(t, "download", entry.Data["version"])
}
