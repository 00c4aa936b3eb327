package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/peiranqiu/File-Transfer/limits"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLogging(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
	})
}

func TestConfigureLoggingInvalidLevel(t *testing.T) {
	resetLogging(t)

	closer, err := ConfigureLogging("chatty", "")
	assert.Nil(t, closer)
	assert.ErrorIs(t, err, ErrUsage)
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestConfigureLoggingStderr(t *testing.T) {
	resetLogging(t)

	closer, err := ConfigureLogging("debug", "")
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestConfigureLoggingFile(t *testing.T) {
	resetLogging(t)

	path := filepath.Join(t.TempDir(), "transfer.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	closer, err := ConfigureLogging("warn", path)
	require.NoError(t, err)

	logrus.WithField("function", "TestConfigureLoggingFile").Info("filtered")
	logrus.WithField("function", "TestConfigureLoggingFile").Warn("kept")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("existing\n")), "log file is appended to")
	assert.Contains(t, string(content), `"msg":"kept"`)
	assert.NotContains(t, string(content), "filtered")
}

func TestConfigureLoggingUnwritableFile(t *testing.T) {
	resetLogging(t)

	_, err := ConfigureLogging("info", filepath.Join(t.TempDir(), "missing", "log"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestFormatterFor(t *testing.T) {
	assert.IsType(t, &logrus.JSONFormatter{}, formatterFor(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()
	assert.IsType(t, &logrus.JSONFormatter{}, formatterFor(f), "regular files are not terminals")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"usage", Usage("missing %s", "host"), ExitValidation},
		{"window", limits.ValidateWindow(9), ExitValidation},
		{"empty file", fmt.Errorf("load: %w", limits.ErrFileEmpty), ExitValidation},
		{"large file", limits.ValidateFileSize(limits.MaxFileSize + 1), ExitValidation},
		{"marked", AsUsage(os.ErrNotExist), ExitValidation},
		{"runtime", errors.New("connection refused"), ExitFailure},
		{"cancelled", context.Canceled, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestAsUsage(t *testing.T) {
	assert.NoError(t, AsUsage(nil))

	err := AsUsage(os.ErrNotExist)
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorIs(t, err, os.ErrNotExist)

	usage := Usage("bad")
	assert.Same(t, usage, AsUsage(usage))
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ExitOK, Report(&buf, "gbn-sender", nil))
	assert.Empty(t, buf.String())

	assert.Equal(t, ExitValidation, Report(&buf, "gbn-sender", Usage("window missing")))
	assert.Contains(t, buf.String(), "gbn-sender: invalid arguments: window missing")
	assert.Contains(t, buf.String(), "-help")

	buf.Reset()
	assert.Equal(t, ExitFailure, Report(&buf, "gbn-receiver", errors.New("bind failed")))
	assert.Equal(t, "gbn-receiver: bind failed\n", buf.String())
}

type countingCloser struct {
	closed atomic.Int32
}

func (c *countingCloser) Close() error {
	c.closed.Add(1)
	return nil
}

func TestWatchSignalsStop(t *testing.T) {
	closer := &countingCloser{}
	ctx, stop := WatchSignals(context.Background(), closer)
	stop()

	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Zero(t, closer.closed.Load(), "stop does not close resources")
}

func TestWatchSignalsInterrupt(t *testing.T) {
	closer := &countingCloser{}
	ctx, stop := WatchSignals(context.Background(), closer)
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by SIGINT")
	}
	assert.Eventually(t, func() bool { return closer.closed.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
}
