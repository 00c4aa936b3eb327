package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/peiranqiu/File-Transfer/limits"
	"github.com/sirupsen/logrus"
)

// Exit statuses shared by both programs.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitValidation = 2
)

// ErrUsage marks errors caused by invalid arguments or input files.
var ErrUsage = errors.New("invalid arguments")

// Usage returns an ErrUsage error with a formatted message.
func Usage(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// AsUsage marks err as a validation failure. A nil err stays nil.
func AsUsage(err error) error {
	if err == nil || errors.Is(err, ErrUsage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUsage, err)
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage),
		errors.Is(err, limits.ErrWindowOutOfRange),
		errors.Is(err, limits.ErrFileEmpty),
		errors.Is(err, limits.ErrFileTooLarge):
		return ExitValidation
	default:
		return ExitFailure
	}
}

// Report writes err to w and returns the matching exit status.
func Report(w io.Writer, program string, err error) int {
	code := ExitCode(err)
	switch code {
	case ExitOK:
	case ExitValidation:
		fmt.Fprintf(w, "%s: %v\n", program, err)
		fmt.Fprintf(w, "Use -help for usage information.\n")
	default:
		fmt.Fprintf(w, "%s: %v\n", program, err)
	}
	return code
}

// WatchSignals cancels the returned context on SIGINT or SIGTERM and closes
// every closer so blocked receives return. The stop function releases the
// signal handler.
func WatchSignals(parent context.Context, closers ...io.Closer) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logrus.WithFields(logrus.Fields{
				"function": "WatchSignals",
				"signal":   sig.String(),
			}).Info("Received signal, shutting down")
			cancel()
			for _, c := range closers {
				c.Close()
			}
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
