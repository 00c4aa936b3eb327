package arq

import (
	"errors"
	"fmt"
	"time"

	"github.com/peiranqiu/File-Transfer/limits"
)

const (
	// DefaultWindow is the window size used when none is configured.
	DefaultWindow = 4

	// DefaultTimeout is the sender's retransmission timeout.
	DefaultTimeout = time.Second
)

var (
	// ErrTransport wraps socket-level failures. It ends a run.
	ErrTransport = errors.New("transport failure")

	// ErrSink wraps failures writing or closing the receiver's output.
	ErrSink = errors.New("output sink failure")

	// ErrRetriesExhausted is returned when MaxRetries consecutive timeouts pass
	// without any acknowledgement progress.
	ErrRetriesExhausted = errors.New("retransmission limit reached")

	// ErrInvalidTimeout indicates a non-positive retransmission timeout.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrInvalidRetries indicates a negative retry cap.
	ErrInvalidRetries = errors.New("max retries cannot be negative")

	// ErrNoSegments indicates a sender created without any segment to send.
	ErrNoSegments = errors.New("no segments to send")

	// ErrTooManySegments indicates more segments than a 16-bit ACK can count.
	ErrTooManySegments = errors.New("too many segments")
)

// SenderConfig holds the sender's tunables. Window is fixed for the lifetime
// of a transfer.
type SenderConfig struct {
	// Window bounds how many segments may be outstanding at once.
	Window uint8

	// Timeout is how long the sender waits for one acknowledgement before
	// resending the unacknowledged window.
	Timeout time.Duration

	// MaxRetries caps consecutive timeouts without progress. Zero means no cap.
	MaxRetries int
}

// DefaultSenderConfig returns the sender defaults.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Window:  DefaultWindow,
		Timeout: DefaultTimeout,
	}
}

// Validate checks the configuration.
func (c SenderConfig) Validate() error {
	if err := limits.ValidateWindow(int(c.Window)); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTimeout, c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRetries, c.MaxRetries)
	}
	return nil
}

// ReceiverConfig holds the receiver's tunables.
type ReceiverConfig struct {
	// Window is echoed in every acknowledgement. The receiver never uses it
	// for sequence arithmetic.
	Window uint8
}

// DefaultReceiverConfig returns the receiver defaults.
func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{Window: DefaultWindow}
}

// Validate checks the configuration.
func (c ReceiverConfig) Validate() error {
	return limits.ValidateWindow(int(c.Window))
}
