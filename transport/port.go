package transport

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrTimeout is returned by Receive when no datagram arrived before the timeout.
	ErrTimeout = errors.New("receive timeout")

	// ErrClosed is returned by operations on a closed port.
	ErrClosed = errors.New("port closed")

	// ErrUnknownHost indicates that a peer host name could not be resolved.
	ErrUnknownHost = errors.New("unknown host")

	// ErrInvalidProbability indicates a loss probability outside [0, 1].
	ErrInvalidProbability = errors.New("loss probability must be within [0, 1]")
)

// Port sends and receives opaque datagrams. Implementations are not required
// to be safe for concurrent Receive calls; each endpoint drives its port from
// a single control loop.
type Port interface {
	// Send transmits one datagram to addr. Delivery is not guaranteed.
	Send(data []byte, addr net.Addr) error

	// Receive blocks for one datagram and copies it into buf. A positive
	// timeout bounds the wait and yields ErrTimeout when it expires; zero
	// blocks until a datagram arrives or the port is closed.
	Receive(buf []byte, timeout time.Duration) (int, net.Addr, error)

	// LocalAddr returns the address the port is bound to.
	LocalAddr() net.Addr

	// Close releases the port. Blocked Receive calls return ErrClosed.
	Close() error
}

// IsTimeout reports whether err is a receive timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
