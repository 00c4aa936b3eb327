package transport

import (
	"net"
	"sync"
	"time"
)

// memQueueSize bounds each in-memory inbox. Datagrams sent to a full inbox are dropped.
const memQueueSize = 1024

// MemAddr is the address of a MemPort.
type MemAddr string

// Network returns "mem".
func (a MemAddr) Network() string { return "mem" }

func (a MemAddr) String() string { return string(a) }

type datagram struct {
	data []byte
	from net.Addr
}

// MemPort is an in-memory Port connected to exactly one peer. It delivers in
// order and never loses datagrams unless the peer's inbox is full, which
// makes it suitable for deterministic end-to-end tests.
type MemPort struct {
	addr  MemAddr
	peer  *MemPort
	inbox chan datagram

	closed    chan struct{}
	closeOnce sync.Once
}

// NewMemPair returns two connected ports named a and b.
func NewMemPair(a, b string) (*MemPort, *MemPort) {
	pa := newMemPort(MemAddr(a))
	pb := newMemPort(MemAddr(b))
	pa.peer, pb.peer = pb, pa
	return pa, pb
}

func newMemPort(addr MemAddr) *MemPort {
	return &MemPort{
		addr:   addr,
		inbox:  make(chan datagram, memQueueSize),
		closed: make(chan struct{}),
	}
}

// Send copies data into the peer's inbox. The destination address is not
// consulted since a MemPort has a single peer.
func (p *MemPort) Send(data []byte, _ net.Addr) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}

	dg := datagram{data: append([]byte(nil), data...), from: p.addr}
	select {
	case <-p.peer.closed:
	case p.peer.inbox <- dg:
	default:
	}
	return nil
}

// Receive waits for the next datagram from the peer.
func (p *MemPort) Receive(buf []byte, timeout time.Duration) (int, net.Addr, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case dg := <-p.inbox:
		return copy(buf, dg.data), dg.from, nil
	case <-expired:
		return 0, nil, ErrTimeout
	case <-p.closed:
		return 0, nil, ErrClosed
	}
}

// LocalAddr returns the port's name.
func (p *MemPort) LocalAddr() net.Addr {
	return p.addr
}

// Close unblocks pending receives. Closing twice is a no-op.
func (p *MemPort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}
