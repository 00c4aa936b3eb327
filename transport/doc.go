// Package transport implements the datagram layer beneath the Go-Back-N engines.
//
// The Port interface is the single suspension point of each endpoint: Send
// hands a datagram to the network and Receive blocks for the next one, with
// an optional timeout that doubles as the sender's retransmission timer.
//
// Implementations:
//
//   - UDPPort: a real UDP socket (net.PacketConn) with read deadlines.
//   - MemPort: an in-memory, in-order pair for deterministic tests.
//
// Decorators compose over any Port:
//
//   - LossyPort drops outgoing datagrams with a configured probability. A
//     dropped send still reports success, so engines handle simulated loss
//     and real network loss the same way.
//   - DelayPort sleeps a random duration after each received datagram.
//
// Example:
//
//	udp, err := transport.NewUDPPort(":0")
//	if err != nil {
//	    return err
//	}
//	port, err := transport.NewLossyPort(udp, 0.1, nil)
//	if err != nil {
//	    return err
//	}
//	defer port.Close()
//
// Receive reports ErrTimeout when the timeout expires and ErrClosed once the
// port has been closed. Other socket failures are wrapped with
// github.com/pkg/errors and should be treated as fatal.
package transport
