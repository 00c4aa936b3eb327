package arq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	pool "github.com/libp2p/go-buffer-pool"
	"github.com/peiranqiu/File-Transfer/segment"
	"github.com/peiranqiu/File-Transfer/transport"
	"github.com/sirupsen/logrus"
)

// ReceiverState is the receiver's single cursor, owned by its loop.
type ReceiverState struct {
	// Expected is the next sequence the receiver will accept.
	Expected int
	// Terminated is set once the final segment has been written and acknowledged.
	Terminated bool
}

// ReceiverStats is a snapshot of receiver counters.
type ReceiverStats struct {
	Expected  int
	Accepted  uint64
	Discarded uint64
	Ignored   uint64
	Written   int64
}

// Receiver drives the Go-Back-N receive side of one transfer.
type Receiver struct {
	port   transport.Port
	sink   io.WriteCloser
	config ReceiverConfig

	state ReceiverState

	mu    sync.Mutex
	stats ReceiverStats
}

// NewReceiver creates a receiver that appends in-order payloads to sink.
// The sink is closed when the final segment has been written.
func NewReceiver(port transport.Port, sink io.WriteCloser, config ReceiverConfig) (*Receiver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Receiver{
		port:   port,
		sink:   sink,
		config: config,
	}, nil
}

// State returns the receiver cursor. It must only be called from the
// goroutine running Run, or after Run has returned.
func (r *Receiver) State() ReceiverState {
	return r.state
}

// Stats returns a snapshot of the receiver counters. Safe for concurrent use.
func (r *Receiver) Stats() ReceiverStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Run receives until the final segment arrives in order. If the port is
// closed because ctx was cancelled, Run returns ctx.Err().
func (r *Receiver) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"function":   "Receiver.Run",
		"local_addr": r.port.LocalAddr().String(),
		"window":     r.config.Window,
	}).Info("Waiting for data segments")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := r.step()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, transport.ErrClosed) {
				return ctxErr
			}
			return err
		}
		if done {
			stats := r.Stats()
			logrus.WithFields(logrus.Fields{
				"function":  "Receiver.Run",
				"accepted":  stats.Accepted,
				"discarded": stats.Discarded,
				"written":   stats.Written,
			}).Info("All acknowledgement segments have been sent out")
			return nil
		}
	}
}

// step handles one incoming datagram and reports whether the transfer ended.
func (r *Receiver) step() (bool, error) {
	buf := pool.Get(segment.MaxSize)
	defer pool.Put(buf)

	n, from, err := r.port.Receive(buf, 0)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Receiver.step",
			"error":    err.Error(),
		}).Debug("Receive failed")
		return false, fmt.Errorf("%w: receive: %w", ErrTransport, err)
	}

	seg, err := segment.Decode(buf[:n])
	if err == nil && seg.Kind != segment.KindData {
		err = fmt.Errorf("unexpected %s segment", seg.Kind)
	}
	if err != nil {
		r.mu.Lock()
		r.stats.Ignored++
		r.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"function": "Receiver.step",
			"from":     from.String(),
			"size":     n,
			"error":    err.Error(),
		}).Warn("Ignoring datagram that is not a data segment")
		return false, nil
	}

	return r.handle(seg, from)
}

// handle applies the in-order acceptance rule to one data segment.
func (r *Receiver) handle(seg segment.Segment, from net.Addr) (bool, error) {
	if int(seg.Sequence) != r.state.Expected {
		r.mu.Lock()
		r.stats.Discarded++
		r.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"function": "Receiver.handle",
			"expected": r.state.Expected,
			"sequence": seg.Sequence,
		}).Debug("Out of order segment discarded")
		return false, r.acknowledge(r.state.Expected, from)
	}

	if _, err := r.sink.Write(seg.Payload); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Receiver.handle",
			"sequence": seg.Sequence,
			"error":    err.Error(),
		}).Error("Failed to write payload")
		return false, fmt.Errorf("%w: write segment %d: %w", ErrSink, seg.Sequence, err)
	}

	r.mu.Lock()
	r.stats.Accepted++
	r.stats.Written += int64(len(seg.Payload))
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Receiver.handle",
		"sequence": seg.Sequence,
		"length":   seg.Length,
	}).Debug("Segment written")

	if err := r.acknowledge(r.state.Expected+1, from); err != nil {
		return false, err
	}

	if seg.IsFinal() {
		r.state.Terminated = true
		if err := r.sink.Close(); err != nil {
			return false, fmt.Errorf("%w: close: %w", ErrSink, err)
		}
		return true, nil
	}

	r.state.Expected++
	r.mu.Lock()
	r.stats.Expected = r.state.Expected
	r.mu.Unlock()
	return false, nil
}

// acknowledge sends a cumulative ACK carrying next to addr.
func (r *Receiver) acknowledge(next int, addr net.Addr) error {
	ack := segment.NewAck(r.config.Window, uint16(next))
	if err := r.port.Send(ack.Encode(), addr); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Receiver.acknowledge",
			"ack":      next,
			"error":    err.Error(),
		}).Error("Failed to send acknowledgement")
		return fmt.Errorf("%w: send ack %d: %w", ErrTransport, next, err)
	}
	return nil
}
