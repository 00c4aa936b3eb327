package arq

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"

	pool "github.com/libp2p/go-buffer-pool"
	"github.com/peiranqiu/File-Transfer/limits"
	"github.com/peiranqiu/File-Transfer/segment"
	"github.com/peiranqiu/File-Transfer/transport"
	"github.com/sirupsen/logrus"
)

// SenderState is the sliding window position, owned by the sender's loop.
type SenderState struct {
	// Sent counts segments transmitted at least once.
	Sent int
	// Ack is the index of the highest cumulatively acknowledged segment, -1 for none.
	Ack int
}

// Outstanding returns the number of segments sent but not yet acknowledged.
func (s SenderState) Outstanding() int {
	return s.Sent - (s.Ack + 1)
}

// SenderStats is a snapshot of sender counters.
type SenderStats struct {
	Total           int
	Sent            int
	Ack             int
	Transmissions   uint64
	Retransmissions uint64
	Timeouts        uint64
	AcksReceived    uint64
	AcksIgnored     uint64
}

// Sender drives the Go-Back-N transmit side of one transfer.
type Sender struct {
	port     transport.Port
	peer     net.Addr
	config   SenderConfig
	segments []segment.Segment

	state   SenderState
	retries int

	mu    sync.Mutex
	stats SenderStats
}

// BuildSegments slices data into PayloadSize chunks numbered from zero. The
// last chunk is shorter than PayloadSize; when len(data) is an exact multiple
// an empty terminator segment is appended so the receiver still sees a short
// final segment.
func BuildSegments(data []byte, window uint8) []segment.Segment {
	count := len(data)/limits.PayloadSize + 1
	segments := make([]segment.Segment, 0, count)
	for i := 0; i < count; i++ {
		start := i * limits.PayloadSize
		end := min(start+limits.PayloadSize, len(data))
		segments = append(segments, segment.NewData(window, uint16(i), data[start:end]))
	}
	return segments
}

// NewSender creates a sender that streams segments to peer over port.
func NewSender(port transport.Port, peer net.Addr, segments []segment.Segment, config SenderConfig) (*Sender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	if len(segments) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d", ErrTooManySegments, len(segments))
	}

	s := &Sender{
		port:     port,
		peer:     peer,
		config:   config,
		segments: segments,
		state:    SenderState{Sent: 0, Ack: -1},
	}
	s.stats.Total = len(segments)
	s.stats.Ack = -1
	return s, nil
}

// State returns the current window position. It must only be called from the
// goroutine running Run, or after Run has returned.
func (s *Sender) State() SenderState {
	return s.state
}

// Stats returns a snapshot of the sender counters. Safe for concurrent use.
func (s *Sender) Stats() SenderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Run transmits until every segment is acknowledged, the context is
// cancelled or the transport fails. If the port is closed because ctx was
// cancelled, Run returns ctx.Err().
func (s *Sender) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"function": "Sender.Run",
		"peer":     s.peer.String(),
		"segments": len(s.segments),
		"window":   s.config.Window,
		"timeout":  s.config.Timeout,
	}).Info("Starting transfer")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := s.step()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, transport.ErrClosed) {
				return ctxErr
			}
			return err
		}
		if done {
			stats := s.Stats()
			logrus.WithFields(logrus.Fields{
				"function":        "Sender.Run",
				"segments":        stats.Total,
				"transmissions":   stats.Transmissions,
				"retransmissions": stats.Retransmissions,
				"timeouts":        stats.Timeouts,
			}).Info("All data segments have been acknowledged")
			return nil
		}
	}
}

// step runs one burst followed by one wait for an acknowledgement.
func (s *Sender) step() (bool, error) {
	if err := s.burst(); err != nil {
		return false, err
	}
	return s.await()
}

// burst sends new segments while the window has room.
func (s *Sender) burst() error {
	for s.state.Outstanding() < int(s.config.Window) && s.state.Sent < len(s.segments) {
		if err := s.transmit(s.state.Sent, false); err != nil {
			return err
		}
		s.state.Sent++
		s.publish()
	}
	return nil
}

// await blocks for one acknowledgement and reports whether the transfer is complete.
func (s *Sender) await() (bool, error) {
	buf := pool.Get(segment.MaxSize)
	defer pool.Put(buf)

	n, from, err := s.port.Receive(buf, s.config.Timeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return false, s.onTimeout()
		}
		logrus.WithFields(logrus.Fields{
			"function": "Sender.await",
			"error":    err.Error(),
		}).Error("Receive failed")
		return false, fmt.Errorf("%w: receive: %w", ErrTransport, err)
	}

	ack, err := segment.Decode(buf[:n])
	if err == nil && ack.Kind != segment.KindAck {
		err = fmt.Errorf("unexpected %s segment", ack.Kind)
	}
	if err != nil {
		s.mu.Lock()
		s.stats.AcksIgnored++
		s.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"function": "Sender.await",
			"from":     from.String(),
			"size":     n,
			"error":    err.Error(),
		}).Warn("Ignoring datagram that is not an acknowledgement")
		return false, s.onTimeout()
	}

	return s.onAck(ack), nil
}

// onAck applies one cumulative acknowledgement. The window advances by at
// most one segment per ACK regardless of the value carried.
func (s *Sender) onAck(ack segment.Segment) bool {
	next := int(ack.Sequence)

	s.mu.Lock()
	s.stats.AcksReceived++
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Sender.onAck",
		"ack":      next,
	}).Debug("ACK received")

	if next == s.state.Ack+2 && next-1 < s.state.Sent {
		s.state.Ack++
		s.retries = 0
		s.publish()

		logrus.WithFields(logrus.Fields{
			"function": "Sender.onAck",
			"segment":  s.state.Ack,
		}).Debug("Segment acknowledged")
	}

	return next == len(s.segments)
}

// onTimeout resends every segment in [ack+1, sent).
func (s *Sender) onTimeout() error {
	s.retries++

	s.mu.Lock()
	s.stats.Timeouts++
	s.mu.Unlock()

	if s.config.MaxRetries > 0 && s.retries > s.config.MaxRetries {
		logrus.WithFields(logrus.Fields{
			"function":    "Sender.onTimeout",
			"ack":         s.state.Ack,
			"sent":        s.state.Sent,
			"max_retries": s.config.MaxRetries,
		}).Error("Giving up after repeated timeouts")
		return fmt.Errorf("%w: %d timeouts at segment %d", ErrRetriesExhausted, s.config.MaxRetries, s.state.Ack+1)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Sender.onTimeout",
		"from":     s.state.Ack + 1,
		"to":       s.state.Sent,
		"attempt":  s.retries,
	}).Debug("Retransmission timeout, resending window")

	for i := s.state.Ack + 1; i < s.state.Sent; i++ {
		if err := s.transmit(i, true); err != nil {
			return err
		}
	}
	return nil
}

// transmit encodes and sends segment index.
func (s *Sender) transmit(index int, resend bool) error {
	if err := s.port.Send(s.segments[index].Encode(), s.peer); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Sender.transmit",
			"segment":  index,
			"resend":   resend,
			"error":    err.Error(),
		}).Error("Send failed")
		return fmt.Errorf("%w: send segment %d: %w", ErrTransport, index, err)
	}

	s.mu.Lock()
	s.stats.Transmissions++
	if resend {
		s.stats.Retransmissions++
	}
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Sender.transmit",
		"segment":  index,
		"length":   s.segments[index].Length,
		"resend":   resend,
	}).Debug("Segment sent")
	return nil
}

// publish mirrors the loop-owned state into the shared stats snapshot.
func (s *Sender) publish() {
	s.mu.Lock()
	s.stats.Sent = s.state.Sent
	s.stats.Ack = s.state.Ack
	s.mu.Unlock()
}
