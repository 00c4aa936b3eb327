package arq

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/peiranqiu/File-Transfer/segment"
	"github.com/peiranqiu/File-Transfer/transport"
)

const (
	testIP   = "127.0.0.1"
	testPort = 40000
)

var (
	peerAddr   = &net.UDPAddr{IP: net.ParseIP(testIP), Port: testPort}
	senderAddr = &net.UDPAddr{IP: net.ParseIP(testIP), Port: testPort + 1}
)

// scriptEvent is one scripted result of Receive.
type scriptEvent struct {
	data []byte
	from net.Addr
	err  error
}

func ackEvent(next uint16) scriptEvent {
	return scriptEvent{data: segment.NewAck(4, next).Encode(), from: peerAddr}
}

func dataEvent(seg segment.Segment) scriptEvent {
	return scriptEvent{data: seg.Encode(), from: senderAddr}
}

func rawEvent(data []byte) scriptEvent {
	return scriptEvent{data: data, from: peerAddr}
}

func timeoutEvent() scriptEvent {
	return scriptEvent{err: transport.ErrTimeout}
}

type sentDatagram struct {
	data []byte
	addr net.Addr
}

// scriptedPort implements transport.Port for testing. Receive replays events
// in order and returns transport.ErrClosed once they run out.
type scriptedPort struct {
	mu       sync.Mutex
	events   []scriptEvent
	sent     []sentDatagram
	sendErr  error
	timeouts []time.Duration
}

func newScriptedPort(events ...scriptEvent) *scriptedPort {
	return &scriptedPort{events: events}
}

func (p *scriptedPort) Send(data []byte, addr net.Addr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, sentDatagram{data: append([]byte(nil), data...), addr: addr})
	return nil
}

func (p *scriptedPort) Receive(buf []byte, timeout time.Duration) (int, net.Addr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeouts = append(p.timeouts, timeout)
	if len(p.events) == 0 {
		return 0, nil, transport.ErrClosed
	}
	ev := p.events[0]
	p.events = p.events[1:]
	if ev.err != nil {
		return 0, nil, ev.err
	}
	return copy(buf, ev.data), ev.from, nil
}

func (p *scriptedPort) LocalAddr() net.Addr {
	return senderAddr
}

func (p *scriptedPort) Close() error {
	return nil
}

// sentSegments decodes everything sent so far.
func (p *scriptedPort) sentSegments() []segment.Segment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]segment.Segment, 0, len(p.sent))
	for _, d := range p.sent {
		seg, err := segment.Decode(d.data)
		if err != nil {
			panic(err)
		}
		out = append(out, seg)
	}
	return out
}

func (p *scriptedPort) sentSequences() []int {
	var seqs []int
	for _, seg := range p.sentSegments() {
		seqs = append(seqs, int(seg.Sequence))
	}
	return seqs
}

func (p *scriptedPort) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
}

// memorySink implements io.WriteCloser over a buffer.
type memorySink struct {
	bytes.Buffer
	closed   int
	writeErr error
	closeErr error
}

func (s *memorySink) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	if s.closed > 0 {
		return 0, errors.New("write after close")
	}
	return s.Buffer.Write(p)
}

func (s *memorySink) Close() error {
	s.closed++
	return s.closeErr
}

// patterned returns n deterministic, non-repeating-per-block bytes.
func patterned(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i/512)
	}
	return data
}
