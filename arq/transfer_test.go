package arq

import (
	"context"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/peiranqiu/File-Transfer/file"
	"github.com/peiranqiu/File-Transfer/limits"
	"github.com/peiranqiu/File-Transfer/segment"
	"github.com/peiranqiu/File-Transfer/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dropFirstPort discards the first transmission of the listed sequences.
type dropFirstPort struct {
	transport.Port

	mu      sync.Mutex
	pending map[uint16]bool
}

func dropFirst(inner transport.Port, seqs ...uint16) *dropFirstPort {
	p := &dropFirstPort{Port: inner, pending: make(map[uint16]bool)}
	for _, seq := range seqs {
		p.pending[seq] = true
	}
	return p
}

func (p *dropFirstPort) Send(data []byte, addr net.Addr) error {
	seg, err := segment.Decode(data)
	if err == nil {
		p.mu.Lock()
		drop := p.pending[seg.Sequence]
		delete(p.pending, seg.Sequence)
		p.mu.Unlock()
		if drop {
			return nil
		}
	}
	return p.Port.Send(data, addr)
}

type transferResult struct {
	sender   SenderStats
	receiver ReceiverStats
	output   []byte
}

// runTransfer moves data from senderPort to receiverPort and waits for both ends.
func runTransfer(t *testing.T, senderPort, receiverPort transport.Port, peer net.Addr, data []byte, cfg SenderConfig) transferResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	sink := &memorySink{}
	receiver, err := NewReceiver(receiverPort, sink, ReceiverConfig{Window: cfg.Window})
	require.NoError(t, err)

	sender, err := NewSender(senderPort, peer, BuildSegments(data, cfg.Window), cfg)
	require.NoError(t, err)

	receiverDone := make(chan error, 1)
	go func() { receiverDone <- receiver.Run(ctx) }()

	require.NoError(t, sender.Run(ctx))
	require.NoError(t, <-receiverDone)

	assert.Equal(t, 1, sink.closed)
	return transferResult{sender: sender.Stats(), receiver: receiver.Stats(), output: sink.Bytes()}
}

func TestTransferWithoutLoss(t *testing.T) {
	a, b := transport.NewMemPair("sender", "receiver")
	defer a.Close()
	defer b.Close()

	data := patterned(1500)
	res := runTransfer(t, a, b, b.LocalAddr(), data, DefaultSenderConfig())

	assert.Equal(t, data, res.output)
	assert.Equal(t, uint64(3), res.sender.Transmissions)
	assert.Zero(t, res.sender.Retransmissions)
	assert.Equal(t, uint64(3), res.receiver.Accepted)
	assert.Equal(t, SenderStats{
		Total:         3,
		Sent:          3,
		Ack:           2,
		Transmissions: 3,
		AcksReceived:  3,
	}, res.sender)
}

func TestTransferRecoversLostSegment(t *testing.T) {
	a, b := transport.NewMemPair("sender", "receiver")
	defer a.Close()
	defer b.Close()

	data := patterned(1500)
	cfg := SenderConfig{Window: 4, Timeout: 50 * time.Millisecond}
	res := runTransfer(t, dropFirst(a, 1), b, b.LocalAddr(), data, cfg)

	assert.Equal(t, data, res.output)
	assert.GreaterOrEqual(t, res.sender.Retransmissions, uint64(2), "segments 1 and 2 are resent")
	assert.GreaterOrEqual(t, res.sender.Timeouts, uint64(1))
	assert.GreaterOrEqual(t, res.receiver.Discarded, uint64(1), "segment 2 arrives before segment 1")
	assert.Equal(t, uint64(3), res.receiver.Accepted)
}

func TestTransferUnderRandomLoss(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		window uint8
		seed   int64
	}{
		{"stop and wait", 5000, 1, 1},
		{"window three", 4096, 3, 2},
		{"full window", 20000, 7, 3},
		{"largest file", limits.MaxFileSize, 7, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := transport.NewMemPair("sender", "receiver")
			defer a.Close()
			defer b.Close()

			lossy, err := transport.NewLossyPort(a, 0.3, rand.New(rand.NewSource(tt.seed)))
			require.NoError(t, err)

			data := patterned(tt.size)
			cfg := SenderConfig{Window: tt.window, Timeout: 5 * time.Millisecond}
			res := runTransfer(t, lossy, b, b.LocalAddr(), data, cfg)

			assert.Equal(t, data, res.output)
			assert.Equal(t, uint64(len(BuildSegments(data, tt.window))), res.receiver.Accepted)
			assert.Equal(t, lossy.Dropped()+lossy.Delivered(), res.sender.Transmissions)
		})
	}
}

func TestTransferOverUDP(t *testing.T) {
	receiverPort, err := transport.NewUDPPort("127.0.0.1:0")
	require.NoError(t, err)
	defer receiverPort.Close()

	senderPort, err := transport.NewUDPPort("127.0.0.1:0")
	require.NoError(t, err)
	defer senderPort.Close()

	lossy, err := transport.NewLossyPort(senderPort, 0.1, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	data := patterned(10 * 1024)
	src := filepath.Join(t.TempDir(), "input.bin")
	require.NoError(t, os.WriteFile(src, data, 0o644))
	loaded, err := file.ReadSource(src)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "output.bin")
	sink, err := file.CreateSink(dst)
	require.NoError(t, err)

	receiver, err := NewReceiver(receiverPort, sink, ReceiverConfig{Window: 4})
	require.NoError(t, err)

	cfg := SenderConfig{Window: 4, Timeout: 100 * time.Millisecond}
	sender, err := NewSender(lossy, receiverPort.LocalAddr(), BuildSegments(loaded, cfg.Window), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	receiverDone := make(chan error, 1)
	go func() { receiverDone <- receiver.Run(ctx) }()

	require.NoError(t, sender.Run(ctx))
	require.NoError(t, <-receiverDone)

	written, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, written)
	assert.Equal(t, file.Digest(data), sink.Digest())
}
