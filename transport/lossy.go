package transport

import (
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LossyPort decorates a Port and silently discards outgoing datagrams with a
// fixed probability. A discarded Send still reports success, exactly like a
// datagram lost on the network.
type LossyPort struct {
	Port

	probability float64

	mu        sync.Mutex
	rng       *rand.Rand
	delivered uint64
	dropped   uint64
}

// NewLossyPort wraps inner with send loss. A nil rng is seeded from the clock.
func NewLossyPort(inner Port, probability float64, rng *rand.Rand) (*LossyPort, error) {
	if probability < 0 || probability > 1 {
		return nil, ErrInvalidProbability
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewLossyPort",
		"probability": probability,
	}).Info("Send loss simulation enabled")

	return &LossyPort{
		Port:        inner,
		probability: probability,
		rng:         rng,
	}, nil
}

// Send forwards data to the wrapped port unless the simulation drops it.
func (p *LossyPort) Send(data []byte, addr net.Addr) error {
	p.mu.Lock()
	drop := p.probability > 0 && p.rng.Float64() < p.probability
	if drop {
		p.dropped++
	} else {
		p.delivered++
	}
	p.mu.Unlock()

	if drop {
		logrus.WithFields(logrus.Fields{
			"function": "LossyPort.Send",
			"size":     len(data),
			"peer":     addr.String(),
		}).Debug("Datagram lost in simulation")
		return nil
	}
	return p.Port.Send(data, addr)
}

// Dropped returns the number of datagrams discarded so far.
func (p *LossyPort) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Delivered returns the number of datagrams handed to the wrapped port.
func (p *LossyPort) Delivered() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delivered
}
