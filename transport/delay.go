package transport

import (
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DelayPort decorates a Port and holds every received datagram for a random
// duration in [0, 2*average) before returning it, simulating variable
// processing delay on arrival.
type DelayPort struct {
	Port

	average time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDelayPort wraps inner with receive delay. A nil rng is seeded from the clock.
func NewDelayPort(inner Port, average time.Duration, rng *rand.Rand) *DelayPort {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewDelayPort",
		"average":  average,
	}).Info("Receive delay simulation enabled")

	return &DelayPort{Port: inner, average: average, rng: rng}
}

// Receive waits for a datagram on the wrapped port and then sleeps.
func (p *DelayPort) Receive(buf []byte, timeout time.Duration) (int, net.Addr, error) {
	n, addr, err := p.Port.Receive(buf, timeout)
	if err != nil {
		return n, addr, err
	}

	if d := p.nextDelay(); d > 0 {
		time.Sleep(d)
	}
	return n, addr, nil
}

func (p *DelayPort) nextDelay() time.Duration {
	if p.average <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(p.rng.Int63n(int64(2 * p.average)))
}
