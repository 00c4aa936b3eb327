package transport

import (
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// UDPPort implements Port over a UDP socket.
type UDPPort struct {
	conn net.PacketConn
}

// NewUDPPort binds a UDP socket on listenAddr. Use ":0" for an ephemeral port.
func NewUDPPort(listenAddr string) (*UDPPort, error) {
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "NewUDPPort",
			"listen_addr": listenAddr,
			"error":       err.Error(),
		}).Error("Failed to bind UDP socket")
		return nil, errors.Wrapf(err, "listen udp %s", listenAddr)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewUDPPort",
		"local_addr": conn.LocalAddr().String(),
	}).Info("UDP port bound")

	return NewUDPPortFromConn(conn), nil
}

// NewUDPPortFromConn wraps an existing packet connection.
func NewUDPPortFromConn(conn net.PacketConn) *UDPPort {
	return &UDPPort{conn: conn}
}

// Send writes one datagram to addr.
func (p *UDPPort) Send(data []byte, addr net.Addr) error {
	if _, err := p.conn.WriteTo(data, addr); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrClosed
		}
		return errors.Wrapf(err, "send to %s", addr)
	}
	return nil
}

// Receive reads one datagram, honouring timeout as a read deadline.
func (p *UDPPort) Receive(buf []byte, timeout time.Duration) (int, net.Addr, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := p.conn.SetReadDeadline(deadline); err != nil {
		return 0, nil, p.handleReadError(err)
	}

	n, addr, err := p.conn.ReadFrom(buf)
	if err != nil {
		return 0, nil, p.handleReadError(err)
	}
	return n, addr, nil
}

// handleReadError maps socket errors onto the port's sentinel errors.
func (p *UDPPort) handleReadError(err error) error {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, net.ErrClosed) {
		return ErrClosed
	}
	return errors.Wrap(err, "receive udp")
}

// LocalAddr returns the bound address.
func (p *UDPPort) LocalAddr() net.Addr {
	return p.conn.LocalAddr()
}

// Close closes the socket.
func (p *UDPPort) Close() error {
	logrus.WithFields(logrus.Fields{
		"function":   "UDPPort.Close",
		"local_addr": p.conn.LocalAddr().String(),
	}).Debug("Closing UDP port")
	return p.conn.Close()
}

// ResolvePeer resolves host and port into a UDP address.
func ResolvePeer(host string, port uint16) (net.Addr, error) {
	address := net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10))
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ResolvePeer",
			"address":  address,
			"error":    err.Error(),
		}).Error("Failed to resolve peer")
		return nil, errors.WithMessagef(ErrUnknownHost, "%s: %v", address, err)
	}
	return addr, nil
}
