// Package transport carries the request/response traffic between the
// coordinator and the backend services over UDP datagrams.
//
// Every concurrent client session shares the coordinator's one socket, so
// responses for different sessions interleave freely. The Mux demultiplexes
// them with a pending-request table keyed by correlation token: each waiting
// caller parks on a single-slot channel and the one reader goroutine hands
// the matching response across. A response whose token has no waiter is
// logged and dropped; it can only be a duplicate or a stray.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/marketsim/stocksim/wire"
)

// maxDatagram bounds a single backend message (the quote-all response is the
// largest).
const maxDatagram = 8192

var (
	ErrClosed       = errors.New("transport: closed")
	ErrTokenPending = errors.New("transport: token already has an outstanding call")
)

// Mux is the coordinator-side endpoint for all backend traffic.
type Mux struct {
	conn *net.UDPConn
	log  logrus.FieldLogger

	mu      sync.Mutex
	pending map[string]chan string
	done    chan struct{}
	once    sync.Once
}

// NewMux binds a UDP socket on addr ("host:port"; an empty port picks an
// ephemeral one) and starts the reader goroutine.
func NewMux(addr string, log logrus.FieldLogger) (*Mux, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve mux address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("bind mux socket: %w", err)
	}

	m := &Mux{
		conn:    conn,
		log:     log,
		pending: make(map[string]chan string),
		done:    make(chan struct{}),
	}
	go m.readLoop()
	return m, nil
}

// LocalAddr returns the socket address the mux is bound to.
func (m *Mux) LocalAddr() net.Addr {
	return m.conn.LocalAddr()
}

// Call sends token:payload to dest and blocks until the response carrying
// the same token arrives. There is no timeout: a lost datagram stalls the
// calling session forever, by design. The context is only honored for
// session teardown.
//
// A session issues at most one outstanding call per token; a second
// concurrent call with the same token is an error.
func (m *Mux) Call(ctx context.Context, dest *net.UDPAddr, token, payload string) (string, error) {
	slot := make(chan string, 1)

	m.mu.Lock()
	select {
	case <-m.done:
		m.mu.Unlock()
		return "", ErrClosed
	default:
	}
	if _, exists := m.pending[token]; exists {
		m.mu.Unlock()
		return "", ErrTokenPending
	}
	m.pending[token] = slot
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, token)
		m.mu.Unlock()
	}()

	if _, err := m.conn.WriteToUDP([]byte(wire.Envelope(token, payload)), dest); err != nil {
		return "", fmt.Errorf("send to %s: %w", dest, err)
	}

	select {
	case resp := <-slot:
		return resp, nil
	case <-m.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Notify sends token:payload to dest without expecting any response
// (the quote cursor advance).
func (m *Mux) Notify(dest *net.UDPAddr, token, payload string) error {
	if _, err := m.conn.WriteToUDP([]byte(wire.Envelope(token, payload)), dest); err != nil {
		return fmt.Errorf("send to %s: %w", dest, err)
	}
	return nil
}

// Close shuts the socket down and fails every pending call.
func (m *Mux) Close() error {
	var err error
	m.once.Do(func() {
		close(m.done)
		err = m.conn.Close()
	})
	return err
}

func (m *Mux) readLoop() {
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := m.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-m.done:
			default:
				m.log.WithError(err).Error("mux read failed")
				m.Close()
			}
			return
		}

		token, payload, err := wire.Split(string(buf[:n]))
		if err != nil {
			m.log.Warn("datagram without token, dropped")
			continue
		}

		m.mu.Lock()
		slot, ok := m.pending[token]
		m.mu.Unlock()
		if !ok {
			m.log.WithField("token", token).Warn("response with no waiter, dropped")
			continue
		}
		// The slot is buffered and each token has at most one outstanding
		// call, so this never blocks the reader.
		select {
		case slot <- payload:
		default:
			m.log.WithField("token", token).Warn("duplicate response, dropped")
		}
	}
}
