package transport

import (
	"errors"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/marketsim/stocksim/wire"
)

// Handler processes one backend request. The returned bool reports whether
// resp should be sent back to the requester; fire-and-forget requests
// return false.
type Handler func(token, payload string) (resp string, send bool)

// Server runs a backend service's single sequential receive loop. Requests
// are handled one at a time, which is what lets the services keep their
// domain maps lock-free.
type Server struct {
	conn *net.UDPConn
	log  logrus.FieldLogger
}

// ListenUDP binds the backend's socket on addr ("host:port").
func ListenUDP(addr string, log logrus.FieldLogger) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve server address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("bind server socket: %w", err)
	}
	return &Server{conn: conn, log: log}, nil
}

// LocalAddr returns the socket address the server is bound to.
func (s *Server) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Serve receives and handles datagrams until the socket is closed. A
// malformed datagram is logged and skipped; the service never dies on bad
// input from one session.
func (s *Server) Serve(handler Handler) error {
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if isClosed(err) {
				return nil
			}
			return fmt.Errorf("server read: %w", err)
		}

		token, payload, err := wire.Split(string(buf[:n]))
		if err != nil {
			s.log.Warn("datagram without token, dropped")
			continue
		}

		resp, send := handler(token, payload)
		if !send {
			continue
		}
		if _, err := s.conn.WriteToUDP([]byte(wire.Envelope(token, resp)), from); err != nil {
			s.log.WithError(err).Warn("response send failed")
		}
	}
}

// Close shuts the server socket down, unblocking Serve.
func (s *Server) Close() error {
	return s.conn.Close()
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
