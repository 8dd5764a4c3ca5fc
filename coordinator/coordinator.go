// Package coordinator accepts client trading sessions over TCP and drives
// each session's workflows (authenticate, quote, buy, sell, position) by
// delegating to the auth, quote and ledger backend services.
//
// Every session runs in its own goroutine and owns no shared state; all
// backend traffic from all sessions funnels through one transport.Mux, with
// each session's ULID token keeping the interleaved responses apart.
//
// The client protocol is line-oriented: a request is a single line, a
// response is a block of one or more lines terminated by a blank line.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/marketsim/stocksim/pkg/id"
	"github.com/marketsim/stocksim/transport"
)

// Backends holds the resolved addresses of the three backend services.
type Backends struct {
	Auth   *net.UDPAddr
	Quote  *net.UDPAddr
	Ledger *net.UDPAddr
}

// ResolveBackends resolves the three backend "host:port" strings.
func ResolveBackends(auth, quote, ledger string) (Backends, error) {
	var b Backends
	var err error
	if b.Auth, err = net.ResolveUDPAddr("udp", auth); err != nil {
		return Backends{}, fmt.Errorf("resolve auth address: %w", err)
	}
	if b.Quote, err = net.ResolveUDPAddr("udp", quote); err != nil {
		return Backends{}, fmt.Errorf("resolve quote address: %w", err)
	}
	if b.Ledger, err = net.ResolveUDPAddr("udp", ledger); err != nil {
		return Backends{}, fmt.Errorf("resolve ledger address: %w", err)
	}
	return b, nil
}

type Coordinator struct {
	mux      *transport.Mux
	backends Backends
	log      logrus.FieldLogger
}

func New(mux *transport.Mux, backends Backends, log logrus.FieldLogger) *Coordinator {
	return &Coordinator{mux: mux, backends: backends, log: log}
}

// Serve accepts client connections until the listener is closed. Each
// accepted connection becomes an independent session goroutine; a failing
// session never affects its siblings.
func (c *Coordinator) Serve(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s := newSession(c, conn, id.New())
		go s.run(ctx)
	}
}
