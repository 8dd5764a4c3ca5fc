package coordinator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/marketsim/stocksim/auth"
	"github.com/marketsim/stocksim/wire"
)

// session is the per-client workflow state machine. It moves from
// authenticating to an idle command loop, runs one workflow at a time, and
// dies with its connection. The token correlates every backend call the
// session ever makes.
type session struct {
	co      *Coordinator
	conn    net.Conn
	scanner *bufio.Scanner
	token   string
	user    string
	log     logrus.FieldLogger
}

func newSession(c *Coordinator, conn net.Conn, token string) *session {
	return &session{
		co:      c,
		conn:    conn,
		scanner: bufio.NewScanner(conn),
		token:   token,
		log:     c.log.WithField("token", token),
	}
}

// run drives the session to completion. Any transport error, client
// disconnect included, ends this session only.
func (s *session) run(ctx context.Context) {
	defer s.conn.Close()
	s.log.Info("session connected")

	if err := s.authenticate(ctx); err != nil {
		s.logExit(err)
		return
	}
	s.logExit(s.commandLoop(ctx))
}

func (s *session) logExit(err error) {
	if err == nil || err == io.EOF {
		s.log.Info("session disconnected")
		return
	}
	s.log.WithError(err).Warn("session terminated")
}

// authenticate loops until the auth service accepts a credential pair. The
// client's secret is ciphered before it ever leaves the coordinator.
func (s *session) authenticate(ctx context.Context) error {
	for {
		line, err := s.readLine()
		if err != nil {
			return err
		}
		creds, err := wire.ParseCredentials(line)
		if err != nil {
			if err := s.send(wire.StatusFailure); err != nil {
				return err
			}
			continue
		}
		s.log.WithField("user", creds.User).Info("received credentials")

		creds.Secret = auth.Encrypt(creds.Secret)
		result, err := s.call(ctx, s.co.backends.Auth, creds.Encode())
		if err != nil {
			return err
		}
		if err := s.send(result); err != nil {
			return err
		}
		if result == wire.StatusSuccess {
			s.user = creds.User
			s.log = s.log.WithField("user", creds.User)
			s.log.Info("member authenticated")
			return nil
		}
	}
}

// commandLoop dispatches one workflow per client request until disconnect.
func (s *session) commandLoop(ctx context.Context) error {
	for {
		line, err := s.readLine()
		if err != nil {
			return err
		}

		switch {
		case line == "exit":
			return nil
		case line == "qALL_STOCK":
			err = s.handleQuote(ctx, wire.AllStock)
		case strings.HasPrefix(line, "q"):
			err = s.handleQuote(ctx, line[1:])
		case strings.HasPrefix(line, "b"):
			err = s.handleBuy(ctx, line[1:])
		case strings.HasPrefix(line, "s"):
			err = s.handleSell(ctx, line[1:])
		case line == "p":
			err = s.handlePosition(ctx)
		default:
			s.log.WithField("request", line).Warn("unrecognized request")
			err = s.send(wire.StatusFailure)
		}
		if err != nil {
			return err
		}
	}
}

// handleQuote relays a single-symbol or all-stock quote verbatim.
func (s *session) handleQuote(ctx context.Context, payload string) error {
	s.log.Info("quote request")
	resp, err := s.call(ctx, s.co.backends.Quote, payload)
	if err != nil {
		return err
	}
	return s.send(resp)
}

// handleBuy runs the multi-step buy workflow: price lookup, user
// confirmation, ledger update, cursor advance. The cursor advances whenever
// the workflow reaches the decision point, approved or not; an unknown
// symbol never reaches it.
func (s *session) handleBuy(ctx context.Context, args string) error {
	req, err := wire.ParseTradeRequest(args)
	if err != nil {
		return s.send(wire.StatusFailure)
	}
	s.log.WithFields(logrus.Fields{"symbol": req.Symbol, "shares": req.Shares}).Info("buy request")

	quoteResp, err := s.call(ctx, s.co.backends.Quote, req.Symbol)
	if err != nil {
		return err
	}
	if quoteResp == wire.StatusNotExist {
		return s.send(quoteResp)
	}
	q, err := wire.ParseQuote(quoteResp)
	if err != nil {
		return fmt.Errorf("quote response: %w", err)
	}

	approved, err := s.confirm(q.Price)
	if err != nil {
		return err
	}
	if approved {
		s.log.Info("buy approved")
		order := wire.BuyOrder{User: s.user, Symbol: req.Symbol, Shares: req.Shares, Price: q.Price}
		ack, err := s.call(ctx, s.co.backends.Ledger, order.Encode())
		if err != nil {
			return err
		}
		if err := s.send(ack); err != nil {
			return err
		}
	} else {
		s.log.Info("buy denied")
	}

	return s.advanceCursor(req.Symbol)
}

// handleSell runs the multi-step sell workflow. The sufficiency check comes
// before the user prompt; the ledger only mutates on a relayed confirmation.
func (s *session) handleSell(ctx context.Context, args string) error {
	req, err := wire.ParseTradeRequest(args)
	if err != nil {
		return s.send(wire.StatusFailure)
	}
	s.log.WithFields(logrus.Fields{"symbol": req.Symbol, "shares": req.Shares}).Info("sell request")

	quoteResp, err := s.call(ctx, s.co.backends.Quote, req.Symbol)
	if err != nil {
		return err
	}
	if quoteResp == wire.StatusNotExist {
		return s.send(quoteResp)
	}
	q, err := wire.ParseQuote(quoteResp)
	if err != nil {
		return fmt.Errorf("quote response: %w", err)
	}

	check := wire.SellCheck{User: s.user, Symbol: req.Symbol, Shares: req.Shares}
	status, err := s.call(ctx, s.co.backends.Ledger, check.Encode())
	if err != nil {
		return err
	}
	if status == wire.StatusNotSufficient {
		if err := s.send(status); err != nil {
			return err
		}
		return s.advanceCursor(req.Symbol)
	}

	approved, err := s.confirm(q.Price)
	if err != nil {
		return err
	}
	if approved {
		s.log.Info("sell approved")
		result, err := s.call(ctx, s.co.backends.Ledger, wire.SellConfirmed)
		if err != nil {
			return err
		}
		if err := s.send(result); err != nil {
			return err
		}
	} else {
		s.log.Info("sell denied")
		if err := s.co.mux.Notify(s.co.backends.Ledger, s.token, wire.SellDenied); err != nil {
			return err
		}
	}

	return s.advanceCursor(req.Symbol)
}

// handlePosition values the user's portfolio at current prices and reports
// the unrealized profit together with the holdings table.
func (s *session) handlePosition(ctx context.Context) error {
	s.log.Info("position request")

	portfolio, err := s.call(ctx, s.co.backends.Ledger, wire.EncodePortfolioRequest(s.user))
	if err != nil {
		return err
	}
	positions, err := wire.ParsePortfolio(portfolio)
	if err != nil {
		return fmt.Errorf("portfolio response: %w", err)
	}

	symbols := make([]string, len(positions))
	for i, p := range positions {
		symbols[i] = p.Symbol
	}
	priceList, err := s.call(ctx, s.co.backends.Quote, wire.EncodeBatchQuote(symbols))
	if err != nil {
		return err
	}
	prices, err := wire.ParsePriceList(priceList)
	if err != nil {
		return fmt.Errorf("price list response: %w", err)
	}
	if len(prices) != len(positions) {
		return fmt.Errorf("price list has %d entries for %d positions", len(prices), len(positions))
	}

	var profit float64
	for i, p := range positions {
		profit += float64(p.Shares) * (prices[i] - p.AvgPrice)
	}

	return s.send(fmt.Sprintf("%.2f|%s", profit, portfolio))
}

// confirm sends the price prompt and reads the client's yes/no decision.
// Anything that does not start with Y counts as a denial.
func (s *session) confirm(price float64) (bool, error) {
	if err := s.send(wire.FormatPrice(price)); err != nil {
		return false, err
	}
	decision, err := s.readLine()
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(decision)), "Y"), nil
}

// advanceCursor fires the one-way time-forward notification for a symbol.
func (s *session) advanceCursor(symbol string) error {
	s.log.WithField("symbol", symbol).Info("time forward")
	return s.co.mux.Notify(s.co.backends.Quote, s.token, wire.EncodeAdvance(symbol))
}

func (s *session) call(ctx context.Context, dest *net.UDPAddr, payload string) (string, error) {
	return s.co.mux.Call(ctx, dest, s.token, payload)
}

func (s *session) readLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

// send writes one response block: the payload's lines followed by a blank
// terminator line.
func (s *session) send(payload string) error {
	if !strings.HasSuffix(payload, "\n") {
		payload += "\n"
	}
	if _, err := io.WriteString(s.conn, payload+"\n"); err != nil {
		return fmt.Errorf("send to client: %w", err)
	}
	return nil
}
