// Package ledger implements the portfolio backend service. It owns every
// user's holdings and mutates them only for committed buy and sell requests
// relayed by the coordinator.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marketsim/stocksim/journal"
	"github.com/marketsim/stocksim/pkg/id"
	"github.com/marketsim/stocksim/wire"
)

// Holding is one user's position in one symbol. A user's holdings contain
// at most one record per symbol; a record that reaches zero shares is
// removed, never retained.
type Holding struct {
	Symbol   string
	Shares   int
	AvgPrice float64
}

// Service owns the portfolio map. State is only touched from the transport's
// single sequential receive loop, so no locking is required.
//
// Sells are two-phase on the wire: a sufficiency check answers SUFF and
// parks the request keyed by its token; the ledger mutates only when the
// coordinator relays the user's S_CONFIRMED with the same token. Sells by
// other sessions may land between the two phases, so the parked quantity
// is checked again at confirmation time.
type Service struct {
	portfolios   map[string][]Holding
	pendingSells map[string]wire.SellCheck
	journal      journal.Journal
	log          logrus.FieldLogger
}

// NewService builds a service over the loaded portfolios. The journal may be
// nil, in which case executions are not recorded.
func NewService(portfolios map[string][]Holding, j journal.Journal, log logrus.FieldLogger) *Service {
	if portfolios == nil {
		portfolios = make(map[string][]Holding)
	}
	return &Service{
		portfolios:   portfolios,
		pendingSells: make(map[string]wire.SellCheck),
		journal:      j,
		log:          log,
	}
}

// CheckHolding reports whether the user holds at least shares of symbol.
// A missing record counts as insufficient.
func (s *Service) CheckHolding(user, symbol string, shares int) bool {
	for _, h := range s.portfolios[user] {
		if h.Symbol == symbol {
			return h.Shares >= shares
		}
	}
	return false
}

// ApplyBuy inserts a new holding or folds the purchase into an existing one,
// recomputing the average cost as a share-weighted blend.
func (s *Service) ApplyBuy(user, symbol string, shares int, price float64) {
	holdings := s.portfolios[user]
	for i := range holdings {
		if holdings[i].Symbol == symbol {
			prevCost := float64(holdings[i].Shares) * holdings[i].AvgPrice
			holdings[i].Shares += shares
			holdings[i].AvgPrice = (prevCost + float64(shares)*price) / float64(holdings[i].Shares)
			return
		}
	}
	s.portfolios[user] = append(holdings, Holding{Symbol: symbol, Shares: shares, AvgPrice: price})
}

// ApplySell decrements the holding, removing it entirely at exactly zero.
// The average cost is unchanged by a partial sell. Sufficiency was already
// confirmed before this call, so it is not re-validated.
func (s *Service) ApplySell(user, symbol string, shares int) {
	holdings := s.portfolios[user]
	for i := range holdings {
		if holdings[i].Symbol == symbol {
			holdings[i].Shares -= shares
			if holdings[i].Shares == 0 {
				s.portfolios[user] = append(holdings[:i], holdings[i+1:]...)
			}
			return
		}
	}
}

// Portfolio returns the user's holdings in insertion order.
func (s *Service) Portfolio(user string) []Holding {
	holdings := s.portfolios[user]
	out := make([]Holding, len(holdings))
	copy(out, holdings)
	return out
}

// Handle dispatches one request. The returned bool reports whether a
// response should be sent.
func (s *Service) Handle(token, payload string) (string, bool) {
	switch {
	case payload == wire.SellConfirmed:
		return s.handleSellConfirmed(token)

	case payload == wire.SellDenied:
		if _, ok := s.pendingSells[token]; ok {
			delete(s.pendingSells, token)
			s.log.WithField("token", token).Info("sell denied by user")
		}
		return "", false

	case strings.HasPrefix(payload, "b"):
		return s.handleBuy(token, payload)

	case strings.HasPrefix(payload, "s"):
		return s.handleSellCheck(token, payload)

	case strings.HasPrefix(payload, "p"):
		user := payload[1:]
		s.log.WithField("user", user).Info("position request")
		positions := make([]wire.Position, 0, len(s.portfolios[user]))
		for _, h := range s.portfolios[user] {
			positions = append(positions, wire.Position{Symbol: h.Symbol, Shares: h.Shares, AvgPrice: h.AvgPrice})
		}
		return wire.EncodePortfolio(positions), true

	default:
		s.log.WithField("token", token).Warn("unrecognized ledger request")
		return "", false
	}
}

func (s *Service) handleBuy(token, payload string) (string, bool) {
	order, err := wire.ParseBuyOrder(payload)
	if err != nil {
		s.log.WithField("token", token).WithError(err).Warn("malformed buy order")
		return wire.StatusFailure, true
	}

	s.ApplyBuy(order.User, order.Symbol, order.Shares, order.Price)
	s.record(journal.Execution{
		Token:  token,
		User:   order.User,
		Symbol: order.Symbol,
		Side:   journal.SideBuy,
		Shares: order.Shares,
		Price:  order.Price,
	})
	s.log.WithFields(logrus.Fields{
		"user":   order.User,
		"symbol": order.Symbol,
		"shares": order.Shares,
	}).Info("purchase applied")
	return wire.StatusSuccess, true
}

func (s *Service) handleSellCheck(token, payload string) (string, bool) {
	check, err := wire.ParseSellCheck(payload)
	if err != nil {
		s.log.WithField("token", token).WithError(err).Warn("malformed sell check")
		return wire.StatusNotSufficient, true
	}

	if !s.CheckHolding(check.User, check.Symbol, check.Shares) {
		s.log.WithFields(logrus.Fields{
			"user":   check.User,
			"symbol": check.Symbol,
			"shares": check.Shares,
		}).Info("insufficient shares")
		return wire.StatusNotSufficient, true
	}

	s.pendingSells[token] = check
	s.log.WithFields(logrus.Fields{
		"user":   check.User,
		"symbol": check.Symbol,
	}).Info("sufficient shares, awaiting user confirmation")
	return wire.StatusSufficient, true
}

func (s *Service) handleSellConfirmed(token string) (string, bool) {
	check, ok := s.pendingSells[token]
	if !ok {
		s.log.WithField("token", token).Warn("sell confirmation without pending check")
		return wire.StatusFailure, true
	}
	delete(s.pendingSells, token)

	// Other sessions' requests may have run between the sufficiency check
	// and this confirmation, so the parked quantity must be re-validated
	// before it is applied. A holding can never go negative.
	if !s.CheckHolding(check.User, check.Symbol, check.Shares) {
		s.log.WithFields(logrus.Fields{
			"user":   check.User,
			"symbol": check.Symbol,
			"shares": check.Shares,
		}).Info("pending sell no longer covered")
		return wire.StatusFailure, true
	}

	costBasis := s.avgPrice(check.User, check.Symbol)
	s.ApplySell(check.User, check.Symbol, check.Shares)
	s.record(journal.Execution{
		Token:  token,
		User:   check.User,
		Symbol: check.Symbol,
		Side:   journal.SideSell,
		Shares: check.Shares,
		Price:  costBasis,
	})
	s.log.WithFields(logrus.Fields{
		"user":   check.User,
		"symbol": check.Symbol,
		"shares": check.Shares,
	}).Info("sale applied")
	return wire.StatusSuccess, true
}

func (s *Service) avgPrice(user, symbol string) float64 {
	for _, h := range s.portfolios[user] {
		if h.Symbol == symbol {
			return h.AvgPrice
		}
	}
	return 0
}

func (s *Service) record(e journal.Execution) {
	if s.journal == nil {
		return
	}
	e.ID = id.New()
	e.Time = time.Now().UTC()
	if err := s.journal.RecordExecution(e); err != nil {
		s.log.WithError(err).Warn("journal write failed")
	}
}

// LoadPortfolios reads a portfolio file. A line with a single word starts a
// user's section; each following "<symbol> <shares> <avg>" line adds a
// holding to that user.
func LoadPortfolios(path string) (map[string][]Holding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open portfolios file: %w", err)
	}
	defer f.Close()

	portfolios := make(map[string][]Holding)
	var user string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		switch len(fields) {
		case 0:
			continue
		case 1:
			user = fields[0]
			if _, ok := portfolios[user]; !ok {
				portfolios[user] = nil
			}
		case 3:
			if user == "" {
				return nil, fmt.Errorf("portfolios file: holding %q before any user", fields[0])
			}
			shares, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("portfolios file: bad share count %q", fields[1])
			}
			avg, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("portfolios file: bad average price %q", fields[2])
			}
			portfolios[user] = append(portfolios[user], Holding{Symbol: fields[0], Shares: shares, AvgPrice: avg})
		default:
			return nil, fmt.Errorf("portfolios file: malformed line %q", scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read portfolios file: %w", err)
	}
	return portfolios, nil
}
