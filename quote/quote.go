// Package quote implements the price-reporting backend service. Each symbol
// carries a fixed track of ten historical prices and a cursor selecting the
// current one; the cursor steps forward once per completed buy or sell
// workflow, whether or not the trade was approved.
package quote

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/marketsim/stocksim/wire"
)

// TrackLen is the number of historical prices per symbol.
const TrackLen = 10

type track struct {
	prices [TrackLen]float64
	cursor int
}

// Service owns the price tracks. State is only touched from the transport's
// single sequential receive loop, so no locking is required.
type Service struct {
	tracks  map[string]*track
	symbols []string // sorted, for stable quote-all output
	log     logrus.FieldLogger
}

// NewService builds a service from symbol price tracks. Every track must
// contain exactly TrackLen prices; cursors start at zero.
func NewService(prices map[string][]float64, log logrus.FieldLogger) (*Service, error) {
	s := &Service{tracks: make(map[string]*track, len(prices)), log: log}
	for sym, ps := range prices {
		if len(ps) != TrackLen {
			return nil, fmt.Errorf("symbol %s: expected %d prices, got %d", sym, TrackLen, len(ps))
		}
		tr := &track{}
		copy(tr.prices[:], ps)
		s.tracks[sym] = tr
		s.symbols = append(s.symbols, sym)
	}
	sort.Strings(s.symbols)
	return s, nil
}

// Quote returns the price at the symbol's current cursor.
func (s *Service) Quote(symbol string) (float64, bool) {
	tr, ok := s.tracks[symbol]
	if !ok {
		return 0, false
	}
	return tr.prices[tr.cursor], true
}

// QuoteAll returns the current price of every symbol, sorted by symbol.
func (s *Service) QuoteAll() []wire.Quote {
	quotes := make([]wire.Quote, 0, len(s.symbols))
	for _, sym := range s.symbols {
		tr := s.tracks[sym]
		quotes = append(quotes, wire.Quote{Symbol: sym, Price: tr.prices[tr.cursor]})
	}
	return quotes
}

// QuoteMany returns current prices in the order the symbols were given.
// Callers are expected to only pass known symbols (portfolio valuation);
// an unknown symbol yields a zero price rather than an error.
func (s *Service) QuoteMany(symbols []string) []float64 {
	prices := make([]float64, 0, len(symbols))
	for _, sym := range symbols {
		p, _ := s.Quote(sym)
		prices = append(prices, p)
	}
	return prices
}

// Advance steps the symbol's cursor forward by one, wrapping after the last
// historical price. It reports whether the symbol exists.
func (s *Service) Advance(symbol string) bool {
	tr, ok := s.tracks[symbol]
	if !ok {
		return false
	}
	tr.cursor = (tr.cursor + 1) % TrackLen
	return true
}

// Cursor returns the symbol's current cursor position.
func (s *Service) Cursor(symbol string) (int, bool) {
	tr, ok := s.tracks[symbol]
	if !ok {
		return 0, false
	}
	return tr.cursor, true
}

// Handle dispatches one request. The returned bool reports whether a
// response should be sent; cursor advances are fire-and-forget.
func (s *Service) Handle(token, payload string) (string, bool) {
	switch {
	case payload == wire.AllStock:
		s.log.Info("quote request for all stocks")
		var b strings.Builder
		for _, q := range s.QuoteAll() {
			b.WriteString(q.Encode())
			b.WriteByte('\n')
		}
		return b.String(), true

	case strings.HasPrefix(payload, "+"):
		symbol := payload[1:]
		if !s.Advance(symbol) {
			s.log.WithField("symbol", symbol).Warn("time forward request for unknown symbol")
			return "", false
		}
		cursor, _ := s.Cursor(symbol)
		price, _ := s.Quote(symbol)
		s.log.WithFields(logrus.Fields{
			"symbol": symbol,
			"cursor": cursor,
			"price":  price,
		}).Info("time forward")
		return "", false

	case strings.HasPrefix(payload, "p"):
		symbols := strings.Fields(payload[1:])
		prices := s.QuoteMany(symbols)
		parts := make([]string, len(prices))
		for i, p := range prices {
			parts[i] = wire.FormatPrice(p)
		}
		return strings.Join(parts, " "), true

	default:
		symbol := payload
		price, ok := s.Quote(symbol)
		if !ok {
			s.log.WithField("symbol", symbol).Info("quote request for unknown symbol")
			return wire.StatusNotExist, true
		}
		s.log.WithField("symbol", symbol).Info("quote request")
		return wire.Quote{Symbol: symbol, Price: price}.Encode(), true
	}
}

// LoadQuotes reads a price file with one "<symbol> <p0> ... <p9>" line per
// symbol.
func LoadQuotes(path string) (map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quotes file: %w", err)
	}
	defer f.Close()

	quotes := make(map[string][]float64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != TrackLen+1 {
			return nil, fmt.Errorf("quotes file: symbol %s has %d prices, want %d", fields[0], len(fields)-1, TrackLen)
		}
		prices := make([]float64, 0, TrackLen)
		for _, field := range fields[1:] {
			p, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("quotes file: bad price %q for %s", field, fields[0])
			}
			prices = append(prices, p)
		}
		quotes[fields[0]] = prices
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read quotes file: %w", err)
	}
	return quotes, nil
}
