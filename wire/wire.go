// Package wire defines the datagram envelope and payload formats spoken
// between the coordinator and the three backend services. Every message is a
// single ASCII datagram of the form <token>:<payload>; the token never
// contains ':' and ties a response back to the session that issued the
// request.
package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Status and control payloads.
const (
	StatusSuccess = "s"
	StatusFailure = "f"

	StatusNotExist      = "NOT_EXIST"
	StatusSufficient    = "SUFF"
	StatusNotSufficient = "NOT_SUFF"

	SellConfirmed = "S_CONFIRMED"
	SellDenied    = "S_DENIED"

	// AllStock asks the quote service for every symbol it knows.
	AllStock = "All_Stock"
)

var (
	ErrNoToken    = errors.New("wire: datagram has no token separator")
	ErrBadPayload = errors.New("wire: malformed payload")
)

// Envelope joins a correlation token and a payload into one datagram.
func Envelope(token, payload string) string {
	return token + ":" + payload
}

// Split separates a datagram into its token and payload.
func Split(datagram string) (token, payload string, err error) {
	i := strings.IndexByte(datagram, ':')
	if i < 0 {
		return "", "", ErrNoToken
	}
	return datagram[:i], datagram[i+1:], nil
}

// Credentials is a username/secret pair as sent by the client and forwarded
// to the auth service ("<user>,<secret>").
type Credentials struct {
	User   string
	Secret string
}

func (c Credentials) Encode() string {
	return c.User + "," + c.Secret
}

func ParseCredentials(payload string) (Credentials, error) {
	i := strings.IndexByte(payload, ',')
	if i < 0 {
		return Credentials{}, fmt.Errorf("%w: credentials %q", ErrBadPayload, payload)
	}
	return Credentials{User: payload[:i], Secret: payload[i+1:]}, nil
}

// TradeRequest is the symbol/share pair a client supplies with a buy or sell
// command ("<symbol>,<shares>").
type TradeRequest struct {
	Symbol string
	Shares int
}

func ParseTradeRequest(payload string) (TradeRequest, error) {
	i := strings.IndexByte(payload, ',')
	if i < 0 {
		return TradeRequest{}, fmt.Errorf("%w: trade request %q", ErrBadPayload, payload)
	}
	shares, err := strconv.Atoi(payload[i+1:])
	if err != nil || shares <= 0 || payload[:i] == "" {
		return TradeRequest{}, fmt.Errorf("%w: trade request %q", ErrBadPayload, payload)
	}
	return TradeRequest{Symbol: payload[:i], Shares: shares}, nil
}

// BuyOrder is the committed purchase the coordinator forwards to the ledger
// service ("b<user>|<symbol>,<shares>_<price>").
type BuyOrder struct {
	User   string
	Symbol string
	Shares int
	Price  float64
}

func (o BuyOrder) Encode() string {
	return "b" + o.User + "|" + o.Symbol + "," + strconv.Itoa(o.Shares) + "_" + FormatPrice(o.Price)
}

func ParseBuyOrder(payload string) (BuyOrder, error) {
	body, ok := strings.CutPrefix(payload, "b")
	if !ok {
		return BuyOrder{}, fmt.Errorf("%w: buy order %q", ErrBadPayload, payload)
	}
	user, rest, ok := strings.Cut(body, "|")
	if !ok {
		return BuyOrder{}, fmt.Errorf("%w: buy order %q", ErrBadPayload, payload)
	}
	sym, rest, ok := strings.Cut(rest, ",")
	if !ok {
		return BuyOrder{}, fmt.Errorf("%w: buy order %q", ErrBadPayload, payload)
	}
	sharesStr, priceStr, ok := strings.Cut(rest, "_")
	if !ok {
		return BuyOrder{}, fmt.Errorf("%w: buy order %q", ErrBadPayload, payload)
	}
	shares, err := strconv.Atoi(sharesStr)
	if err != nil {
		return BuyOrder{}, fmt.Errorf("%w: buy shares %q", ErrBadPayload, sharesStr)
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return BuyOrder{}, fmt.Errorf("%w: buy price %q", ErrBadPayload, priceStr)
	}
	return BuyOrder{User: user, Symbol: sym, Shares: shares, Price: price}, nil
}

// SellCheck asks the ledger service whether a user holds enough shares to
// sell ("s<user>|<symbol>,<shares>").
type SellCheck struct {
	User   string
	Symbol string
	Shares int
}

func (c SellCheck) Encode() string {
	return "s" + c.User + "|" + c.Symbol + "," + strconv.Itoa(c.Shares)
}

func ParseSellCheck(payload string) (SellCheck, error) {
	body, ok := strings.CutPrefix(payload, "s")
	if !ok {
		return SellCheck{}, fmt.Errorf("%w: sell check %q", ErrBadPayload, payload)
	}
	user, rest, ok := strings.Cut(body, "|")
	if !ok {
		return SellCheck{}, fmt.Errorf("%w: sell check %q", ErrBadPayload, payload)
	}
	sym, sharesStr, ok := strings.Cut(rest, ",")
	if !ok {
		return SellCheck{}, fmt.Errorf("%w: sell check %q", ErrBadPayload, payload)
	}
	shares, err := strconv.Atoi(sharesStr)
	if err != nil {
		return SellCheck{}, fmt.Errorf("%w: sell shares %q", ErrBadPayload, sharesStr)
	}
	return SellCheck{User: user, Symbol: sym, Shares: shares}, nil
}

// EncodeAdvance builds the fire-and-forget cursor advance for a symbol.
func EncodeAdvance(symbol string) string {
	return "+" + symbol
}

// EncodeBatchQuote asks the quote service for the current prices of the
// given symbols, in order ("p<sym> <sym> ...").
func EncodeBatchQuote(symbols []string) string {
	return "p" + strings.Join(symbols, " ")
}

// EncodePortfolioRequest asks the ledger service for a user's holdings.
func EncodePortfolioRequest(user string) string {
	return "p" + user
}

// Quote is a single symbol/price pair as returned by the quote service
// ("<symbol> <price>").
type Quote struct {
	Symbol string
	Price  float64
}

func (q Quote) Encode() string {
	return q.Symbol + " " + FormatPrice(q.Price)
}

func ParseQuote(payload string) (Quote, error) {
	symStr, priceStr, ok := strings.Cut(payload, " ")
	if !ok {
		return Quote{}, fmt.Errorf("%w: quote %q", ErrBadPayload, payload)
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: quote price %q", ErrBadPayload, priceStr)
	}
	return Quote{Symbol: symStr, Price: price}, nil
}

// Position is one line of a portfolio response ("<symbol> <shares> <avg>").
type Position struct {
	Symbol   string
	Shares   int
	AvgPrice float64
}

// EncodePortfolio renders positions one per line, average price with two
// decimals.
func EncodePortfolio(positions []Position) string {
	var b strings.Builder
	for _, p := range positions {
		fmt.Fprintf(&b, "%s %d %.2f\n", p.Symbol, p.Shares, p.AvgPrice)
	}
	return b.String()
}

func ParsePortfolio(payload string) ([]Position, error) {
	var positions []Position
	for _, line := range strings.Split(payload, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: portfolio line %q", ErrBadPayload, line)
		}
		shares, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: portfolio shares %q", ErrBadPayload, fields[1])
		}
		avg, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: portfolio price %q", ErrBadPayload, fields[2])
		}
		positions = append(positions, Position{Symbol: fields[0], Shares: shares, AvgPrice: avg})
	}
	return positions, nil
}

// ParsePriceList reads the space-separated prices a batch quote returns.
func ParsePriceList(payload string) ([]float64, error) {
	fields := strings.Fields(payload)
	prices := make([]float64, 0, len(fields))
	for _, f := range fields {
		p, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: price %q", ErrBadPayload, f)
		}
		prices = append(prices, p)
	}
	return prices, nil
}

// FormatPrice renders a price without trailing zero noise.
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
