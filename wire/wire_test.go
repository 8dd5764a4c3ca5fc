package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	t.Parallel()

	d := Envelope("01HZX3", "qAAPL")
	token, payload, err := Split(d)
	require.NoError(t, err)
	assert.Equal(t, "01HZX3", token)
	assert.Equal(t, "qAAPL", payload)
}

func TestSplitNoSeparator(t *testing.T) {
	t.Parallel()

	_, _, err := Split("no separator here")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestSplitPayloadMayContainColons(t *testing.T) {
	t.Parallel()

	token, payload, err := Split("tok:a:b:c")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "a:b:c", payload)
}

func TestParseCredentials(t *testing.T) {
	t.Parallel()

	c, err := ParseCredentials("alice,Khvw123")
	require.NoError(t, err)
	assert.Equal(t, Credentials{User: "alice", Secret: "Khvw123"}, c)

	_, err = ParseCredentials("nosecret")
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestParseTradeRequest(t *testing.T) {
	t.Parallel()

	r, err := ParseTradeRequest("AAPL,10")
	require.NoError(t, err)
	assert.Equal(t, TradeRequest{Symbol: "AAPL", Shares: 10}, r)

	for _, bad := range []string{"AAPL", "AAPL,", "AAPL,abc", "AAPL,0", "AAPL,-3", ",5"} {
		_, err := ParseTradeRequest(bad)
		assert.ErrorIs(t, err, ErrBadPayload, "payload %q", bad)
	}
}

func TestBuyOrderRoundTrip(t *testing.T) {
	t.Parallel()

	o := BuyOrder{User: "alice", Symbol: "AAPL", Shares: 5, Price: 132.5}
	assert.Equal(t, "balice|AAPL,5_132.5", o.Encode())

	parsed, err := ParseBuyOrder(o.Encode())
	require.NoError(t, err)
	assert.Equal(t, o, parsed)
}

func TestSellCheckRoundTrip(t *testing.T) {
	t.Parallel()

	c := SellCheck{User: "bob", Symbol: "TSLA", Shares: 3}
	assert.Equal(t, "sbob|TSLA,3", c.Encode())

	parsed, err := ParseSellCheck(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c, parsed)
}

func TestBatchQuoteAndAdvance(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pAAPL TSLA", EncodeBatchQuote([]string{"AAPL", "TSLA"}))
	assert.Equal(t, "+AAPL", EncodeAdvance("AAPL"))
	assert.Equal(t, "palice", EncodePortfolioRequest("alice"))
}

func TestQuoteRoundTrip(t *testing.T) {
	t.Parallel()

	q := Quote{Symbol: "AAPL", Price: 117.3}
	parsed, err := ParseQuote(q.Encode())
	require.NoError(t, err)
	assert.Equal(t, q, parsed)
}

func TestPortfolioRoundTrip(t *testing.T) {
	t.Parallel()

	positions := []Position{
		{Symbol: "AAPL", Shares: 10, AvgPrice: 5},
		{Symbol: "TSLA", Shares: 2, AvgPrice: 20},
	}
	encoded := EncodePortfolio(positions)
	assert.Equal(t, "AAPL 10 5.00\nTSLA 2 20.00\n", encoded)

	parsed, err := ParsePortfolio(encoded)
	require.NoError(t, err)
	assert.Equal(t, positions, parsed)
}

func TestParsePortfolioEmpty(t *testing.T) {
	t.Parallel()

	parsed, err := ParsePortfolio("")
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

func TestParsePriceList(t *testing.T) {
	t.Parallel()

	prices, err := ParsePriceList("7 15.25 ")
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 15.25}, prices)

	_, err = ParsePriceList("7 abc")
	assert.ErrorIs(t, err, ErrBadPayload)
}
