package quote

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/marketsim/stocksim/wire"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func track10(start float64) []float64 {
	ps := make([]float64, TrackLen)
	for i := range ps {
		ps[i] = start + float64(i)
	}
	return ps
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := NewService(map[string][]float64{
		"AAPL": track10(100),
		"TSLA": track10(200),
	}, testLogger())
	require.NoError(t, err)
	return svc
}

func TestNewServiceRejectsShortTrack(t *testing.T) {
	t.Parallel()

	_, err := NewService(map[string][]float64{"AAPL": {1, 2, 3}}, testLogger())
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	p, ok := svc.Quote("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 100.0, p)

	_, ok = svc.Quote("NOPE")
	assert.False(t, ok)
}

func TestAdvanceWraps(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	for i := 1; i <= TrackLen; i++ {
		assert.True(t, svc.Advance("AAPL"))
		cursor, ok := svc.Cursor("AAPL")
		require.True(t, ok)
		assert.Equal(t, i%TrackLen, cursor)
	}

	p, _ := svc.Quote("AAPL")
	assert.Equal(t, 100.0, p, "cursor back at the first price after a full cycle")

	assert.False(t, svc.Advance("NOPE"))
}

func TestQuoteOnlyDoesNotAdvance(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	svc.Handle("tok", "AAPL")
	svc.Handle("tok", wire.AllStock)
	svc.Handle("tok", "pAAPL TSLA")

	cursor, _ := svc.Cursor("AAPL")
	assert.Equal(t, 0, cursor)
}

func TestQuoteMany(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	svc.Advance("TSLA")

	prices := svc.QuoteMany([]string{"TSLA", "AAPL"})
	assert.Equal(t, []float64{201, 100}, prices)
}

func TestHandleSingle(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	resp, send := svc.Handle("tok", "AAPL")
	assert.True(t, send)
	assert.Equal(t, "AAPL 100", resp)

	resp, send = svc.Handle("tok", "NOPE")
	assert.True(t, send)
	assert.Equal(t, wire.StatusNotExist, resp)
}

func TestHandleAllStock(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	resp, send := svc.Handle("tok", wire.AllStock)
	assert.True(t, send)
	assert.Equal(t, "AAPL 100\nTSLA 200\n", resp, "sorted by symbol")
}

func TestHandleAdvanceIsSilent(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	_, send := svc.Handle("tok", "+AAPL")
	assert.False(t, send)

	cursor, _ := svc.Cursor("AAPL")
	assert.Equal(t, 1, cursor)

	_, send = svc.Handle("tok", "+NOPE")
	assert.False(t, send)
}

func TestHandleBatch(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	resp, send := svc.Handle("tok", "pTSLA AAPL")
	assert.True(t, send)
	assert.Equal(t, "200 100", resp)
}

func TestCursorPositionProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		svc, err := NewService(map[string][]float64{"AAPL": track10(1)}, testLogger())
		require.NoError(t, err)

		advances := rapid.IntRange(0, 100).Draw(t, "advances")
		for i := 0; i < advances; i++ {
			svc.Advance("AAPL")
		}

		cursor, ok := svc.Cursor("AAPL")
		require.True(t, ok)
		assert.Equal(t, advances%TrackLen, cursor)

		price, ok := svc.Quote("AAPL")
		require.True(t, ok)
		assert.Equal(t, 1+float64(cursor), price, "current price always matches the cursor")
	})
}

func TestLoadQuotes(t *testing.T) {
	t.Parallel()

	content := "AAPL 1 2 3 4 5 6 7 8 9 10\nTSLA 10 20 30 40 50 60 70 80 90 100\n"
	path := filepath.Join(t.TempDir(), "quotes.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	quotes, err := LoadQuotes(path)
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, quotes["AAPL"])
}

func TestLoadQuotesWrongCount(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quotes.txt")
	require.NoError(t, os.WriteFile(path, []byte("AAPL 1 2 3\n"), 0o644))

	_, err := LoadQuotes(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "AAPL"))
}
