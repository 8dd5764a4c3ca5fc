package journal

import (
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleExecution() Execution {
	return Execution{
		ID:     "01HZX3EXAMPLE",
		Token:  "01HZX3TOKEN",
		User:   "alice",
		Symbol: "AAPL",
		Side:   SideBuy,
		Shares: 5,
		Price:  132.5,
		Time:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name='executions'`)
	require.NoError(t, err)
	defer rows.Close()

	assert.True(t, rows.Next(), "executions table exists")
	assert.NoError(t, rows.Err())
}

func TestSQLiteRecordExecution(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)

	rec := sampleExecution()
	require.NoError(t, j.RecordExecution(rec))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var user, symbol, side string
	var shares int
	var price float64
	err = db.QueryRow(`SELECT user, symbol, side, shares, price FROM executions WHERE id = ?`, rec.ID).
		Scan(&user, &symbol, &side, &shares, &price)
	require.NoError(t, err)
	assert.Equal(t, rec.User, user)
	assert.Equal(t, rec.Symbol, symbol)
	assert.Equal(t, rec.Side, side)
	assert.Equal(t, rec.Shares, shares)
	assert.Equal(t, rec.Price, price)
}

func TestCSVRecordExecution(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "executions.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)

	rec := sampleExecution()
	require.NoError(t, j.RecordExecution(rec))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"id", "token", "user", "symbol", "side", "shares", "price", "time"}, rows[0])
	assert.Equal(t, rec.ID, rows[1][0])
	assert.Equal(t, "buy", rows[1][4])
	assert.Equal(t, "5", rows[1][5])
	assert.Equal(t, "132.5", rows[1][6])
}
