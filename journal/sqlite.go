package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordExecution(e Execution) error {
	_, err := j.db.Exec(`
		INSERT INTO executions
		(id, token, user, symbol, side, shares, price, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Token, e.User, e.Symbol, e.Side, e.Shares, e.Price, e.Time,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
