package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSVJournal, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "token", "user", "symbol", "side", "shares", "price", "time"}); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{w, f}, nil
}

func (j *CSVJournal) RecordExecution(e Execution) error {
	j.w.Write([]string{
		e.ID,
		e.Token,
		e.User,
		e.Symbol,
		e.Side,
		strconv.Itoa(e.Shares),
		strconv.FormatFloat(e.Price, 'f', -1, 64),
		e.Time.Format(time.RFC3339),
	})
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}
