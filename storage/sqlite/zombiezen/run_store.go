package zombiezen

import (
	"context"
	"encoding/json"
	"time"

	"github.com/revelaction/nerbio/storage"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type RunStore struct {
	pool *sqlitex.Pool
}

var _ storage.RunRepository = (*RunStore)(nil)

func NewRunStore(pool *sqlitex.Pool) *RunStore {
	return &RunStore{pool: pool}
}

func (h *RunStore) Runs() ([]storage.Run, error) {
	conn, err := h.pool.Take(context.TODO())
	if err != nil {
		return nil, err
	}
	defer h.pool.Put(conn)

	runs := []storage.Run{}
	err = sqlitex.Execute(conn, `SELECT id, corpus, model, engine, started, seed, epochs, steps, losses, stopped
		FROM runs ORDER BY started, rowid`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			r := storage.Run{
				Id:      stmt.ColumnText(0),
				Corpus:  stmt.ColumnText(1),
				Model:   stmt.ColumnText(2),
				Engine:  stmt.ColumnText(3),
				Seed:    stmt.ColumnInt64(5),
				Epochs:  stmt.ColumnInt(6),
				Steps:   stmt.ColumnInt(7),
				Stopped: stmt.ColumnInt(9) != 0,
			}

			started, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(4))
			if err != nil {
				return err
			}
			r.Started = started

			if err := json.Unmarshal([]byte(stmt.ColumnText(8)), &r.Losses); err != nil {
				return err
			}
			runs = append(runs, r)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	return runs, nil
}

func (h *RunStore) WriteRun(r storage.Run) error {
	conn, err := h.pool.Take(context.TODO())
	if err != nil {
		return err
	}
	defer h.pool.Put(conn)

	losses := r.Losses
	if losses == nil {
		losses = []float64{}
	}
	lossesJSON, err := json.Marshal(losses)
	if err != nil {
		return err
	}

	stopped := 0
	if r.Stopped {
		stopped = 1
	}

	return sqlitex.Execute(conn, `
		INSERT INTO runs (id, corpus, model, engine, started, seed, epochs, steps, losses, stopped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, &sqlitex.ExecOptions{
		Args: []interface{}{
			r.Id, r.Corpus, r.Model, r.Engine,
			r.Started.UTC().Format(time.RFC3339Nano),
			r.Seed, r.Epochs, r.Steps, string(lossesJSON), stopped,
		},
	})
}

// Store is a SQLite file holding both corpora and runs.
type Store struct {
	*CorpusStore
	*RunStore
}

var _ storage.Repository = (*Store)(nil)

func NewStore(pool *sqlitex.Pool) *Store {
	return &Store{CorpusStore: NewCorpusStore(pool), RunStore: NewRunStore(pool)}
}
