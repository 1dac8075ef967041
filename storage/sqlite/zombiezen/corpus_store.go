package zombiezen

import (
	"context"
	"encoding/json"
	"fmt"

	sent "github.com/revelaction/nerbio/sentence"
	"github.com/revelaction/nerbio/storage"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type CorpusStore struct {
	pool *sqlitex.Pool
}

var _ storage.CorpusRepository = (*CorpusStore)(nil)

func NewCorpusStore(pool *sqlitex.Pool) *CorpusStore {
	return &CorpusStore{pool: pool}
}

func (h *CorpusStore) List(labelMatch string) ([]sent.Corpus, error) {
	conn, err := h.pool.Take(context.TODO())
	if err != nil {
		return nil, err
	}
	defer h.pool.Put(conn)

	query := "SELECT id, name, labels FROM corpora ORDER BY name"
	var args []interface{}
	if labelMatch != "" {
		query = `SELECT id, name, labels FROM corpora c
			WHERE EXISTS (SELECT 1 FROM corpus_labels l WHERE l.corpus_id = c.id AND instr(l.label, ?) > 0)
			ORDER BY name`
		args = append(args, labelMatch)
	}

	list := []sent.Corpus{}
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			c := sent.Corpus{
				Id:   stmt.ColumnInt(0),
				Name: stmt.ColumnText(1),
			}
			if err := json.Unmarshal([]byte(stmt.ColumnText(2)), &c.Labels); err != nil {
				return err
			}
			list = append(list, c)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (h *CorpusStore) Read(id int) (sent.Corpus, error) {
	return h.read("id = ?", id)
}

func (h *CorpusStore) ReadName(name string) (sent.Corpus, error) {
	return h.read("name = ?", name)
}

func (h *CorpusStore) read(where string, arg interface{}) (sent.Corpus, error) {
	conn, err := h.pool.Take(context.TODO())
	if err != nil {
		return sent.Corpus{}, err
	}
	defer h.pool.Put(conn)

	var c sent.Corpus
	found := false
	err = sqlitex.Execute(conn, "SELECT id, name, labels FROM corpora WHERE "+where+" LIMIT 1", &sqlitex.ExecOptions{
		Args: []interface{}{arg},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			c.Id = stmt.ColumnInt(0)
			c.Name = stmt.ColumnText(1)
			return json.Unmarshal([]byte(stmt.ColumnText(2)), &c.Labels)
		},
	})
	if err != nil {
		return sent.Corpus{}, err
	}
	if !found {
		return sent.Corpus{}, fmt.Errorf("%w: corpus %v", storage.ErrNotFound, arg)
	}

	c.Examples = []sent.Example{}
	err = sqlitex.Execute(conn, "SELECT text, entities FROM examples WHERE corpus_id = ? ORDER BY rowid", &sqlitex.ExecOptions{
		Args: []interface{}{c.Id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			ex := sent.Example{Text: stmt.ColumnText(0)}
			if err := json.Unmarshal([]byte(stmt.ColumnText(1)), &ex.Entities); err != nil {
				return err
			}
			c.Examples = append(c.Examples, ex)
			return nil
		},
	})
	if err != nil {
		return sent.Corpus{}, err
	}

	return c, nil
}

func (h *CorpusStore) Labels(pattern string) ([]string, error) {
	conn, err := h.pool.Take(context.TODO())
	if err != nil {
		return nil, err
	}
	defer h.pool.Put(conn)

	labels := []string{}
	err = sqlitex.Execute(conn, "SELECT DISTINCT label FROM corpus_labels WHERE ? = '' OR instr(label, ?) > 0 ORDER BY label", &sqlitex.ExecOptions{
		Args: []interface{}{pattern, pattern},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			labels = append(labels, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// Write replaces the corpus with the same name, if any.
func (h *CorpusStore) Write(c sent.Corpus) (err error) {
	conn, err := h.pool.Take(context.TODO())
	if err != nil {
		return err
	}
	defer h.pool.Put(conn)

	// Start Transaction
	defer sqlitex.Save(conn)(&err)

	for _, q := range []string{
		"DELETE FROM examples WHERE corpus_id IN (SELECT id FROM corpora WHERE name = ?)",
		"DELETE FROM corpus_labels WHERE corpus_id IN (SELECT id FROM corpora WHERE name = ?)",
		"DELETE FROM corpora WHERE name = ?",
	} {
		err = sqlitex.Execute(conn, q, &sqlitex.ExecOptions{Args: []interface{}{c.Name}})
		if err != nil {
			return fmt.Errorf("failed to replace corpus: %w", err)
		}
	}

	labels := c.Labels
	if labels == nil {
		labels = []string{}
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return err
	}

	err = sqlitex.Execute(conn, "INSERT INTO corpora (name, labels) VALUES (?, ?)", &sqlitex.ExecOptions{
		Args: []interface{}{c.Name, string(labelsJSON)},
	})
	if err != nil {
		return fmt.Errorf("failed to insert corpus: %w", err)
	}
	corpusID := conn.LastInsertRowID()

	for _, label := range labels {
		err = sqlitex.Execute(conn, "INSERT OR IGNORE INTO corpus_labels (corpus_id, label) VALUES (?, ?)", &sqlitex.ExecOptions{
			Args: []interface{}{corpusID, label},
		})
		if err != nil {
			return fmt.Errorf("failed to insert label: %w", err)
		}
	}

	for _, ex := range c.Examples {
		entities := ex.Entities
		if entities == nil {
			entities = []sent.Span{}
		}
		data, marshalErr := json.Marshal(entities)
		if marshalErr != nil {
			return marshalErr
		}

		err = sqlitex.Execute(conn, "INSERT INTO examples (corpus_id, text, entities) VALUES (?, ?, ?)", &sqlitex.ExecOptions{
			Args: []interface{}{corpusID, ex.Text, string(data)},
		})
		if err != nil {
			return fmt.Errorf("failed to insert example: %w", err)
		}
	}

	return nil
}
