package filesystem

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/revelaction/nerbio/storage"
)

const runDir = "runs"

// RunStore keeps one JSON file per training run under root/runs.
type RunStore struct {
	root string
}

var _ storage.RunRepository = (*RunStore)(nil)

func NewRunStore(root string) *RunStore {
	return &RunStore{root: root}
}

func (rs *RunStore) Runs() ([]storage.Run, error) {
	files, err := os.ReadDir(filepath.Join(rs.root, runDir))
	if os.IsNotExist(err) {
		return []storage.Run{}, nil
	}
	if err != nil {
		return nil, err
	}

	runs := []storage.Run{}
	for _, file := range files {
		if filepath.Ext(file.Name()) != ext {
			continue
		}

		data, err := os.ReadFile(filepath.Join(rs.root, runDir, file.Name()))
		if err != nil {
			return nil, err
		}

		var r storage.Run
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Started.Before(runs[j].Started)
	})
	return runs, nil
}

func (rs *RunStore) WriteRun(r storage.Run) error {
	dir := filepath.Join(rs.root, runDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, r.Id+ext), data, 0644)
}

// Store is a directory holding both corpora and runs.
type Store struct {
	*CorpusStore
	*RunStore
}

var _ storage.Repository = (*Store)(nil)

func NewStore(dir string) (*Store, error) {
	cs, err := NewCorpusStore(dir)
	if err != nil {
		return nil, err
	}
	return &Store{CorpusStore: cs, RunStore: NewRunStore(dir)}, nil
}
