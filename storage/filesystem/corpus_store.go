package filesystem

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sent "github.com/revelaction/nerbio/sentence"
	"github.com/revelaction/nerbio/storage"
)

const ext = ".json"

// CorpusStore keeps one JSON file per corpus in a directory. The file name
// (without extension) is the corpus name; ids follow the sorted file order.
type CorpusStore struct {
	dir string
}

var _ storage.CorpusRepository = (*CorpusStore)(nil)

// NewCorpusStore creates a filesystem corpus store.
func NewCorpusStore(dir string) (*CorpusStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	return &CorpusStore{dir: dir}, nil
}

func (h *CorpusStore) names() ([]string, error) {
	files, err := os.ReadDir(h.dir)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ext {
			continue
		}
		names = append(names, strings.TrimSuffix(file.Name(), ext))
	}

	sort.Strings(names)
	return names, nil
}

func (h *CorpusStore) List(labelMatch string) ([]sent.Corpus, error) {
	names, err := h.names()
	if err != nil {
		return nil, err
	}

	list := []sent.Corpus{}
	for id, name := range names {
		c, err := ReadCorpus(filepath.Join(h.dir, name+ext))
		if err != nil {
			return nil, err
		}

		if labelMatch != "" && !hasLabel(c.Labels, labelMatch) {
			continue
		}

		list = append(list, sent.Corpus{Id: id, Name: name, Labels: c.Labels})
	}

	return list, nil
}

func (h *CorpusStore) Read(id int) (sent.Corpus, error) {
	names, err := h.names()
	if err != nil {
		return sent.Corpus{}, err
	}
	if id < 0 || id >= len(names) {
		return sent.Corpus{}, fmt.Errorf("%w: corpus id %d", storage.ErrNotFound, id)
	}

	c, err := ReadCorpus(filepath.Join(h.dir, names[id]+ext))
	if err != nil {
		return sent.Corpus{}, err
	}
	c.Id = id
	c.Name = names[id]
	return c, nil
}

func (h *CorpusStore) ReadName(name string) (sent.Corpus, error) {
	names, err := h.names()
	if err != nil {
		return sent.Corpus{}, err
	}

	for id, n := range names {
		if n == name {
			return h.Read(id)
		}
	}
	return sent.Corpus{}, fmt.Errorf("%w: corpus %s", storage.ErrNotFound, name)
}

func (h *CorpusStore) Labels(pattern string) ([]string, error) {
	list, err := h.List("")
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for _, c := range list {
		for _, l := range c.Labels {
			if pattern == "" || strings.Contains(l, pattern) {
				seen[l] = struct{}{}
			}
		}
	}

	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels, nil
}

func (h *CorpusStore) Write(c sent.Corpus) error {
	if c.Name == "" || strings.ContainsAny(c.Name, `/\`) {
		return fmt.Errorf("invalid corpus name: %q", c.Name)
	}

	c.Id = 0
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return fmt.Errorf("JSON encoding error: %w", err)
	}

	if err := os.WriteFile(filepath.Join(h.dir, c.Name+ext), data, 0644); err != nil {
		return fmt.Errorf("IO error: %w", err)
	}
	return nil
}

// ReadCorpus reads a Corpus JSON from the given path and unmarshals it.
func ReadCorpus(path string) (sent.Corpus, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return sent.Corpus{}, fmt.Errorf("IO error: %w", err)
	}

	var c sent.Corpus
	err = json.Unmarshal(f, &c)
	if err != nil {
		return sent.Corpus{}, fmt.Errorf("JSON decoding error: %w", err)
	}

	return c, nil
}

func hasLabel(labels []string, match string) bool {
	for _, l := range labels {
		if strings.Contains(l, match) {
			return true
		}
	}
	return false
}
