package storage

import (
	"errors"
	"time"

	sent "github.com/revelaction/nerbio/sentence"
)

var ErrNotFound = errors.New("not found")

// CorpusReader defines read operations for corpus storage
type CorpusReader interface {
	// List returns the metadata (Id, Name, Labels) of corpora.
	// If labelMatch is not empty, only corpora with at least one label containing the string are returned.
	// Content (Examples) is not loaded.
	List(labelMatch string) ([]sent.Corpus, error)

	// Read returns a corpus by ID
	Read(id int) (sent.Corpus, error)

	// ReadName returns a corpus by name
	ReadName(name string) (sent.Corpus, error)

	// Labels returns all unique labels found across all corpora, sorted alphabetically.
	// If pattern is not empty, it returns labels that contain the pattern.
	Labels(pattern string) ([]string, error)
}

// CorpusWriter defines write operations for corpus storage
type CorpusWriter interface {
	// Write persists a corpus and its examples, replacing one with the same name
	Write(c sent.Corpus) error
}

// CorpusRepository combines read and write operations
type CorpusRepository interface {
	CorpusReader
	CorpusWriter
}

// Run is the record of a finished training run.
type Run struct {
	Id      string    `json:"id"`
	Corpus  string    `json:"corpus"`
	Model   string    `json:"model"`
	Engine  string    `json:"engine"`
	Started time.Time `json:"started"`
	Seed    int64     `json:"seed"`
	Epochs  int       `json:"epochs"`
	Steps   int       `json:"steps"`
	Losses  []float64 `json:"losses"`
	Stopped bool      `json:"stopped"`
}

// RunReader defines read operations for training run history
type RunReader interface {
	// Runs returns all runs, oldest first
	Runs() ([]Run, error)
}

// RunWriter defines write operations for training run history
type RunWriter interface {
	WriteRun(r Run) error
}

// RunRepository combines read and write operations
type RunRepository interface {
	RunReader
	RunWriter
}

// Repository is a store holding both corpora and runs.
type Repository interface {
	CorpusRepository
	RunRepository
}
