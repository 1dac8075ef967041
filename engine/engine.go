// Package engine defines the capabilities the training driver needs from
// an NLP pipeline with an entity recognizer.
package engine

import (
	"context"
	"errors"

	sent "github.com/revelaction/nerbio/sentence"
)

// NER is the name of the entity recognizer stage.
const NER = "ner"

var (
	ErrUnknownPipe = errors.New("unknown pipe")
	ErrNoOptimizer = errors.New("training not started")
)

// Losses accumulates the loss of each stage across update calls.
type Losses map[string]float64

// Optimizer is the opaque handle returned when training begins.
type Optimizer interface {
	// Steps returns the number of updates applied with this handle.
	Steps() int
}

// Entity is a detection returned by Predict.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Engine is a pipeline of named, ordered stages.
type Engine interface {
	// Pipes returns the stage names in pipeline order.
	Pipes() []string

	// AddLabel registers an output class with a stage. Registering an
	// existing label is a no-op.
	AddLabel(pipe, label string) error

	// DisablePipes disables the named stages until restore is called.
	DisablePipes(names ...string) (restore func() error, err error)

	// Begin starts training and returns the optimizer handle.
	Begin(ctx context.Context) (Optimizer, error)

	// Update runs one optimization step over the batch, adding each enabled
	// stage's loss to losses.
	Update(ctx context.Context, batch []sent.Example, dropout float64, opt Optimizer, losses Losses) error

	Predict(ctx context.Context, text string) ([]Entity, error)

	Save(path string) error
	Load(path string) error
}

// Others returns the stages of e other than keep, in pipeline order.
func Others(e Engine, keep string) []string {
	var others []string
	for _, name := range e.Pipes() {
		if name != keep {
			others = append(others, name)
		}
	}
	return others
}

// HasPipe reports whether e has a stage called name.
func HasPipe(e Engine, name string) bool {
	for _, p := range e.Pipes() {
		if p == name {
			return true
		}
	}
	return false
}
