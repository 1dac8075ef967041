// Package perceptron is an in-process Engine with a greedy per-token
// perceptron entity recognizer.
//
// The tagger and parser stages are placeholders that keep the pipeline
// shape of a pretrained model; only the ner stage learns.
package perceptron

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/revelaction/nerbio/engine"
	sent "github.com/revelaction/nerbio/sentence"
)

const DefaultLearnRate = 1.0

var DefaultPipes = []string{"tagger", "parser", engine.NER}

type Options struct {
	Pipes     []string
	LearnRate float64

	// Seed drives feature dropout
	Seed int64
}

type Engine struct {
	pipes    []string
	disabled map[string]bool
	ner      *model
	rate     float64
	rnd      *rand.Rand
}

var _ engine.Engine = (*Engine)(nil)

type optimizer struct {
	rate  float64
	steps int
}

func (o *optimizer) Steps() int {
	return o.steps
}

func New(opts Options) *Engine {
	pipes := opts.Pipes
	if len(pipes) == 0 {
		pipes = DefaultPipes
	}

	rate := opts.LearnRate
	if rate <= 0 {
		rate = DefaultLearnRate
	}

	return &Engine{
		pipes:    append([]string(nil), pipes...),
		disabled: map[string]bool{},
		ner:      newModel(),
		rate:     rate,
		rnd:      rand.New(rand.NewSource(opts.Seed)),
	}
}

func (e *Engine) Pipes() []string {
	return append([]string(nil), e.pipes...)
}

// Labels returns the labels known to the ner stage, "O" first.
func (e *Engine) Labels() []string {
	return append([]string(nil), e.ner.Labels...)
}

func (e *Engine) AddLabel(pipe, label string) error {
	if pipe != engine.NER || !engine.HasPipe(e, pipe) {
		return fmt.Errorf("%w: %s", engine.ErrUnknownPipe, pipe)
	}
	e.ner.addLabel(label)
	return nil
}

func (e *Engine) DisablePipes(names ...string) (func() error, error) {
	for _, n := range names {
		if !engine.HasPipe(e, n) {
			return nil, fmt.Errorf("%w: %s", engine.ErrUnknownPipe, n)
		}
	}

	var changed []string
	for _, n := range names {
		if !e.disabled[n] {
			e.disabled[n] = true
			changed = append(changed, n)
		}
	}

	return func() error {
		for _, n := range changed {
			delete(e.disabled, n)
		}
		return nil
	}, nil
}

func (e *Engine) Begin(ctx context.Context) (engine.Optimizer, error) {
	return &optimizer{rate: e.rate}, nil
}

// Update tags each example greedily and corrects the weights on every
// mistaken token. The ner loss is the number of mistaken tokens.
func (e *Engine) Update(ctx context.Context, batch []sent.Example, dropout float64, opt engine.Optimizer, losses engine.Losses) error {
	o, ok := opt.(*optimizer)
	if !ok || o == nil {
		return engine.ErrNoOptimizer
	}

	if e.disabled[engine.NER] {
		return nil
	}

	loss := 0.0
	for _, ex := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}

		toks := tokenize(ex.Text)
		truth := gold(toks, ex.Entities)
		prev := begin
		for i := range toks {
			feats := e.dropout(features(toks, i, prev), dropout)
			guess := e.ner.predict(feats)
			if guess != truth[i] {
				loss++
				e.ner.update(truth[i], guess, feats, o.rate)
			}
			// gold history while learning
			prev = truth[i]
		}
	}

	o.steps++
	if losses != nil {
		losses[engine.NER] += loss
	}
	return nil
}

func (e *Engine) dropout(feats []string, rate float64) []string {
	if rate <= 0 {
		return feats
	}
	kept := feats[:0:0]
	for _, f := range feats {
		if e.rnd.Float64() >= rate {
			kept = append(kept, f)
		}
	}
	return kept
}

// Predict returns one entity per token tagged with a label other than "O".
func (e *Engine) Predict(ctx context.Context, text string) ([]engine.Entity, error) {
	toks := tokenize(text)
	ents := []engine.Entity{}
	prev := begin
	for i, tk := range toks {
		tag := e.ner.predict(features(toks, i, prev))
		if tag != outside {
			ents = append(ents, engine.Entity{Text: tk.text, Label: tag, Start: tk.start, End: tk.end})
		}
		prev = tag
	}
	return ents, nil
}

type snapshot struct {
	Pipes []string `msgpack:"pipes"`
	NER   *model   `msgpack:"ner"`
}

func (e *Engine) Save(path string) error {
	data, err := msgpack.Marshal(snapshot{Pipes: e.pipes, NER: e.ner})
	if err != nil {
		return fmt.Errorf("msgpack encoding error: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("IO error: %w", err)
	}
	return nil
}

func (e *Engine) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("IO error: %w", err)
	}

	var s snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("msgpack decoding error: %w", err)
	}
	if s.NER == nil || len(s.NER.Labels) == 0 {
		return fmt.Errorf("model %s has no ner stage", path)
	}
	if s.NER.Weights == nil {
		s.NER.Weights = map[string]map[string]float64{}
	}

	e.pipes = s.Pipes
	e.ner = s.NER
	e.disabled = map[string]bool{}
	return nil
}
