// Package train drives an Engine through epochs of shuffled minibatches
// with a compounding batch size.
package train

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/revelaction/nerbio/engine"
	sent "github.com/revelaction/nerbio/sentence"
)

type Config struct {
	// Pipe is the stage being trained. All others are disabled.
	Pipe string

	Epochs  int
	Dropout float64

	// Batch size schedule
	Start  float64
	Stop   float64
	Factor float64

	Seed int64

	// LogEvery logs every batch loss on epochs that are a multiple of it.
	// Zero disables batch logging.
	LogEvery int

	// Patience stops training after this many epochs without the epoch loss
	// improving by at least MinDelta. Zero always runs Epochs.
	Patience int
	MinDelta float64
}

func DefaultConfig() Config {
	return Config{
		Pipe:     engine.NER,
		Epochs:   50,
		Dropout:  0.5,
		Start:    16,
		Stop:     64,
		Factor:   1.5,
		Seed:     1,
		LogEvery: 10,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Pipe == "":
		return errors.New("pipe must not be empty")
	case c.Epochs < 0:
		return fmt.Errorf("epochs must not be negative: %d", c.Epochs)
	case c.Dropout < 0 || c.Dropout >= 1:
		return fmt.Errorf("dropout must be in [0, 1): %g", c.Dropout)
	case c.Start < 1 || c.Stop < 1:
		return fmt.Errorf("batch sizes must be at least 1: start %g stop %g", c.Start, c.Stop)
	case c.Factor <= 0:
		return fmt.Errorf("batch factor must be positive: %g", c.Factor)
	case c.Patience < 0:
		return fmt.Errorf("patience must not be negative: %d", c.Patience)
	}
	return nil
}

// Result summarizes a training run.
type Result struct {
	RunId   string
	Started time.Time

	// Epochs actually run
	Epochs int

	// Steps is the number of updates applied, as counted by the optimizer
	Steps int

	// Losses holds the cumulative loss of Pipe at the end of each epoch
	Losses []float64

	// Rejected counts examples dropped by validation
	Rejected int

	// Stopped is true when early stopping ended the run
	Stopped bool
}

// Session owns the engine, its optimizer and the random source of a
// training run.
type Session struct {
	eng engine.Engine
	cfg Config
	rnd *rand.Rand
	log *logrus.Entry

	// OnEpoch is called after each epoch with its 1-based number and loss.
	OnEpoch func(epoch int, loss float64)
}

func NewSession(eng engine.Engine, cfg Config, logger *logrus.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Session{
		eng: eng,
		cfg: cfg,
		rnd: rand.New(rand.NewSource(cfg.Seed)),
		log: logger.WithField("pipe", cfg.Pipe),
	}, nil
}

// Run registers labels with the trained stage and updates it over the
// examples. Examples with invalid spans are rejected before training.
func (s *Session) Run(ctx context.Context, examples []sent.Example, labels []string) (Result, error) {
	res := Result{RunId: uuid.NewString(), Started: time.Now()}

	if !engine.HasPipe(s.eng, s.cfg.Pipe) {
		return res, fmt.Errorf("%w: %s", engine.ErrUnknownPipe, s.cfg.Pipe)
	}

	for _, label := range labels {
		if err := s.eng.AddLabel(s.cfg.Pipe, label); err != nil {
			return res, fmt.Errorf("failed to add label %s: %w", label, err)
		}
	}

	valid := make([]sent.Example, 0, len(examples))
	for i, ex := range examples {
		if err := ex.Validate(); err != nil {
			res.Rejected++
			s.log.WithField("example", i).Warnf("rejected: %v", err)
			continue
		}
		valid = append(valid, ex)
	}

	if len(valid) == 0 {
		s.log.Info("no examples to train on")
		return res, nil
	}

	restore, err := s.eng.DisablePipes(engine.Others(s.eng, s.cfg.Pipe)...)
	if err != nil {
		return res, fmt.Errorf("failed to disable pipes: %w", err)
	}
	defer func() {
		if rerr := restore(); rerr != nil {
			s.log.Errorf("failed to restore pipes: %v", rerr)
		}
	}()

	opt, err := s.eng.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to begin training: %w", err)
	}

	best := 0.0
	stale := 0
	for epoch := 1; epoch <= s.cfg.Epochs; epoch++ {
		loss, err := s.epoch(ctx, epoch, valid, opt)
		res.Steps = opt.Steps()
		if err != nil {
			return res, err
		}

		res.Epochs = epoch
		res.Losses = append(res.Losses, loss)
		s.log.WithFields(logrus.Fields{"epoch": epoch, "loss": loss}).Debug("epoch done")
		if s.OnEpoch != nil {
			s.OnEpoch(epoch, loss)
		}

		if s.cfg.Patience == 0 {
			continue
		}

		if epoch == 1 || (loss < best && best-loss >= s.cfg.MinDelta) {
			best = loss
			stale = 0
			continue
		}

		stale++
		if stale >= s.cfg.Patience {
			res.Stopped = true
			s.log.WithFields(logrus.Fields{"epoch": epoch, "best": best}).Info("early stopping")
			break
		}
	}

	return res, nil
}

func (s *Session) epoch(ctx context.Context, epoch int, examples []sent.Example, opt engine.Optimizer) (float64, error) {
	s.rnd.Shuffle(len(examples), func(i, j int) {
		examples[i], examples[j] = examples[j], examples[i]
	})

	losses := engine.Losses{}
	batches := Minibatch(examples, Compounding(s.cfg.Start, s.cfg.Stop, s.cfg.Factor))

	for b, batch := range batches {
		if err := ctx.Err(); err != nil {
			return losses[s.cfg.Pipe], err
		}

		if err := s.eng.Update(ctx, batch, s.cfg.Dropout, opt, losses); err != nil {
			return losses[s.cfg.Pipe], fmt.Errorf("epoch %d batch %d: %w", epoch, b, err)
		}

		if s.cfg.LogEvery > 0 && epoch%s.cfg.LogEvery == 0 {
			s.log.WithFields(logrus.Fields{"epoch": epoch, "batch": b, "losses": losses[s.cfg.Pipe]}).Info("losses")
		}
	}

	return losses[s.cfg.Pipe], nil
}
