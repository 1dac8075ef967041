package main

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gosuri/uiprogress"
	"github.com/sirupsen/logrus"

	"github.com/revelaction/nerbio/engine"
	sent "github.com/revelaction/nerbio/sentence"
	"github.com/revelaction/nerbio/storage"
	"github.com/revelaction/nerbio/train"
)

// trainCommand trains eng on the corpus, saves the model and records the
// run when runs is not nil.
func trainCommand(ctx context.Context, eng engine.Engine, kind string, runs storage.RunWriter, c sent.Corpus, cfg train.Config, opts TrainOptions, logger *logrus.Logger, ui UI) error {
	session, err := train.NewSession(eng, cfg, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "Training %s on %s: %d examples, labels %v\n", cfg.Pipe, c.Name, len(c.Examples), c.Labels)

	var progress *uiprogress.Progress
	if cfg.Epochs > 0 && len(c.Examples) > 0 {
		progress = uiprogress.New()
		progress.Out = ui.Err
		progress.Start()
		bar := progress.AddBar(cfg.Epochs)
		bar.AppendCompleted()
		bar.PrependElapsed()

		// written by the session, read by the render loop
		var last atomic.Uint64
		bar.AppendFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("loss %.3f", math.Float64frombits(last.Load()))
		})

		session.OnEpoch = func(epoch int, loss float64) {
			last.Store(math.Float64bits(loss))
			bar.Set(epoch)
		}
	}

	res, err := session.Run(ctx, c.Examples, c.Labels)
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		return fmt.Errorf("training failed after %d steps: %w", res.Steps, err)
	}

	final := 0.0
	if len(res.Losses) > 0 {
		final = res.Losses[len(res.Losses)-1]
	}
	fmt.Fprintf(ui.Out, "Run %s: %d epochs, %d steps, rejected %d, final loss %.3f\n",
		res.RunId, res.Epochs, res.Steps, res.Rejected, final)
	if res.Stopped {
		fmt.Fprintln(ui.Out, "Stopped early, loss did not improve")
	}

	if opts.Model != "" {
		if err := eng.Save(opts.Model); err != nil {
			return fmt.Errorf("failed to save model: %w", err)
		}
		fmt.Fprintf(ui.Out, "Model saved to %s\n", opts.Model)
	}

	if runs == nil {
		return nil
	}

	run := storage.Run{
		Id:      res.RunId,
		Corpus:  c.Name,
		Model:   opts.Model,
		Engine:  kind,
		Started: res.Started,
		Seed:    cfg.Seed,
		Epochs:  res.Epochs,
		Steps:   res.Steps,
		Losses:  res.Losses,
		Stopped: res.Stopped,
	}
	if err := runs.WriteRun(run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}
