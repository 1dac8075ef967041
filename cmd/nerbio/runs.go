package main

import (
	"fmt"
	"time"

	"github.com/revelaction/nerbio/storage"
)

func runsCommand(repo storage.RunReader, ui UI) error {
	runs, err := repo.Runs()
	if err != nil {
		return err
	}

	for _, r := range runs {
		last := 0.0
		if len(r.Losses) > 0 {
			last = r.Losses[len(r.Losses)-1]
		}

		stopped := ""
		if r.Stopped {
			stopped = " (stopped early)"
		}

		fmt.Fprintf(ui.Out, "🏃 %s %s %s corpus %s epochs %d steps %d loss %.3f%s\n",
			r.Id, r.Started.Format(time.RFC3339), r.Engine, r.Corpus, r.Epochs, r.Steps, last, stopped)
	}

	return nil
}
