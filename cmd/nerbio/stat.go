package main

import (
	"fmt"

	sent "github.com/revelaction/nerbio/sentence"
	"github.com/revelaction/nerbio/stat"
)

func statCommand(c sent.Corpus, ui UI) error {
	hdl := stat.NewHandler()
	hdl.Aggregate(c.Examples)

	stats := hdl.Get()
	fmt.Fprintf(ui.Out, "Num examples %d, num tokens %d, num entities %d, num tokens per example %d\n",
		stats.NumExamples, stats.NumTokens, stats.NumEntities, stats.TokensPerExampleMean)

	for _, label := range stats.Labels() {
		fmt.Fprintf(ui.Out, "%12s %d\n", label, stats.EntitiesPerLabel[label])
	}

	return nil
}
