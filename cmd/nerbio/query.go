package main

import (
	"context"

	"github.com/revelaction/nerbio/engine"
	"github.com/revelaction/nerbio/query"
	"github.com/revelaction/nerbio/render"
)

// labeler is implemented by engines that expose their labels
type labeler interface {
	Labels() []string
}

func queryCommand(ctx context.Context, eng engine.Engine, opts QueryOptions, ui UI) error {
	r := render.NewRenderer()
	r.W = ui.Out
	r.HasColor = !opts.NoColor
	r.HasPrefix = !opts.NoPrefix
	r.Format = opts.Format

	var labels []string
	if l, ok := eng.(labeler); ok {
		labels = l.Labels()
	}

	// now present the REPL
	h := query.NewHandler(eng, labels, r)
	h.Out = ui.Out
	return h.Run(ctx)
}
