package main

import (
	"bufio"
	"context"
	"strings"

	"github.com/revelaction/nerbio/engine"
	"github.com/revelaction/nerbio/render"
)

// predictCommand renders the entities of each text. Without texts, every
// non blank line of the input is one.
func predictCommand(ctx context.Context, eng engine.Engine, texts []string, opts PredictOptions, ui UI) error {
	var r render.EntityRenderer
	if opts.Json {
		r = render.NewJSONRenderer(ui.Out)
	} else {
		tr := render.NewRenderer()
		tr.W = ui.Out
		tr.HasColor = !opts.NoColor
		tr.Format = opts.Format
		r = tr
	}

	predict := func(text string) error {
		ents, err := eng.Predict(ctx, text)
		if err != nil {
			return err
		}
		r.Entities(text, ents)
		return nil
	}

	if len(texts) > 0 {
		for _, text := range texts {
			if err := predict(text); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(ui.In)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := predict(text); err != nil {
			return err
		}
	}

	return scanner.Err()
}
