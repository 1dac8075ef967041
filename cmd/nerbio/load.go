package main

import (
	"fmt"
	"strings"

	"github.com/revelaction/nerbio/corpus"
	"github.com/revelaction/nerbio/render"
)

func loadCommand(path string, lo corpus.Options, opts LoadOptions, ui UI) error {
	loader := corpus.NewLoader(lo)
	examples, labels, err := loader.Load(path)
	if err != nil {
		return err
	}

	shown := examples
	if opts.Limit > 0 && opts.Limit < len(shown) {
		shown = shown[:opts.Limit]
	}

	if opts.Json {
		render.NewJSONRenderer(ui.Out).Examples(shown)
		return nil
	}

	r := render.NewRenderer()
	r.W = ui.Out
	r.HasColor = !opts.NoColor
	for i, ex := range shown {
		r.Example(ex, fmt.Sprintf("✍  %d ", i))
	}

	st := loader.Stats()
	fmt.Fprintf(ui.Out, "Lines %d, tokens %d, sentences %d, examples %d, dropped %d, malformed %d\n",
		st.Lines, st.Tokens, st.Sentences, st.Examples, st.Dropped, st.Malformed)
	if len(labels) > 0 {
		fmt.Fprintf(ui.Out, "Labels %s\n", strings.Join(labels, ", "))
	}

	return nil
}
