package main

import (
	"errors"
	"fmt"

	"github.com/gosuri/uiprogress"

	"github.com/revelaction/nerbio/corpus"
	sent "github.com/revelaction/nerbio/sentence"
	"github.com/revelaction/nerbio/storage"
)

func importCommand(repo storage.CorpusWriter, paths []string, lo corpus.Options, opts ImportOptions, ui UI) error {
	if opts.Name != "" && len(paths) > 1 {
		return errors.New("--name needs a single corpus file")
	}

	progress := uiprogress.New()
	progress.Out = ui.Err
	progress.Start()
	bar := progress.AddBar(len(paths))
	bar.AppendCompleted()
	bar.PrependElapsed()
	// Append the corpus name to the progress bar
	bar.AppendFunc(func(b *uiprogress.Bar) string {
		if b.Current() == 0 {
			return ""
		}
		return corpusName(paths[b.Current()-1])
	})

	count := 0
	for _, path := range paths {
		examples, labels, err := corpus.NewLoader(lo).Load(path)
		if err != nil {
			progress.Stop()
			return fmt.Errorf("failed to read corpus %s: %w", path, err)
		}

		name := opts.Name
		if name == "" {
			name = corpusName(path)
		}

		c := sent.Corpus{Name: name, Labels: labels, Examples: examples}
		if err := repo.Write(c); err != nil {
			progress.Stop()
			return fmt.Errorf("failed to write corpus %s: %w", name, err)
		}
		count++
		bar.Incr()
	}
	progress.Stop()

	fmt.Fprintf(ui.Out, "Successfully imported %d corpora\n", count)
	return nil
}
