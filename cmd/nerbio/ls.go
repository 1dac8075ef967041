package main

import (
	"fmt"
	"strings"

	"github.com/revelaction/nerbio/storage"
)

func lsCommand(repo storage.CorpusReader, opts LsOptions, ui UI) error {
	corpora, err := repo.List(opts.Match)
	if err != nil {
		return err
	}

	for _, c := range corpora {
		fmt.Fprintf(ui.Out, "📖 %d %s [%s]\n", c.Id, c.Name, strings.Join(c.Labels, ", "))
	}

	return nil
}
