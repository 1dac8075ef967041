package main

import (
	"fmt"
	"strings"

	"github.com/revelaction/nerbio/storage"
)

func labelsCommand(repo storage.CorpusReader, pattern string, ui UI) error {
	labels, err := repo.Labels(pattern)
	if err != nil {
		return err
	}

	if len(labels) > 0 {
		fmt.Fprintln(ui.Out, strings.Join(labels, ", "))
	}

	return nil
}
