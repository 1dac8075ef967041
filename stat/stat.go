package stat

import (
	"sort"
	"strings"

	sent "github.com/revelaction/nerbio/sentence"
)

type Handler struct {
	stats Stats
}

type Stats struct {
	NumExamples          int
	NumTokens            int
	NumEntities          int
	TokensPerExampleMean int

	// number of entities per label
	EntitiesPerLabel map[string]int

	// number of examples per token count
	TokensPerExampleDis map[int]int
}

func (h *Handler) Get() Stats {
	return h.stats
}

func NewHandler() *Handler {
	stats := Stats{
		EntitiesPerLabel:    map[string]int{},
		TokensPerExampleDis: map[int]int{},
	}
	return &Handler{
		stats: stats,
	}
}

func (h *Handler) Aggregate(examples []sent.Example) {
	h.stats.NumExamples += len(examples)

	for _, ex := range examples {
		n := len(strings.Fields(ex.Text))
		h.stats.NumTokens += n
		h.stats.TokensPerExampleDis[n]++

		h.stats.NumEntities += len(ex.Entities)
		for _, span := range ex.Entities {
			h.stats.EntitiesPerLabel[span.Label]++
		}
	}

	if h.stats.NumExamples > 0 {
		h.stats.TokensPerExampleMean = h.stats.NumTokens / h.stats.NumExamples
	}
}

// Labels returns the labels seen, most frequent first.
func (s Stats) Labels() []string {
	labels := make([]string, 0, len(s.EntitiesPerLabel))
	for l := range s.EntitiesPerLabel {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := s.EntitiesPerLabel[labels[i]], s.EntitiesPerLabel[labels[j]]
		if a != b {
			return a > b
		}
		return labels[i] < labels[j]
	})
	return labels
}
