package train

import (
	sent "github.com/revelaction/nerbio/sentence"
)

// Compounding returns a generator of batch sizes growing from start by
// factor on each call, capped at stop.
func Compounding(start, stop, factor float64) func() float64 {
	curr := start
	return func() float64 {
		v := curr
		if stop > start {
			v = min(v, stop)
		} else {
			v = max(v, stop)
		}
		curr *= factor
		return v
	}
}

// Minibatch partitions examples in order. Each batch takes the next size
// from sizes (truncated, at least one); the last batch takes what is left.
func Minibatch(examples []sent.Example, sizes func() float64) [][]sent.Example {
	var batches [][]sent.Example
	for i := 0; i < len(examples); {
		n := int(sizes())
		if n < 1 {
			n = 1
		}

		end := min(i+n, len(examples))
		batches = append(batches, examples[i:end])
		i = end
	}
	return batches
}
