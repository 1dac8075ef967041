package train

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	sent "github.com/revelaction/nerbio/sentence"
)

func examples(n int) []sent.Example {
	out := make([]sent.Example, n)
	for i := range out {
		text := fmt.Sprintf("ex%d", i)
		out[i] = sent.Example{Text: text, Entities: []sent.Span{{Start: 0, End: len(text), Label: "B_Dis"}}}
	}
	return out
}

func TestCompounding(t *testing.T) {
	next := Compounding(16, 64, 1.5)

	var got []float64
	for i := 0; i < 7; i++ {
		got = append(got, next())
	}
	assert.Equal(t, []float64{16, 24, 36, 54, 64, 64, 64}, got)
}

func TestCompoundingShrinking(t *testing.T) {
	next := Compounding(8, 2, 0.5)
	assert.Equal(t, 8.0, next())
	assert.Equal(t, 4.0, next())
	assert.Equal(t, 2.0, next())
	assert.Equal(t, 2.0, next())
}

func TestMinibatchSizes(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 100, 250, 1000} {
		batches := Minibatch(examples(n), Compounding(16, 64, 1.5))

		total := 0
		prev := 0
		for i, b := range batches {
			total += len(b)
			assert.LessOrEqual(t, len(b), 64)
			// the remainder batch may be smaller
			if i < len(batches)-1 {
				assert.GreaterOrEqual(t, len(b), prev, "n=%d batch %d", n, i)
			}
			prev = len(b)
		}
		assert.Equal(t, n, total, "n=%d", n)
	}
}

func TestMinibatchKeepsOrder(t *testing.T) {
	in := examples(50)
	batches := Minibatch(in, Compounding(16, 64, 1.5))

	assert.Len(t, batches, 3)
	assert.Equal(t, []int{16, 24, 10}, []int{len(batches[0]), len(batches[1]), len(batches[2])})
	assert.Equal(t, in[16], batches[1][0])
	assert.Equal(t, in[49], batches[2][9])
}

func TestMinibatchFractionalSizes(t *testing.T) {
	batches := Minibatch(examples(10), Compounding(0.5, 4, 2))
	var sizes []int
	for _, b := range batches {
		sizes = append(sizes, len(b))
	}
	// 0.5 -> 1, 1, 2, 4, 2 (remainder)
	assert.Equal(t, []int{1, 1, 2, 4, 2}, sizes)
}
