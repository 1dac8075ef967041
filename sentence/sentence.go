package sentence

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSpan is returned when an entity span does not fit its text.
var ErrInvalidSpan = errors.New("invalid span")

// Token represents a word of the annotated corpus with its raw label.
type Token struct {
	Word string `json:"word"`

	// The raw tag as found in the corpus (O, B, I)
	Label string `json:"label"`
}

// Join returns the words of tokens separated by a single space.
func Join(tokens []Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Word)
	}
	return b.String()
}

// Span is an entity in character (rune) coordinates of the example text.
// End is exclusive.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// Example is a joined sentence with its entities.
type Example struct {
	Text     string `json:"text"`
	Entities []Span `json:"entities"`
}

// Validate checks that every span lies inside the text and is not empty.
func (e Example) Validate() error {
	n := len([]rune(e.Text))
	for _, s := range e.Entities {
		if s.Start < 0 || s.Start >= s.End || s.End > n {
			return fmt.Errorf("%w: [%d, %d) %s in text of length %d", ErrInvalidSpan, s.Start, s.End, s.Label, n)
		}
	}

	return nil
}

// Slice returns the substring of the text covered by the span.
func (e Example) Slice(s Span) string {
	r := []rune(e.Text)
	if s.Start < 0 || s.End > len(r) || s.Start > s.End {
		return ""
	}
	return string(r[s.Start:s.End])
}

// Corpus is a named collection of examples with its label set.
type Corpus struct {
	Id int `json:"id"`

	Name string `json:"name"`

	Labels   []string  `json:"labels"`
	Examples []Example `json:"examples"`
}

// LabelSet keeps labels unique in first-seen order.
type LabelSet struct {
	seen   map[string]struct{}
	labels []string
}

func NewLabelSet() *LabelSet {
	return &LabelSet{seen: map[string]struct{}{}}
}

// Add appends the label if not yet present and reports whether it did.
func (ls *LabelSet) Add(label string) bool {
	if _, ok := ls.seen[label]; ok {
		return false
	}
	ls.seen[label] = struct{}{}
	ls.labels = append(ls.labels, label)
	return true
}

func (ls *LabelSet) Has(label string) bool {
	_, ok := ls.seen[label]
	return ok
}

// Labels returns a copy of the labels in insertion order.
func (ls *LabelSet) Labels() []string {
	out := make([]string, len(ls.labels))
	copy(out, ls.labels)
	return out
}

func (ls *LabelSet) Len() int {
	return len(ls.labels)
}
