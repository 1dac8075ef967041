package render

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/revelaction/nerbio/engine"
	sent "github.com/revelaction/nerbio/sentence"
)

const (
	Defaultformat = "inline"
)

var (
	Black   = "\033[1;30m"
	Red     = "\033[1;31m"
	Green   = "\033[1;32m"
	Yellow  = "\033[0;33m"
	Purple  = "\033[1;34m"
	Magenta = "\033[1;35m"
	Teal    = "\033[1;36m"
	Gray    = "\033[0;37m"
	White   = "\033[1;37m"
	Off     = "\033[0m"
	//Yellow256  = "\033[1;38;5;202m"
	Yellow256 = "\033[1;38;5;130m"
	Grey256   = "\033[1;38;5;145m"
	Green256  = "\033[1;38;5;70m"
	ClearLine = "\033[K"
)

// labelColors are given to labels in order of first appearance.
var labelColors = []string{Green256, Yellow256, Teal, Magenta, Purple, Red}

func SupportedFormats() []string {
	return []string{"inline", "list"}
}

// EntityRenderer writes the entities detected in a text.
type EntityRenderer interface {
	Entities(text string, ents []engine.Entity)
}

type Renderer struct {
	W io.Writer

	HasColor bool

	// HasPrefix prints the number of entities before each text
	HasPrefix bool

	// Format determines the output of a text with entities
	//
	// inline: print the text with the entities marked in place
	// list: print one entity per line with its offsets
	Format string

	colors map[string]string
}

var _ EntityRenderer = (*Renderer)(nil)

func NewRenderer() *Renderer {
	return &Renderer{
		W:        os.Stdout,
		HasColor: true,
		Format:   Defaultformat,
		colors:   map[string]string{},
	}
}

// Example renders a training example with its gold entities.
func (r *Renderer) Example(ex sent.Example, prefix string) {
	r.spans(ex.Text, ex.Entities, prefix)
}

// Entities renders a text with the entities predicted for it.
func (r *Renderer) Entities(text string, ents []engine.Entity) {
	spans := make([]sent.Span, len(ents))
	for i, e := range ents {
		spans[i] = sent.Span{Start: e.Start, End: e.End, Label: e.Label}
	}

	prefix := ""
	if r.HasPrefix {
		prefix = fmt.Sprintf("[%2d] ✍  ", len(ents))
	}
	r.spans(text, spans, prefix)
}

func (r *Renderer) spans(text string, spans []sent.Span, prefix string) {
	switch r.Format {
	case "list":
		runes := []rune(text)
		for _, s := range spans {
			word := ""
			if s.Start >= 0 && s.End <= len(runes) && s.Start < s.End {
				word = string(runes[s.Start:s.End])
			}
			fmt.Fprintf(r.W, "%s%6d %6d %-12s %q\n", prefix, s.Start, s.End, s.Label, word)
		}
	default:
		fmt.Fprintf(r.W, "%s%s\n", prefix, strings.ReplaceAll(r.InlineString(text, spans), "\n", " "))
	}
}

// InlineString returns text with every span marked in place, as
// [word](label) without color. Spans overlapping a previous one or out of
// bounds are skipped.
func (r *Renderer) InlineString(text string, spans []sent.Span) string {
	sorted := append([]sent.Span(nil), spans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	runes := []rune(text)
	var str strings.Builder
	cursor := 0
	for _, s := range sorted {
		if s.Start < cursor || s.End > len(runes) || s.Start >= s.End {
			continue
		}

		str.WriteString(string(runes[cursor:s.Start]))
		str.WriteString(r.mark(string(runes[s.Start:s.End]), s.Label))
		cursor = s.End
	}
	str.WriteString(string(runes[cursor:]))

	return str.String()
}

func (r *Renderer) mark(word, label string) string {
	if !r.HasColor {
		return "[" + word + "](" + label + ")"
	}

	return r.color(label) + word + Off + Grey256 + "(" + label + ")" + Off
}

func (r *Renderer) color(label string) string {
	if r.colors == nil {
		r.colors = map[string]string{}
	}

	c, ok := r.colors[label]
	if !ok {
		c = labelColors[len(r.colors)%len(labelColors)]
		r.colors[label] = c
	}
	return c
}

// Labels prints labels, colored as entities of that label are.
func (r *Renderer) Labels(labels []string) {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l
		if r.HasColor {
			out[i] = r.color(l) + l + Off
		}
	}
	fmt.Fprintln(r.W, strings.Join(out, ", "))
}

// NextFormat sets the Renderer Format option to a different one, following
// the SupportedFormats() order.
func (r *Renderer) NextFormat() {

	supported := SupportedFormats()
	for i, format := range supported {
		if format == r.Format {
			switch i {
			case len(supported) - 1:
				r.Format = supported[0]
			default:
				r.Format = supported[i+1]
			}

			return
		}
	}

	r.Format = supported[0]
}

func (r *Renderer) NextPrefix() {

	// toggle
	r.HasPrefix = !r.HasPrefix
}
