// Package corpus reads token-per-line annotated files into training
// examples.
//
// Each line is either a "word<TAB>label" pair or a blank sentence
// delimiter. Tokens of a sentence are joined with a single space and every
// non-null label becomes an entity span over its token.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	sent "github.com/revelaction/nerbio/sentence"
)

const (
	DefaultSuffix = "_Dis"
	DefaultNull   = "O"

	separator = "\t"
)

type Options struct {
	// Suffix is appended to every non-null raw label (B -> B_Dis)
	Suffix string

	// Null is the raw label meaning "no entity"
	Null string

	// ResetEmpty clears the accumulated tokens of a sentence without
	// entities. When false, those tokens carry over into the next sentence.
	ResetEmpty bool

	// FlushLast emits the final sentence when the input does not end with a
	// delimiter line.
	FlushLast bool
}

func DefaultOptions() Options {
	return Options{
		Suffix:     DefaultSuffix,
		Null:       DefaultNull,
		ResetEmpty: true,
	}
}

// Stats counts what a single read has seen.
type Stats struct {
	Lines     int
	Tokens    int
	Sentences int
	Examples  int

	// Sentences without entities
	Dropped int

	// Non blank lines without a label field
	Malformed int
}

type Loader struct {
	opts  Options
	stats Stats

	// per sentence state
	tokens   []sent.Token
	entities []sent.Span
	cursor   int
}

func NewLoader(opts Options) *Loader {
	return &Loader{opts: opts}
}

func (l *Loader) Stats() Stats {
	return l.stats
}

// Load reads the corpus file at path.
func (l *Loader) Load(path string) ([]sent.Example, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("IO error: %w", err)
	}
	defer f.Close()

	return l.Read(f)
}

// Read converts the annotated lines of r into examples and returns them
// with the labels seen, in first-seen order.
func (l *Loader) Read(r io.Reader) ([]sent.Example, []string, error) {
	l.stats = Stats{}
	l.reset()

	examples := []sent.Example{}
	labels := sent.NewLabelSet()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		l.stats.Lines++
		line := strings.TrimRight(scanner.Text(), "\r\n")

		fields := strings.Split(line, separator)
		if len(fields) > 1 {
			l.token(sent.Token{Word: fields[0], Label: strings.TrimSpace(fields[1])}, labels)
			continue
		}

		if strings.TrimSpace(line) != "" {
			l.stats.Malformed++
			continue
		}

		if ex, ok := l.flush(); ok {
			examples = append(examples, ex)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read error at line %d: %w", l.stats.Lines, err)
	}

	if l.opts.FlushLast && len(l.tokens) > 0 {
		if ex, ok := l.flush(); ok {
			examples = append(examples, ex)
		}
	}

	return examples, labels.Labels(), nil
}

// token appends tok and, for non-null labels, its span. The cursor
// advances past the word and the space that joins it to the next one.
func (l *Loader) token(tok sent.Token, labels *sent.LabelSet) {
	l.stats.Tokens++
	l.tokens = append(l.tokens, tok)

	start := l.cursor
	l.cursor += utf8.RuneCountInString(tok.Word) + 1

	if tok.Label == l.opts.Null || tok.Label == "" {
		return
	}

	label := tok.Label + l.opts.Suffix
	l.entities = append(l.entities, sent.Span{Start: start, End: l.cursor - 1, Label: label})
	labels.Add(label)
}

// flush closes the current sentence.
func (l *Loader) flush() (sent.Example, bool) {
	if len(l.tokens) == 0 {
		return sent.Example{}, false
	}

	l.stats.Sentences++

	if len(l.entities) == 0 {
		l.stats.Dropped++
		if l.opts.ResetEmpty {
			l.reset()
		}
		return sent.Example{}, false
	}

	ex := sent.Example{
		Text:     sent.Join(l.tokens),
		Entities: l.entities,
	}

	l.stats.Examples++
	l.reset()
	return ex, true
}

func (l *Loader) reset() {
	l.tokens = nil
	l.entities = nil
	l.cursor = 0
}
