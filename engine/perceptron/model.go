package perceptron

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sent "github.com/revelaction/nerbio/sentence"
)

const (
	outside = "O"
	begin   = "-START-"
)

// token is a whitespace separated word with rune offsets in its text.
type token struct {
	text  string
	start int
	end   int
}

// tokenize splits text on whitespace, keeping rune offsets.
func tokenize(text string) []token {
	var toks []token
	pos := 0
	start := -1
	var b strings.Builder

	for _, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				toks = append(toks, token{text: b.String(), start: start, end: pos})
				b.Reset()
				start = -1
			}
			pos++
			continue
		}
		if start < 0 {
			start = pos
		}
		b.WriteRune(r)
		pos++
	}

	if start >= 0 {
		toks = append(toks, token{text: b.String(), start: start, end: pos})
	}

	return toks
}

// gold aligns the entity spans of an example to its tokens. A token takes
// the label of the span containing its first character.
func gold(toks []token, spans []sent.Span) []string {
	tags := make([]string, len(toks))
	for i, tk := range toks {
		tags[i] = outside
		for _, s := range spans {
			if tk.start >= s.Start && tk.start < s.End {
				tags[i] = s.Label
				break
			}
		}
	}
	return tags
}

// model is a multiclass perceptron over sparse string features.
type model struct {
	Labels  []string                      `msgpack:"labels"`
	Weights map[string]map[string]float64 `msgpack:"weights"`
}

func newModel() *model {
	return &model{
		Labels:  []string{outside},
		Weights: map[string]map[string]float64{},
	}
}

func (m *model) addLabel(label string) bool {
	for _, l := range m.Labels {
		if l == label {
			return false
		}
	}
	m.Labels = append(m.Labels, label)
	return true
}

// predict returns the best scoring label. Ties go to the earlier label.
func (m *model) predict(feats []string) string {
	scores := make(map[string]float64, len(m.Labels))
	for _, f := range feats {
		for label, w := range m.Weights[f] {
			scores[label] += w
		}
	}

	best := m.Labels[0]
	bestScore := scores[best]
	for _, l := range m.Labels[1:] {
		if scores[l] > bestScore {
			best, bestScore = l, scores[l]
		}
	}
	return best
}

func (m *model) update(truth, guess string, feats []string, rate float64) {
	if truth == guess {
		return
	}
	for _, f := range feats {
		w, ok := m.Weights[f]
		if !ok {
			w = map[string]float64{}
			m.Weights[f] = w
		}
		w[truth] += rate
		w[guess] -= rate
	}
}

// features describes token i given the previous predicted tag.
func features(toks []token, i int, prev string) []string {
	word := toks[i].text
	lower := strings.ToLower(word)

	prevWord, nextWord := begin, "-END-"
	if i > 0 {
		prevWord = strings.ToLower(toks[i-1].text)
	}
	if i+1 < len(toks) {
		nextWord = strings.ToLower(toks[i+1].text)
	}

	return []string{
		"bias",
		"w=" + lower,
		"p3=" + prefix(lower, 3),
		"s3=" + suffix(lower, 3),
		"shape=" + shape(word),
		"-1w=" + prevWord,
		"+1w=" + nextWord,
		"-1t=" + prev,
		"-1t+w=" + prev + "|" + lower,
	}
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func suffix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// shape maps letters to x/X and digits to d, collapsing repeats.
func shape(s string) string {
	var b strings.Builder
	var last rune
	for _, r := range s {
		c := r
		switch {
		case unicode.IsUpper(r):
			c = 'X'
		case unicode.IsLetter(r):
			c = 'x'
		case unicode.IsDigit(r):
			c = 'd'
		}
		if c != last {
			b.WriteRune(c)
			last = c
		}
	}
	return b.String()
}
