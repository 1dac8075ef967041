package render

import (
	"encoding/json"
	"io"

	"github.com/revelaction/nerbio/engine"
	sent "github.com/revelaction/nerbio/sentence"
)

// JSONRenderer writes examples and predictions as JSON to a writer.
type JSONRenderer struct {
	W io.Writer
}

// NewJSONRenderer creates a JSONRenderer writing to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{W: w}
}

// Prediction is the JSON form of a text and its detected entities.
type Prediction struct {
	Text string          `json:"text"`
	Ents []engine.Entity `json:"ents"`
}

// Entities serializes a prediction as one JSON object per line.
func (r *JSONRenderer) Entities(text string, ents []engine.Entity) {
	if ents == nil {
		ents = []engine.Entity{}
	}
	json.NewEncoder(r.W).Encode(Prediction{Text: text, Ents: ents})
}

// Examples serializes examples as a JSON array.
func (r *JSONRenderer) Examples(examples []sent.Example) {
	if examples == nil {
		examples = []sent.Example{}
	}
	json.NewEncoder(r.W).Encode(examples)
}

// compile-time interface check
var _ EntityRenderer = (*JSONRenderer)(nil)
