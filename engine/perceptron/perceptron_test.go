package perceptron

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revelaction/nerbio/engine"
	sent "github.com/revelaction/nerbio/sentence"
)

var examples = []sent.Example{
	{Text: "Selegiline - induced postural hypotension", Entities: []sent.Span{
		{Start: 0, End: 10, Label: "B_Dis"},
		{Start: 21, End: 29, Label: "B_Dis"},
		{Start: 30, End: 41, Label: "I_Dis"},
	}},
	{Text: "Acute renal failure after cisplatin", Entities: []sent.Span{
		{Start: 0, End: 5, Label: "B_Dis"},
		{Start: 6, End: 11, Label: "I_Dis"},
		{Start: 12, End: 19, Label: "I_Dis"},
	}},
}

func TestTokenize(t *testing.T) {
	toks := tokenize("  β-blocker  toxicity ")
	require.Len(t, toks, 2)
	assert.Equal(t, token{text: "β-blocker", start: 2, end: 11}, toks[0])
	assert.Equal(t, token{text: "toxicity", start: 13, end: 21}, toks[1])
}

func TestGold(t *testing.T) {
	toks := tokenize(examples[1].Text)
	assert.Equal(t, []string{"B_Dis", "I_Dis", "I_Dis", "O", "O"}, gold(toks, examples[1].Entities))
}

func TestShape(t *testing.T) {
	assert.Equal(t, "Xx", shape("Selegiline"))
	assert.Equal(t, "Xd", shape("IL6"))
	assert.Equal(t, "x-x", shape("low-dose"))
}

func TestAddLabelUnknownPipe(t *testing.T) {
	e := New(Options{})
	require.NoError(t, e.AddLabel(engine.NER, "B_Dis"))
	require.NoError(t, e.AddLabel(engine.NER, "B_Dis"))
	assert.Equal(t, []string{"O", "B_Dis"}, e.Labels())

	err := e.AddLabel("tagger", "B_Dis")
	assert.True(t, errors.Is(err, engine.ErrUnknownPipe))
}

func TestDisablePipesRestore(t *testing.T) {
	e := New(Options{})
	restore, err := e.DisablePipes(engine.Others(e, engine.NER)...)
	require.NoError(t, err)
	assert.True(t, e.disabled["tagger"])
	assert.True(t, e.disabled["parser"])
	assert.False(t, e.disabled[engine.NER])

	require.NoError(t, restore())
	assert.Empty(t, e.disabled)

	_, err = e.DisablePipes("lemmatizer")
	assert.True(t, errors.Is(err, engine.ErrUnknownPipe))
}

func TestUpdateWithoutOptimizer(t *testing.T) {
	e := New(Options{})
	err := e.Update(context.Background(), examples, 0, nil, engine.Losses{})
	assert.ErrorIs(t, err, engine.ErrNoOptimizer)
}

func train(t *testing.T, e *Engine, epochs int) float64 {
	t.Helper()
	ctx := context.Background()
	for _, l := range []string{"B_Dis", "I_Dis"} {
		require.NoError(t, e.AddLabel(engine.NER, l))
	}
	opt, err := e.Begin(ctx)
	require.NoError(t, err)

	var last float64
	for i := 0; i < epochs; i++ {
		losses := engine.Losses{}
		require.NoError(t, e.Update(ctx, examples, 0, opt, losses))
		last = losses[engine.NER]
	}
	assert.Equal(t, epochs, opt.Steps())
	return last
}

func TestUpdateLearnsTrainingSet(t *testing.T) {
	e := New(Options{Seed: 7})
	assert.Zero(t, train(t, e, 30))

	ents, err := e.Predict(context.Background(), examples[1].Text)
	require.NoError(t, err)
	require.Len(t, ents, 3)
	assert.Equal(t, engine.Entity{Text: "Acute", Label: "B_Dis", Start: 0, End: 5}, ents[0])
	assert.Equal(t, "I_Dis", ents[2].Label)
}

func TestUpdateDisabledNER(t *testing.T) {
	e := New(Options{})
	opt, err := e.Begin(context.Background())
	require.NoError(t, err)
	_, err = e.DisablePipes(engine.NER)
	require.NoError(t, err)

	losses := engine.Losses{}
	require.NoError(t, e.Update(context.Background(), examples, 0.5, opt, losses))
	assert.Empty(t, losses)
}

func TestSaveLoad(t *testing.T) {
	e := New(Options{})
	train(t, e, 30)

	path := filepath.Join(t.TempDir(), "model.msgpack")
	require.NoError(t, e.Save(path))

	loaded := New(Options{Pipes: []string{engine.NER}})
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, DefaultPipes, loaded.Pipes())
	assert.Equal(t, e.Labels(), loaded.Labels())

	want, err := e.Predict(context.Background(), examples[0].Text)
	require.NoError(t, err)
	got, err := loaded.Predict(context.Background(), examples[0].Text)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissing(t *testing.T) {
	err := New(Options{}).Load(filepath.Join(t.TempDir(), "none"))
	assert.Error(t, err)
}
