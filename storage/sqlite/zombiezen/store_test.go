package zombiezen

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sent "github.com/revelaction/nerbio/sentence"
	"github.com/revelaction/nerbio/storage"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	pool, err := Open(filepath.Join(t.TempDir(), "nerbio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return NewStore(pool)
}

var bc5 = sent.Corpus{
	Name:   "bc5cdr",
	Labels: []string{"B_Dis", "I_Dis"},
	Examples: []sent.Example{
		{Text: "Selegiline - induced", Entities: []sent.Span{{Start: 0, End: 10, Label: "B_Dis"}}},
		{Text: "Acute renal", Entities: []sent.Span{{Start: 0, End: 5, Label: "B_Dis"}, {Start: 6, End: 11, Label: "I_Dis"}}},
	},
}

var ncbi = sent.Corpus{
	Name:   "ncbi",
	Labels: []string{"B_Chem"},
	Examples: []sent.Example{
		{Text: "cisplatin", Entities: []sent.Span{{Start: 0, End: 9, Label: "B_Chem"}}},
	},
}

func TestCorpusWriteRead(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.Write(bc5))
	require.NoError(t, st.Write(ncbi))

	c, err := st.ReadName("bc5cdr")
	require.NoError(t, err)
	assert.Equal(t, bc5.Labels, c.Labels)
	assert.Equal(t, bc5.Examples, c.Examples)

	byId, err := st.Read(c.Id)
	require.NoError(t, err)
	assert.Equal(t, c, byId)

	_, err = st.ReadName("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCorpusWriteReplaces(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.Write(bc5))

	smaller := bc5
	smaller.Examples = bc5.Examples[:1]
	smaller.Labels = []string{"B_Dis"}
	require.NoError(t, st.Write(smaller))

	c, err := st.ReadName("bc5cdr")
	require.NoError(t, err)
	assert.Len(t, c.Examples, 1)

	labels, err := st.Labels("")
	require.NoError(t, err)
	assert.Equal(t, []string{"B_Dis"}, labels)
}

func TestCorpusListAndLabels(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.Write(ncbi))
	require.NoError(t, st.Write(bc5))

	list, err := st.List("")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bc5cdr", list[0].Name)
	assert.Empty(t, list[0].Examples)

	list, err = st.List("Chem")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ncbi", list[0].Name)

	labels, err := st.Labels("")
	require.NoError(t, err)
	assert.Equal(t, []string{"B_Chem", "B_Dis", "I_Dis"}, labels)

	labels, err = st.Labels("Dis")
	require.NoError(t, err)
	assert.Equal(t, []string{"B_Dis", "I_Dis"}, labels)
}

func TestRuns(t *testing.T) {
	st := openStore(t)

	runs, err := st.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)

	first := storage.Run{
		Id: "a", Corpus: "bc5cdr", Model: "model.msgpack", Engine: "perceptron",
		Started: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Seed:    1, Epochs: 2, Steps: 8, Losses: []float64{4.5, 2},
	}
	second := first
	second.Id = "b"
	second.Started = first.Started.Add(time.Hour)
	second.Stopped = true

	require.NoError(t, st.WriteRun(second))
	require.NoError(t, st.WriteRun(first))

	runs, err = st.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0])
	assert.Equal(t, second, runs[1])
}
