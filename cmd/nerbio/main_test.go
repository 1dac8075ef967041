package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCorpus = "Selegiline\tB\n-\tO\ninduced\tO\npostural\tB\nhypotension\tI\n\n" +
	"The\tO\npatient\tO\n\n" +
	"Acute\tB\nrenal\tI\nfailure\tI\n\n"

func writeCorpus(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(testCorpus), 0o644))
	return path
}

// run executes the app and returns stdout
func run(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	ui := UI{In: strings.NewReader(in), Out: &out, Err: &errOut}
	err := newApp(ui).Run(append([]string{"nerbio"}, args...))
	return out.String(), err
}

func TestLoadCommand(t *testing.T) {
	path := writeCorpus(t, t.TempDir(), "train.tsv")

	out, err := run(t, "", "load", "--no-color", path)
	require.NoError(t, err)

	assert.Contains(t, out, "✍  0 [Selegiline](B_Dis) - induced [postural](B_Dis) [hypotension](I_Dis)")
	assert.Contains(t, out, "✍  1 [Acute](B_Dis) [renal](I_Dis) [failure](I_Dis)")
	assert.Contains(t, out, "examples 2, dropped 1, malformed 0")
	assert.Contains(t, out, "Labels B_Dis, I_Dis")
}

func TestLoadCommandJSONLimit(t *testing.T) {
	path := writeCorpus(t, t.TempDir(), "train.tsv")

	out, err := run(t, "", "load", "--json", "--limit", "1", path)
	require.NoError(t, err)

	assert.Contains(t, out, `"text":"Selegiline - induced postural hypotension"`)
	assert.NotContains(t, out, "Acute")
}

func TestLoadCommandErrors(t *testing.T) {
	_, err := run(t, "", "load")
	assert.ErrorContains(t, err, "load needs one corpus")

	_, err = run(t, "", "load", filepath.Join(t.TempDir(), "absent.tsv"))
	assert.Error(t, err)
}

func TestCorpusPathFromConfig(t *testing.T) {
	path := writeCorpus(t, t.TempDir(), "train.tsv")
	t.Setenv("NERBIO_CORPUS_PATH", path)

	out, err := run(t, "", "stat")
	require.NoError(t, err)
	assert.Contains(t, out, "Num examples 2, num tokens 8, num entities 6")

	out, err = run(t, "", "load", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "examples 2, dropped 1, malformed 0")

	out, err = run(t, "", "train", "--epochs", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 epochs")
}

func testStore(t *testing.T, store string) {
	path := writeCorpus(t, t.TempDir(), "bc5cdr.tsv")

	out, err := run(t, "", "--store", store, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully imported 1 corpora")

	out, err = run(t, "", "--store", store, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "bc5cdr [B_Dis, I_Dis]")

	out, err = run(t, "", "--store", store, "ls", "--match", "Chem")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = run(t, "", "--store", store, "labels", "I_")
	require.NoError(t, err)
	assert.Equal(t, "I_Dis\n", out)

	out, err = run(t, "", "--store", store, "stat", "bc5cdr")
	require.NoError(t, err)
	assert.Contains(t, out, "Num examples 2, num tokens 8, num entities 6")

	_, err = run(t, "", "--store", store, "stat", "unknown")
	assert.Error(t, err)
}

func TestStoreFilesystem(t *testing.T) {
	testStore(t, t.TempDir())
}

func TestStoreSQLite(t *testing.T) {
	testStore(t, filepath.Join(t.TempDir(), "nerbio.db"))
}

func TestStoreMissing(t *testing.T) {
	_, err := run(t, "", "ls")
	assert.Error(t, err)
}

func TestTrainPredictRuns(t *testing.T) {
	dir := t.TempDir()
	store := t.TempDir()
	path := writeCorpus(t, dir, "train.tsv")
	model := filepath.Join(dir, "model.msgpack")

	out, err := run(t, "", "--store", store, "train", "--epochs", "3", "--model", model, path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 epochs")
	assert.Contains(t, out, "Model saved to "+model)

	_, err = os.Stat(model)
	require.NoError(t, err)

	out, err = run(t, "", "--store", store, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "perceptron corpus train epochs 3")

	out, err = run(t, "", "predict", "--model", model, "--json", "Acute renal failure")
	require.NoError(t, err)
	assert.Contains(t, out, `"text":"Acute renal failure"`)

	out, err = run(t, "Acute renal failure\n\nSelegiline\n", "predict", "--model", model, "--no-color")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestTrainWithoutStore(t *testing.T) {
	path := writeCorpus(t, t.TempDir(), "train.tsv")

	out, err := run(t, "", "train", "--epochs", "1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 epochs")
}

func TestUnknownEngine(t *testing.T) {
	path := writeCorpus(t, t.TempDir(), "train.tsv")

	_, err := run(t, "", "--engine", "cnn", "train", path)
	assert.ErrorContains(t, err, "unknown engine kind")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "nerbio version dev (commit: none)\n", out)
}
