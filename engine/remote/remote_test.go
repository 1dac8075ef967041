package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revelaction/nerbio/engine"
	sent "github.com/revelaction/nerbio/sentence"
)

// fakeServer records the requests it receives and answers the protocol.
type fakeServer struct {
	mu       sync.Mutex
	labels   []string
	disabled []string
	updates  int
	failures int
	paths    []string
	bodies   map[string]string
}

func (f *fakeServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var in request
		if err := json.Unmarshal(data, &in); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.paths = append(f.paths, r.URL.Path)
		if f.bodies == nil {
			f.bodies = map[string]string{}
		}
		f.bodies[r.URL.Path] = string(data)

		// failures answer 502 after the request took effect
		fail := func() bool {
			if f.failures == 0 {
				return false
			}
			f.failures--
			w.WriteHeader(http.StatusBadGateway)
			return true
		}

		reply := func(v interface{}) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v)
		}

		switch r.URL.Path {
		case "/pipes":
			reply(pipesResponse{Pipes: []string{"tagger", "parser", "ner"}})
		case "/labels":
			f.labels = append(f.labels, in.Label)
			reply(struct{}{})
		case "/disable":
			f.disabled = in.Pipes
			reply(disableResponse{Token: "t1"})
		case "/restore":
			if in.Token == "t1" {
				f.disabled = nil
			}
			reply(struct{}{})
		case "/begin":
			reply(beginResponse{Optimizer: "sgd-1"})
		case "/update":
			if in.Optimizer != "sgd-1" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(errorResponse{Error: "unknown optimizer"})
				return
			}
			f.updates++
			if fail() {
				return
			}
			reply(updateResponse{Losses: map[string]float64{"ner": float64(len(in.Examples))}})
		case "/predict":
			if fail() {
				return
			}
			reply(predictResponse{Ents: []engine.Entity{{Text: "Selegiline", Label: "B_Dis", Start: 0, End: 10}}})
		case "/save", "/load":
			reply(struct{}{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newClient(t *testing.T, f *fakeServer) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Options{URL: srv.URL + "/", Model: "en_core_web_sm", RetryMax: 2, Timeout: time.Second})
	require.NoError(t, err)
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = 5 * time.Millisecond
	return c
}

func TestNewReadsPipes(t *testing.T) {
	c := newClient(t, &fakeServer{})
	assert.Equal(t, []string{"tagger", "parser", "ner"}, c.Pipes())
	assert.Equal(t, []string{"tagger", "parser"}, engine.Others(c, engine.NER))
}

func TestNewWithoutURL(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.Error(t, err)
}

func TestAddLabelAndDisable(t *testing.T) {
	f := &fakeServer{}
	c := newClient(t, f)

	require.NoError(t, c.AddLabel(engine.NER, "B_Dis"))
	assert.ErrorIs(t, c.AddLabel("textcat", "B_Dis"), engine.ErrUnknownPipe)
	assert.Equal(t, []string{"B_Dis"}, f.labels)

	restore, err := c.DisablePipes("tagger", "parser")
	require.NoError(t, err)
	assert.Equal(t, []string{"tagger", "parser"}, f.disabled)
	require.NoError(t, restore())
	assert.Nil(t, f.disabled)
}

func TestUpdateAccumulatesLosses(t *testing.T) {
	f := &fakeServer{}
	c := newClient(t, f)
	ctx := context.Background()

	opt, err := c.Begin(ctx)
	require.NoError(t, err)

	batch := []sent.Example{{Text: "a", Entities: []sent.Span{{Start: 0, End: 1, Label: "B_Dis"}}}, {Text: "b"}}
	losses := engine.Losses{}
	require.NoError(t, c.Update(ctx, batch, 0.5, opt, losses))
	require.NoError(t, c.Update(ctx, batch[:1], 0.5, opt, losses))

	assert.Equal(t, 3.0, losses[engine.NER])
	assert.Equal(t, 2, opt.Steps())
	assert.Equal(t, 2, f.updates)
}

func TestUpdateServerErrorNotRetried(t *testing.T) {
	f := &fakeServer{failures: 1}
	c := newClient(t, f)
	ctx := context.Background()

	opt, err := c.Begin(ctx)
	require.NoError(t, err)

	losses := engine.Losses{}
	err = c.Update(ctx, []sent.Example{{Text: "a"}}, 0.5, opt, losses)
	require.Error(t, err)

	assert.Equal(t, 1, f.updates)
	assert.Equal(t, 0, opt.Steps())
	assert.Empty(t, losses)
}

func TestUpdateSendsZeroDropout(t *testing.T) {
	f := &fakeServer{}
	c := newClient(t, f)
	ctx := context.Background()

	opt, err := c.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Update(ctx, []sent.Example{{Text: "a"}}, 0, opt, engine.Losses{}))

	assert.Contains(t, f.bodies["/update"], `"drop":0`)
}

func TestPredictRetriesServerErrors(t *testing.T) {
	f := &fakeServer{failures: 2}
	c := newClient(t, f)

	ents, err := c.Predict(context.Background(), "Selegiline")
	require.NoError(t, err)
	assert.Len(t, ents, 1)
	assert.Equal(t, []string{"/pipes", "/predict", "/predict", "/predict"}, f.paths)
}

func TestUpdateClientErrorNotRetried(t *testing.T) {
	f := &fakeServer{}
	c := newClient(t, f)

	err := c.Update(context.Background(), nil, 0, &optimizer{id: "other"}, engine.Losses{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown optimizer")

	n := 0
	for _, p := range f.paths {
		if p == "/update" {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestUpdateWithoutOptimizer(t *testing.T) {
	c := newClient(t, &fakeServer{})
	assert.ErrorIs(t, c.Update(context.Background(), nil, 0, nil, nil), engine.ErrNoOptimizer)
}

func TestPredictSaveLoad(t *testing.T) {
	f := &fakeServer{}
	c := newClient(t, f)

	ents, err := c.Predict(context.Background(), "Selegiline - induced")
	require.NoError(t, err)
	assert.Equal(t, []engine.Entity{{Text: "Selegiline", Label: "B_Dis", Start: 0, End: 10}}, ents)

	require.NoError(t, c.Save("/models/ner"))
	require.NoError(t, c.Load("/models/ner"))
	assert.Equal(t, []string{"/pipes", "/predict", "/save", "/load", "/pipes"}, f.paths)
}
