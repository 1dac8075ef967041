// Package remote is an Engine backed by a model server, for example a spaCy
// process wrapping a pretrained pipeline.
//
// The protocol is JSON over HTTP POST:
//
//	/pipes    {"model"}                          -> {"pipes": [...]}
//	/labels   {"model","pipe","label"}           -> {}
//	/disable  {"model","pipes": [...]}           -> {"token"}
//	/restore  {"model","token"}                  -> {}
//	/begin    {"model"}                          -> {"optimizer"}
//	/update   {"model","examples","drop","optimizer"} -> {"losses": {...}}
//	/predict  {"model","text"}                   -> {"ents": [...]}
//	/save     {"model","path"}                   -> {}
//	/load     {"model","path"}                   -> {}
//
// Non 2xx responses carry {"error"}.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/revelaction/nerbio/engine"
	"github.com/revelaction/nerbio/internal"
	sent "github.com/revelaction/nerbio/sentence"
)

const (
	DefaultRetryMax = 3
	DefaultTimeout  = 5 * time.Minute
)

type Options struct {
	URL   string
	Model string

	RetryMax int
	Timeout  time.Duration
}

type Client struct {
	url   string
	model string
	http  *retryablehttp.Client

	// once sends the requests that change the model: a retried /update
	// would apply the batch twice
	once *retryablehttp.Client

	pipes []string
}

var _ engine.Engine = (*Client)(nil)

type optimizer struct {
	id    string
	steps int
}

func (o *optimizer) Steps() int {
	return o.steps
}

// New connects to the server and reads the pipeline stages of the model.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("remote engine needs a server url")
	}

	c := &Client{
		url:   strings.TrimRight(opts.URL, "/"),
		model: opts.Model,
		http:  NewRetryableHTTPClient(opts.RetryMax, opts.Timeout),
		once:  NewRetryableHTTPClient(opts.RetryMax, opts.Timeout),
	}
	c.once.RetryMax = 0

	var resp pipesResponse
	if err := c.call(ctx, "/pipes", request{Model: c.model}, &resp); err != nil {
		return nil, err
	}
	c.pipes = resp.Pipes
	return c, nil
}

// NewRetryableHTTPClient returns a retrying client logging through logrus.
func NewRetryableHTTPClient(retryMax int, timeout time.Duration) *retryablehttp.Client {
	if retryMax <= 0 {
		retryMax = DefaultRetryMax
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.HTTPClient.Timeout = timeout
	client.Logger = internal.NewLeveledLogrus(internal.GetLogger(), "remote")
	client.Backoff = retryablehttp.DefaultBackoff
	client.CheckRetry = retryPolicy

	return client
}

// retryPolicy does not retry client errors: a rejected batch stays
// rejected.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, nil
	}

	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

type request struct {
	Model     string         `json:"model"`
	Pipe      string         `json:"pipe,omitempty"`
	Pipes     []string       `json:"pipes,omitempty"`
	Label     string         `json:"label,omitempty"`
	Token     string         `json:"token,omitempty"`
	Examples  []sent.Example `json:"examples,omitempty"`
	Drop      float64        `json:"drop"`
	Optimizer string         `json:"optimizer,omitempty"`
	Text      string         `json:"text,omitempty"`
	Path      string         `json:"path,omitempty"`
}

type pipesResponse struct {
	Pipes []string `json:"pipes"`
}

type disableResponse struct {
	Token string `json:"token"`
}

type beginResponse struct {
	Optimizer string `json:"optimizer"`
}

type updateResponse struct {
	Losses map[string]float64 `json:"losses"`
}

type predictResponse struct {
	Ents []engine.Entity `json:"ents"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) call(ctx context.Context, path string, in request, out interface{}) error {
	return c.send(ctx, c.http, path, in, out)
}

func (c *Client) send(ctx context.Context, hc *retryablehttp.Client, path string, in request, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("JSON encoding error: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("engine %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("engine %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("engine %s: %s (status %d)", path, e.Error, resp.StatusCode)
		}
		return fmt.Errorf("engine %s: status %d", path, resp.StatusCode)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("engine %s: JSON decoding error: %w", path, err)
	}
	return nil
}

func (c *Client) Pipes() []string {
	return append([]string(nil), c.pipes...)
}

func (c *Client) AddLabel(pipe, label string) error {
	if !engine.HasPipe(c, pipe) {
		return fmt.Errorf("%w: %s", engine.ErrUnknownPipe, pipe)
	}
	return c.call(context.Background(), "/labels", request{Model: c.model, Pipe: pipe, Label: label}, nil)
}

func (c *Client) DisablePipes(names ...string) (func() error, error) {
	for _, n := range names {
		if !engine.HasPipe(c, n) {
			return nil, fmt.Errorf("%w: %s", engine.ErrUnknownPipe, n)
		}
	}

	var resp disableResponse
	if err := c.call(context.Background(), "/disable", request{Model: c.model, Pipes: names}, &resp); err != nil {
		return nil, err
	}

	return func() error {
		return c.call(context.Background(), "/restore", request{Model: c.model, Token: resp.Token}, nil)
	}, nil
}

func (c *Client) Begin(ctx context.Context) (engine.Optimizer, error) {
	var resp beginResponse
	if err := c.call(ctx, "/begin", request{Model: c.model}, &resp); err != nil {
		return nil, err
	}
	return &optimizer{id: resp.Optimizer}, nil
}

func (c *Client) Update(ctx context.Context, batch []sent.Example, dropout float64, opt engine.Optimizer, losses engine.Losses) error {
	o, ok := opt.(*optimizer)
	if !ok || o == nil {
		return engine.ErrNoOptimizer
	}

	var resp updateResponse
	in := request{Model: c.model, Examples: batch, Drop: dropout, Optimizer: o.id}
	if err := c.send(ctx, c.once, "/update", in, &resp); err != nil {
		return err
	}

	o.steps++
	if losses != nil {
		for pipe, l := range resp.Losses {
			losses[pipe] += l
		}
	}
	return nil
}

func (c *Client) Predict(ctx context.Context, text string) ([]engine.Entity, error) {
	var resp predictResponse
	if err := c.call(ctx, "/predict", request{Model: c.model, Text: text}, &resp); err != nil {
		return nil, err
	}
	if resp.Ents == nil {
		resp.Ents = []engine.Entity{}
	}
	return resp.Ents, nil
}

func (c *Client) Save(path string) error {
	return c.call(context.Background(), "/save", request{Model: c.model, Path: path}, nil)
}

func (c *Client) Load(path string) error {
	if err := c.call(context.Background(), "/load", request{Model: c.model, Path: path}, nil); err != nil {
		return err
	}

	var resp pipesResponse
	if err := c.call(context.Background(), "/pipes", request{Model: c.model}, &resp); err != nil {
		return err
	}
	c.pipes = resp.Pipes
	return nil
}
