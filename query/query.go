package query

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"

	"github.com/revelaction/nerbio/engine"
	"github.com/revelaction/nerbio/render"
)

const (
	// commandPrefix is the Character in the prompt that prefixes a command
	commandPrefix = ":"

	quit = "quit"
)

var commands = []prompt.Suggest{
	{Text: ":labels", Description: "🔖 labels known to the ner pipe"},
	{Text: ":pipes", Description: "🔧 pipes of the engine"},
	{Text: quit, Description: "exit"},
}

// Handler runs an interactive prompt that detects the entities of each
// line typed.
type Handler struct {
	Engine   engine.Engine
	Renderer *render.Renderer

	// Labels are shown by the :labels command
	Labels []string

	// Out receives command output. Entities go to Renderer.W.
	Out io.Writer
}

func NewHandler(e engine.Engine, labels []string, r *render.Renderer) *Handler {
	return &Handler{
		Engine:   e,
		Renderer: r,
		Labels:   labels,
		Out:      os.Stdout,
	}
}

func (h *Handler) Run(ctx context.Context) error {

	fmt.Fprintln(h.Out, "🔑 Ctrl+X: Toggle prefix, Ctrl+F: next Format, 🔧 quit")

	// initialize prompt history
	history := []string{}

	for {

		in := prompt.Input("      🔖 ", h.completer,
			prompt.OptionTitle("nerbio query"),
			prompt.OptionPrefixTextColor(prompt.Yellow),
			prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
			prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
			prompt.OptionMaxSuggestion(12),
			prompt.OptionSuggestionBGColor(prompt.DarkGray),
			prompt.OptionHistory(history),
			prompt.OptionAddKeyBind(prompt.KeyBind{
				Key: prompt.ControlF,
				Fn: func(buf *prompt.Buffer) {
					h.Renderer.NextFormat()
					fmt.Fprintln(h.Out, "Format set to: "+h.Renderer.Format)
				}}),
			prompt.OptionAddKeyBind(prompt.KeyBind{
				Key: prompt.ControlX,
				Fn: func(buf *prompt.Buffer) {
					h.Renderer.NextPrefix()
					fmt.Fprintln(h.Out, "Prefix set to "+fmt.Sprintf("%t", h.Renderer.HasPrefix))
				}}),
		)

		history = append(history, in)

		done, err := h.Handle(ctx, in)
		if err != nil {
			fmt.Fprintf(h.Out, "Error: %v\n", err)
			// the remote engine may be gone, keep asking
			continue
		}

		if done {
			return nil
		}
	}
}

// Handle processes one line of input. It returns true when the line asks
// to leave the prompt.
func (h *Handler) Handle(ctx context.Context, in string) (bool, error) {
	in = strings.TrimSpace(in)

	switch {
	case in == "":
		return false, nil
	case in == quit:
		return true, nil
	case in == ":labels":
		h.Renderer.Labels(h.Labels)
		return false, nil
	case in == ":pipes":
		fmt.Fprintln(h.Out, strings.Join(h.Engine.Pipes(), ", "))
		return false, nil
	case strings.HasPrefix(in, commandPrefix):
		return false, fmt.Errorf("unknown command %q", in)
	}

	ents, err := h.Engine.Predict(ctx, in)
	if err != nil {
		return false, err
	}

	h.Renderer.Entities(in, ents)
	return false, nil
}

func (h *Handler) completer(in prompt.Document) []prompt.Suggest {
	befCursor := in.TextBeforeCursor()

	// only commands are completed, free text is predicted
	if befCursor == "" || strings.Contains(befCursor, " ") {
		return []prompt.Suggest{}
	}

	return prompt.FilterHasPrefix(commands, befCursor, true)
}
