package ai

import (
	"context"
	"errors"
	"strings"
)

// Completer adapts a Runtime to the single-prompt text generation used by
// the chart suggestion flow.
type Completer struct {
	rt          Runtime
	model       string
	maxTokens   int
	temperature float64
	stream      bool
}

// CompleterOption customizes a Completer.
type CompleterOption func(*Completer)

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) CompleterOption { return func(c *Completer) { c.maxTokens = n } }

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CompleterOption { return func(c *Completer) { c.temperature = t } }

// WithStreaming collects the reply from streamed deltas when the runtime supports it.
func WithStreaming(on bool) CompleterOption { return func(c *Completer) { c.stream = on } }

// NewCompleter binds rt to a model.
func NewCompleter(rt Runtime, model string, opts ...CompleterOption) *Completer {
	c := &Completer{rt: rt, model: model}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if c.rt == nil {
		return "", errors.New("no runtime configured")
	}
	req := GenerateRequest{
		Model:       c.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if srt, ok := c.rt.(StreamRuntime); ok && c.stream {
		var b strings.Builder
		if err := srt.GenerateStream(ctx, req, func(d string) { b.WriteString(d) }); err != nil {
			return "", err
		}
		return b.String(), nil
	}
	resp, err := c.rt.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
