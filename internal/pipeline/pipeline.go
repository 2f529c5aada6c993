// Package pipeline turns raw sheet text into chart specs: profile the CSV,
// ask the model for directives, derive charts, and fall back to a histogram
// when nothing usable comes back.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetloom-cli/internal/analysis"
	"github.com/KaramelBytes/sheetloom-cli/internal/chart"
	"github.com/KaramelBytes/sheetloom-cli/internal/metrics"
	"github.com/KaramelBytes/sheetloom-cli/internal/suggest"
)

// Pipeline generates chart specs for sheet content.
type Pipeline struct {
	suggester *suggest.Client
	log       *zap.Logger
	metrics   *metrics.Collector
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithMetrics records outcomes on c.
func WithMetrics(c *metrics.Collector) Option { return func(p *Pipeline) { p.metrics = c } }

// New builds a pipeline. A nil generator skips the model and goes straight to the fallback.
func New(gen suggest.TextGenerator, opts ...Option) *Pipeline {
	p := &Pipeline{log: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	if gen != nil {
		p.suggester = suggest.New(gen, p.log)
	}
	return p
}

// Generate returns the chart specs for content. Malformed input, model
// failures and unusable suggestions all degrade to fewer charts; the only
// error is ctx's.
func (p *Pipeline) Generate(ctx context.Context, content string) ([]chart.Spec, error) {
	start := time.Now()
	defer func() { p.metrics.ObserveGeneration(time.Since(start)) }()

	tbl, err := analysis.Parse(content)
	if err != nil {
		p.log.Info("sheet not chartable", zap.Error(err))
		return nil, nil
	}

	var specs []chart.Spec
	if p.suggester != nil {
		directives, err := p.suggester.Suggest(ctx, tbl)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		switch {
		case errors.Is(err, suggest.ErrSuggestionUnavailable):
			p.log.Info("model returned no usable directives", zap.Error(err))
		case err != nil:
			p.log.Warn("chart suggestion failed", zap.Error(err))
		default:
			specs, err = p.derive(ctx, tbl, directives)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(specs) == 0 {
		d, ok := chart.Fallback(tbl)
		if !ok {
			p.log.Info("no numeric data for fallback chart")
			return nil, nil
		}
		p.log.Info("using fallback chart", zap.String("column", d.X))
		p.metrics.ObserveFallback()
		if specs, err = p.derive(ctx, tbl, []chart.Directive{d}); err != nil {
			return nil, err
		}
	}
	p.metrics.ObserveCharts(specs)
	return specs, nil
}

func (p *Pipeline) derive(ctx context.Context, tbl *analysis.Table, directives []chart.Directive) ([]chart.Spec, error) {
	return chart.Derive(ctx, tbl, directives, p.log, p.metrics.ObserveDropped)
}

// Outcome is the result delivered by GenerateAsync.
type Outcome struct {
	Specs []chart.Spec
	Err   error
}

// GenerateAsync runs Generate on its own goroutine and delivers exactly one
// Outcome on the returned channel, which is then closed.
func (p *Pipeline) GenerateAsync(ctx context.Context, content string) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		specs, err := p.Generate(ctx, content)
		ch <- Outcome{Specs: specs, Err: err}
	}()
	return ch
}
