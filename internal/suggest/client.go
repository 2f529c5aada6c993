package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetloom-cli/internal/analysis"
	"github.com/KaramelBytes/sheetloom-cli/internal/chart"
	"github.com/KaramelBytes/sheetloom-cli/internal/utils"
)

// ErrSuggestionUnavailable means the model reply held no usable directive list.
var ErrSuggestionUnavailable = errors.New("suggestion unavailable")

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client asks a TextGenerator for chart directives.
type Client struct {
	gen      TextGenerator
	log      *zap.Logger
	validate *validator.Validate
}

// New returns a Client. A nil logger discards output.
func New(gen TextGenerator, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{gen: gen, log: log, validate: validator.New()}
}

// Suggest prompts the model with the table's typed columns and parses its reply.
// Generator failures are returned as-is; unusable replies yield ErrSuggestionUnavailable.
func (c *Client) Suggest(ctx context.Context, tbl *analysis.Table) ([]chart.Directive, error) {
	prompt := BuildPrompt(tbl.Columns())
	c.log.Debug("requesting chart suggestions",
		zap.Int("columns", len(tbl.Header)),
		zap.Int("prompt_tokens_est", utils.EstimateTokens(prompt)))

	raw, err := c.gen.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.log.Debug("model reply", zap.String("reply", utils.Clip(raw, 128)))
	return c.Parse(raw)
}

// Parse extracts directives from raw model output. Each array element is
// decoded and validated on its own; bad elements are dropped.
func (c *Client) Parse(raw string) ([]chart.Directive, error) {
	span, ok := extractArray(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON array in reply", ErrSuggestionUnavailable)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(span), &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSuggestionUnavailable, err)
	}

	var out []chart.Directive
	for i, el := range elems {
		d, err := c.decode(el)
		if err != nil {
			if errors.Is(err, errUnknownKind) {
				c.log.Debug("skipping unknown chart kind", zap.Int("index", i), zap.String("kind", string(d.Kind)))
			} else {
				c.log.Warn("dropping malformed directive", zap.Int("index", i), zap.Error(err))
			}
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no valid directives", ErrSuggestionUnavailable)
	}
	return out, nil
}

var errUnknownKind = errors.New("unknown chart kind")

func (c *Client) decode(el json.RawMessage) (chart.Directive, error) {
	var d chart.Directive
	dec := json.NewDecoder(bytes.NewReader(el))
	if err := dec.Decode(&d); err != nil {
		return d, fmt.Errorf("decode: %w", err)
	}
	if d.Kind != "" && !d.Kind.Known() {
		return d, errUnknownKind
	}
	if err := c.validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return d, fmt.Errorf("field %s failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return d, err
	}
	return d, nil
}
