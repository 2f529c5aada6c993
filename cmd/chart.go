package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sheetloom-cli/internal/ai"
	"github.com/KaramelBytes/sheetloom-cli/internal/chart"
	"github.com/KaramelBytes/sheetloom-cli/internal/metrics"
	"github.com/KaramelBytes/sheetloom-cli/internal/pipeline"
	"github.com/KaramelBytes/sheetloom-cli/internal/store"
	"github.com/KaramelBytes/sheetloom-cli/internal/suggest"
	"github.com/KaramelBytes/sheetloom-cli/internal/vault"
)

var (
	chartPassword   string
	chartProvider   string
	chartModel      string
	chartNoAI       bool
	chartJSON       bool
	chartMetrics    bool
	chartOllamaHost string
	chartTimeoutSec int
)

var chartCmd = &cobra.Command{
	Use:   "chart <id>",
	Short: "Suggest and derive charts for a sheet",
	Long: `Ask the configured model which charts fit the sheet, derive them from the
CSV, and print the result. Without a usable suggestion a histogram of the
first numeric column is produced instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		log := newLogger()
		defer func() { _ = log.Sync() }()
		collector := metrics.NewCollector("sheetloom")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if chartTimeoutSec > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(chartTimeoutSec)*time.Second)
			defer cancel()
		}

		var content string
		err = withStore(ctx, func(db *store.DB) error {
			s, err := db.Get(ctx, id)
			if err != nil {
				return err
			}
			if !s.Encrypted {
				content = s.Content
				return nil
			}
			if chartPassword == "" {
				return fmt.Errorf("sheet %d is locked; pass --password", id)
			}
			plain, err := vault.New(db.Secrets()).Unlock(ctx, s, chartPassword)
			if err != nil {
				return unlockError(err, collector)
			}
			content = plain
			return nil
		})
		if err != nil {
			return err
		}

		var (
			gen          suggest.TextGenerator
			watched      *watchedGenerator
			providerName string
			model        string
		)
		if !chartNoAI {
			rt, name, err := buildRuntime(c, runtimeOptions{ProviderFlag: chartProvider, OllamaHost: chartOllamaHost}, log)
			if err != nil {
				return err
			}
			providerName = name
			model = selectModel(c, chartModel)
			watched = &watchedGenerator{inner: ai.NewCompleter(rt, model,
				ai.WithMaxTokens(c.MaxTokens),
				ai.WithTemperature(c.Temperature),
				ai.WithStreaming(c.Stream),
			)}
			gen = watched
		}

		p := pipeline.New(gen, pipeline.WithLogger(log), pipeline.WithMetrics(collector))
		out := <-p.GenerateAsync(ctx, content)
		if out.Err != nil {
			return out.Err
		}

		w := cmd.OutOrStdout()
		if watched != nil && watched.lastErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s; using fallback\n", runtimeHint(watched.lastErr, providerName, model))
		}
		if chartJSON {
			specs := out.Specs
			if specs == nil {
				specs = []chart.Spec{}
			}
			if err := printJSON(w, specs); err != nil {
				return err
			}
		} else {
			printSpecs(w, out.Specs)
		}
		if chartMetrics {
			summary, err := collector.Summary()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.ErrOrStderr(), summary)
		}
		return nil
	},
}

func printSpecs(w io.Writer, specs []chart.Spec) {
	if len(specs) == 0 {
		fmt.Fprintln(w, "No charts could be derived from this sheet")
		return
	}
	for i, s := range specs {
		fmt.Fprintf(w, "%d. %s [%s]\n", i+1, s.Title, s.Kind)
		switch s.Kind {
		case chart.KindBar:
			for _, b := range s.Bars {
				fmt.Fprintf(w, "   %-20s %g\n", b.Label, b.Value)
			}
		case chart.KindPie:
			for _, sl := range s.Slices {
				fmt.Fprintf(w, "   %-20s %g\n", sl.Label, sl.Value)
			}
		case chart.KindRadar:
			for _, r := range s.Radar {
				fmt.Fprintf(w, "   %-20s %g\n", r.Axis, r.Value)
			}
		default:
			pts := make([]string, 0, len(s.Points))
			for _, p := range s.Points {
				pts = append(pts, fmt.Sprintf("(%g, %g)", p.X, p.Y))
			}
			fmt.Fprintf(w, "   %s\n", strings.Join(pts, " "))
		}
	}
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVar(&chartPassword, "password", "", "password for a locked sheet")
	chartCmd.Flags().StringVar(&chartProvider, "provider", "", "model provider: openrouter or ollama (default from config)")
	chartCmd.Flags().StringVar(&chartModel, "model", "", "model name (default from config)")
	chartCmd.Flags().BoolVar(&chartNoAI, "no-ai", false, "skip the model and use the histogram fallback")
	chartCmd.Flags().BoolVar(&chartJSON, "json", false, "print chart specs as JSON")
	chartCmd.Flags().BoolVar(&chartMetrics, "metrics", false, "print a metrics summary to stderr")
	chartCmd.Flags().StringVar(&chartOllamaHost, "ollama-host", "", "Ollama host (default from config or SHEETLOOM_OLLAMA_HOST)")
	chartCmd.Flags().IntVar(&chartTimeoutSec, "timeout-sec", 120, "overall time limit in seconds")
}
