package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/sheetloom-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set SheetLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "api_key: %s\n", mask(c.APIKey))
		fmt.Fprintf(w, "default_model: %s\n", c.DefaultModel)
		fmt.Fprintf(w, "default_provider: %s\n", c.DefaultProvider)
		fmt.Fprintf(w, "max_tokens: %d\n", c.MaxTokens)
		fmt.Fprintf(w, "temperature: %.3f\n", c.Temperature)
		fmt.Fprintf(w, "stream: %t\n", c.Stream)
		fmt.Fprintf(w, "database_path: %s\n", c.DatabasePath)
		fmt.Fprintf(w, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(w, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		fmt.Fprintf(w, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
		fmt.Fprintf(w, "retry_base_delay_ms: %d\n", c.RetryBaseDelayMs)
		fmt.Fprintf(w, "retry_max_delay_ms: %d\n", c.RetryMaxDelayMs)
		fmt.Fprintf(w, "ollama_host: %s\n", c.OllamaHost)
		fmt.Fprintf(w, "ollama_timeout_sec: %d\n", c.OllamaTimeoutSec)
		fmt.Fprintf(w, "breaker_max_failures: %d\n", c.BreakerMaxFailures)
		fmt.Fprintf(w, "breaker_timeout_sec: %d\n", c.BreakerTimeoutSec)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
