package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"medsearch/internal/config"
	"medsearch/internal/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "searchctl",
	Short: "Inspect query understanding and run directory searches from the shell",
	Long: `searchctl runs the same pipeline as the HTTP server: free text is turned
into a search intent (LLM first, keyword rules as fallback), embedded and
matched against the hospital or doctor index.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(newIntentCmd(), newSearchCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.NewStructured(level, "console")
	for _, w := range cfg.Warnings {
		log.Warn("configuration", map[string]interface{}{"warning": w})
	}
	return cfg, log, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
