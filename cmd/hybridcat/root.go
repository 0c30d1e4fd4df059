// Command hybridcat is a thin CLI demonstrating the hybridcat library:
// build a catalog from a JSON file, search it, and add items
// incrementally.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	snapshot   string
	provider   string
	model      string
)

var rootCmd = &cobra.Command{
	Use:   "hybridcat",
	Short: "Offline hybrid search over a catalog of items",
	Long: `hybridcat is a CLI wrapper around the hybridcat library: an offline
hybrid search engine combining HNSW semantic search, fuzzy string
matching, and keyword containment over a catalog of short text items.

Use 'hybridcat build' to embed a catalog file and save a snapshot, then
'hybridcat search' to query it.`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCLIConfig(configPath)
		if err != nil {
			return err
		}
		// A flag given on the command line wins over the config file.
		flags := cmd.Flags()
		if flags.Changed("provider") {
			cfg.Provider = ""
		}
		if flags.Changed("model") {
			cfg.Model = ""
		}
		if flags.Changed("snapshot") {
			cfg.Snapshot = ""
		}
		applyCLIConfig(cfg)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&snapshot, "snapshot", "catalog.snapshot.json", "Path to the snapshot file")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "ollama", "Embedding provider: ollama, openai, huggingface")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Embedding model (provider default if empty)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "hybridcat.yaml", "Optional config file for flag defaults")
}

func output(data any, textFormatter func(any) string) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			exitError("encoding JSON: %v", err)
		}
		return
	}
	fmt.Print(textFormatter(data))
}

func exitError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
