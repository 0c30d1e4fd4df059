package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arashi-labs/hybridcat"
)

var (
	searchTopK      int
	searchThreshold float64
	searchExplain   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the snapshot's catalog",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := args[0]

		prov, err := newProvider()
		if err != nil {
			exitError("%v", err)
		}
		defer func() { _ = prov.Close() }()

		engine, err := hybridcat.New(prov, engineConfig(prov))
		if err != nil {
			exitError("create engine: %v", err)
		}
		defer func() { _ = engine.Close() }()

		if err := loadSnapshot(engine); err != nil {
			exitError("%v", err)
		}

		opts := hybridcat.DefaultSearchOptions()
		opts.TopK = searchTopK
		opts.Threshold = searchThreshold
		opts.Explain = searchExplain

		results, err := engine.Search(context.Background(), query, opts)
		if err != nil {
			exitError("search: %v", err)
		}

		output(results, formatResults)
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", hybridcat.DefaultTopK, "Number of results to return")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", hybridcat.DefaultThreshold, "Minimum score to include a result")
	searchCmd.Flags().BoolVar(&searchExplain, "explain", false, "Include raw and normalized component scores")
	rootCmd.AddCommand(searchCmd)
}

func formatResults(d any) string {
	results := d.([]hybridcat.SearchResult)
	if len(results) == 0 {
		return "no results\n"
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%2d. %-20s %.4f  %s\n", i+1, r.Item.ID, r.Score, truncate(r.Item.Text, 60))
		if r.Explain != nil {
			fmt.Fprintf(&b, "      semantic=%.3f fuzzy=%.3f keyword=%.3f\n",
				r.Explain.NormSemantic, r.Explain.NormFuzzy, r.Explain.NormKeyword)
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
