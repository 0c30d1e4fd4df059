package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arashi-labs/hybridcat"
	"github.com/arashi-labs/hybridcat/internal/embedding"
)

var buildCmd = &cobra.Command{
	Use:   "build <catalog.json>",
	Short: "Embed a catalog file and write a snapshot",
	Long: `build reads a JSON array of {id, text, metadata} objects, embeds
each item's text through the configured provider, and writes the
resulting snapshot to --snapshot.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		items, err := readCatalogFile(args[0])
		if err != nil {
			exitError("%v", err)
		}

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

		if err := engine.Build(context.Background(), items); err != nil {
			exitError("build: %v", err)
		}

		if err := writeSnapshot(engine); err != nil {
			exitError("%v", err)
		}

		output(map[string]any{"items": engine.Size(), "snapshot": snapshot}, func(d any) string {
			m := d.(map[string]any)
			return fmt.Sprintf("built %d items -> %s\n", m["items"], m["snapshot"])
		})
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

type catalogEntry struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Metadata any    `json:"metadata,omitempty"`
}

func readCatalogFile(path string) ([]hybridcat.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	items := make([]hybridcat.Item, len(entries))
	for i, e := range entries {
		items[i] = hybridcat.Item{ID: e.ID, Text: e.Text, Metadata: e.Metadata}
	}
	return items, nil
}

func newProvider() (embedding.Provider, error) {
	name := provider
	cfg, ok := embedding.DefaultConfigs[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	c := *cfg
	if model != "" {
		c.Model = model
	}
	return embedding.NewProvider(&c)
}

func engineConfig(prov embedding.Provider) hybridcat.Config {
	cfg := hybridcat.DefaultConfig()
	cfg.Model = prov.Name()
	if model != "" {
		cfg.Model = prov.Name() + ":" + model
	}
	cfg.Dim = prov.Dimension()
	if configHasWeight {
		cfg.Weights = configWeights
	}
	return cfg
}

func writeSnapshot(engine *hybridcat.Engine) error {
	snap, err := engine.Save()
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(snapshot, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", snapshot, err)
	}
	return nil
}

func loadSnapshot(engine *hybridcat.Engine) error {
	data, err := os.ReadFile(snapshot)
	if err != nil {
		return fmt.Errorf("read %s: %w", snapshot, err)
	}
	var snap hybridcat.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse %s: %w", snapshot, err)
	}
	if err := engine.Load(snap); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	return nil
}
