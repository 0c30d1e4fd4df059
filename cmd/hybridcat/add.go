package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arashi-labs/hybridcat"
)

var addCmd = &cobra.Command{
	Use:   "add <id> <text>",
	Short: "Add or replace a single item in the snapshot",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id, text := args[0], args[1]

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

		if err := engine.Add(context.Background(), []hybridcat.Item{{ID: id, Text: text}}); err != nil {
			exitError("add: %v", err)
		}

		if err := writeSnapshot(engine); err != nil {
			exitError("%v", err)
		}

		output(map[string]any{"id": id, "size": engine.Size()}, func(d any) string {
			m := d.(map[string]any)
			return fmt.Sprintf("added %q, catalog now has %d items\n", m["id"], m["size"])
		})
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
