package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arashi-labs/hybridcat"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the snapshot's index and cache statistics",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
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

		output(engine.GetIndexInfo(), func(d any) string {
			info := d.(hybridcat.IndexInfo)
			return fmt.Sprintf(
				"items=%d dim=%d hnsw=%t (M=%d efConstruction=%d efSearch=%d) cache=%d/%d hitRate=%.2f\n",
				info.Size, info.Dimension, info.HNSWActive,
				info.HNSW.M, info.HNSW.EfConstruction, info.HNSW.EfSearch,
				info.Cache.Size, info.Cache.MaxSize, info.Cache.HitRate,
			)
		})
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
