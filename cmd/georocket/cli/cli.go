// Package cli implements georocket's subcommand tree: import, query, watch.
// Each command opens its own store/index pair from persistent flags rather
// than sharing a long-lived connection, since georocket has no server
// process to connect to (unlike the teacher's Connect-RPC cli package).
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tobias93/georocket/internal/config"
	"github.com/tobias93/georocket/internal/index"
	"github.com/tobias93/georocket/internal/indexer"
	"github.com/tobias93/georocket/internal/store"
)

// pipeline bundles the store/index/registry triple every command needs,
// plus the resolved layer default.
type pipeline struct {
	Store    store.Store
	Index    index.Index
	Registry *indexer.Registry
	Layer    string
}

// openPipeline builds a pipeline from cmd's persistent flags.
func openPipeline(ctx context.Context, cmd *cobra.Command, logger *slog.Logger) (*pipeline, error) {
	cfg := configFromFlags(cmd)

	st, err := config.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	idx, err := config.OpenIndex(cfg.Index, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}

	propertyPaths, _ := cmd.Flags().GetStringSlice("property-path")

	return &pipeline{
		Store:    st,
		Index:    idx,
		Registry: config.BuildRegistry(propertyPaths),
		Layer:    cfg.Layer,
	}, nil
}

func (p *pipeline) Close() error {
	storeErr := p.Store.Close()
	indexErr := p.Index.Close()
	if storeErr != nil {
		return storeErr
	}
	return indexErr
}

func configFromFlags(cmd *cobra.Command) config.Config {
	storeType, _ := cmd.Flags().GetString("store-type")
	storeDir, _ := cmd.Flags().GetString("store-dir")
	storeCompress, _ := cmd.Flags().GetBool("store-compress")
	storeBucket, _ := cmd.Flags().GetString("store-bucket")
	storePrefix, _ := cmd.Flags().GetString("store-prefix")
	storeRegion, _ := cmd.Flags().GetString("store-region")
	storeEndpoint, _ := cmd.Flags().GetString("store-endpoint")
	storePathStyle, _ := cmd.Flags().GetBool("store-path-style")
	indexType, _ := cmd.Flags().GetString("index-type")
	indexSnapshot, _ := cmd.Flags().GetString("index-snapshot")
	layer, _ := cmd.Flags().GetString("layer")

	cfg := config.Config{
		Store: config.StoreConfig{
			Type:         storeType,
			Dir:          storeDir,
			Compress:     storeCompress,
			Bucket:       storeBucket,
			Prefix:       storePrefix,
			Region:       storeRegion,
			Endpoint:     storeEndpoint,
			UsePathStyle: storePathStyle,
		},
		Index: config.IndexConfig{
			Type:         indexType,
			SnapshotPath: indexSnapshot,
		},
		Layer: layer,
	}
	return cfg.WithDefaults()
}
