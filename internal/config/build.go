package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tobias93/georocket/internal/index"
	"github.com/tobias93/georocket/internal/index/memindex"
	"github.com/tobias93/georocket/internal/indexer"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/store"
	"github.com/tobias93/georocket/internal/store/filestore"
	"github.com/tobias93/georocket/internal/store/s3store"
)

// OpenStore instantiates the store.Store backend named by cfg.Store.Type.
func OpenStore(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Type {
	case "file", "":
		return filestore.New(filestore.Config{
			Dir:      cfg.Dir,
			Compress: cfg.Compress,
			Logger:   logger,
		})
	case "s3":
		return s3store.New(ctx, s3store.Config{
			Bucket:       cfg.Bucket,
			Prefix:       cfg.Prefix,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.UsePathStyle,
			AccessKey:    cfg.AccessKey,
			SecretKey:    cfg.SecretKey,
		})
	default:
		return nil, fmt.Errorf("config: unknown store type %q", cfg.Type)
	}
}

// OpenIndex instantiates the index.Index backend named by cfg.Index.Type.
func OpenIndex(cfg IndexConfig, logger *slog.Logger) (index.Index, error) {
	switch cfg.Type {
	case "memory", "":
		return memindex.New(memindex.Config{
			SnapshotPath: cfg.SnapshotPath,
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("config: unknown index type %q", cfg.Type)
	}
}

// BuildRegistry wires every GeoRocket indexer factory into a fresh Registry,
// in the order the CLI exercises them: identity indexers first, then
// geometry/attribute indexers, then the property-path and meta indexers
// which only complement fields the others contribute. propertyPaths
// configures GenericPropertyPathIndexerFactory; a nil/empty slice disables
// it (CreateIndexer already declines when no paths are configured).
func BuildRegistry(propertyPaths []string) *indexer.Registry {
	r := indexer.NewRegistry()
	r.Register(indexer.GmlIdIndexerFactory{})
	r.Register(indexer.GeoJsonIdIndexerFactory{})
	r.Register(indexer.BoundingBoxIndexerFactory{})
	r.Register(indexer.XalAddressIndexerFactory{})
	r.Register(indexer.GenericAttributeIndexerFactory{})
	r.Register(indexer.GenericPropertyPathIndexerFactory{Paths: propertyPaths})
	r.Register(indexer.FilenameGlobIndexerFactory{})
	r.RegisterMeta(indexer.ChunkMetaIndexer{})
	return r
}

// QueryFactories adapts r's registered factories into the []query.Factory
// slice query.Compile and retriever.New expect.
func QueryFactories(r *indexer.Registry) []query.Factory {
	return indexer.AsQueryFactories(r.Factories())
}
