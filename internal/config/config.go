// Package config describes the desired shape of a GeoRocket deployment: which
// store and index backend to open, and the defaults the CLI applies when a
// flag is left unset. It holds no global singletons; every constructor takes
// an explicit *Config (or the relevant sub-config) rather than reading from
// package-level state.
package config

import "cmp"

const (
	DefaultLayer       = "default"
	DefaultStoreType   = "file"
	DefaultIndexType   = "memory"
	DefaultParallelism = 32
)

// Config is the top-level GeoRocket configuration: which store and index
// backend to instantiate, and the import/query defaults the CLI falls back
// to when a flag is left at its zero value.
type Config struct {
	Store StoreConfig
	Index IndexConfig

	// Layer is the default store namespace for imports that don't specify
	// one explicitly.
	Layer string

	// Parallelism is the default fan-out width for retriever fetches.
	Parallelism int
}

// StoreConfig selects and configures a store.Store backend.
type StoreConfig struct {
	// Type is "file" or "s3".
	Type string

	// File backend.
	Dir      string
	Compress bool

	// S3 backend.
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	AccessKey    string
	SecretKey    string
}

// IndexConfig selects and configures an index.Index backend.
type IndexConfig struct {
	// Type is "memory" (the only backend spec.md requires in-process; other
	// backends are reached through the same interface but aren't shipped
	// here).
	Type string

	// SnapshotPath, for the memory backend, persists the index across
	// restarts.
	SnapshotPath string
}

// WithDefaults returns a copy of cfg with every zero-valued field replaced by
// its default.
func (cfg Config) WithDefaults() Config {
	cfg.Layer = cmp.Or(cfg.Layer, DefaultLayer)
	cfg.Parallelism = cmp.Or(cfg.Parallelism, DefaultParallelism)
	cfg.Store.Type = cmp.Or(cfg.Store.Type, DefaultStoreType)
	cfg.Index.Type = cmp.Or(cfg.Index.Type, DefaultIndexType)
	if cfg.Store.Type == DefaultStoreType {
		cfg.Store.Dir = cmp.Or(cfg.Store.Dir, "./georocket-data")
	}
	return cfg
}
