package indexer

import (
	"bytes"
	"errors"
	"io"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/jsonstream"
	"github.com/tobias93/georocket/internal/xmlstream"
)

// Registry holds the set of factories and meta-indexers a pipeline
// instance runs every chunk through. Registration order is preserved and
// determines the iteration order in Run, matching the deterministic
// ordering the query compiler relies on for factory priority ties.
type Registry struct {
	factories    []Factory
	metaIndexers []MetaIndexer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an indexer factory. Order of registration is preserved.
func (r *Registry) Register(f Factory) {
	r.factories = append(r.factories, f)
}

// RegisterMeta adds a stateless meta-indexer.
func (r *Registry) RegisterMeta(m MetaIndexer) {
	r.metaIndexers = append(r.metaIndexers, m)
}

// Factories returns the registered factories in registration order.
func (r *Registry) Factories() []Factory {
	return r.factories
}

// Run executes the indexer framework over one chunk and returns its
// aggregated index document, per the framework's five-step pipeline:
// run meta-indexers, classify the chunk's mime type, instantiate one
// indexer per compatible factory, stream events through them all, then
// union every contributed map (meta-indexer maps win on conflict).
func (r *Registry) Run(path string, chunkBytes []byte, chunkMeta chunk.Meta, indexMeta chunk.IndexMeta) (chunk.Document, error) {
	metaDoc := chunk.Document{}
	for _, m := range r.metaIndexers {
		unionMetaWins(metaDoc, m.OnChunk(path, chunkMeta, indexMeta))
	}

	kind, err := KindForMimeType(chunkMeta.MimeType)
	if err != nil {
		return nil, err
	}

	var (
		xmlIndexers  []XMLIndexer
		jsonIndexers []JSONIndexer
	)
	for _, f := range r.factories {
		idx, ok := f.CreateIndexer(kind)
		if !ok {
			continue
		}
		if indexMeta.FallbackCRS != "" {
			if aware, ok := idx.(CRSAware); ok {
				aware.SetFallbackCRS(indexMeta.FallbackCRS)
			}
		}
		if aware, ok := idx.(ChunkBytesAware); ok {
			aware.SetChunkBytes(chunkBytes)
		}
		switch kind {
		case EventKindXML:
			xi, ok := idx.(XMLIndexer)
			if !ok {
				continue
			}
			xmlIndexers = append(xmlIndexers, xi)
		case EventKindJSON:
			ji, ok := idx.(JSONIndexer)
			if !ok {
				continue
			}
			jsonIndexers = append(jsonIndexers, ji)
		}
	}

	switch kind {
	case EventKindXML:
		if err := streamXML(chunkBytes, xmlIndexers); err != nil {
			return nil, err
		}
	case EventKindJSON:
		if err := streamJSON(chunkBytes, jsonIndexers); err != nil {
			return nil, err
		}
	}

	result := chunk.Document{}
	for _, xi := range xmlIndexers {
		if err := union(result, xi.MakeResult()); err != nil {
			return nil, err
		}
	}
	for _, ji := range jsonIndexers {
		if err := union(result, ji.MakeResult()); err != nil {
			return nil, err
		}
	}
	unionMetaWins(result, metaDoc)
	return result, nil
}

func streamXML(chunkBytes []byte, indexers []XMLIndexer) error {
	if len(indexers) == 0 {
		return nil
	}
	src := xmlstream.New(bytes.NewReader(chunkBytes))
	for {
		ev, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		for _, idx := range indexers {
			idx.OnXMLEvent(ev)
		}
	}
}

func streamJSON(chunkBytes []byte, indexers []JSONIndexer) error {
	if len(indexers) == 0 {
		return nil
	}
	src := jsonstream.New(bytes.NewReader(chunkBytes))
	for {
		ev, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		for _, idx := range indexers {
			idx.OnJSONEvent(ev)
		}
	}
}
