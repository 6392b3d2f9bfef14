package indexer

import (
	"time"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/query"
)

// ChunkMetaIndexer is a MetaIndexer contributing fields derived purely from
// chunkMeta/indexMeta, without streaming the chunk's events: filename,
// correlationId, timestamp. Register it once via Registry.RegisterMeta.
type ChunkMetaIndexer struct{}

func (ChunkMetaIndexer) OnChunk(path string, chunkMeta chunk.Meta, indexMeta chunk.IndexMeta) chunk.Document {
	doc := chunk.Document{}
	if indexMeta.Filename != "" {
		doc["filename"] = indexMeta.Filename
	}
	if indexMeta.CorrelationID != "" {
		doc["correlationId"] = string(indexMeta.CorrelationID)
	}
	if !indexMeta.Timestamp.IsZero() {
		doc["timestamp"] = indexMeta.Timestamp.Format(time.RFC3339)
	}
	return doc
}

// FilenameGlobIndexerFactory compiles "filename:<glob>" query terms against
// the filename field ChunkMetaIndexer contributes. It creates no
// event-stream Indexer of its own: it only participates in query
// compilation.
type FilenameGlobIndexerFactory struct{}

func (FilenameGlobIndexerFactory) Name() string { return "filenameGlob" }

func (FilenameGlobIndexerFactory) CreateIndexer(EventKind) (Indexer, bool) {
	return nil, false
}

func (FilenameGlobIndexerFactory) QueryPriority(part query.QueryPart) query.Priority {
	if kv, ok := part.(query.KeyValueQueryPart); ok && kv.Key == "filename" {
		return query.PriorityOnly
	}
	return query.PriorityNone
}

func (FilenameGlobIndexerFactory) CompileQuery(part query.QueryPart) (query.IndexQuery, bool) {
	kv, ok := part.(query.KeyValueQueryPart)
	if !ok || kv.Key != "filename" {
		return nil, false
	}
	return query.GlobQuery{Field: "filename", Pattern: kv.Value}, true
}
