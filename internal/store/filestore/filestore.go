// Package filestore is a filesystem-backed implementation of store.Store.
// Each chunk is written as a single file, named by a creation-sorted ID,
// under Dir/<layer>/<id>.blob. A 4-byte format.Header precedes the body so
// a reader can tell a plain blob from a zstd-seekable one without touching
// the filename.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/format"
	"github.com/tobias93/georocket/internal/logging"
	"github.com/tobias93/georocket/internal/store"

	seekable "github.com/SaveTheRbtz/zstd-seekable-format-go/pkg"
	"github.com/klauspost/compress/zstd"
)

const blobExt = ".blob"

// seekableFrameSize is the uncompressed frame size for seekable zstd
// compression. Each frame is independently decompressible, so a GetOne on a
// large compressed chunk need not inflate the whole blob.
const seekableFrameSize = 256 << 10 // 256 KiB

var zstdDec *zstd.Decoder

func init() {
	var err error
	zstdDec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic("filestore: init zstd decoder: " + err.Error())
	}
}

// Config configures a filesystem Store.
type Config struct {
	Dir string

	// Compress enables seekable zstd compression of blobs at write time.
	Compress bool

	FileMode os.FileMode
	Logger   *slog.Logger
}

// Store is a filesystem-backed store.Store.
type Store struct {
	dir      string
	fileMode os.FileMode
	zstdEnc  *zstd.Encoder // non-nil when Config.Compress is set
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates (or opens) a filesystem store rooted at cfg.Dir.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("filestore: dir is required")
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o644
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, err
	}

	var enc *zstd.Encoder
	if cfg.Compress {
		var err error
		enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("filestore: create zstd encoder: %w", err)
		}
	}

	logger := logging.Default(cfg.Logger).With("component", "store", "type", "file")
	return &Store{dir: cfg.Dir, fileMode: cfg.FileMode, zstdEnc: enc, logger: logger}, nil
}

func (s *Store) layerDir(layer string) string {
	if layer == "" {
		layer = "default"
	}
	return filepath.Join(s.dir, filepath.Clean(string(filepath.Separator)+layer))
}

func (s *Store) blobPath(path store.Path) (string, error) {
	layer, id, ok := strings.Cut(string(path), "/")
	if !ok {
		return "", fmt.Errorf("filestore: malformed path %q", path)
	}
	return filepath.Join(s.layerDir(layer), id+blobExt), nil
}

// Add implements store.Store.
func (s *Store) Add(ctx context.Context, b []byte, chunkMeta chunk.Meta, indexMeta chunk.IndexMeta, layer string) (store.Path, error) {
	if layer == "" {
		layer = "default"
	}
	dir := s.layerDir(layer)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", &store.UpstreamFailure{Cause: err}
	}

	id := chunk.NewID()
	path := store.Path(layer + "/" + id.String())
	full := filepath.Join(dir, id.String()+blobExt)

	flags := byte(0)
	if s.zstdEnc != nil {
		flags |= format.FlagCompressed
	}
	hdr := format.Header{Type: format.TypeChunkBlob, Version: 1, Flags: flags}

	tmp, err := os.CreateTemp(dir, ".add-*")
	if err != nil {
		return "", &store.UpstreamFailure{Cause: err}
	}
	tmpPath := tmp.Name()
	cleanup := func() { tmp.Close(); os.Remove(tmpPath) }

	hdrBuf := hdr.Encode()
	if _, err := tmp.Write(hdrBuf[:]); err != nil {
		cleanup()
		return "", &store.UpstreamFailure{Cause: err}
	}

	if s.zstdEnc == nil {
		if _, err := tmp.Write(b); err != nil {
			cleanup()
			return "", &store.UpstreamFailure{Cause: err}
		}
	} else if err := writeSeekableZstd(tmp, b, s.zstdEnc); err != nil {
		cleanup()
		return "", &store.UpstreamFailure{Cause: err}
	}

	if err := tmp.Chmod(s.fileMode); err != nil {
		cleanup()
		return "", &store.UpstreamFailure{Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", &store.UpstreamFailure{Cause: err}
	}
	if err := os.Rename(tmpPath, full); err != nil {
		os.Remove(tmpPath)
		return "", &store.UpstreamFailure{Cause: err}
	}
	return path, nil
}

func writeSeekableZstd(w io.Writer, body []byte, enc *zstd.Encoder) error {
	sw, err := seekable.NewWriter(w, enc)
	if err != nil {
		return err
	}
	for off := 0; off < len(body); off += seekableFrameSize {
		end := min(off+seekableFrameSize, len(body))
		if _, err := sw.Write(body[off:end]); err != nil {
			return err
		}
	}
	return sw.Close()
}

// GetOne implements store.Store.
func (s *Store) GetOne(ctx context.Context, path store.Path) ([]byte, error) {
	full, err := s.blobPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, &store.UpstreamFailure{Cause: err}
	}
	defer f.Close()

	var hdrBuf [format.HeaderSize]byte
	if _, err := io.ReadFull(f, hdrBuf[:]); err != nil {
		return nil, &store.UpstreamFailure{Cause: err}
	}
	hdr, err := format.Decode(hdrBuf[:])
	if err != nil {
		return nil, &store.UpstreamFailure{Cause: err}
	}

	if hdr.Flags&format.FlagCompressed == 0 {
		b, err := io.ReadAll(f)
		if err != nil {
			return nil, &store.UpstreamFailure{Cause: err}
		}
		return b, nil
	}

	info, err := f.Stat()
	if err != nil {
		return nil, &store.UpstreamFailure{Cause: err}
	}
	section := io.NewSectionReader(f, format.HeaderSize, info.Size()-format.HeaderSize)
	r, err := seekable.NewReader(section, zstdDec)
	if err != nil {
		return nil, &store.UpstreamFailure{Cause: err}
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &store.UpstreamFailure{Cause: err}
	}
	return b, nil
}

// GetManyParallel implements store.Store.
func (s *Store) GetManyParallel(ctx context.Context, paths <-chan store.Path, parallelism int) <-chan store.Item {
	return store.RunParallel(ctx, paths, parallelism, s.GetOne)
}

// Delete implements store.Store. Missing paths are silent successes.
func (s *Store) Delete(ctx context.Context, paths []store.Path) error {
	for _, p := range paths {
		full, err := s.blobPath(p)
		if err != nil {
			return err
		}
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return &store.UpstreamFailure{Cause: err}
		}
	}
	return nil
}

// Close implements store.Store. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.zstdEnc != nil {
		return s.zstdEnc.Close()
	}
	return nil
}
