package splitter

import (
	"context"
	"errors"
	"io"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/window"
	"github.com/tobias93/georocket/internal/xmlstream"
)

// XML splits an XML byte stream into chunks. Chunks are the maximal
// direct children of the document root: nested elements are never split
// into separate chunks, and namespace declarations on the root are carried
// into each chunk's Meta.XML.Parents so the merger can reproduce them.
type XML struct{}

// winFeeder feeds every byte read through the underlying reader into a
// window.Window, so the window can later hand back the exact bytes the
// decoder has already tokenized.
type winFeeder struct {
	r io.Reader
	w *window.Window
}

func (f winFeeder) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if n > 0 {
		f.w.Feed(p[:n])
	}
	return n, err
}

func (XML) Split(ctx context.Context, r io.Reader, out chan<- chunk.Chunk) error {
	win := window.New()
	src := xmlstream.New(winFeeder{r: r, w: win})

	var (
		parents     []chunk.StartElement
		rootClosed  bool
		chunkActive bool
		chunkStart  int64
		chunkDepth  int
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, err := src.Next()
		if err != nil {
			var mi *xmlstream.MalformedInput
			if errors.As(err, &mi) {
				return &MalformedInput{Offset: mi.Offset, Message: mi.Message, Err: mi}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch ev.Kind {
		case xmlstream.EndDocument:
			if chunkActive || len(parents) > 0 {
				return &MalformedInput{Offset: ev.BytePos, Message: "unexpected end of document: unbalanced tags"}
			}
			return nil

		case xmlstream.StartElement:
			if rootClosed {
				return &MalformedInput{Offset: ev.BytePos, Message: "content after document element"}
			}
			if chunkActive {
				chunkDepth++
				continue
			}
			if len(parents) == 0 {
				parents = append(parents, toStartElement(ev))
				continue
			}
			// Frontier: this element begins a new chunk.
			chunkActive = true
			chunkStart = ev.BytePos
			chunkDepth = 1

		case xmlstream.EndElement:
			if chunkActive {
				chunkDepth--
				if chunkDepth != 0 {
					continue
				}
				chunkEnd := ev.BytePos
				raw, serr := win.Substring(chunkStart, chunkEnd)
				if serr != nil {
					return serr
				}
				body := make([]byte, len(raw))
				copy(body, raw)

				meta := chunk.Meta{
					MimeType: "application/xml",
					XML: &chunk.XMLMeta{
						Parents: cloneParents(parents),
						Start:   chunkStart,
						End:     chunkEnd,
					},
				}
				if err := send(ctx, out, chunk.Chunk{Bytes: body, Meta: meta}); err != nil {
					return err
				}
				win.AdvanceTo(chunkEnd)
				chunkActive = false
				continue
			}
			if len(parents) == 0 {
				return &MalformedInput{Offset: ev.BytePos, Message: "unmatched end element"}
			}
			parents = parents[:len(parents)-1]
			if len(parents) == 0 {
				rootClosed = true
			}

		case xmlstream.Characters:
			// Characters outside a chunk are discarded; characters inside a
			// chunk are part of the chunk's raw bytes, already captured by
			// the window substring taken at the chunk's EndElement.
		}
	}
}

func toStartElement(ev xmlstream.Event) chunk.StartElement {
	e := chunk.StartElement{
		Prefix:    ev.Prefix,
		LocalName: ev.Local,
	}
	if len(ev.Namespaces) > 0 {
		e.NamespacePrefixes = make(map[string]string, len(ev.Namespaces))
		for prefix, uri := range ev.Namespaces {
			e.NamespacePrefixes[prefix] = uri
		}
	}
	if len(ev.Attrs) > 0 {
		e.Attributes = make(map[string]string, len(ev.Attrs))
		for _, a := range ev.Attrs {
			name := a.Local
			if a.Prefix != "" {
				name = a.Prefix + ":" + a.Local
			}
			e.Attributes[name] = a.Value
		}
	}
	return e
}

func cloneParents(parents []chunk.StartElement) []chunk.StartElement {
	cp := make([]chunk.StartElement, len(parents))
	copy(cp, parents)
	return cp
}
