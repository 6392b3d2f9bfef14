// Package merger re-embeds a source-ordered sequence of chunks into a
// single well-formed output document, the inverse of package splitter. It
// never re-parses chunk bytes; it trusts the splitter's byte-range and
// parents invariants.
package merger

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"sort"

	"github.com/tobias93/georocket/internal/chunk"
)

// XML merges a source-ordered sequence of XML chunks into a single
// well-formed document. Write chunks in order with WriteChunk, then call
// Close to close any still-open ancestor chain.
type XML struct {
	w           io.Writer
	wroteHeader bool
	openChain   []chunk.StartElement
	closed      bool
}

// NewXML returns an XML merger writing to w.
func NewXML(w io.Writer) *XML {
	return &XML{w: w}
}

// WriteChunk writes one chunk's bytes, opening and closing ancestor
// start-tags as needed so the output remains well-formed. Chains that
// share a prefix with the previously open chain keep that prefix open;
// only the differing suffix is closed and reopened.
func (m *XML) WriteChunk(c chunk.Chunk) error {
	if c.Meta.XML == nil {
		return fmt.Errorf("merger: chunk has no XML metadata")
	}
	if !m.wroteHeader {
		if _, err := io.WriteString(m.w, xml.Header); err != nil {
			return err
		}
		m.wroteHeader = true
	}

	newChain := c.Meta.XML.Parents
	common := commonPrefixLen(m.openChain, newChain)

	for i := len(m.openChain) - 1; i >= common; i-- {
		if err := writeCloseTag(m.w, m.openChain[i]); err != nil {
			return err
		}
	}
	for i := common; i < len(newChain); i++ {
		if err := writeOpenTag(m.w, newChain[i]); err != nil {
			return err
		}
	}
	m.openChain = newChain

	if _, err := m.w.Write(c.Bytes); err != nil {
		return err
	}
	return nil
}

// Close closes every still-open ancestor tag, in reverse order. It is safe
// to call Close on a merger that received no chunks (writes nothing).
func (m *XML) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	for i := len(m.openChain) - 1; i >= 0; i-- {
		if err := writeCloseTag(m.w, m.openChain[i]); err != nil {
			return err
		}
	}
	m.openChain = nil
	return nil
}

// commonPrefixLen returns how many leading elements of old and new are
// structurally identical (same name, namespaces, and attributes).
func commonPrefixLen(old, new []chunk.StartElement) int {
	n := len(old)
	if len(new) < n {
		n = len(new)
	}
	i := 0
	for ; i < n; i++ {
		if !equalStartElement(old[i], new[i]) {
			break
		}
	}
	return i
}

func equalStartElement(a, b chunk.StartElement) bool {
	return a.Prefix == b.Prefix &&
		a.LocalName == b.LocalName &&
		maps.Equal(a.NamespacePrefixes, b.NamespacePrefixes) &&
		maps.Equal(a.Attributes, b.Attributes)
}

func writeOpenTag(w io.Writer, e chunk.StartElement) error {
	var b bytes.Buffer
	b.WriteByte('<')
	b.WriteString(e.Name())

	prefixes := sortedKeys(e.NamespacePrefixes)
	for _, p := range prefixes {
		if p == "" {
			fmt.Fprintf(&b, ` xmlns="%s"`, escapeAttr(e.NamespacePrefixes[p]))
		} else {
			fmt.Fprintf(&b, ` xmlns:%s="%s"`, p, escapeAttr(e.NamespacePrefixes[p]))
		}
	}
	attrKeys := sortedKeys(e.Attributes)
	for _, k := range attrKeys {
		fmt.Fprintf(&b, ` %s="%s"`, k, escapeAttr(e.Attributes[k]))
	}
	b.WriteByte('>')
	_, err := w.Write(b.Bytes())
	return err
}

func writeCloseTag(w io.Writer, e chunk.StartElement) error {
	_, err := fmt.Fprintf(w, "</%s>", e.Name())
	return err
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeAttr(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
