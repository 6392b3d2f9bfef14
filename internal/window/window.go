// Package window implements a sliding byte buffer over an unbounded stream.
// A Window is owned by exactly one splitter pipeline; it is not safe for
// concurrent use from multiple goroutines.
package window

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned by Substring when the requested range falls
// outside what the Window currently retains, either because it was already
// released via AdvanceTo or because it has not been fed yet.
var ErrOutOfRange = errors.New("window: range out of retained bounds")

// Window is a growable byte buffer addressed by absolute byte offsets into
// the source stream. Bytes before the released prefix (set by AdvanceTo) may
// be dropped at any time; peak retained size is therefore bounded by the
// largest single chunk plus whatever lookahead the caller requests before
// advancing.
type Window struct {
	buf  []byte
	base int64 // absolute offset of buf[0]
	end  int64 // absolute offset one past the last fed byte
}

// New returns an empty Window.
func New() *Window {
	return &Window{}
}

// Feed appends p to the stream. The bytes become addressable at
// [w.End(), w.End()+len(p)).
func (w *Window) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	w.buf = append(w.buf, p...)
	w.end += int64(len(p))
}

// End returns the absolute offset one past the last fed byte (== total bytes
// fed so far).
func (w *Window) End() int64 {
	return w.end
}

// ReleasedPrefix returns the absolute offset below which bytes have been
// dropped and can no longer be retrieved via Substring.
func (w *Window) ReleasedPrefix() int64 {
	return w.base
}

// Substring returns the bytes in the absolute range [start, end). The
// returned slice aliases the Window's internal buffer and is only valid
// until the next AdvanceTo call that releases part of [start, end); callers
// that need the bytes to outlive that must copy them.
func (w *Window) Substring(start, end int64) ([]byte, error) {
	if start < w.base || end > w.end || start > end {
		return nil, fmt.Errorf("%w: [%d,%d) base=%d fed=%d", ErrOutOfRange, start, end, w.base, w.end)
	}
	lo := start - w.base
	hi := end - w.base
	return w.buf[lo:hi], nil
}

// AdvanceTo declares that no Substring call with start < pos will be issued
// again, allowing the Window to drop those bytes. Calling AdvanceTo with a
// pos at or before the current released prefix is a no-op. pos must not
// exceed End().
func (w *Window) AdvanceTo(pos int64) {
	if pos <= w.base {
		return
	}
	if pos > w.end {
		pos = w.end
	}
	drop := pos - w.base
	w.buf = w.buf[drop:]
	w.base = pos
}

// Retained returns the number of bytes currently held in memory.
func (w *Window) Retained() int {
	return len(w.buf)
}
