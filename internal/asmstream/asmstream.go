// Package asmstream is a line-buffered sink over GAS-flavored assembly
// output (spec.md §4.5). It tracks two states — empty (no pending line) and
// buffering (a line under construction) — and flushes automatically
// whenever a Directive or Label starts a new one.
package asmstream

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const tab = "    " // one tab, rendered as 4 spaces per the original streamer's constant

// Streamer is the line-buffered sink. It owns an underlying io.Writer and
// must be flushed (directly, or via Close) before that writer is trusted to
// hold the complete output.
type Streamer struct {
	w       *bufio.Writer
	line    strings.Builder
	pending bool // true while in the "buffering" state
}

// New wraps w in a Streamer, starting in the empty state.
func New(w io.Writer) *Streamer {
	return &Streamer{w: bufio.NewWriter(w)}
}

// Directive flushes any pending line, then opens a new line with one tab
// and the directive name, entering the buffering state. Further values
// appended with Value continue this same line until the next
// Directive/Label/Flush.
func (s *Streamer) Directive(name string) *Streamer {
	s.Flush()
	s.line.WriteString(tab)
	s.line.WriteString(name)
	s.pending = true

	return s
}

// Label flushes any pending line, then writes name immediately followed by
// a trailing colon (unless name already carries one) and a newline, and
// flushes again — labels never participate in line-buffering.
func (s *Streamer) Label(name string) *Streamer {
	s.Flush()
	s.line.WriteString(name)

	if !strings.HasSuffix(name, ":") {
		s.line.WriteByte(':')
	}

	s.pending = true
	s.Flush()

	return s
}

// Byte emits a standalone ".byte <decimal b>" line, widening b to avoid it
// being rendered as a character.
func (s *Streamer) Byte(b byte) *Streamer {
	s.Directive(".byte")
	s.Value(int(b))
	s.Flush()

	return s
}

// RawBytes emits one .byte directive per byte of data, in order.
func (s *Streamer) RawBytes(data []byte) *Streamer {
	for _, b := range data {
		s.Byte(b)
	}

	return s
}

// Value appends an arbitrary formatted value to the line currently being
// buffered. It is the streamer's equivalent of the original's generic
// `operator<<(T)`: the caller is mid-directive and wants to append an
// operand.
func (s *Streamer) Value(v interface{}) *Streamer {
	if s.line.Len() > 0 && !strings.HasSuffix(s.line.String(), tab) {
		s.line.WriteByte(' ')
	}

	fmt.Fprint(&s.line, v)
	s.pending = true

	return s
}

// Valuef is Value with fmt.Sprintf formatting.
func (s *Streamer) Valuef(format string, args ...interface{}) *Streamer {
	return s.Value(fmt.Sprintf(format, args...))
}

// Raw appends literal text to the currently buffered line with no leading
// space, for callers building up an operand piecewise (e.g. a quoted
// string).
func (s *Streamer) Raw(text string) *Streamer {
	s.line.WriteString(text)
	s.pending = true

	return s
}

// Blank flushes the current line, then emits a single blank line — used
// between symbols in AsmEmitter's output.
func (s *Streamer) Blank() *Streamer {
	s.Flush()
	s.w.WriteByte('\n')

	return s
}

// Flush writes any pending line to the underlying writer, terminated by a
// newline, and returns to the empty state. Calling Flush in the empty
// state is a no-op.
func (s *Streamer) Flush() error {
	if !s.pending {
		return nil
	}

	s.w.WriteString(s.line.String())
	s.w.WriteByte('\n')
	s.line.Reset()
	s.pending = false

	return s.w.Flush()
}

// Close flushes any pending line and the underlying bufio.Writer.
func (s *Streamer) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}

	return s.w.Flush()
}
