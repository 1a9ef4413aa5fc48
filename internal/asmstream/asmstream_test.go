package asmstream

import (
	"bytes"
	"testing"
)

func TestDirectiveAndValue(t *testing.T) {
	var buf bytes.Buffer

	s := New(&buf)
	s.Directive(".type").Valuef("%s,@object", "x")
	s.Flush()

	want := "    .type x,@object\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLabelAppendsColon(t *testing.T) {
	var buf bytes.Buffer

	s := New(&buf)
	s.Label("main")

	want := "main:\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLabelDoesNotDoubleColon(t *testing.T) {
	var buf bytes.Buffer

	s := New(&buf)
	s.Label("main:")

	want := "main:\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestByteEmitsDecimal(t *testing.T) {
	var buf bytes.Buffer

	s := New(&buf)
	s.Byte(65)

	want := "    .byte 65\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRawBytesOneDirectivePerByte(t *testing.T) {
	var buf bytes.Buffer

	s := New(&buf)
	s.RawBytes([]byte{1, 2, 3})

	want := "    .byte 1\n    .byte 2\n    .byte 3\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFlushOnDirectiveBoundary(t *testing.T) {
	var buf bytes.Buffer

	s := New(&buf)
	s.Directive(".global").Value("x")
	s.Directive(".align").Value(4) // flushes the pending .global line first

	want := "    .global x\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	s.Flush()

	want += "    .align 4\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBlankLineBetweenSymbols(t *testing.T) {
	var buf bytes.Buffer

	s := New(&buf)
	s.Label("a")
	s.Blank()
	s.Label("b")

	want := "a:\n\nb:\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
