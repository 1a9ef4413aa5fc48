package filemap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMapsFileContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "object.bin")
	want := []byte("\x7fELFnotreallyanobjectbutnonempty")

	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer m.Close()

	if string(m.Bytes()) != string(want) {
		t.Fatalf("Bytes() = %q, want %q", m.Bytes(), want)
	}
}

func TestOpenRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected an error for an empty file")
	}
}

func TestOpenRejectsMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "does-not-exist.bin")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "object.bin")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("first Close() error: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
}
