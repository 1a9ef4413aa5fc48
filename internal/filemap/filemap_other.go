//go:build !linux && !darwin

package filemap

import (
	"os"

	"github.com/brachet-dev/cedo/internal/cedoerr"
)

// FileMap falls back to a plain read on platforms without the mmap
// syscalls wired in filemap_unix.go. The resulting byte slice is still
// presented as a read-only range; there is just no kernel-backed mapping
// underneath it.
type FileMap struct {
	data []byte
}

// Open reads path into memory in its entirety.
func Open(path string) (*FileMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cedoerr.New(cedoerr.IO, "reading %q: %v", path, err)
	}

	if len(data) == 0 {
		return nil, cedoerr.New(cedoerr.IO, "%q is empty", path)
	}

	return &FileMap{data: data}, nil
}

// Bytes returns the mapped read-only byte range.
func (m *FileMap) Bytes() []byte { return m.data }

// Close releases the backing buffer.
func (m *FileMap) Close() error {
	m.data = nil
	return nil
}
