//go:build linux || darwin

package filemap

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/brachet-dev/cedo/internal/cedoerr"
)

// FileMap is a scoped read-only mapping of a path into a byte range. It
// exclusively owns its mapping and releases it on Close, matching
// FileReader's RAII mmap/munmap pair in the original implementation
// (lib/Core/FileReader.cpp).
type FileMap struct {
	data []byte
}

// Open maps path read-only for its entire length.
func Open(path string) (*FileMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cedoerr.New(cedoerr.IO, "opening %q: %v", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, cedoerr.New(cedoerr.IO, "statting %q: %v", path, err)
	}

	size := st.Size()
	if size == 0 {
		return nil, cedoerr.New(cedoerr.IO, "%q is empty", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, cedoerr.New(cedoerr.IO, "mmap %q: %v", path, err)
	}

	return &FileMap{data: data}, nil
}

// Bytes returns the mapped read-only byte range.
func (m *FileMap) Bytes() []byte { return m.data }

// Close unmaps the file. Close is idempotent; calling it twice is a no-op
// the second time.
func (m *FileMap) Close() error {
	if m.data == nil {
		return nil
	}

	err := unix.Munmap(m.data)
	m.data = nil

	return err
}
