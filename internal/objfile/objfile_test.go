package objfile

import (
	"encoding/binary"
	"testing"
)

func TestAddrByteSize(t *testing.T) {
	if (Triple{AddrSize: AddressSizeFour}).AddrByteSize() != 4 {
		t.Fatal("expected 4-byte address size")
	}

	if (Triple{AddrSize: AddressSizeEight}).AddrByteSize() != 8 {
		t.Fatal("expected 8-byte address size")
	}
}

func TestEndiannessByteOrder(t *testing.T) {
	if LittleEndian.ByteOrder() != binary.LittleEndian {
		t.Fatal("expected LittleEndian to map to binary.LittleEndian")
	}

	if BigEndian.ByteOrder() != binary.BigEndian {
		t.Fatal("expected BigEndian to map to binary.BigEndian")
	}
}

type fakeReader struct{ t Triple }

func (f *fakeReader) Triple() Triple { return f.t }
func (f *fakeReader) Section(name string) ([]byte, bool) {
	if name == "present" {
		return []byte("data"), true
	}
	return nil, false
}
func (f *fakeReader) ResolveLocalReloc(sectionName string, byteOffset int) (int, error) {
	return byteOffset, nil
}
func (f *fakeReader) FileBytes() []byte { return []byte("filebytes") }

func TestRegisterAndFindFileTriple(t *testing.T) {
	saved := registry
	t.Cleanup(func() { registry = saved })
	registry = nil

	want := Triple{Format: FormatELF, AddrSize: AddressSizeEight, Endianness: LittleEndian}

	Register(0, []byte{0xCA, 0xFE}, func(file []byte) (Triple, bool) {
		return want, true
	}, func(file []byte, tr Triple) (Reader, error) {
		return &fakeReader{t: tr}, nil
	})

	got, ok := FindFileTriple([]byte{0xCA, 0xFE, 0x00})
	if !ok || got != want {
		t.Fatalf("FindFileTriple() = %+v, %v, want %+v, true", got, ok, want)
	}
}

func TestFindFileTripleRejectsMismatchedMagic(t *testing.T) {
	saved := registry
	t.Cleanup(func() { registry = saved })
	registry = nil

	Register(0, []byte{0xCA, 0xFE}, func(file []byte) (Triple, bool) {
		return Triple{}, true
	}, func(file []byte, tr Triple) (Reader, error) {
		return &fakeReader{t: tr}, nil
	})

	if _, ok := FindFileTriple([]byte{0x00, 0x00}); ok {
		t.Fatal("expected no match for mismatched magic")
	}
}

func TestCreateReaderReturnsFormatRejected(t *testing.T) {
	saved := registry
	t.Cleanup(func() { registry = saved })
	registry = nil

	_, err := CreateReader([]byte{0x00})
	if err == nil {
		t.Fatal("expected an error when no format accepts the file")
	}
}

func TestCreateReaderDispatchesToFactory(t *testing.T) {
	saved := registry
	t.Cleanup(func() { registry = saved })
	registry = nil

	want := Triple{Format: FormatELF, AddrSize: AddressSizeFour, Endianness: BigEndian}

	Register(0, []byte{0x7F}, func(file []byte) (Triple, bool) {
		return want, true
	}, func(file []byte, tr Triple) (Reader, error) {
		return &fakeReader{t: tr}, nil
	})

	r, err := CreateReader([]byte{0x7F})
	if err != nil {
		t.Fatalf("CreateReader() error: %v", err)
	}

	if r.Triple() != want {
		t.Fatalf("Triple() = %+v, want %+v", r.Triple(), want)
	}

	if data, ok := r.Section("present"); !ok || string(data) != "data" {
		t.Fatalf("Section() = %q, %v, want %q, true", data, ok, "data")
	}
}
