package gzstream

import (
	"path/filepath"
	"testing"
)

func TestHasMagic(t *testing.T) {
	if !HasMagic([]byte{0x1f, 0x8b, 0x08}) {
		t.Error("gzip header not recognized")
	}
	if HasMagic([]byte{0x1f}) {
		t.Error("single byte recognized as gzip")
	}
	if HasMagic([]byte("PK\x03\x04")) {
		t.Error("zip header recognized as gzip")
	}
	if HasMagic(nil) {
		t.Error("nil recognized as gzip")
	}
}

func TestSniffFile(t *testing.T) {
	gz := tempFile(t, gzBytes(t, []byte("payload")))
	if ok, err := SniffFile(gz); err != nil || !ok {
		t.Error("gzip file not sniffed:", ok, err)
	}

	txt := tempFile(t, []byte("plain text"))
	if ok, err := SniffFile(txt); err != nil || ok {
		t.Error("plain file sniffed as gzip:", ok, err)
	}

	short := tempFile(t, []byte{0x1f})
	if ok, err := SniffFile(short); err != nil || ok {
		t.Error("one-byte file sniffed as gzip:", ok, err)
	}

	if _, err := SniffFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("missing file did not report an error")
	}
}
