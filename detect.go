package gzstream

import (
	"io"
	"os"
)

// The two magic bytes every gzip member starts with.
const (
	gzipMagic0 = 0x1f
	gzipMagic1 = 0x8b
)

// HasMagic reports whether b starts with the gzip magic bytes.
func HasMagic(b []byte) bool {
	return len(b) > 1 && b[0] == gzipMagic0 && b[1] == gzipMagic1
}

// SniffFile reports whether the named file starts with a gzip member.
// A short or missing file is simply not gzip; only the open itself can
// fail.
func SniffFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var sig [2]byte
	if _, err := io.ReadFull(f, sig[:]); err != nil {
		return false, nil
	}
	return HasMagic(sig[:]), nil
}
