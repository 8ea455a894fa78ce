package gzstream

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
)

// Compression levels, re-exported from the codec.
const (
	NoCompression      = flate.NoCompression
	BestSpeed          = flate.BestSpeed
	BestCompression    = flate.BestCompression
	DefaultCompression = flate.DefaultCompression
)

// Strategy tunes the encoder, mirroring the classic zlib strategies. Only
// HuffmanOnly changes what the codec emits; the others are accepted for
// mode-string compatibility and encode as DefaultStrategy.
type Strategy int

const (
	DefaultStrategy Strategy = iota
	Filtered
	HuffmanOnly
	RLE
	Fixed
)

// FlushMode selects how much pending output Flush pushes to the file.
type FlushMode int

const (
	// NoFlush lets the encoder buffer freely.
	NoFlush FlushMode = iota
	// PartialFlush, SyncFlush and FullFlush all align the compressed
	// output to a byte boundary so everything written so far can be
	// decompressed.
	PartialFlush
	SyncFlush
	FullFlush
	// Finish completes the current gzip member. The next write starts a
	// new member in the same file.
	Finish
)

// decompressor is the decode half of the codec engine. It must consume
// input through the io.ByteReader it is given and not a byte more, so that
// leftover input stays in the stream's buffer for the next member.
// klauspost's gzip.Reader satisfies this; its pgzip sibling does not (it
// prefetches input), which is why there is no parallel read codec.
type decompressor interface {
	io.ReadCloser
	Reset(io.Reader) error
	Multistream(bool)
}

var _ decompressor = (*gzip.Reader)(nil)

// compressor is the encode half of the codec engine.
type compressor interface {
	io.WriteCloser
	Flush() error
	Reset(io.Writer)
}

var (
	_ compressor = (*gzip.Writer)(nil)
	_ compressor = (*pgzip.Writer)(nil)
)

// codecLevel folds the strategy into the level the codec understands.
func codecLevel(level int, strategy Strategy) int {
	if strategy == HuffmanOnly {
		return flate.HuffmanOnly
	}
	return level
}

func newCompressor(w io.Writer, level int, strategy Strategy, parallel bool) (compressor, error) {
	if parallel {
		return pgzip.NewWriterLevel(w, codecLevel(level, strategy))
	}
	return gzip.NewWriterLevel(w, codecLevel(level, strategy))
}

// countWriter tracks how many bytes reached the descriptor, so Offset can
// report the compressed position even on non-seekable descriptors.
type countWriter struct {
	w   io.Writer
	off int64
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.off += int64(n)
	return n, err
}
