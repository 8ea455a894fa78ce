package gzstream

import (
	"io"
	"math"
	"os"
)

const (
	modeNone = iota
	modeRead
	modeWrite
	modeAppend
)

// DefaultBufferSize is the buffer capacity used unless SetBufferSize is
// called before the first read or write.
const DefaultBufferSize = 8192

// Descriptor writes are chunked so a single request stays well inside the
// range every platform write call accepts.
const maxChunk = 1 << 30

type formatState int

const (
	// stateSniff: looking at the next input bytes to decide between
	// decoding a gzip member and copying raw data.
	stateSniff formatState = iota
	// stateCopy: transparent passthrough of non-gzip data.
	stateCopy
	// stateDecode: inside a gzip member.
	stateDecode
)

// Stream is an open gzip stream. It exclusively owns its descriptor,
// buffers and codec state, and must not be used from multiple goroutines
// without external synchronization.
type Stream struct {
	mode int
	fd   *os.File
	path string

	want int // requested buffer capacity
	size int // allocated capacity; 0 until the first read/write

	level    int
	strategy Strategy
	direct   bool // transparent mode
	parallel bool // use the parallel compressor
	segment  int64
	memberIn int64 // input bytes fed to the gzip member being written

	how   formatState
	start int64 // descriptor offset at open; rewind target when reading

	in    []byte
	inPos int // reader: start of unconsumed input in in
	inLen int // reader: unconsumed input bytes / writer: buffered bytes (inPos is 0)

	out  []byte
	next int // cursor of buffered output in out
	have int // buffered-unread output bytes

	pos  int64 // logical (uncompressed) position
	eof  bool  // input file exhausted
	past bool  // a read was attempted past the end

	seek bool // a skip is pending
	skip int64

	reset bool // writer: member finished; next write starts a new one

	dec   decompressor
	src   *inputSource
	cmp   compressor
	cmpLv int
	cmpSt Strategy
	cw    *countWriter

	index memberIndex

	errCode ErrorCode
	errMsg  string
	err     error
}

var (
	_ io.ReadWriteCloser = (*Stream)(nil)
	_ io.Seeker          = (*Stream)(nil)
	_ io.ByteReader      = (*Stream)(nil)
)

// Open opens the named file with a stdio-style mode string and returns a
// Stream over it.
//
// The mode must contain exactly one of "r" (read), "w" (write, truncating)
// or "a" (append: seek to the end, then write). It may also contain a digit
// 0-9 selecting the compression level, "f"/"h"/"R"/"F" selecting a
// strategy, "T" for transparent (uncompressed) writing, "p" for the
// parallel compressor, and "x" for exclusive creation. "b" and "e" are
// accepted and ignored; "+" is rejected because a stream cannot read and
// write at the same time. Unknown letters are ignored.
func Open(path, mode string) (*Stream, error) {
	z, exclusive, err := parseMode(mode)
	if err != nil {
		return nil, err
	}

	var flag int
	switch z.mode {
	case modeRead:
		flag = os.O_RDONLY
	case modeWrite:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case modeAppend:
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	if exclusive && z.mode != modeRead {
		flag |= os.O_EXCL
	}

	fd, err := os.OpenFile(path, flag, 0666)
	if err != nil {
		return nil, err
	}
	return finishOpen(z, fd, path)
}

// OpenFile wraps an already-open file. The file's current position becomes
// the start of the stream; in append mode the position is moved to the end
// first. The Stream takes ownership of fd and closes it on Close.
func OpenFile(fd *os.File, mode string) (*Stream, error) {
	if fd == nil {
		return nil, errNotOpen
	}
	z, _, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	return finishOpen(z, fd, fd.Name())
}

func parseMode(mode string) (*Stream, bool, error) {
	z := &Stream{
		want:     DefaultBufferSize,
		level:    DefaultCompression,
		strategy: DefaultStrategy,
	}
	exclusive := false
	for _, c := range mode {
		if c >= '0' && c <= '9' {
			z.level = int(c - '0')
			continue
		}
		switch c {
		case 'r':
			z.mode = modeRead
		case 'w':
			z.mode = modeWrite
		case 'a':
			z.mode = modeAppend
		case '+':
			// can't read and write at the same time
			return nil, false, &Error{Code: StreamError, Msg: "mode " + mode + ": cannot mix reading and writing"}
		case 'b':
			// binary anyway
		case 'e':
			// descriptors are close-on-exec by default on this runtime
		case 'x':
			exclusive = true
		case 'f':
			z.strategy = Filtered
		case 'h':
			z.strategy = HuffmanOnly
		case 'R':
			z.strategy = RLE
		case 'F':
			z.strategy = Fixed
		case 'T':
			z.direct = true
		case 'p':
			z.parallel = true
		default:
			// ignored, like stdio does
		}
	}
	if z.mode == modeNone {
		return nil, false, &Error{Code: StreamError, Msg: "mode " + mode + ": must contain one of r, w or a"}
	}
	if z.mode == modeRead {
		if z.direct {
			// can't force transparent reads; sniffing decides
			return nil, false, &Error{Code: StreamError, Msg: "mode " + mode + ": cannot request transparent reading"}
		}
		z.direct = true // so an empty file reads as transparent, not malformed
	}
	return z, exclusive, nil
}

func finishOpen(z *Stream, fd *os.File, path string) (*Stream, error) {
	z.fd = fd
	z.path = path

	if z.mode == modeAppend {
		// so Offset is correct from the first write
		fd.Seek(0, io.SeekEnd)
		z.mode = modeWrite
	}

	// remember where the stream begins: the rewind target when reading,
	// the compressed-offset base when writing
	if off, err := fd.Seek(0, io.SeekCurrent); err == nil {
		z.start = off
	} else if z.mode == modeRead {
		z.index.disabled = true // non-seekable; no member shortcuts
	}

	z.resetState()
	return z, nil
}

// resetState returns the cursor, flags and error to their just-opened
// values. Buffers and codec state survive; they are reused.
func (z *Stream) resetState() {
	z.have = 0
	z.next = 0
	if z.mode == modeRead {
		z.eof = false
		z.past = false
		z.how = stateSniff
	} else {
		z.reset = false
		z.memberIn = 0
	}
	z.seek = false
	z.skip = 0
	z.setError(OK, "")
	z.pos = 0
	z.inPos = 0
	z.inLen = 0
}

// SetBufferSize changes the internal buffer capacity. It is legal only
// before the first read or write allocates the buffers. Sizes below 8 are
// raised to 8 to keep the buffer-splitting arithmetic exact, and a size
// whose doubling would overflow is rejected.
func (z *Stream) SetBufferSize(n int) error {
	if z == nil || z.mode == modeNone {
		return errNotOpen
	}
	if z.size != 0 {
		return &Error{Code: StreamError, Path: z.path, Msg: "buffers already allocated"}
	}
	if n < 0 || n > math.MaxInt>>1 {
		return &Error{Code: StreamError, Path: z.path, Msg: "buffer size out of range"}
	}
	if n < 8 {
		n = 8
	}
	z.want = n
	return nil
}

// SetSegmentSize makes the writer finish the current gzip member and start
// a new one roughly every n input bytes, producing a seek-friendly
// multi-member file. n = 0 turns segmenting off. Not available in
// transparent mode.
func (z *Stream) SetSegmentSize(n int64) error {
	if z == nil || z.mode != modeWrite {
		return errNotWriting
	}
	if z.direct {
		return &Error{Code: StreamError, Path: z.path, Msg: "no members to segment in transparent mode"}
	}
	if n < 0 {
		return &Error{Code: StreamError, Path: z.path, Msg: "segment size out of range"}
	}
	z.segment = n
	return nil
}

// Rewind seeks back to the beginning of the stream and starts over. Only
// streams open for reading can rewind; a fatal error other than a
// premature end of file blocks it.
func (z *Stream) Rewind() error {
	if z == nil || z.fd == nil {
		return errClosed
	}
	if z.mode != modeRead || z.fatal() {
		return errNotReading
	}
	if _, err := z.fd.Seek(z.start, io.SeekStart); err != nil {
		return &Error{Code: IOError, Path: z.path, Msg: err.Error()}
	}
	z.resetState()
	return nil
}

// Tell returns the logical position in the uncompressed data, including
// any seek that has not been materialized yet.
func (z *Stream) Tell() int64 {
	if z == nil || z.mode == modeNone {
		return -1
	}
	if z.seek {
		return z.pos + z.skip
	}
	return z.pos
}

// Offset returns the current position in the compressed file itself:
// bytes of input consumed so far when reading (not counting buffered
// input), bytes written to the descriptor when writing.
func (z *Stream) Offset() (int64, error) {
	if z == nil || z.fd == nil {
		return -1, errClosed
	}
	switch z.mode {
	case modeWrite:
		if z.cw != nil {
			return z.start + z.cw.off, nil
		}
		return z.start, nil
	case modeRead:
		off, err := z.fd.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1, &Error{Code: IOError, Path: z.path, Msg: err.Error()}
		}
		return off - int64(z.inLen), nil
	}
	return -1, errNotOpen
}

// EOF reports whether a read tried to go past the end of the stream. Like
// feof, it stays false until a read actually comes up short.
func (z *Stream) EOF() bool {
	return z != nil && z.mode == modeRead && z.past
}

// Direct reports whether the stream is in transparent mode: reading a file
// without the gzip magic, or writing with "T". On a freshly opened reader
// it sniffs the file first, so the answer reflects the actual content.
func (z *Stream) Direct() bool {
	if z == nil {
		return false
	}
	if z.mode == modeRead && z.how == stateSniff && z.have == 0 && !z.fatal() {
		z.look()
	}
	return z.direct
}

// Close finishes the stream (flushing and completing the gzip member when
// writing), releases the codec and buffers, and closes the descriptor. All
// resources are released even when an error is reported; a failure to
// close the descriptor wins over a previously pending stream error.
func (z *Stream) Close() error {
	if z == nil || z.fd == nil {
		return errClosed
	}
	switch z.mode {
	case modeRead:
		return z.closeRead()
	case modeWrite:
		return z.closeWrite()
	}
	return errNotOpen
}
