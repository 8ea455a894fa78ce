package gzstream

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// inputSource feeds the decoder from the stream's input buffer, refilling
// from the descriptor as the buffer drains. Implementing io.ByteReader is
// what guarantees the codec consumes exactly one member and nothing past
// it, so the bytes after a member stay in the buffer for the sniffer.
type inputSource struct {
	z *Stream
}

func (r *inputSource) Read(p []byte) (int, error) {
	z := r.z
	if z.inLen == 0 {
		if !z.fill() {
			return 0, z.err
		}
		if z.inLen == 0 {
			return 0, io.EOF
		}
	}
	n := copy(p, z.in[z.inPos:z.inPos+z.inLen])
	z.inPos += n
	z.inLen -= n
	return n, nil
}

func (r *inputSource) ReadByte() (byte, error) {
	z := r.z
	if z.inLen == 0 {
		if !z.fill() {
			return 0, z.err
		}
		if z.inLen == 0 {
			return 0, io.EOF
		}
	}
	c := z.in[z.inPos]
	z.inPos++
	z.inLen--
	return c, nil
}

// load fills buf from the descriptor, looping because a single read is not
// guaranteed to return everything requested. Reaching the end of the file
// sets the eof flag; a read failure is fatal.
func (z *Stream) load(buf []byte) (int, bool) {
	got := 0
	for got < len(buf) {
		n, err := z.fd.Read(buf[got:])
		got += n
		if err == io.EOF || (err == nil && n == 0) {
			z.eof = true
			break
		}
		if err != nil {
			z.setError(IOError, err.Error())
			return got, false
		}
	}
	return got, true
}

// fill compacts unconsumed input to the start of the buffer and loads as
// much as fits behind it. It runs only while the stream error is absent or
// transient, and never touches the descriptor again after eof.
func (z *Stream) fill() bool {
	if z.fatal() {
		return false
	}
	if z.eof {
		return true
	}
	if z.inLen > 0 && z.inPos > 0 {
		copy(z.in, z.in[z.inPos:z.inPos+z.inLen])
	}
	z.inPos = 0
	n, ok := z.load(z.in[z.inLen:z.size])
	z.inLen += n
	return ok
}

// resetDecoder points the codec at the input source for a new member. The
// gzip header is consumed here, so it can already fail on truncated or
// malformed input.
func (z *Stream) resetDecoder() bool {
	var err error
	if z.dec == nil {
		var dec *gzip.Reader
		dec, err = gzip.NewReader(z.src)
		z.dec = dec
	} else {
		err = z.dec.Reset(z.src)
	}
	if err != nil {
		z.decodeError(err)
		return false
	}
	// one member at a time; the sniffer decides what follows it
	z.dec.Multistream(false)
	return true
}

func (z *Stream) decodeError(err error) {
	switch {
	case z.recorded(err):
		// descriptor failure already diagnosed by load
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		z.setError(BufError, "unexpected end of file")
	default:
		z.setError(DataError, err.Error())
	}
}

// look sniffs the input for a gzip member. On first use it allocates the
// buffers: input at the requested capacity and output at double that, the
// extra half doubling as pushback room. Finding the magic bytes enters
// decode state; anything else is either trailing garbage after a decoded
// member (discarded, end of stream) or the start of a transparent file
// (the sniffed bytes are moved to the output buffer so they are not lost).
func (z *Stream) look() bool {
	if z.size == 0 {
		z.in = make([]byte, z.want)
		z.out = make([]byte, z.want<<1)
		z.size = z.want
		z.src = &inputSource{z: z}
	}

	// need at least the two magic bytes to decide
	if z.inLen < 2 {
		if !z.fill() {
			return false
		}
		if z.inLen == 0 {
			return true
		}
		// a single byte at the end of the file cannot be a gzip member:
		// headers are written in one operation, so fall through to raw
	}

	if z.inLen > 1 && z.in[z.inPos] == gzipMagic0 && z.in[z.inPos+1] == gzipMagic1 {
		z.recordMember()
		if !z.resetDecoder() {
			return false
		}
		z.how = stateDecode
		z.direct = false
		return true
	}

	if !z.direct {
		// trailing garbage after the last member: ignore it and finish
		z.inPos = 0
		z.inLen = 0
		z.eof = true
		z.have = 0
		return true
	}

	// transparent file: keep the already-buffered bytes
	copy(z.out, z.in[z.inPos:z.inPos+z.inLen])
	z.next = 0
	z.have = z.inLen
	z.inPos = 0
	z.inLen = 0
	z.how = stateCopy
	z.direct = true
	return true
}

// decomp decodes into dst until it is full or the member ends. A clean end
// of member returns the stream to sniffing so concatenated members decode
// in sequence; running out of input mid-member is the transient BufError;
// corrupt data is fatal.
func (z *Stream) decomp(dst []byte) (int, bool) {
	got := 0
	for got < len(dst) {
		n, err := z.dec.Read(dst[got:])
		got += n
		if err == io.EOF {
			z.how = stateSniff
			break
		}
		if err == io.ErrUnexpectedEOF {
			z.setError(BufError, "unexpected end of file")
			break
		}
		if err != nil {
			z.decodeError(err)
			return got, false
		}
	}
	return got, true
}

// fetch puts data in the output buffer, sniffing, copying or decoding as
// the format state dictates. It loops while nothing was produced but more
// input may still arrive, so a successful return means either data or
// genuine end of file.
func (z *Stream) fetch() bool {
	for {
		switch z.how {
		case stateSniff:
			if !z.look() {
				return false
			}
			if z.how == stateSniff {
				return true
			}
		case stateCopy:
			n, ok := z.load(z.out)
			if !ok {
				return false
			}
			z.have = n
			z.next = 0
			return true
		case stateDecode:
			n, ok := z.decomp(z.out)
			if !ok {
				return false
			}
			z.have = n
			z.next = 0
		}
		if z.have > 0 || (z.eof && z.inLen == 0) {
			return true
		}
	}
}

// skipOutput discards n logical bytes, draining the buffered output before
// fetching more, and stops quietly at end of file.
func (z *Stream) skipOutput(n int64) bool {
	for n > 0 {
		if z.have > 0 {
			m := int64(z.have)
			if m > n {
				m = n
			}
			z.have -= int(m)
			z.next += int(m)
			z.pos += m
			n -= m
		} else if z.eof && z.inLen == 0 {
			break
		} else if !z.fetch() {
			return false
		}
	}
	return true
}

// read is the engine behind Read, ReadByte and friends. It materializes a
// pending seek, then serves from the buffered output; small requests and
// fresh streams go through fetch (which leaves pushback room in the output
// buffer), while large requests in steady state load or decode straight
// into the caller's buffer.
func (z *Stream) read(p []byte) int {
	if len(p) == 0 {
		return 0
	}

	if z.seek {
		z.seek = false
		if !z.skipOutput(z.skip) {
			return 0
		}
	}

	got := 0
	for got < len(p) {
		n := len(p) - got
		switch {
		case z.have > 0:
			if n > z.have {
				n = z.have
			}
			copy(p[got:got+n], z.out[z.next:z.next+n])
			z.next += n
			z.have -= n

		case z.eof && z.inLen == 0:
			z.past = true
			return got

		case z.how == stateSniff || n < len(z.out):
			if !z.fetch() {
				return got
			}
			continue // back to the copy above

		case z.how == stateCopy:
			m, ok := z.load(p[got : got+n])
			if !ok {
				return got
			}
			n = m

		default: // stateDecode
			m, ok := z.decomp(p[got : got+n])
			if !ok {
				return got
			}
			n = m
		}
		got += n
		z.pos += int64(n)
	}
	return got
}

// Read reads up to len(p) uncompressed bytes. At the end of the stream it
// returns io.EOF; a stream error is returned as an *Error.
func (z *Stream) Read(p []byte) (int, error) {
	if err := z.readable(); err != nil {
		return 0, err
	}
	n := z.read(p)
	if n == 0 && len(p) > 0 {
		if z.fatal() {
			return 0, z.err
		}
		if z.past {
			return 0, io.EOF
		}
	}
	return n, nil
}

// ReadByte reads one byte. The buffered fast path skips all the machinery.
func (z *Stream) ReadByte() (byte, error) {
	if err := z.readable(); err != nil {
		return 0, err
	}
	if z.have > 0 {
		z.have--
		z.pos++
		c := z.out[z.next]
		z.next++
		return c, nil
	}
	var buf [1]byte
	if z.read(buf[:]) < 1 {
		if z.fatal() {
			return 0, z.err
		}
		return 0, io.EOF
	}
	return buf[0], nil
}

// PushBack returns a byte to the front of the readable data, decrementing
// the logical position. The output buffer's spare half means a pushback
// always has room right after a fetch; pushing back fails only once the
// whole double-capacity region is occupied.
func (z *Stream) PushBack(c byte) error {
	if z == nil || z.fd == nil {
		return errClosed
	}
	if z.mode == modeRead && z.how == stateSniff && z.have == 0 {
		// freshly opened: set up the buffers first
		z.look()
	}
	if z.mode != modeRead {
		return errNotReading
	}
	if z.fatal() {
		return z.err
	}

	if z.seek {
		z.seek = false
		if !z.skipOutput(z.skip) {
			return z.err
		}
	}

	// empty buffer: place the byte at the very end, leaving room for more
	if z.have == 0 {
		z.have = 1
		z.next = len(z.out) - 1
		z.out[z.next] = c
		z.pos--
		z.past = false
		return nil
	}

	if z.have == len(z.out) {
		z.setError(DataError, "out of room to push characters")
		return z.err
	}

	// slide buffered data to the far end to open room in front
	if z.next == 0 {
		dst := len(z.out) - z.have
		copy(z.out[dst:], z.out[:z.have])
		z.next = dst
	}
	z.have++
	z.next--
	z.out[z.next] = c
	z.pos--
	z.past = false
	return nil
}

// ReadLine reads until a newline (kept in the result), buf is full, or the
// stream ends, and returns the filled prefix of buf. It returns io.EOF
// only when not a single byte was read.
func (z *Stream) ReadLine(buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		return nil, &Error{Code: StreamError, Path: z.path, Msg: "empty line buffer"}
	}
	if err := z.readable(); err != nil {
		return nil, err
	}

	if z.seek {
		z.seek = false
		if !z.skipOutput(z.skip) {
			return nil, z.err
		}
	}

	got := 0
	for got < len(buf) {
		if z.have == 0 {
			if !z.fetch() {
				return nil, z.err
			}
			if z.have == 0 {
				z.past = true
				break
			}
		}
		n := z.have
		if n > len(buf)-got {
			n = len(buf) - got
		}
		eol := false
		if i := bytes.IndexByte(z.out[z.next:z.next+n], '\n'); i >= 0 {
			n = i + 1
			eol = true
		}
		copy(buf[got:], z.out[z.next:z.next+n])
		z.have -= n
		z.next += n
		z.pos += int64(n)
		got += n
		if eol {
			break
		}
	}
	if got == 0 {
		return nil, io.EOF
	}
	return buf[:got], nil
}

// closeRead releases the decode state and closes the descriptor. Resources
// are released on every path; a close failure outranks a pending transient
// error.
func (z *Stream) closeRead() error {
	var ret error
	if z.errCode == BufError {
		ret = z.err
	}
	if z.dec != nil {
		z.dec.Close()
		z.dec = nil
	}
	z.in = nil
	z.out = nil
	z.src = nil
	z.setError(OK, "")
	fd := z.fd
	z.fd = nil
	if err := fd.Close(); err != nil {
		ret = &Error{Code: IOError, Path: z.path, Msg: err.Error()}
	}
	return ret
}
