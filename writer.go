package gzstream

import (
	"fmt"
)

// winit lazily allocates the write state: an input buffer of double the
// requested capacity (the spare half belongs to Printf) and, unless the
// stream is transparent, the codec configured for the gzip container at
// the stream's level and strategy.
func (z *Stream) winit() bool {
	z.in = make([]byte, z.want<<1)
	z.cw = &countWriter{w: z.fd}
	if !z.direct {
		if !z.startEncoder() {
			z.in = nil
			z.cw = nil
			return false
		}
	}
	z.size = z.want
	return true
}

func (z *Stream) startEncoder() bool {
	cmp, err := newCompressor(z.cw, z.level, z.strategy, z.parallel)
	if err != nil {
		z.setError(StreamError, err.Error())
		return false
	}
	z.cmp = cmp
	z.cmpLv = z.level
	z.cmpSt = z.strategy
	return true
}

// startMember prepares the codec for a fresh gzip member, rebuilding it
// when SetParams changed the parameters since the last member.
func (z *Stream) startMember() bool {
	if z.cmp != nil && z.cmpLv == z.level && z.cmpSt == z.strategy {
		z.cmp.Reset(z.cw)
		return true
	}
	return z.startEncoder()
}

func (z *Stream) writeError(err error) {
	if z.recorded(err) {
		return
	}
	z.setError(IOError, err.Error())
}

// compress is the single path through which bytes reach the descriptor in
// write mode. In transparent mode it writes data straight through, chunked
// to a bounded size. Otherwise it feeds the codec and honors the flush
// request; after a Finish the next member is not opened until real data
// arrives, so finishing twice never emits an empty member.
func (z *Stream) compress(data []byte, flush FlushMode) bool {
	if z.size == 0 && !z.winit() {
		return false
	}

	if z.direct {
		for len(data) > 0 {
			n := len(data)
			if n > maxChunk {
				n = maxChunk
			}
			wrote, err := z.cw.Write(data[:n])
			data = data[wrote:]
			if err != nil {
				z.writeError(err)
				return false
			}
		}
		return true
	}

	if z.reset {
		if len(data) == 0 {
			return true
		}
		if !z.startMember() {
			return false
		}
		z.reset = false
	}

	for len(data) > 0 {
		n := len(data)
		if n > maxChunk {
			n = maxChunk
		}
		if _, err := z.cmp.Write(data[:n]); err != nil {
			z.writeError(err)
			return false
		}
		data = data[n:]
	}

	switch flush {
	case NoFlush:
	case Finish:
		// the codec withholds the trailer until the member completes
		if err := z.cmp.Close(); err != nil {
			z.writeError(err)
			return false
		}
		z.reset = true
		z.memberIn = 0
	default:
		if err := z.cmp.Flush(); err != nil {
			z.writeError(err)
			return false
		}
	}
	return true
}

// comp flushes the buffered input through compress.
func (z *Stream) comp(flush FlushMode) bool {
	if !z.compress(z.in[:z.inLen], flush) {
		return false
	}
	z.inLen = 0
	return true
}

// zero encodes n zero bytes in buffer-sized chunks, after consuming any
// buffered input. This is how a deferred forward seek materializes on a
// writer; the gap becomes real zeros, there is no sparse shortcut.
func (z *Stream) zero(n int64) bool {
	if z.inLen > 0 && !z.comp(NoFlush) {
		return false
	}
	first := true
	for n > 0 {
		chunk := z.size
		if int64(chunk) > n {
			chunk = int(n)
		}
		if first {
			clear(z.in[:chunk])
			first = false
		}
		z.pos += int64(chunk)
		z.memberIn += int64(chunk)
		if !z.compress(z.in[:chunk], NoFlush) {
			return false
		}
		n -= int64(chunk)
	}
	return true
}

// write moves len(p) bytes into the stream. Small writes are copied into
// the input buffer and compressed as it fills; large writes flush whatever
// is buffered and then hand the caller's buffer to the codec in bounded
// chunks, sparing a copy.
func (z *Stream) write(p []byte) (int, bool) {
	if len(p) == 0 {
		return 0, true
	}
	if z.size == 0 && !z.winit() {
		return 0, false
	}
	if z.seek {
		z.seek = false
		if !z.zero(z.skip) {
			return 0, false
		}
	}

	if len(p) < z.size {
		written := 0
		for written < len(p) {
			n := copy(z.in[z.inLen:z.size], p[written:])
			z.inLen += n
			z.pos += int64(n)
			z.memberIn += int64(n)
			written += n
			if z.segment > 0 && z.memberIn >= z.segment {
				if !z.comp(Finish) {
					return written, false
				}
			} else if written < len(p) && !z.comp(NoFlush) {
				return written, false
			}
		}
		return written, true
	}

	if z.inLen > 0 && !z.comp(NoFlush) {
		return 0, false
	}
	written := 0
	for written < len(p) {
		n := len(p) - written
		if n > maxChunk {
			n = maxChunk
		}
		if !z.direct && z.segment > 0 {
			if z.memberIn >= z.segment {
				if !z.compress(nil, Finish) {
					return written, false
				}
			}
			if left := z.segment - z.memberIn; left > 0 && int64(n) > left {
				n = int(left)
			}
		}
		if !z.compress(p[written:written+n], NoFlush) {
			return written, false
		}
		written += n
		z.pos += int64(n)
		z.memberIn += int64(n)
	}
	return written, true
}

// Write writes len(p) uncompressed bytes to the stream. A short count
// comes with the error that caused it.
func (z *Stream) Write(p []byte) (int, error) {
	if err := z.writable(); err != nil {
		return 0, err
	}
	n, ok := z.write(p)
	if !ok {
		return n, z.err
	}
	return n, nil
}

// WriteString writes a string, sparing the caller the conversion.
func (z *Stream) WriteString(s string) (int, error) {
	return z.Write([]byte(s))
}

// PutByte writes one byte. While there is room in the input buffer this is
// just an append.
func (z *Stream) PutByte(c byte) error {
	if err := z.writable(); err != nil {
		return err
	}
	if z.size != 0 && !z.seek && z.inLen < z.size {
		z.in[z.inLen] = c
		z.inLen++
		z.pos++
		z.memberIn++
		return nil
	}
	buf := [1]byte{c}
	if n, ok := z.write(buf[:]); !ok || n != 1 {
		return z.err
	}
	return nil
}

// Printf formats into the stream like fmt.Fprintf. The rendering happens
// in the spare half of the double-sized input buffer, so the result must
// fit in one buffer's worth; a larger result is a formatting error, not a
// crash. Returns the number of bytes written.
func (z *Stream) Printf(format string, args ...any) (int, error) {
	if err := z.writable(); err != nil {
		return 0, err
	}
	if z.size == 0 && !z.winit() {
		return 0, z.err
	}
	if z.seek {
		z.seek = false
		if !z.zero(z.skip) {
			return 0, z.err
		}
	}

	// render after the buffered input; the spare half guarantees one full
	// buffer of room there
	out := fmt.Appendf(z.in[z.inLen:z.inLen:len(z.in)], format, args...)
	if len(out) >= z.size {
		return 0, &Error{Code: StreamError, Path: z.path, Msg: "formatted output does not fit in the buffer"}
	}
	z.inLen += len(out)
	z.pos += int64(len(out))
	z.memberIn += int64(len(out))

	// compress the first bufferful once past it, sliding the rest down
	if z.inLen >= z.size {
		left := z.inLen - z.size
		if !z.compress(z.in[:z.size], NoFlush) {
			return 0, z.err
		}
		copy(z.in, z.in[z.size:z.size+left])
		z.inLen = left
	}
	if z.segment > 0 && z.memberIn >= z.segment && !z.comp(Finish) {
		return 0, z.err
	}
	return len(out), nil
}

// SetParams changes the compression level and strategy for subsequent
// input. The current gzip member is finished first (the codec cannot
// change parameters mid-member), so the file gains a member boundary at
// the change point; readers decode the concatenation transparently.
func (z *Stream) SetParams(level int, strategy Strategy) error {
	if err := z.writable(); err != nil {
		return err
	}
	if z.direct {
		return &Error{Code: StreamError, Path: z.path, Msg: "no parameters to set in transparent mode"}
	}
	if level == z.level && strategy == z.strategy {
		return nil
	}
	if z.seek {
		z.seek = false
		if !z.zero(z.skip) {
			return z.err
		}
	}
	if z.size != 0 && (z.inLen > 0 || z.memberIn > 0) {
		if !z.comp(Finish) {
			return z.err
		}
	}
	z.level = level
	z.strategy = strategy
	return nil
}

// Flush pushes buffered data toward the file with the requested flush
// mode. Finish completes the current member; the intermediate modes align
// the output so everything written so far can be decompressed.
func (z *Stream) Flush(flush FlushMode) error {
	if err := z.writable(); err != nil {
		return err
	}
	if flush < NoFlush || flush > Finish {
		return &Error{Code: StreamError, Path: z.path, Msg: "invalid flush mode"}
	}
	if z.seek {
		z.seek = false
		if !z.zero(z.skip) {
			return z.err
		}
	}
	if !z.comp(flush) {
		return z.err
	}
	return nil
}

// closeWrite materializes a pending seek, finishes the member, releases
// the codec and buffers and closes the descriptor. Teardown happens
// unconditionally; the first failure (or a descriptor close failure,
// which wins) is returned.
func (z *Stream) closeWrite() error {
	var ret error
	if z.seek {
		z.seek = false
		if !z.zero(z.skip) {
			ret = z.err
		}
	}
	if !z.comp(Finish) && ret == nil {
		ret = z.err
	}
	z.cmp = nil
	z.cw = nil
	z.in = nil
	z.out = nil
	z.setError(OK, "")
	fd := z.fd
	z.fd = nil
	if err := fd.Close(); err != nil {
		ret = &Error{Code: IOError, Path: z.path, Msg: err.Error()}
	}
	return ret
}
