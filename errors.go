package gzstream

import "errors"

// ErrorCode classifies what went wrong on a stream. Anything other than OK
// and BufError is fatal: the stream refuses further I/O until Rewind (when
// reading) or a fresh Open.
type ErrorCode int

const (
	OK ErrorCode = iota
	StreamError            // misuse: bad argument or state-incompatible call
	DataError              // malformed compressed data
	MemError               // allocation or codec setup failure
	BufError               // transient: unexpected end of file mid-member
	IOError                // descriptor read/write/seek/close failure
)

func (c ErrorCode) String() string {
	switch c {
	case OK:
		return "ok"
	case StreamError:
		return "stream error"
	case DataError:
		return "data error"
	case MemError:
		return "memory error"
	case BufError:
		return "buffer error"
	case IOError:
		return "I/O error"
	}
	return "unknown error"
}

// The memory error message is a fixed string so that reporting an
// allocation failure never allocates.
const outOfMemory = "out of memory"

// Error is the error type returned by all Stream operations. Messages are
// prefixed with the path of the file they concern.
type Error struct {
	Code ErrorCode
	Path string
	Msg  string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return e.Path + ": " + e.Msg
}

// Misuse errors returned before touching the stream state.
var (
	errClosed      = &Error{Code: StreamError, Msg: "stream is closed"}
	errNotOpen     = &Error{Code: StreamError, Msg: "stream is not open"}
	errNotReading  = &Error{Code: StreamError, Msg: "not open for reading"}
	errNotWriting  = &Error{Code: StreamError, Msg: "not open for writing"}
	errBadWhence   = &Error{Code: StreamError, Msg: "unsupported whence"}
	errBeforeStart = &Error{Code: StreamError, Msg: "seek before start of stream"}
)

// setError records an error on the stream. A fatal code zeroes the buffered
// output count so the cheap ReadByte path fails fast instead of serving
// stale bytes. MemError keeps the fixed message and no path prefix.
func (z *Stream) setError(code ErrorCode, msg string) {
	if code != OK && code != BufError {
		z.have = 0
	}
	z.errCode = code
	switch {
	case code == OK:
		z.errMsg = ""
		z.err = nil
	case code == MemError:
		z.errMsg = outOfMemory
		z.err = &Error{Code: code, Msg: outOfMemory}
	default:
		z.errMsg = msg
		z.err = &Error{Code: code, Path: z.path, Msg: msg}
	}
}

// fatal reports whether the stream carries an error that blocks reading.
func (z *Stream) fatal() bool {
	return z.errCode != OK && z.errCode != BufError
}

// readable validates a read-side entry point without mutating the stream.
func (z *Stream) readable() error {
	if z == nil || z.fd == nil {
		return errClosed
	}
	if z.mode != modeRead {
		return errNotReading
	}
	if z.fatal() {
		return z.err
	}
	return nil
}

// writable validates a write-side entry point. Unlike reading, any pending
// error blocks writing; there is no transient case on the write side.
func (z *Stream) writable() error {
	if z == nil || z.fd == nil {
		return errClosed
	}
	if z.mode != modeWrite {
		return errNotWriting
	}
	if z.errCode != OK {
		return z.err
	}
	return nil
}

// recorded reports whether err is an error this stream already recorded, so
// callers don't overwrite a specific diagnostic with a generic one.
func (z *Stream) recorded(err error) bool {
	var e *Error
	return errors.As(err, &e) && e == z.err
}

// LastError returns the current error code and its message. The message is
// empty when there is no error, and is owned by the stream: the next error
// or Close invalidates it.
func (z *Stream) LastError() (ErrorCode, string) {
	if z == nil || z.mode == modeNone {
		return StreamError, ""
	}
	if z.errCode == MemError {
		return MemError, outOfMemory
	}
	return z.errCode, z.errMsg
}

// ClearError drops any recorded error and, when reading, the end-of-file
// flags, so a transient failure can be retried.
func (z *Stream) ClearError() {
	if z == nil || z.mode == modeNone {
		return
	}
	if z.mode == modeRead {
		z.eof = false
		z.past = false
	}
	z.setError(OK, "")
}
