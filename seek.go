package gzstream

import "io"

// Seek sets the logical position in the uncompressed data. Only
// io.SeekStart and io.SeekCurrent are supported: the uncompressed size is
// not known until the data is decoded, so there is no end to seek from.
//
// Seeks are emulated. Within transparent data the descriptor seeks
// directly. Otherwise a forward seek becomes a pending skip, resolved by
// discarding bytes at the next read or write (writers materialize the gap
// as zeros); a backward seek rewinds - to the nearest recorded member
// boundary when one is known, else to the start - and re-skips. Writers
// cannot seek backward.
func (z *Stream) Seek(offset int64, whence int) (int64, error) {
	if z == nil || z.fd == nil {
		return -1, errClosed
	}
	if z.mode != modeRead && z.mode != modeWrite {
		return -1, errNotOpen
	}
	if z.fatal() {
		return -1, z.err
	}

	// normalize to a delta from the current position; a pending skip is
	// folded in (SeekCurrent) or superseded (SeekStart)
	switch whence {
	case io.SeekStart:
		offset -= z.pos
	case io.SeekCurrent:
		if z.seek {
			offset += z.skip
		}
	default:
		return -1, errBadWhence
	}
	z.seek = false

	// within transparent data the descriptor can do the work
	if z.mode == modeRead && z.how == stateCopy && z.pos+offset >= 0 {
		if _, err := z.fd.Seek(offset-int64(z.have), io.SeekCurrent); err != nil {
			return -1, &Error{Code: IOError, Path: z.path, Msg: err.Error()}
		}
		z.have = 0
		z.next = 0
		z.eof = false
		z.past = false
		z.inPos = 0
		z.inLen = 0
		z.setError(OK, "")
		z.pos += offset
		return z.pos, nil
	}

	if offset < 0 {
		if z.mode != modeRead {
			return -1, &Error{Code: StreamError, Path: z.path, Msg: "cannot seek backwards when writing"}
		}
		target := z.pos + offset
		if target < 0 {
			return -1, errBeforeStart
		}
		// land on the nearest member boundary at or before the target;
		// rewinding to the start is the fallback
		if m, ok := z.index.lookup(target); ok && m.comp > z.start {
			if err := z.jump(m); err != nil {
				return -1, err
			}
		} else if err := z.Rewind(); err != nil {
			return -1, err
		}
		offset = target - z.pos
	} else if offset > 0 && z.mode == modeRead && z.how == stateDecode {
		// a known later member boundary saves decompressing up to it
		target := z.pos + offset
		if m, ok := z.index.lookup(target); ok && m.raw > z.pos+int64(z.have) {
			if err := z.jump(m); err != nil {
				return -1, err
			}
			offset = target - z.pos
		}
	}

	// consume what is already buffered before deferring the rest
	if z.mode == modeRead {
		n := int64(z.have)
		if n > offset {
			n = offset
		}
		z.have -= int(n)
		z.next += int(n)
		z.pos += n
		offset -= n
	}

	if offset != 0 {
		z.seek = true
		z.skip = offset
	}
	return z.pos + offset, nil
}

// jump repositions the descriptor at a recorded member boundary and
// resets the decode state so the sniffer takes over there.
func (z *Stream) jump(m member) error {
	if _, err := z.fd.Seek(m.comp, io.SeekStart); err != nil {
		return &Error{Code: IOError, Path: z.path, Msg: err.Error()}
	}
	z.have = 0
	z.next = 0
	z.inPos = 0
	z.inLen = 0
	z.eof = false
	z.past = false
	z.how = stateSniff
	z.setError(OK, "")
	z.pos = m.raw
	return nil
}
