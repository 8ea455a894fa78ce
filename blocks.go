package gzstream

import (
	"io"
	"sort"
)

// member is one recorded gzip member boundary: where its header sits in
// the compressed file and which uncompressed position its payload starts
// at. Both grow monotonically through the file, so one sorted slice serves
// lookups by either.
type member struct {
	comp int64
	raw  int64
}

// memberIndex accumulates the boundaries a reader crosses while decoding.
// It is a shortcut map for Seek, never required for correctness: an empty
// index just means every backward seek rewinds to the start.
type memberIndex struct {
	members  []member
	disabled bool
}

// add records a boundary, keeping the slice sorted and dropping
// duplicates (the same member is sniffed again after every rewind).
func (ix *memberIndex) add(comp, raw int64) {
	i := sort.Search(len(ix.members), func(j int) bool { return ix.members[j].comp >= comp })
	if i < len(ix.members) && ix.members[i].comp == comp {
		return
	}
	ix.members = append(ix.members, member{})
	copy(ix.members[i+1:], ix.members[i:])
	ix.members[i] = member{comp: comp, raw: raw}
}

// lookup returns the last recorded member whose payload starts at or
// before the given uncompressed position.
func (ix *memberIndex) lookup(raw int64) (member, bool) {
	i := sort.Search(len(ix.members), func(j int) bool { return ix.members[j].raw > raw })
	if i == 0 {
		return member{}, false
	}
	return ix.members[i-1], true
}

// recordMember notes the member boundary the sniffer is looking at. The
// compressed offset is the descriptor position minus what is buffered but
// not yet consumed; on a non-seekable descriptor the index turns itself
// off and seeking falls back to full rewinds.
func (z *Stream) recordMember() {
	if z.index.disabled {
		return
	}
	off, err := z.fd.Seek(0, io.SeekCurrent)
	if err != nil {
		z.index.disabled = true
		return
	}
	z.index.add(off-int64(z.inLen), z.pos)
}
