// Gzstream - buffered, seekable, bidirectional access to gzip files
//
// Abstract
//
// This library provides stdio-like access to gzip files: open a file for
// reading or writing, then read, write, seek and push back bytes as if the
// file contained the uncompressed data. Compression and decompression happen
// transparently behind a buffered stream, and files that do not start with
// the gzip magic bytes are read verbatim ("transparent mode"), so the same
// code path handles both compressed and plain files.
//
// A gzip file may contain several concatenated members; gzip tools treat the
// result as the concatenation of the decompressed payloads, and so does this
// library. The reader walks members one at a time, which also makes it
// possible to remember where members begin: while decoding, the Stream
// records each member boundary it crosses, and later backward seeks jump to
// the nearest recorded member instead of rewinding to the beginning of the
// file. Writers can produce such seek-friendly files on purpose by setting a
// segment size, which finishes the current member and starts a new one every
// N bytes of input. The output is still a perfectly ordinary gzip file,
// compatible with every existing gzip tool.
//
//
// How to use
//
// Open a file with a stdio-style mode string:
//
//	z, err := gzstream.Open("data.gz", "r")
//	...
//	n, err := z.Read(buf)
//
// The mode string is one of "r", "w" or "a", optionally followed by a digit
// for the compression level and flags ("T" for transparent writing, "p" for
// the parallel compressor, "x" for exclusive creation). "r+"-style mixed
// modes are not supported. A Stream implements io.Reader, io.Writer,
// io.Seeker and io.Closer, so it composes with the rest of the standard
// library; on top of that it offers Tell, Rewind, PushBack, ReadLine,
// Printf and friends for stdio-flavored code.
//
// Seeking is emulated: forward seeks discard decompressed bytes (or, when
// writing, materialize as zero bytes), and backward seeks rewind and
// re-skip, using recorded member boundaries as shortcuts when available.
// Seeks are lazy - the skip happens at the next read or write, so seeking
// repeatedly costs nothing until data is actually needed.
//
//
// Command line tool
//
// The package ships a gzip-compatible command line tool:
//
//	$ go install github.com/ortegaalfredo/gzstream/cmd/gzstream
//
// It supports the usual gzip options plus --segment to produce seekable
// multi-member files and --parallel to compress on all cores:
//
//	$ tar c <directory> | gzstream --segment 65536 -c > archive.tar.gz
package gzstream
