package gzstream

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, mode string, parts ...[]byte) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, mode)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range parts {
		if _, err := z.Write(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}
	return fn
}

func TestWriteRoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 100, DefaultBufferSize - 1, DefaultBufferSize, 100000} {
		data := testData(size)
		fn := writeTemp(t, "w", data)
		if !bytes.Equal(gunzipFile(t, fn), data) {
			t.Error("round trip mismatch at size", size)
		}
	}
}

func TestWriteLevels(t *testing.T) {
	data := testData(50000)
	fast := writeTemp(t, "w1", data)
	best := writeTemp(t, "w9", data)

	if !bytes.Equal(gunzipFile(t, fast), data) || !bytes.Equal(gunzipFile(t, best), data) {
		t.Fatal("level round trip mismatch")
	}
	ffi, _ := os.Stat(fast)
	bfi, _ := os.Stat(best)
	if bfi.Size() > ffi.Size() {
		t.Error("best compression came out larger than fast:", bfi.Size(), ffi.Size())
	}
}

func TestHuffmanOnly(t *testing.T) {
	data := testData(10000)
	fn := writeTemp(t, "wh", data)
	if !bytes.Equal(gunzipFile(t, fn), data) {
		t.Error("huffman-only round trip mismatch")
	}
}

func TestParallelWriter(t *testing.T) {
	data := testData(200000)
	fn := writeTemp(t, "wp", data)
	if !bytes.Equal(gunzipFile(t, fn), data) {
		t.Error("parallel round trip mismatch")
	}
}

func TestDirectWrite(t *testing.T) {
	data := testData(5000)
	fn := writeTemp(t, "wT", data)
	raw, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, data) {
		t.Error("transparent write altered the data")
	}
}

func TestPutByteAndWriteString(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := z.WriteString("one "); err != nil {
		t.Fatal(err)
	}
	for _, c := range []byte("two") {
		if err := z.PutByte(c); err != nil {
			t.Fatal(err)
		}
	}
	if z.Tell() != 7 {
		t.Error("position while buffered:", z.Tell())
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}
	if got := string(gunzipFile(t, fn)); got != "one two" {
		t.Error("byte writes:", got)
	}
}

func TestPrintf(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w")
	if err != nil {
		t.Fatal(err)
	}
	n, err := z.Printf("%s=%d\n", "answer", 42)
	if err != nil {
		t.Fatal(err)
	}
	if n != len("answer=42\n") {
		t.Error("printf count:", n)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}
	if got := string(gunzipFile(t, fn)); got != "answer=42\n" {
		t.Error("printf output:", got)
	}
}

// Rendering many formatted fields past one bufferful exercises the
// shift-down path inside Printf.
func TestPrintfSpill(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w")
	if err != nil {
		t.Fatal(err)
	}
	if err := z.SetBufferSize(32); err != nil {
		t.Fatal(err)
	}

	var want bytes.Buffer
	for i := 0; i < 100; i++ {
		if _, err := z.Printf("row %03d;", i); err != nil {
			t.Fatal(err)
		}
		fmt.Fprintf(&want, "row %03d;", i)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}

	if got := gunzipFile(t, fn); !bytes.Equal(got, want.Bytes()) {
		t.Errorf("spilled printf output: %q want %q", got, want.Bytes())
	}
}

func TestPrintfTooLarge(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w")
	if err != nil {
		t.Fatal(err)
	}
	defer z.Close()
	if err := z.SetBufferSize(16); err != nil {
		t.Fatal(err)
	}
	if _, err := z.Printf("%064d", 1); err == nil {
		t.Fatal("oversized printf succeeded")
	}
}

func TestFlushModes(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := z.WriteString("flushed out"); err != nil {
		t.Fatal(err)
	}
	if err := z.Flush(SyncFlush); err != nil {
		t.Fatal(err)
	}

	// after a sync flush everything written so far is decodable, even
	// though the member has no trailer yet
	r, err := Open(fn, "r")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(r)
	if string(got) != "flushed out" {
		t.Error("data not readable after sync flush:", string(got))
	}
	r.ClearError()
	r.Close()

	if err := z.Flush(FlushMode(42)); err == nil {
		t.Error("bogus flush mode accepted")
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFinishStartsNewMember(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := z.WriteString("first"); err != nil {
		t.Fatal(err)
	}
	if err := z.Flush(Finish); err != nil {
		t.Fatal(err)
	}
	// finishing again with nothing buffered must not emit an empty member
	if err := z.Flush(Finish); err != nil {
		t.Fatal(err)
	}
	if _, err := z.WriteString("second"); err != nil {
		t.Fatal(err)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}

	if got := string(gunzipFile(t, fn)); got != "firstsecond" {
		t.Fatal("content across members:", got)
	}
	if n := countMembers(t, fn); n != 2 {
		t.Error("member count:", n, "want 2")
	}
}

// countMembers reads the file back and reports how many member boundaries
// the reader crossed.
func countMembers(t *testing.T, fn string) int {
	t.Helper()
	z, err := Open(fn, "r")
	if err != nil {
		t.Fatal(err)
	}
	defer z.Close()
	if _, err := io.Copy(io.Discard, z); err != nil {
		t.Fatal(err)
	}
	return len(z.index.members)
}

func TestSetParams(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w1")
	if err != nil {
		t.Fatal(err)
	}
	a := testData(20000)
	if _, err := z.Write(a); err != nil {
		t.Fatal(err)
	}
	if err := z.SetParams(BestCompression, DefaultStrategy); err != nil {
		t.Fatal(err)
	}
	b := []byte("written at level nine")
	if _, err := z.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(gunzipFile(t, fn), append(a, b...)) {
		t.Fatal("content after parameter change")
	}
	if n := countMembers(t, fn); n != 2 {
		t.Error("parameter change should add a member boundary, got", n)
	}
}

func TestSetParamsNoop(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := z.Write(testData(100)); err != nil {
		t.Fatal(err)
	}
	if err := z.SetParams(z.level, z.strategy); err != nil {
		t.Fatal(err)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}
	if n := countMembers(t, fn); n != 1 {
		t.Error("no-op parameter change added a member:", n)
	}
}

func TestSegmentedWrite(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w")
	if err != nil {
		t.Fatal(err)
	}
	if err := z.SetSegmentSize(1000); err != nil {
		t.Fatal(err)
	}
	data := testData(5500)
	// odd-sized writes so member boundaries land mid-write
	for off := 0; off < len(data); off += 777 {
		end := off + 777
		if end > len(data) {
			end = len(data)
		}
		if _, err := z.Write(data[off:end]); err != nil {
			t.Fatal(err)
		}
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(gunzipFile(t, fn), data) {
		t.Fatal("segmented content mismatch")
	}
	if n := countMembers(t, fn); n < 4 {
		t.Error("segmenting produced too few members:", n)
	}
}

func TestWriterZeroFill(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := z.WriteString("ab"); err != nil {
		t.Fatal(err)
	}
	if _, err := z.Seek(5, io.SeekCurrent); err != nil {
		t.Fatal(err)
	}
	if z.Tell() != 7 {
		t.Error("position after deferred seek:", z.Tell())
	}
	if _, err := z.WriteString("cd"); err != nil {
		t.Fatal(err)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}

	want := []byte("ab\x00\x00\x00\x00\x00cd")
	if got := gunzipFile(t, fn); !bytes.Equal(got, want) {
		t.Errorf("zero fill: %q want %q", got, want)
	}
}

func TestWriterBackwardSeek(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w")
	if err != nil {
		t.Fatal(err)
	}
	defer z.Close()
	if _, err := z.WriteString("abc"); err != nil {
		t.Fatal(err)
	}
	if _, err := z.Seek(-1, io.SeekCurrent); err == nil {
		t.Error("backward seek on a writer succeeded")
	}
	if _, err := z.Seek(0, io.SeekStart); err == nil {
		t.Error("rewind seek on a writer succeeded")
	}
}

func TestEmptyClose(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.gz")
	z, err := Open(fn, "w")
	if err != nil {
		t.Fatal(err)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}
	// an untouched writer still leaves a valid, empty gzip file behind
	if got := gunzipFile(t, fn); len(got) != 0 {
		t.Error("empty stream decompressed to", len(got), "bytes")
	}
	fi, _ := os.Stat(fn)
	if fi.Size() == 0 {
		t.Error("no gzip container written at all")
	}
}
