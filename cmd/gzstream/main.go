package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ortegaalfredo/gzstream"

	"github.com/djherbis/atime"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const VERSION = "1.0"

var flagStdout = pflag.BoolP("stdout", "c", false, "write on standard output, keep original files unchanged")
var flagDecompress = pflag.BoolP("decompress", "d", false, "decompress")
var flagForce = pflag.BoolP("force", "f", false, "force overwrite of output file")
var flagHelp = pflag.BoolP("help", "h", false, "give this help")
var flagKeep = pflag.BoolP("keep", "k", false, "keep (don't delete) input files")
var flagTest = pflag.BoolP("test", "t", false, "test compressed file integrity")
var flagVersion = pflag.BoolP("version", "V", false, "display version number")
var flagL0 = pflag.Bool("0", false, "")
var flagL1 = pflag.BoolP("fast", "1", false, "compress faster")
var flagL2 = pflag.Bool("2", false, "")
var flagL3 = pflag.Bool("3", false, "")
var flagL4 = pflag.Bool("4", false, "")
var flagL5 = pflag.Bool("5", false, "")
var flagL6 = pflag.Bool("6", false, "")
var flagL7 = pflag.Bool("7", false, "")
var flagL8 = pflag.Bool("8", false, "")
var flagL9 = pflag.BoolP("best", "9", false, "compress better")
var flagSegment = pflag.Int64("segment", 0, "start a new gzip member every N input bytes (seekable output)")
var flagParallel = pflag.Bool("parallel", false, "compress on all cores")

const (
	ModeCompress = iota
	ModeDecompress
	ModeTest
)

var Mode = ModeCompress
var Level int = 6
var Files []string
var OutFn string
var IsStdoutTerm bool = term.IsTerminal(1)

func main() {
	pflag.Parse()
	if *flagHelp {
		Usage()
		return
	}
	if *flagVersion {
		fmt.Println("gzstream", VERSION)
		return
	}

	switch {
	case *flagL0:
		Level = 0
	case *flagL1:
		Level = 1
	case *flagL2:
		Level = 2
	case *flagL3:
		Level = 3
	case *flagL4:
		Level = 4
	case *flagL5:
		Level = 5
	case *flagL6:
		Level = 6
	case *flagL7:
		Level = 7
	case *flagL8:
		Level = 8
	case *flagL9:
		Level = 9
	}

	Files = pflag.Args()
	if len(Files) == 0 {
		Files = []string{"-"}
	}

	binname := filepath.Base(os.Args[0])

	if *flagDecompress || strings.Contains(binname, "gunz") {
		Mode = ModeDecompress
	}
	if *flagTest {
		Mode = ModeTest
	}
	if strings.Contains(binname, "zcat") {
		Mode = ModeDecompress
		*flagStdout = true
	}

	SetSignalHandler()
	os.Exit(Run())
}

func SetSignalHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-ch
		os.Remove(OutFn)
	}()
}

func CopyStat(w *os.File, f *os.File) {
	fi, err := f.Stat()
	if err == nil {
		w.Chmod(fi.Mode())
		if sys, ok := fi.Sys().(*syscall.Stat_t); ok {
			w.Chown(int(sys.Uid), int(sys.Gid))
			os.Chtimes(w.Name(), atime.Get(fi), fi.ModTime())
		}
	}
}

func fatal(args ...interface{}) {
	fmt.Fprint(os.Stderr, "gzstream: ")
	fmt.Fprintln(os.Stderr, args...)
}

// writeMode builds the library mode string for the selected options.
func writeMode() string {
	mode := fmt.Sprintf("w%d", Level)
	if *flagParallel {
		mode += "p"
	}
	return mode
}

func processFile(fn string) bool {
	var f *os.File
	var w *os.File

	outStdout := *flagStdout
	if fn == "-" {
		// the stream closes its descriptor, so hand it a dup of stdin
		// rather than stdin itself
		dup, err := syscall.Dup(0)
		if err != nil {
			fatal(err)
			return false
		}
		f = os.NewFile(uintptr(dup), "stdin")
		outStdout = true
	} else {
		var err error
		f, err = os.Open(fn)
		if err != nil {
			fatal(err)
			return false
		}
		defer f.Close()
	}

	if outStdout {
		if Mode == ModeCompress && IsStdoutTerm && !*flagForce {
			fatal("cannot compress to terminal (use -f to force)")
			return false
		}
		dup, err := syscall.Dup(1)
		if err != nil {
			fatal(err)
			return false
		}
		w = os.NewFile(uintptr(dup), "stdout")
	} else {
		var outfn string

		switch Mode {
		case ModeCompress:
			outfn = fn + ".gz"
		case ModeDecompress:
			ext := filepath.Ext(fn)
			if ext != ".gz" && ext != ".Z" {
				fatal(fn, "unknown suffix -- ignored")
				return true
			}
			outfn = fn[:len(fn)-len(ext)]
		case ModeTest:
			outfn = os.DevNull
		}

		if Mode != ModeTest && !*flagForce {
			if _, err := os.Stat(outfn); err == nil {
				fatal(outfn, "already exists (use -f to force)")
				return false
			}
		}

		var err error
		w, err = os.Create(outfn)
		if err != nil {
			fatal(err)
			return false
		}
		if Mode != ModeTest {
			// if we are interrupted before finishing, the signal handler
			// deletes the partial output
			OutFn = outfn
			defer func() { os.Remove(OutFn) }()
		}
		defer w.Close()
	}

	// the stream owns the descriptor it is given and closes it, so copy
	// the stat bits over before closing anything
	keepStat := Mode != ModeTest && fn != "-" && !outStdout

	switch Mode {
	case ModeCompress:
		z, err := gzstream.OpenFile(w, writeMode())
		if err != nil {
			fatal(err)
			return false
		}
		if *flagSegment > 0 {
			if err := z.SetSegmentSize(*flagSegment); err != nil {
				fatal(err)
				z.Close()
				return false
			}
		}
		if _, err := io.Copy(z, f); err != nil {
			fatal(err)
			z.Close()
			return false
		}
		if keepStat {
			CopyStat(w, f)
		}
		if err := z.Close(); err != nil {
			fatal(err)
			return false
		}

	case ModeDecompress, ModeTest:
		z, err := gzstream.OpenFile(f, "r")
		if err != nil {
			fatal(err)
			return false
		}
		if _, err := io.Copy(w, z); err != nil {
			fatal(err)
			z.Close()
			return false
		}
		if Mode == ModeTest && z.Direct() {
			fatal(fn, "not in gzip format")
			z.Close()
			return false
		}
		if keepStat {
			CopyStat(w, f)
		}
		if err := z.Close(); err != nil {
			fatal(err)
			return false
		}
	}

	OutFn = ""
	if keepStat && !*flagKeep {
		os.Remove(fn)
	}
	return true
}

func Run() int {
	for _, fn := range Files {
		if !processFile(fn) {
			return 1
		}
	}
	return 0
}

func Usage() {
	// pflag.Usage orders by long name and prints "[=false]" markers, which
	// reads badly for a gzip-style option set
	fmt.Print(`Usage: gzstream [OPTION]... [FILE]...
Compress or uncompress FILEs (by default, compress FILES in-place).

  -c, --stdout      write on standard output, keep original files unchanged
  -d, --decompress  decompress
  -f, --force       force overwrite of output file
  -h, --help        give this help
  -k, --keep        keep (don't delete) input files
  -t, --test        test compressed file integrity
  -V, --version     display version number
  -1, --fast        compress faster
  -9, --best        compress better
      --segment N   start a new gzip member every N input bytes
      --parallel    compress on all cores

With no FILE, or when FILE is -, read standard input.
`)
}
