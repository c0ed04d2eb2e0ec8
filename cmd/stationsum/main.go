// Command stationsum summarizes a weather-station measurements file:
// one "name=min/mean/max" line per station, sorted by name.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"github.com/pechorka/stdlib/pkg/errs"
	"github.com/pkg/profile"
	"golang.org/x/sys/unix"

	"stationsum"
)

func main() {
	workers := flag.Int("workers", runtime.NumCPU(), "number of ingest workers")
	tableBits := flag.Int("table-bits", 0, "log2 of the station table capacity (0 = layout default)")
	huge := flag.Bool("hugepages", false, "request large-page backing for the tables")
	strict := flag.Bool("strict", false, "validate every line with the scalar reference")
	flag.Parse()

	if os.Getenv("PROFILE") == "1" {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	filename := "measurements.txt"
	if flag.NArg() > 0 {
		filename = flag.Arg(0)
	}

	opts := stationsum.Options{
		Workers:      *workers,
		CapacityLog2: *tableBits,
		Hugepages:    *huge,
	}
	if err := run(filename, opts, *strict); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(filename string, opts stationsum.Options, strict bool) error {
	data, done, err := mapInput(filename)
	if err != nil {
		return err
	}
	defer done()

	var rows []stationsum.StationSummary
	if strict {
		rows, err = stationsum.Reference(data)
	} else {
		rows, err = stationsum.Run(data, opts)
	}
	if err != nil {
		return err
	}
	return stationsum.Format(os.Stdout, rows)
}

// mapInput maps filename read-only and returns a view whose spare
// capacity covers the scanner's read-ahead past the final newline. When
// the file ends too close to a page boundary for the mapping to provide
// that tail, the file is read into memory instead and Run pads it.
func mapInput(filename string) ([]byte, func(), error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, errs.Wrap(err, "open input")
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, nil, errs.Wrap(err, "stat input")
	}
	size := int(st.Size())
	if size == 0 {
		return nil, func() {}, nil
	}

	page := os.Getpagesize()
	tail := 0
	if rem := size % page; rem != 0 {
		tail = page - rem
	}
	if tail < stationsum.TailPadding {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, nil, errs.Wrap(err, "read input")
		}
		return data, func() {}, nil
	}

	b, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, errs.Wrap(err, "mmap input")
	}
	data := unsafe.Slice(unsafe.SliceData(b), size+tail)[:size]
	return data, func() { _ = unix.Munmap(b) }, nil
}
