package stationsum

import (
	"bytes"
	"fmt"
	"math"
	"unicode/utf8"
	"unsafe"

	"github.com/dolthub/swiss"
	"github.com/valyala/fastjson/fastfloat"
)

// Reference is the scalar implementation: line-at-a-time, an ordinary
// hash map, and full grammar validation. It is the oracle the fast path
// is tested against and doubles as strict mode — the first malformed
// line aborts the run with its line number.
func Reference(data []byte) ([]StationSummary, error) {
	stats := swiss.NewMap[string, *summary](16 * 1024)
	lineNo := 0
	for off := 0; off < len(data); {
		nl := bytes.IndexByte(data[off:], '\n')
		if nl < 0 {
			return nil, fmt.Errorf("line %d: missing newline terminator", lineNo+1)
		}
		line := data[off : off+nl]
		off += nl + 1
		lineNo++

		sep := bytes.IndexByte(line, ';')
		if sep < 0 {
			return nil, fmt.Errorf("line %d: no ';' in %q", lineNo, line)
		}
		name := line[:sep]
		if len(name) < minNameLen || len(name) > maxNameLen {
			return nil, fmt.Errorf("line %d: station name %q has length %d, want %d..%d",
				lineNo, name, len(name), minNameLen, maxNameLen)
		}
		if !utf8.Valid(name) {
			return nil, fmt.Errorf("line %d: station name %q is not valid UTF-8", lineNo, name)
		}
		temp := line[sep+1:]
		if _, err := decodeTempStrict(temp); err != nil {
			return nil, fmt.Errorf("line %d: %v", lineNo, err)
		}
		v := fastfloat.ParseBestEffort(unsafe.String(unsafe.SliceData(temp), len(temp)))
		t := int16(math.Round(v * 10))

		s, ok := stats.Get(unsafe.String(unsafe.SliceData(name), len(name)))
		if !ok {
			s = &summary{min: summaryMinInit, max: summaryMaxInit}
			stats.Put(string(name), s)
		}
		s.add(t)
	}

	out := make([]StationSummary, 0, stats.Count())
	stats.Iter(func(name string, s *summary) bool {
		out = append(out, StationSummary{Name: name, Min: s.min, Mean: s.mean(), Max: s.max})
		return false
	})
	sortByName(out)
	return out, nil
}
