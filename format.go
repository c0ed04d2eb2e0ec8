package stationsum

import (
	"bufio"
	"bytes"
	"io"
)

// Format renders one "name=min/mean/max" line per station, each number
// with exactly one fractional digit.
func Format(w io.Writer, rows []StationSummary) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 80)
	for _, r := range rows {
		buf = buf[:0]
		buf = append(buf, r.Name...)
		buf = append(buf, '=')
		buf = appendTenths(buf, r.Min)
		buf = append(buf, '/')
		buf = appendTenths(buf, r.Mean)
		buf = append(buf, '/')
		buf = appendTenths(buf, r.Max)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FormatString is Format into a string, for tests and small inputs.
func FormatString(rows []StationSummary) string {
	var sb bytes.Buffer
	_ = Format(&sb, rows)
	return sb.String()
}
