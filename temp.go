package stationsum

import "fmt"

// Readings are fixed-point tenths of a degree: -99.9 .. 99.9 maps to
// -999 .. 999.
const (
	minTempTenths = -999
	maxTempTenths = 999

	minTempLen = 3 // "x.x"
	maxTempLen = 5 // "-xx.x"
)

// tempTableShift is the number of index bits needed for the
// multiply-shift hash of reading encodings to be collision-free.
const tempTableShift = 13

const tempTableSize = 1 << tempTableShift

// tempMagic maps every reading encoding to a u64 with unique high 13
// bits under multiplication. Found by cmd/findmagic, verified again in
// init.
const tempMagic = 0xd6df3436fe286720

// tempInvalid fills table entries no valid encoding hashes to.
const tempInvalid = int16(-(1 << 14))

var tempTable [tempTableSize]int16

func init() {
	for i := range tempTable {
		tempTable[i] = tempInvalid
	}
	fill := func(e uint64, t int16) {
		idx := tempIndex(e)
		if tempTable[idx] != tempInvalid {
			panic(fmt.Sprintf("temperature table: magic %#x collides at index %d", uint64(tempMagic), idx))
		}
		tempTable[idx] = t
	}
	for t := minTempTenths; t <= maxTempTenths; t++ {
		fill(tempEncoding(int16(t)), int16(t))
	}
	// "-0.0" is valid input but has no canonical integer of its own.
	fill(negZeroEncoding, 0)
}

// negZeroEncoding is "-0.0\n" packed little-endian, the one reading
// string tempEncoding never produces.
const negZeroEncoding = uint64(0x0a_30_2e_30_2d)

// tempEncoding packs the canonical text of t little-endian into a u64,
// with the trailing '\n' included when the text is shorter than five
// bytes. This matches what decodeTemp sees after masking.
func tempEncoding(t int16) uint64 {
	var e uint64
	n := 0
	put := func(c byte) {
		e |= uint64(c) << (8 * n)
		n++
	}
	v := t
	if t < 0 {
		put('-')
		v = -v
	}
	if v >= 100 {
		put(byte(v/100) + '0')
	}
	put(byte(v/10%10) + '0')
	put('.')
	put(byte(v%10) + '0')
	if n < maxTempLen {
		put('\n')
	}
	return e
}

func tempIndex(e uint64) int {
	return int((e * tempMagic) >> (64 - tempTableShift))
}

// decodeTemp maps the 8 bytes starting at the first character of a
// reading to tenths of a degree. Bytes from the following line are
// masked off: if byte 3 is the terminating newline the low 4 bytes are
// kept (newline included), otherwise the low 5 are kept, which for
// 4-byte readings includes the newline and for 5-byte readings spans
// exactly the text. One conditional, then a table lookup.
func decodeTemp(w uint64) int16 {
	mask := uint64(0xff_ff_ff_ff_ff)
	if w&(0xff<<24) == '\n'<<24 {
		mask = 0xff_ff_ff_ff
	}
	return tempTable[tempIndex(w&mask)]
}

// decodeTempStrict validates that b matches -?\d{1,2}\.\d before
// decoding. b is the reading text without the newline. Meant for tests
// and the strict reference path, not the hot loop.
func decodeTempStrict(b []byte) (int16, error) {
	s := b
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if len(s) != 3 && len(s) != 4 {
		return 0, fmt.Errorf("temperature %q: wrong length", b)
	}
	if s[len(s)-2] != '.' {
		return 0, fmt.Errorf("temperature %q: missing decimal point", b)
	}
	t := int16(0)
	for i, c := range s {
		if i == len(s)-2 {
			continue
		}
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("temperature %q: non-digit %q", b, c)
		}
		t = t*10 + int16(c-'0')
	}
	if neg {
		t = -t
	}
	return t, nil
}

// appendTenths renders t as a signed decimal with one fractional digit.
func appendTenths(dst []byte, t int16) []byte {
	v := t
	if v < 0 {
		dst = append(dst, '-')
		v = -v
	}
	if v >= 100 {
		dst = append(dst, byte(v/100)+'0')
	}
	dst = append(dst, byte(v/10%10)+'0', '.', byte(v%10)+'0')
	return dst
}
