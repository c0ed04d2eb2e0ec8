package stationsum

import (
	"bytes"
	"unsafe"
)

// slotKeySize pads the stored key storage past the 50-byte maximum so
// the chunked compare can always load aligned-size 16-byte chunks
// without running off the slot.
const slotKeySize = 64

// nameEqual reports whether name equals the first len(name) bytes of the
// stored key. The caller has already matched lengths. Stored keys are
// zero-padded, so each 16-byte chunk of the probe side is masked to the
// bytes that belong to the name before comparing. Falls back to a plain
// byte compare when reading past the probe name would enter a new page.
func nameEqual(stored *[slotKeySize]byte, name []byte) bool {
	n := len(name)
	p := unsafe.Pointer(unsafe.SliceData(name))
	last := uintptr(p) + uintptr(n) - 1
	loadEnd := uintptr(p) + uintptr((n+15)&^15) - 1
	if last/pageSize != loadEnd/pageSize {
		return bytes.Equal(stored[:n], name)
	}
	for i := 0; i < n; i += 16 {
		lo := *(*uint64)(unsafe.Add(p, i))
		hi := *(*uint64)(unsafe.Add(p, i+8))
		m := &lenMasks[min(n-i, 16)]
		slo := *(*uint64)(unsafe.Pointer(&stored[i]))
		shi := *(*uint64)(unsafe.Pointer(&stored[i+8]))
		if lo&m[0] != slo || hi&m[1] != shi {
			return false
		}
	}
	return true
}
