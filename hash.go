package stationsum

import (
	"encoding/binary"
	"math/bits"
	"unsafe"
)

// hashMagic has exactly four set bits so the multiply compiles to three
// shifted adds. Chosen by cmd/findmagic to minimize the expected probe
// length over the canonical station list.
const hashMagic = 0x20000400020001

// hashShift leaves enough high product bits to index the largest table
// layout.
const hashShift = 44

// lenMix decorrelates names that share a 16-byte prefix but differ in
// length.
const lenMix = 0x9e3779b97f4a7c15

const pageSize = 4096

// lenMasks[n] zeroes the bytes at indices >= n of a 16-byte load, capped
// at 16 for longer names.
var lenMasks [maxNameLen + 1][2]uint64

func init() {
	for l := range lenMasks {
		n := min(l, 16)
		if n >= 8 {
			lenMasks[l] = [2]uint64{^uint64(0), byteMask(n - 8)}
		} else {
			lenMasks[l] = [2]uint64{byteMask(n), 0}
		}
	}
}

func byteMask(n int) uint64 {
	if n >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(n)) - 1
}

// hashName folds the masked first 16 bytes of the name and its length
// into a table index (before capacity masking). The 16-byte load goes
// through a byte-copy fallback when it would cross a 4KiB page, so names
// at the very end of a mapping hash identically to interior ones.
func hashName(name []byte) uint64 {
	var lo, hi uint64
	p := unsafe.Pointer(unsafe.SliceData(name))
	if loadCrossesPage(p, 16) {
		var scratch [16]byte
		copy(scratch[:], name)
		lo = binary.LittleEndian.Uint64(scratch[0:8])
		hi = binary.LittleEndian.Uint64(scratch[8:16])
	} else {
		lo = *(*uint64)(p)
		hi = *(*uint64)(unsafe.Add(p, 8))
	}
	m := &lenMasks[len(name)]
	f := lo&m[0] ^ hi&m[1]
	f ^= bits.RotateLeft64(uint64(len(name))*lenMix, 32)
	return (f * hashMagic) >> hashShift
}

// loadCrossesPage reports whether an n-byte load at p would touch the
// page after the one holding p.
func loadCrossesPage(p unsafe.Pointer, n uintptr) bool {
	return uintptr(p)%pageSize > pageSize-n
}
