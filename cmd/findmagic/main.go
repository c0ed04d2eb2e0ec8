// Command findmagic is the offline search for the two magic multipliers
// the ingest pipeline bakes in: the temperature multiplier that perfect-
// hashes every reading encoding into a 2^13 table, and the sparse
// station-hash multiplier that keeps linear-probe chains short.
//
// Run with no flags it re-verifies the shipped temperature multiplier;
// -stations reports the shipped station multiplier's mean probe length
// over a station list, and the -search-* flags run the randomized
// searches that found them.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"math/bits"
	"math/rand"
	"os"

	"golang.org/x/exp/mmap"
)

const (
	tempMagic     = 0xd6df3436fe286720
	tempTableBits = 13
	stationMagic  = 0x20000400020001
	stationShift  = 44
	stationBits   = 15
	lenMix        = 0x9e3779b97f4a7c15
	maxStationLen = 50
	maxStations   = 10_000
)

func main() {
	stationsPath := flag.String("stations", "", "station list (name;... lines) for hash quality")
	searchTemp := flag.Bool("search-temp", false, "search for temperature magics with fewer index bits")
	searchHash := flag.Bool("search-hash", false, "search for better 4-bit station magics")
	seed := flag.Int64("seed", 0x4214931, "search seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	verifyTempMagic()
	if *searchTemp {
		searchTempMagic(rng)
	}
	if *stationsPath != "" {
		names, err := readStations(*stationsPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("%d stations, shipped magic mean probe length %.3f\n",
			len(names), meanProbeLength(names, stationMagic))
		if *searchHash {
			searchStationMagic(rng, names)
		}
	}
}

// encodings returns the little-endian packed text of every reading,
// newline-terminated when shorter than five bytes, plus the "-0.0" form
// the generator never emits but the grammar allows.
func encodings() []uint64 {
	pack := func(s []byte) uint64 {
		var e uint64
		for i, b := range s {
			e |= uint64(b) << (8 * i)
		}
		return e
	}
	var out []uint64
	for t := -999; t <= 999; t++ {
		v := t
		s := []byte{}
		if v < 0 {
			s = append(s, '-')
			v = -v
		}
		if v >= 100 {
			s = append(s, byte(v/100)+'0')
		}
		s = append(s, byte(v/10%10)+'0', '.', byte(v%10)+'0')
		if len(s) < 5 {
			s = append(s, '\n')
		}
		out = append(out, pack(s))
	}
	return append(out, pack([]byte("-0.0\n")))
}

func allUnique(vals []uint64, magic uint64, tableBits uint) bool {
	seen := make([]uint64, (1<<tableBits+63)/64)
	for _, v := range vals {
		h := (v * magic) >> (64 - tableBits)
		if seen[h/64]&(1<<(h%64)) != 0 {
			return false
		}
		seen[h/64] |= 1 << (h % 64)
	}
	return true
}

func verifyTempMagic() {
	if !allUnique(encodings(), tempMagic, tempTableBits) {
		fmt.Fprintf(os.Stderr, "temperature magic %#x is NOT collision-free at %d bits\n",
			uint64(tempMagic), tempTableBits)
		os.Exit(1)
	}
	fmt.Printf("temperature magic %#x: collision-free at %d bits\n",
		uint64(tempMagic), tempTableBits)
}

// searchTempMagic looks for multipliers that stay collision-free with
// ever fewer index bits, printing each improvement.
func searchTempMagic(rng *rand.Rand) {
	vals := encodings()
	fewest := uint(20)
	for 1<<fewest > len(vals) {
		magic := rng.Uint64()
		for allUnique(vals, magic, fewest-1) {
			fewest--
			fmt.Printf("magic %#016x unique with %d bits\n", magic, fewest)
		}
	}
}

// readStations loads the distinct station names from a name;... file,
// skipping '#' comments.
func readStations(path string) ([][]byte, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()
	data := make([]byte, r.Len())
	if _, err := r.ReadAt(data, 0); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	seen := make(map[string]bool, maxStations)
	var names [][]byte
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		name := line
		if i := bytes.IndexByte(line, ';'); i >= 0 {
			name = line[:i]
		}
		if len(name) == 0 || len(name) > maxStationLen || seen[string(name)] {
			continue
		}
		seen[string(name)] = true
		names = append(names, append([]byte(nil), name...))
		if len(names) == maxStations {
			break
		}
	}
	return names, sc.Err()
}

// stationFold mirrors the pipeline's pre-multiply fold: masked 16-byte
// prefix, halves XORed, length mixed in.
func stationFold(name []byte) uint64 {
	var buf [16]byte
	copy(buf[:], name)
	var lo, hi uint64
	for i := 0; i < 8; i++ {
		lo |= uint64(buf[i]) << (8 * i)
		hi |= uint64(buf[8+i]) << (8 * i)
	}
	f := lo ^ hi
	return f ^ bits.RotateLeft64(uint64(len(name))*lenMix, 32)
}

// meanProbeLength simulates linear probing of every name into an empty
// table and averages the chain lengths, first probe included.
func meanProbeLength(names [][]byte, magic uint64) float64 {
	size := 1 << stationBits
	occupied := make([]bool, size)
	total := 0
	for _, name := range names {
		idx := int((stationFold(name)*magic)>>stationShift) & (size - 1)
		probes := 1
		for occupied[idx] {
			idx = (idx + 1) & (size - 1)
			probes++
		}
		occupied[idx] = true
		total += probes
	}
	return float64(total) / float64(len(names))
}

// searchStationMagic draws random multipliers with exactly four set bits
// and keeps the one with the shortest mean probe chain.
func searchStationMagic(rng *rand.Rand, names [][]byte) {
	best := meanProbeLength(names, stationMagic)
	bestMagic := uint64(stationMagic)
	for i := 0; i < 1_000_000; i++ {
		var magic uint64
		for bits.OnesCount64(magic) != 4 {
			magic |= 1 << (rng.Intn(64))
		}
		if q := meanProbeLength(names, magic); q < best {
			best, bestMagic = q, magic
			fmt.Printf("magic %#016x mean probe length %.3f\n", bestMagic, best)
		}
	}
	fmt.Printf("best magic %#016x mean probe length %.3f\n", bestMagic, best)
}
