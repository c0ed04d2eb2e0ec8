package stationsum

import (
	"math/rand"
	"strings"
)

// padInput copies s into a slice carrying the spare capacity Run wants,
// so tests can drive the scanner and decoder directly without tripping
// the read-ahead.
func padInput(s string) []byte {
	b := make([]byte, len(s), len(s)+TailPadding)
	copy(b, s)
	return b
}

// baseStations mixes short, long and multi-byte UTF-8 names, including
// the 2-byte and 50-byte extremes.
var baseStations = []string{
	"Ur",
	"Jos",
	"Nuuk",
	"Hamburg",
	"Bulawayo",
	"Palembang",
	"Reykjavík",
	"Yaoundé",
	"St. John's",
	"Washington, D.C.",
	"Kuala Lumpur",
	"College Park",
	"College Station",
	"Petropavlovsk-Kamchatsky",
	"San Salvador de Jujuy",
	strings.Repeat("ab", 25),
	strings.Repeat("é", 25),
}

// genStations returns n distinct station names with realistic entropy
// (the probe-length tuning assumes city-name-like keys, not sequential
// ones). Deterministic across runs.
func genStations(n int) []string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	rng := rand.New(rand.NewSource(0x43f9e1))
	seen := make(map[string]bool, n)
	names := make([]string, 0, n)
	for _, s := range baseStations[:min(n, len(baseStations))] {
		seen[s] = true
		names = append(names, s)
	}
	for len(names) < n {
		var sb strings.Builder
		for l := 2 + rng.Intn(29); l > 0; l-- {
			sb.WriteByte(letters[rng.Intn(len(letters))])
		}
		if name := sb.String(); !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func randTempText(rng *rand.Rand) string {
	if rng.Intn(100) == 0 {
		return "-0.0"
	}
	return string(appendTenths(nil, int16(rng.Intn(1999)-999)))
}

// genInput builds a measurements file of the given number of lines over
// the given stations, deterministic for a seeded rng.
func genInput(rng *rand.Rand, lines int, stations []string) string {
	var sb strings.Builder
	for i := 0; i < lines; i++ {
		sb.WriteString(stations[rng.Intn(len(stations))])
		sb.WriteByte(';')
		sb.WriteString(randTempText(rng))
		sb.WriteByte('\n')
	}
	return sb.String()
}
