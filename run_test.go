package stationsum

import (
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/maps"
)

func runFormatted(t *testing.T, in string, opts Options) string {
	t.Helper()
	rows, err := Run(padInput(in), opts)
	require.NoError(t, err)
	return FormatString(rows)
}

func referenceFormatted(t *testing.T, in string) string {
	t.Helper()
	rows, err := Reference([]byte(in))
	require.NoError(t, err)
	return FormatString(rows)
}

func requireSameOutput(t *testing.T, want, got string) {
	t.Helper()
	if want != got {
		t.Fatalf("output mismatch (-want +got):\n%s", diff.LineDiff(want, got))
	}
}

func TestScenarios(t *testing.T) {
	tt := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "three stations",
			in:   "Hamburg;12.0\nBulawayo;8.9\nPalembang;38.8\nHamburg;-4.5\nPalembang;39.7\n",
			want: "Bulawayo=8.9/8.9/8.9\nHamburg=-4.5/3.7/12.0\nPalembang=38.8/39.2/39.7\n",
		},
		{
			name: "negative zero",
			in:   "A;-0.0\nA;0.0\n",
			want: "A=0.0/0.0/0.0\n",
		},
		{
			name: "extremes cancel",
			in:   "X;-99.9\nX;99.9\n",
			want: "X=-99.9/0.0/99.9\n",
		},
		{
			name: "repeated line",
			in:   strings.Repeat("Y;-5.0\n", 3),
			want: "Y=-5.0/-5.0/-5.0\n",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			for _, workers := range []int{1, 3} {
				got := runFormatted(t, tc.in, Options{Workers: workers, CapacityLog2: 12})
				requireSameOutput(t, tc.want, got)
			}
		})
	}
}

func TestSingleVsMultiIdentical(t *testing.T) {
	rng := rand.New(rand.NewSource(0x09f8eab1))
	in := genInput(rng, 5000, genStations(40))

	want := runFormatted(t, in, Options{Workers: 1})
	for _, workers := range []int{2, 4, 7} {
		got := runFormatted(t, in, Options{Workers: workers})
		requireSameOutput(t, want, got)
	}
}

func TestAgainstReference(t *testing.T) {
	rng := rand.New(rand.NewSource(0x4214931))
	in := genInput(rng, 5000, genStations(40))

	want := referenceFormatted(t, in)
	got := runFormatted(t, in, Options{Workers: 4})
	requireSameOutput(t, want, got)
}

func TestFuzzAgainstReference(t *testing.T) {
	for _, seed := range []int64{1, 0x43f9e1, 0x12312312} {
		rng := rand.New(rand.NewSource(seed))
		stations := genStations(10 + rng.Intn(100))
		in := genInput(rng, 1000+rng.Intn(3000), stations)
		workers := 1 + rng.Intn(6)

		want := referenceFormatted(t, in)
		got := runFormatted(t, in, Options{Workers: workers})
		requireSameOutput(t, want, got)
	}
}

func TestSharedPrefixStationsHeavy(t *testing.T) {
	// Two stations that share their first 8 bytes, so the low half of
	// the 16-byte prefix fold is identical, hammered hard enough to cross
	// every shard boundary.
	rng := rand.New(rand.NewSource(42))
	in := genInput(rng, 100_000, []string{"College Station", "College Park"})

	want := referenceFormatted(t, in)
	for _, workers := range []int{1, 8} {
		got := runFormatted(t, in, Options{Workers: workers})
		requireSameOutput(t, want, got)
	}
}

func TestTenThousandStations(t *testing.T) {
	if testing.Short() {
		t.Skip("large input")
	}
	rng := rand.New(rand.NewSource(0xbeef))
	stations := genStations(10_000)
	in := genInput(rng, 200_000, stations)

	rows, err := Run(padInput(in), Options{Workers: 8, CapacityLog2: defaultSharedCapLog2})
	require.NoError(t, err)
	assert.Len(t, rows, 10_000)

	want := referenceFormatted(t, in)
	requireSameOutput(t, want, FormatString(rows))
}

// summarize ingests in with the internal single-shard pipeline and
// returns per-station summaries keyed by name.
func summarize(t *testing.T, in string) map[string]summary {
	t.Helper()
	data := padInput(in)
	d := newSharedDict(12, false)
	defer d.release()
	sums := make([]summary, 1<<12)
	for i := range sums {
		sums[i] = newSummary()
	}
	ingestShard(data, shard{0, len(data)}, d, sums)

	out := make(map[string]summary)
	for i := range d.slots {
		if ln := d.slots[i].state.Load(); ln > 0 {
			out[string(d.slots[i].key[:ln])] = sums[i]
		}
	}
	return out
}

func TestConcatIsMerge(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	stations := genStations(25)
	a := genInput(rng, 700, stations)
	b := genInput(rng, 900, stations)

	merged := summarize(t, a)
	for name, s := range summarize(t, b) {
		total, ok := merged[name]
		if !ok {
			total = newSummary()
		}
		total.merge(&s)
		merged[name] = total
	}

	whole := summarize(t, a+b)

	wantNames := maps.Keys(merged)
	gotNames := maps.Keys(whole)
	sort.Strings(wantNames)
	sort.Strings(gotNames)
	require.Equal(t, wantNames, gotNames)
	require.Equal(t, merged, whole)
}

func TestWorkersExceedLines(t *testing.T) {
	in := "aa;1.0\nbb;2.0\ncc;-3.0\n"
	got := runFormatted(t, in, Options{Workers: 16})
	requireSameOutput(t, "aa=1.0/1.0/1.0\nbb=2.0/2.0/2.0\ncc=-3.0/-3.0/-3.0\n", got)
}

func TestShardBounds(t *testing.T) {
	in := "aa;1.0\nbb;2.0\ncc;3.0\ndd;4.0\n"
	data := []byte(in)

	for w := 1; w <= 6; w++ {
		shards := shardBounds(data, w)
		require.NotEmpty(t, shards)
		require.LessOrEqual(t, len(shards), w)
		require.Equal(t, 0, shards[0].start)
		require.Equal(t, len(data), shards[len(shards)-1].end)
		for i, sh := range shards {
			require.Less(t, sh.start, sh.end)
			require.Equal(t, byte('\n'), data[sh.end-1])
			if i > 0 {
				require.Equal(t, shards[i-1].end, sh.start)
			}
		}
	}
}

func TestRunValidation(t *testing.T) {
	_, err := Run(padInput("aa;1.0\n"), Options{Workers: -1})
	require.ErrorContains(t, err, "worker count")

	_, err = Run(padInput("aa;1.0\n"), Options{CapacityLog2: 5})
	require.ErrorContains(t, err, "capacity")

	_, err = Run(padInput("aa;1.0\nbb;2.0"), Options{})
	require.ErrorContains(t, err, "newline")

	rows, err := Run(nil, Options{})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRunUnpaddedInput(t *testing.T) {
	// A caller-owned slice with no spare capacity must still work: Run
	// clones it into a padded buffer.
	in := []byte("Hamburg;12.0\nHamburg;-4.5\n")
	rows, err := Run(in[:len(in):len(in)], Options{Workers: 2, CapacityLog2: 12})
	require.NoError(t, err)
	require.Equal(t, "Hamburg=-4.5/3.7/12.0\n", FormatString(rows))
}

func TestReferenceStrict(t *testing.T) {
	tt := []struct {
		name string
		in   string
	}{
		{"name too short", "A;1.0\n"},
		{"name too long", strings.Repeat("a", 51) + ";1.0\n"},
		{"no separator", "ab1.0\n"},
		{"missing terminator", "ab;12.3"},
		{"two fractional digits", "ab;1.23\n"},
		{"out of range", "ab;123.4\n"},
		{"not a number", "ab;x.y\n"},
		{"invalid utf8 name", "\xff\xfe;1.0\n"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Reference([]byte(tc.in))
			require.Error(t, err)
			if tc.in[len(tc.in)-1] == '\n' {
				require.ErrorContains(t, err, "line 1")
			}
		})
	}
}

func TestFormat(t *testing.T) {
	rows := []StationSummary{
		{Name: "Bulawayo", Min: 89, Mean: 89, Max: 89},
		{Name: "Hamburg", Min: -45, Mean: 37, Max: 120},
	}
	require.Equal(t, "Bulawayo=8.9/8.9/8.9\nHamburg=-4.5/3.7/12.0\n", FormatString(rows))
}
