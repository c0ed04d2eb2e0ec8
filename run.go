// Package stationsum ingests a measurements file of "name;temp" lines
// and produces one min/mean/max summary per weather station. The input
// is consumed as a single byte region sharded across workers on line
// boundaries; summaries stay worker-private until a single-threaded
// merge after all workers have finished.
package stationsum

import (
	"bytes"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Options configures Run. The zero value selects one worker per
// available CPU and the default table capacity for the chosen layout.
type Options struct {
	// Workers is the number of ingest goroutines. 1 selects the fused
	// single-worker layout where keys and summaries share a bucket; more
	// than 1 selects the shared names table plus per-worker summaries.
	Workers int
	// CapacityLog2 sets the station table capacity to 1<<CapacityLog2.
	// 0 means 20 for the fused layout and 15 for the shared one.
	CapacityLog2 int
	// Hugepages requests large-page backing for the dictionary and
	// summary storage.
	Hugepages bool
}

// StationSummary is one station's result, all values in tenths of a
// degree.
type StationSummary struct {
	Name string
	Min  int16
	Mean int16
	Max  int16
}

const (
	minCapLog2 = 10
	maxCapLog2 = 28
)

// Run ingests data and returns the per-station summaries sorted by raw
// name bytes. data must end with '\n'; its backing array should extend
// TailPadding bytes past len(data), otherwise Run copies the input into
// a padded buffer first.
func Run(data []byte, opts Options) ([]StationSummary, error) {
	workers := opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		return nil, fmt.Errorf("worker count must be positive, got %d", opts.Workers)
	}
	capLog2 := opts.CapacityLog2
	if capLog2 == 0 {
		if workers == 1 {
			capLog2 = defaultFusedCapLog2
		} else {
			capLog2 = defaultSharedCapLog2
		}
	}
	if capLog2 < minCapLog2 || capLog2 > maxCapLog2 {
		return nil, fmt.Errorf("table capacity 2^%d out of range [2^%d, 2^%d]", capLog2, minCapLog2, maxCapLog2)
	}
	if len(data) == 0 {
		return nil, nil
	}
	if data[len(data)-1] != '\n' {
		return nil, fmt.Errorf("input does not end with a newline")
	}
	data = padded(data)

	shards := shardBounds(data, workers)
	if workers == 1 {
		return runFused(data, shards[0], capLog2, opts.Hugepages), nil
	}
	return runShared(data, shards, capLog2, opts.Hugepages), nil
}

// padded guarantees the scanner's read-ahead stays inside the backing
// array.
func padded(data []byte) []byte {
	if cap(data)-len(data) >= TailPadding {
		return data
	}
	buf := make([]byte, len(data), len(data)+TailPadding)
	copy(buf, data)
	return buf
}

type shard struct {
	start, end int
}

// shardBounds cuts data into at most w nearly-equal shards, each
// starting at a line head and ending just past a newline. Fewer shards
// come back when the file has fewer lines than cut points.
func shardBounds(data []byte, w int) []shard {
	bounds := make([]shard, 0, w)
	start := 0
	for i := 1; i <= w && start < len(data); i++ {
		end := len(data)
		if i < w {
			if c := i * (len(data) / w); c > start {
				end = c
				if data[end-1] != '\n' {
					end += bytes.IndexByte(data[end:], '\n') + 1
				}
			} else {
				end = start
			}
		}
		if end > start {
			bounds = append(bounds, shard{start, end})
			start = end
		}
	}
	return bounds
}

func runFused(data []byte, sh shard, capLog2 int, huge bool) []StationSummary {
	dict := newFusedDict(capLog2, huge)
	defer dict.release()

	sc := newScanner(data, sh.start, sh.end)
	for {
		name, tempOff, ok := sc.next()
		if !ok {
			break
		}
		b := dict.lookup(name)
		b.add(decodeTemp(load64(data, tempOff)))
	}

	out := make([]StationSummary, 0, 1024)
	for i := range dict.slots {
		b := &dict.slots[i]
		if b.ln == 0 || b.count == 0 {
			continue
		}
		s := summary{min: b.min, max: b.max, sum: b.sum, count: b.count}
		out = append(out, StationSummary{
			Name: string(b.key[:b.ln]),
			Min:  s.min,
			Mean: s.mean(),
			Max:  s.max,
		})
	}
	sortByName(out)
	return out
}

func runShared(data []byte, shards []shard, capLog2 int, huge bool) []StationSummary {
	dict := newSharedDict(capLog2, huge)
	defer dict.release()

	capacity := 1 << capLog2
	sums := make([][]summary, len(shards))
	for i := range sums {
		table, free := newTable[summary](capacity, huge)
		defer free()
		for j := range table {
			table[j] = newSummary()
		}
		sums[i] = table
	}

	var g errgroup.Group
	for i, sh := range shards {
		i, sh := i, sh
		g.Go(func() error {
			ingestShard(data, sh, dict, sums[i])
			return nil
		})
	}
	// Workers cannot fail; Wait is the join barrier that orders their
	// summary writes before the merge.
	_ = g.Wait()

	out := make([]StationSummary, 0, 1024)
	for i := range dict.slots {
		ln := dict.slots[i].state.Load()
		if ln <= 0 {
			continue
		}
		total := newSummary()
		for w := range sums {
			total.merge(&sums[w][i])
		}
		if total.count == 0 {
			continue
		}
		out = append(out, StationSummary{
			Name: string(dict.slots[i].key[:ln]),
			Min:  total.min,
			Mean: total.mean(),
			Max:  total.max,
		})
	}
	sortByName(out)
	return out
}

// ingestShard is the worker hot loop: scan a line, resolve the station
// bucket, decode the reading, update this worker's summary. It touches
// no other worker's state.
func ingestShard(data []byte, sh shard, dict *sharedDict, sums []summary) {
	sc := newScanner(data, sh.start, sh.end)
	for {
		name, tempOff, ok := sc.next()
		if !ok {
			return
		}
		slot := dict.lookup(name)
		sums[slot].add(decodeTemp(load64(data, tempOff)))
	}
}

func sortByName(rows []StationSummary) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
}
