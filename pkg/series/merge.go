package series

import "sort"

// Merge inserts a backfill batch into the buffer. The batch supersedes any
// existing samples whose timestamps fall within its closed time range: an
// incoming batch is always at least as detailed as what it covers, either
// first-time history or a higher-resolution re-query after a zoom. The
// result is the sorted union of the survivors and the batch; when it
// exceeds capacity the oldest samples are evicted first.
func (b *Buffer) Merge(batch []Sample) {
	if len(batch) == 0 {
		return
	}

	sorted := make([]Sample, len(batch))
	copy(sorted, batch)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	sorted = dedupe(sorted)

	newMin := sorted[0].Time
	newMax := sorted[len(sorted)-1].Time

	existing := b.Samples()
	survivors := existing[:0]
	for _, s := range existing {
		if s.Time < newMin || s.Time > newMax {
			survivors = append(survivors, s)
		}
	}

	union := make([]Sample, 0, len(survivors)+len(sorted))
	i, j := 0, 0
	for i < len(survivors) && j < len(sorted) {
		switch {
		case survivors[i].Time < sorted[j].Time:
			union = append(union, survivors[i])
			i++
		case survivors[i].Time > sorted[j].Time:
			union = append(union, sorted[j])
			j++
		default:
			// Equal timestamps were superseded above; if one slips
			// through, the batch value wins.
			union = append(union, sorted[j])
			i++
			j++
		}
	}
	union = append(union, survivors[i:]...)
	union = append(union, sorted[j:]...)

	b.Replace(union)
}

// dedupe collapses equal timestamps in an ascending batch, keeping the last
// occurrence.
func dedupe(samples []Sample) []Sample {
	out := samples[:0]
	for i, s := range samples {
		if i > 0 && s.Time == out[len(out)-1].Time {
			out[len(out)-1] = s
			continue
		}
		out = append(out, s)
	}
	return out
}
