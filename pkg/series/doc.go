// Package series implements the bounded sample buffers underneath every
// plotted curve.
//
// A Buffer holds a fixed number of (timestamp, value) samples sorted
// ascending by time, right-aligned in its backing arrays the way a strip
// chart fills from the right. Two buffers back each curve: a live buffer
// appended to by the real-time stream, and an archive buffer populated by
// backfill queries through Merge.
//
// Merge reconciles a backfill batch with what is already buffered. The
// batch may be raw samples or statistically binned ones; either way it is
// authoritative for its own time range, so existing samples inside the
// batch's closed [min, max] interval are superseded. When the merged
// result exceeds capacity, the oldest samples are evicted first: as a
// session progresses, distant history is the first thing dropped.
package series
