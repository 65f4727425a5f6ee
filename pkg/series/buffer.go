package series

import "fmt"

// Sample is a single observation: a timestamp in epoch seconds and the
// observed value.
type Sample struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Buffer is a fixed-capacity, time-ordered sample store. Valid samples are
// right-aligned in the backing arrays: the newest sample sits at the last
// index and unused leading capacity is zero-filled and never exposed. The
// valid region is always sorted ascending by timestamp.
//
// Buffer is not safe for concurrent use; the hosting plot serializes
// appends, merges and reads.
type Buffer struct {
	times  []float64
	values []float64
	count  int
}

// NewBuffer creates a buffer holding at most capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		times:  make([]float64, capacity),
		values: make([]float64, capacity),
	}
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.times) }

// Len returns the number of valid samples.
func (b *Buffer) Len() int { return b.count }

// Append adds a sample at the newest end. Every slot shifts left by one, so
// once the buffer is full the oldest sample falls off.
func (b *Buffer) Append(s Sample) {
	c := len(b.times)
	copy(b.times, b.times[1:])
	copy(b.values, b.values[1:])
	b.times[c-1] = s.Time
	b.values[c-1] = s.Value
	if b.count < c {
		b.count++
	}
}

// ValidRange returns the timestamps of the oldest and newest valid samples.
// ok is false when the buffer is empty.
func (b *Buffer) ValidRange() (oldest, newest float64, ok bool) {
	if b.count == 0 {
		return 0, 0, false
	}
	c := len(b.times)
	return b.times[c-b.count], b.times[c-1], true
}

// Samples returns a copy of the valid region, oldest first.
func (b *Buffer) Samples() []Sample {
	out := make([]Sample, b.count)
	start := len(b.times) - b.count
	for i := 0; i < b.count; i++ {
		out[i] = Sample{Time: b.times[start+i], Value: b.values[start+i]}
	}
	return out
}

// Times returns a copy of the valid region timestamps, oldest first.
func (b *Buffer) Times() []float64 {
	out := make([]float64, b.count)
	copy(out, b.times[len(b.times)-b.count:])
	return out
}

// Values returns a copy of the valid region values, oldest first.
func (b *Buffer) Values() []float64 {
	out := make([]float64, b.count)
	copy(out, b.values[len(b.values)-b.count:])
	return out
}

// Replace overwrites the buffer contents with the given ascending samples,
// evicting the oldest entries if more arrive than fit.
func (b *Buffer) Replace(samples []Sample) {
	c := len(b.times)
	if len(samples) > c {
		samples = samples[len(samples)-c:]
	}
	start := c - len(samples)
	for i := 0; i < start; i++ {
		b.times[i], b.values[i] = 0, 0
	}
	for i, s := range samples {
		b.times[start+i] = s.Time
		b.values[start+i] = s.Value
	}
	b.count = len(samples)
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	for i := range b.times {
		b.times[i], b.values[i] = 0, 0
	}
	b.count = 0
}

// FromArrays pairs parallel timestamp and value arrays into samples. It is
// the boundary check for batches arriving off the wire.
func FromArrays(times, values []float64) ([]Sample, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("mismatched batch: %d timestamps, %d values", len(times), len(values))
	}
	out := make([]Sample, len(times))
	for i := range times {
		out[i] = Sample{Time: times[i], Value: values[i]}
	}
	return out, nil
}
