package series

import "testing"

func sampleTimes(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Time
	}
	return out
}

func assertSamples(t *testing.T, b *Buffer, wantTimes, wantValues []float64) {
	t.Helper()
	got := b.Samples()
	if len(got) != len(wantTimes) {
		t.Fatalf("expected %d samples, got %d (%v)", len(wantTimes), len(got), sampleTimes(got))
	}
	for i, s := range got {
		if s.Time != wantTimes[i] {
			t.Errorf("sample[%d]: expected time %g, got %g", i, wantTimes[i], s.Time)
		}
		if s.Value != wantValues[i] {
			t.Errorf("sample[%d]: expected value %g, got %g", i, wantValues[i], s.Value)
		}
	}
}

func TestMergeIntoEmptyBuffer(t *testing.T) {
	b := NewBuffer(20)
	b.Merge([]Sample{
		{70, 2.05}, {75, 2.08}, {80, 2.07}, {85, 2.08}, {90, 2.12}, {95, 2.14},
	})

	assertSamples(t, b,
		[]float64{70, 75, 80, 85, 90, 95},
		[]float64{2.05, 2.08, 2.07, 2.08, 2.12, 2.14})
}

// A finer-grained batch replaces the coarse binned samples inside its own
// time range; samples outside the range are untouched.
func TestMergeSupersedesCoveredRange(t *testing.T) {
	b := NewBuffer(10)
	b.Replace([]Sample{
		{100, 2}, {105, 3}, {110, 4}, {115, 5}, {120, 6}, {125, 7},
	})

	b.Merge([]Sample{{104, 2.8}, {106, 3.1}, {108, 3.7}, {111, 3.95}})

	assertSamples(t, b,
		[]float64{100, 104, 106, 108, 111, 115, 120, 125},
		[]float64{2, 2.8, 3.1, 3.7, 3.95, 5, 6, 7})
}

// When the merged result no longer fits, the oldest surviving samples are
// evicted first.
func TestMergeFullBufferEvictsOldest(t *testing.T) {
	b := NewBuffer(6)
	b.Replace([]Sample{
		{100, 2}, {105, 3}, {110, 4}, {115, 5}, {120, 6}, {125, 7},
	})

	b.Merge([]Sample{{104, 2.8}, {106, 3.1}, {108, 3.7}})

	// 105 is superseded by the batch range [104, 108]; the union
	// {100, 104, 106, 108, 110, 115, 120, 125} is two over capacity, so
	// the two oldest go.
	assertSamples(t, b,
		[]float64{106, 108, 110, 115, 120, 125},
		[]float64{3.1, 3.7, 4, 5, 6, 7})
}

func TestMergeDisjointBatchesLoseNothing(t *testing.T) {
	b := NewBuffer(12)
	b.Merge([]Sample{{200, 1}, {210, 2}, {220, 3}})
	b.Merge([]Sample{{100, 4}, {110, 5}, {120, 6}})

	assertSamples(t, b,
		[]float64{100, 110, 120, 200, 210, 220},
		[]float64{4, 5, 6, 1, 2, 3})
}

func TestMergeEmptyBatchIsNoOp(t *testing.T) {
	b := NewBuffer(4)
	b.Replace([]Sample{{10, 1}, {20, 2}})

	b.Merge(nil)

	assertSamples(t, b, []float64{10, 20}, []float64{1, 2})
}

func TestMergeSortsUnsortedBatch(t *testing.T) {
	b := NewBuffer(8)
	b.Merge([]Sample{{30, 3}, {10, 1}, {20, 2}})

	assertSamples(t, b, []float64{10, 20, 30}, []float64{1, 2, 3})
}

// A batch timestamp colliding with an existing sample replaces it: the
// closed supersession interval includes both endpoints.
func TestMergeBoundaryCollision(t *testing.T) {
	b := NewBuffer(8)
	b.Replace([]Sample{{100, 1}, {110, 2}, {120, 3}})

	b.Merge([]Sample{{110, 9}, {115, 8}, {120, 7}})

	assertSamples(t, b,
		[]float64{100, 110, 115, 120},
		[]float64{1, 9, 8, 7})
}

// Eviction and supersession interacting on the same boundary sample: the
// survivor just below the batch range is still the oldest and goes first.
func TestMergeEvictionAtSupersessionBoundary(t *testing.T) {
	b := NewBuffer(4)
	b.Replace([]Sample{{100, 1}, {110, 2}, {120, 3}, {130, 4}})

	// Batch covers [110, 130]; 100 survives supersession but is evicted
	// as the oldest when the union of 5 exceeds capacity 4.
	b.Merge([]Sample{{110, 9}, {115, 8}, {125, 7}, {130, 6}})

	assertSamples(t, b,
		[]float64{110, 115, 125, 130},
		[]float64{9, 8, 7, 6})
}

func TestMergeDeduplicatesBatch(t *testing.T) {
	b := NewBuffer(8)
	b.Merge([]Sample{{10, 1}, {10, 2}, {20, 3}})

	assertSamples(t, b, []float64{10, 20}, []float64{2, 3})
}

func TestMergeBatchLargerThanCapacity(t *testing.T) {
	b := NewBuffer(3)
	b.Merge([]Sample{{10, 1}, {20, 2}, {30, 3}, {40, 4}, {50, 5}})

	assertSamples(t, b, []float64{30, 40, 50}, []float64{3, 4, 5})
}
