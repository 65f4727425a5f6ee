package curve

import (
	"testing"

	"github.com/archplot/archplot/pkg/series"
)

func appendLive(c *Curve, times, values []float64) {
	for i := range times {
		c.AppendLive(series.Sample{Time: times[i], Value: values[i]})
	}
}

func assertLive(t *testing.T, f *FormulaCurve, wantTimes, wantValues []float64) {
	t.Helper()
	got := f.LiveSamples()
	if len(got) != len(wantTimes) {
		t.Fatalf("expected %d samples, got %d (%v)", len(wantTimes), len(got), got)
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

func TestFormulaScalesSingleInput(t *testing.T) {
	r := NewRegistry()
	a := addCurve(t, r, "A")
	appendLive(a, []float64{100, 105, 110, 115, 120, 125}, []float64{2, 3, 4, 5, 6, 7})

	f, err := NewFormula("F", "f://5*{A}", r, 10, 10)
	if err != nil {
		t.Fatalf("NewFormula failed: %v", err)
	}
	if err := r.Add(f); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := f.Evaluate(); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	assertLive(t, f,
		[]float64{100, 105, 110, 115, 120, 125},
		[]float64{10, 15, 20, 25, 30, 35})
}

// Two inputs with interleaved timestamps: the result covers the
// intersection of their ranges with one point per input timestamp, each
// input holding its most recent value between its own samples.
func TestFormulaCombinesInterleavedInputs(t *testing.T) {
	r := NewRegistry()
	a := addCurve(t, r, "A")
	b := addCurve(t, r, "B")
	appendLive(a, []float64{100, 110, 120, 130}, []float64{1, 2, 3, 4})
	appendLive(b, []float64{105, 115, 125, 135}, []float64{2, 3, 4, 5})

	sum, _ := NewFormula("SUM", "{A}+{B}", r, 10, 10)
	if err := sum.Evaluate(); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	assertLive(t, sum,
		[]float64{105, 110, 115, 120, 125, 130},
		[]float64{3, 4, 5, 6, 7, 8})

	prod, _ := NewFormula("PROD", "{A}*{B}", r, 10, 10)
	if err := prod.Evaluate(); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	assertLive(t, prod,
		[]float64{105, 110, 115, 120, 125, 130},
		[]float64{2, 4, 6, 9, 12, 16})
}

func TestFormulaEmptyIntersection(t *testing.T) {
	r := NewRegistry()
	a := addCurve(t, r, "A")
	b := addCurve(t, r, "B")
	appendLive(a, []float64{100, 110}, []float64{1, 2})
	appendLive(b, []float64{200, 210}, []float64{3, 4})

	f, _ := NewFormula("F", "{A}+{B}", r, 10, 10)
	if err := f.Evaluate(); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got := f.LiveSamples(); len(got) != 0 {
		t.Errorf("expected empty result for disjoint ranges, got %v", got)
	}
}

func TestFormulaDisconnectedDependencyClearsResult(t *testing.T) {
	r := NewRegistry()
	a := addCurve(t, r, "A")
	appendLive(a, []float64{100, 110}, []float64{1, 2})

	f, _ := NewFormula("F", "2*{A}", r, 10, 10)
	if err := f.Evaluate(); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(f.LiveSamples()) != 2 {
		t.Fatal("expected two derived samples")
	}
	if !f.Connected() {
		t.Error("formula with connected input should be connected")
	}

	a.SetLiveConnected(false)
	if f.Connected() {
		t.Error("formula should follow its input down")
	}
	if err := f.Evaluate(); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(f.LiveSamples()) != 0 {
		t.Error("expected cleared result after input disconnect")
	}
}

func TestFormulaDisconnectPropagatesThroughChain(t *testing.T) {
	r := NewRegistry()
	a := addCurve(t, r, "A")
	appendLive(a, []float64{100}, []float64{1})

	f1, _ := NewFormula("F1", "2*{A}", r, 10, 10)
	if err := r.Add(f1); err != nil {
		t.Fatalf("Add(F1) failed: %v", err)
	}
	f2, _ := NewFormula("F2", "{F1}+1", r, 10, 10)
	if err := r.Add(f2); err != nil {
		t.Fatalf("Add(F2) failed: %v", err)
	}

	if !f2.Connected() {
		t.Fatal("chain with live channel at the bottom should be connected")
	}

	a.SetLiveConnected(false)
	if f2.Connected() {
		t.Error("disconnect should propagate through the intermediate formula")
	}
}

func TestFormulaErrorKeepsPreviousResult(t *testing.T) {
	r := NewRegistry()
	a := addCurve(t, r, "A")
	appendLive(a, []float64{100}, []float64{2})

	f, _ := NewFormula("F", "1/{A}", r, 10, 10)
	if err := f.Evaluate(); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	assertLive(t, f, []float64{100}, []float64{0.5})

	a.AppendLive(series.Sample{Time: 110, Value: 0})
	if err := f.Evaluate(); err == nil {
		t.Fatal("expected division by zero error")
	}

	// The previous result survives the failed evaluation.
	assertLive(t, f, []float64{100}, []float64{0.5})
}

func TestFormulaEvaluatesArchiveRegion(t *testing.T) {
	r := NewRegistry()
	a := addCurve(t, r, "A")
	a.ReceiveArchiveData([]series.Sample{{Time: 50, Value: 1}, {Time: 60, Value: 2}})

	f, _ := NewFormula("F", "10*{A}", r, 10, 10)
	if err := f.Evaluate(); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	arch := f.ArchiveSamples()
	if len(arch) != 2 || arch[0].Value != 10 || arch[1].Value != 20 {
		t.Errorf("unexpected archive result %v", arch)
	}
}
