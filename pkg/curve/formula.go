package curve

import (
	"fmt"
	"sort"

	"github.com/archplot/archplot/pkg/formula"
	"github.com/archplot/archplot/pkg/series"
)

// FormulaCurve derives its samples from other curves through an
// arithmetic expression. Dependencies are held by name and resolved
// through the registry at evaluation time, so a formula sees updates to
// its inputs without re-registration.
type FormulaCurve struct {
	name   string
	text   string
	expr   formula.Expr
	refs   []string
	lookup Lookup

	live    *series.Buffer
	archive *series.Buffer
}

// NewFormula parses the expression and creates a formula curve. The
// expression must reference at least one other curve.
func NewFormula(name, text string, lookup Lookup, liveCap, archiveCap int) (*FormulaCurve, error) {
	if name == "" {
		return nil, fmt.Errorf("formula name must not be empty")
	}

	expr, err := formula.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse formula %q: %w", name, err)
	}

	refs := formula.Placeholders(expr)
	if len(refs) == 0 {
		return nil, fmt.Errorf("formula %q references no curves", name)
	}

	return &FormulaCurve{
		name:    name,
		text:    text,
		expr:    expr,
		refs:    refs,
		lookup:  lookup,
		live:    series.NewBuffer(liveCap),
		archive: series.NewBuffer(archiveCap),
	}, nil
}

// Name returns the formula curve name.
func (f *FormulaCurve) Name() string { return f.name }

// Expression returns the formula text as given.
func (f *FormulaCurve) Expression() string { return f.text }

// Refs returns the names of the referenced curves, sorted.
func (f *FormulaCurve) Refs() []string {
	out := make([]string, len(f.refs))
	copy(out, f.refs)
	return out
}

// Connected reports true when every referenced curve exists and is
// itself connected. A formula referencing another formula follows the
// chain down to channel curves.
func (f *FormulaCurve) Connected() bool {
	for _, ref := range f.refs {
		dep, ok := f.lookup.Lookup(ref)
		if !ok || !dep.Connected() {
			return false
		}
	}
	return true
}

// LiveSamples returns the derived live-region samples.
func (f *FormulaCurve) LiveSamples() []series.Sample { return f.live.Samples() }

// ArchiveSamples returns the derived archive-region samples.
func (f *FormulaCurve) ArchiveSamples() []series.Sample { return f.archive.Samples() }

// Series returns archive samples followed by live samples.
func (f *FormulaCurve) Series() []series.Sample {
	arch := f.archive.Samples()
	live := f.live.Samples()
	out := make([]series.Sample, 0, len(arch)+len(live))
	out = append(out, arch...)
	out = append(out, live...)
	return out
}

// Evaluate recomputes both regions from the current dependency buffers.
// When any dependency is missing or disconnected the derived buffers are
// cleared. An evaluation error, such as a division by zero at some
// timestamp, leaves the previous result in place.
func (f *FormulaCurve) Evaluate() error {
	if !f.Connected() {
		f.live.Clear()
		f.archive.Clear()
		return nil
	}

	liveDeps := make(map[string][]series.Sample, len(f.refs))
	archiveDeps := make(map[string][]series.Sample, len(f.refs))
	for _, ref := range f.refs {
		dep, _ := f.lookup.Lookup(ref)
		liveDeps[ref] = dep.LiveSamples()
		archiveDeps[ref] = dep.ArchiveSamples()
	}

	liveOut, err := f.evaluate(liveDeps)
	if err != nil {
		return fmt.Errorf("formula %q: %w", f.name, err)
	}
	archiveOut, err := f.evaluate(archiveDeps)
	if err != nil {
		return fmt.Errorf("formula %q: %w", f.name, err)
	}

	f.live.Replace(liveOut)
	f.archive.Replace(archiveOut)
	return nil
}

// evaluate computes the derived samples over one region. The result
// covers the intersection of the dependency time ranges, with one output
// sample per distinct input timestamp in that window. Inputs without a
// sample at a given timestamp contribute their most recent earlier value.
func (f *FormulaCurve) evaluate(deps map[string][]series.Sample) ([]series.Sample, error) {
	var minT, maxT float64
	first := true
	for _, samples := range deps {
		if len(samples) == 0 {
			return nil, nil
		}
		lo, hi := samples[0].Time, samples[len(samples)-1].Time
		if first || lo > minT {
			minT = lo
		}
		if first || hi < maxT {
			maxT = hi
		}
		first = false
	}
	if minT > maxT {
		return nil, nil
	}

	seen := make(map[float64]bool)
	var times []float64
	for _, samples := range deps {
		for _, s := range samples {
			if s.Time < minT || s.Time > maxT || seen[s.Time] {
				continue
			}
			seen[s.Time] = true
			times = append(times, s.Time)
		}
	}
	sort.Float64s(times)

	out := make([]series.Sample, 0, len(times))
	for _, t := range times {
		val, err := formula.Eval(f.expr, func(name string) (float64, error) {
			return holdAt(deps[name], t)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, series.Sample{Time: t, Value: val})
	}
	return out, nil
}

// holdAt returns the value of the most recent sample at or before t.
func holdAt(samples []series.Sample, t float64) (float64, error) {
	idx := sort.Search(len(samples), func(i int) bool {
		return samples[i].Time > t
	}) - 1
	if idx < 0 {
		return 0, fmt.Errorf("no sample at or before %g", t)
	}
	return samples[idx].Value, nil
}
