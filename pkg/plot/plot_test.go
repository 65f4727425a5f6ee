package plot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/archplot/archplot/pkg/series"
)

type fetchCall struct {
	pv         string
	start, end float64
	processing string
}

// stubFetcher records calls and replays canned responses. When block is
// set, Fetch waits on release so tests can hold a request in flight.
type stubFetcher struct {
	mu      sync.Mutex
	calls   []fetchCall
	samples []series.Sample
	err     error

	block   bool
	started chan struct{}
	release chan struct{}
}

func (f *stubFetcher) Fetch(ctx context.Context, pv string, start, end float64, processing string) ([]series.Sample, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{pv, start, end, processing})
	f.mu.Unlock()

	if f.block {
		f.started <- struct{}{}
		<-f.release
	}
	return f.samples, f.err
}

func (f *stubFetcher) recorded() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fetchCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func testConfig() Config {
	return Config{
		LiveBufferSize:    100,
		ArchiveBufferSize: 100,
		OptimizedBins:     10,
		RawThreshold:      86400,
		RequestTimeout:    5 * time.Second,
	}
}

func TestRequestArchiveDataUsesDefaults(t *testing.T) {
	fetcher := &stubFetcher{samples: []series.Sample{{Time: 60, Value: 1}}}
	p := New(testConfig(), fetcher)

	if _, err := p.AddCurve("temp", "ca://LINAC:TEMP"); err != nil {
		t.Fatalf("AddCurve failed: %v", err)
	}
	if err := p.AppendLive("temp", series.Sample{Time: 300, Value: 2}); err != nil {
		t.Fatalf("AppendLive failed: %v", err)
	}
	p.SetVisibleRange(50, 400)

	if err := p.RequestArchiveData(context.Background()); err != nil {
		t.Fatalf("RequestArchiveData failed: %v", err)
	}

	calls := fetcher.recorded()
	if len(calls) != 1 {
		t.Fatalf("expected 1 fetch, got %d", len(calls))
	}
	// Default window: visible minimum to the oldest live sample, end
	// pulled in by one second.
	if calls[0].pv != "LINAC:TEMP" || calls[0].start != 50 || calls[0].end != 299 {
		t.Errorf("unexpected call %+v", calls[0])
	}
	if calls[0].processing != "" {
		t.Errorf("expected raw fetch, got %q", calls[0].processing)
	}

	data, err := p.Data("temp")
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}
	if len(data) != 2 || data[0].Time != 60 || data[1].Time != 300 {
		t.Errorf("unexpected series %v", data)
	}
}

func TestRequestArchiveDataExplicitRange(t *testing.T) {
	fetcher := &stubFetcher{}
	p := New(testConfig(), fetcher)
	p.AddCurve("a", "ca://A")

	if err := p.RequestArchiveDataRange(context.Background(), 1000, 200000); err != nil {
		t.Fatalf("RequestArchiveDataRange failed: %v", err)
	}

	calls := fetcher.recorded()
	if len(calls) != 1 {
		t.Fatalf("expected 1 fetch, got %d", len(calls))
	}
	if calls[0].start != 1000 || calls[0].end != 199999 {
		t.Errorf("unexpected window [%g, %g]", calls[0].start, calls[0].end)
	}
	if calls[0].processing != "optimized_10" {
		t.Errorf("expected binned fetch, got %q", calls[0].processing)
	}
}

func TestRequestArchiveDataSkipsCurvesWithoutWindow(t *testing.T) {
	fetcher := &stubFetcher{}
	p := New(testConfig(), fetcher)
	p.AddCurve("a", "ca://A")

	// No visible range, no live data, no explicit bounds.
	if err := p.RequestArchiveData(context.Background()); err != nil {
		t.Fatalf("RequestArchiveData failed: %v", err)
	}
	if len(fetcher.recorded()) != 0 {
		t.Error("expected no fetches without a resolvable window")
	}
}

func TestRequestArchiveDataSingleFlight(t *testing.T) {
	fetcher := &stubFetcher{
		block:   true,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := New(testConfig(), fetcher)
	p.AddCurve("a", "ca://A")
	p.SetVisibleRange(0, 1000)

	done := make(chan error, 1)
	go func() {
		done <- p.RequestArchiveData(context.Background())
	}()
	<-fetcher.started

	// A second request while the first is in flight is refused.
	if err := p.RequestArchiveData(context.Background()); !errors.Is(err, ErrRequestPending) {
		t.Errorf("expected ErrRequestPending, got %v", err)
	}

	close(fetcher.release)
	if err := <-done; err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	// The gate clears once the request finishes.
	fetcher.block = false
	if err := p.RequestArchiveData(context.Background()); err != nil {
		t.Errorf("request after completion failed: %v", err)
	}
}

func TestRequestArchiveDataClearsGateOnFailure(t *testing.T) {
	fetcher := &stubFetcher{err: fmt.Errorf("archiver unreachable")}
	p := New(testConfig(), fetcher)
	p.AddCurve("a", "ca://A")
	p.SetVisibleRange(0, 1000)

	if err := p.RequestArchiveData(context.Background()); err == nil {
		t.Fatal("expected fetch error to propagate")
	}

	fetcher.err = nil
	if err := p.RequestArchiveData(context.Background()); err != nil {
		t.Errorf("gate should clear after a failed request, got %v", err)
	}
}

func TestBackfillReevaluatesFormulas(t *testing.T) {
	fetcher := &stubFetcher{samples: []series.Sample{{Time: 10, Value: 3}, {Time: 20, Value: 4}}}
	p := New(testConfig(), fetcher)
	p.AddCurve("a", "ca://A")
	if _, err := p.AddFormula("double", "2*{a}"); err != nil {
		t.Fatalf("AddFormula failed: %v", err)
	}

	if err := p.RequestArchiveDataRange(context.Background(), 0, 100); err != nil {
		t.Fatalf("backfill failed: %v", err)
	}

	data, err := p.Data("double")
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}
	if len(data) != 2 || data[0].Value != 6 || data[1].Value != 8 {
		t.Errorf("unexpected formula result %v", data)
	}
}

func TestAppendLiveReevaluatesFormulas(t *testing.T) {
	p := New(testConfig(), &stubFetcher{})
	p.AddCurve("a", "ca://A")
	p.AddFormula("triple", "3*{a}")

	p.AppendLive("a", series.Sample{Time: 100, Value: 2})

	data, _ := p.Data("triple")
	if len(data) != 1 || data[0].Value != 6 {
		t.Errorf("unexpected formula result %v", data)
	}
}

func TestAppendLiveRejectsFormulaTarget(t *testing.T) {
	p := New(testConfig(), &stubFetcher{})
	p.AddCurve("a", "ca://A")
	p.AddFormula("f", "2*{a}")

	err := p.AppendLive("f", series.Sample{Time: 1, Value: 1})
	if !errors.Is(err, ErrNotChannelCurve) {
		t.Errorf("expected ErrNotChannelCurve, got %v", err)
	}

	err = p.AppendLive("missing", series.Sample{Time: 1, Value: 1})
	if !errors.Is(err, ErrCurveNotFound) {
		t.Errorf("expected ErrCurveNotFound, got %v", err)
	}
}

func TestDescribeSnapshotsCurves(t *testing.T) {
	p := New(testConfig(), &stubFetcher{})
	p.AddCurve("a", "ca://A")
	p.AddFormula("f", "2*{a}")
	p.AppendLive("a", series.Sample{Time: 100, Value: 3})

	infos := p.Describe()
	if len(infos) != 2 {
		t.Fatalf("expected 2 curves, got %d", len(infos))
	}
	if infos[0].Type != "channel" || infos[0].Address != "archiver://pv=A" {
		t.Errorf("unexpected channel info %+v", infos[0])
	}
	if infos[0].Latest == nil || infos[0].Latest.Value != 3 {
		t.Errorf("unexpected latest sample %+v", infos[0].Latest)
	}
	if infos[1].Type != "formula" || infos[1].Samples != 1 {
		t.Errorf("unexpected formula info %+v", infos[1])
	}
}

func TestDescribeDuringLiveAppends(t *testing.T) {
	p := New(testConfig(), &stubFetcher{})
	p.AddCurve("a", "ca://A")
	p.AddFormula("f", "2*{a}")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			p.AppendLive("a", series.Sample{Time: float64(i), Value: float64(i)})
		}
	}()

	// Snapshots only carry copied values, so concurrent reads must stay
	// consistent while the writer streams.
	for i := 0; i < 500; i++ {
		for _, info := range p.Describe() {
			if info.Samples > 0 && info.Latest == nil {
				t.Fatalf("curve %s reported %d samples with no latest", info.Name, info.Samples)
			}
		}
		if _, err := p.Data("a"); err != nil {
			t.Fatalf("Data failed: %v", err)
		}
	}
	<-done
}

func TestSetLiveConnectedPropagates(t *testing.T) {
	p := New(testConfig(), &stubFetcher{})
	p.AddCurve("a", "ca://A")
	p.AddFormula("f", "2*{a}")
	p.AppendLive("a", series.Sample{Time: 100, Value: 1})

	data, _ := p.Data("f")
	if len(data) != 1 {
		t.Fatal("expected one derived sample")
	}

	if err := p.SetLiveConnected("a", false); err != nil {
		t.Fatalf("SetLiveConnected failed: %v", err)
	}
	data, _ = p.Data("f")
	if len(data) != 0 {
		t.Errorf("expected cleared formula after disconnect, got %v", data)
	}
}
