package plot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/archplot/archplot/pkg/config"
	"github.com/archplot/archplot/pkg/curve"
	"github.com/archplot/archplot/pkg/series"
)

var (
	// ErrRequestPending is returned when a backfill request is already in
	// flight.
	ErrRequestPending = errors.New("archive request already pending")
	// ErrCurveNotFound is returned for operations on unknown curve names.
	ErrCurveNotFound = errors.New("curve not found")
	// ErrNotChannelCurve is returned when a live-stream operation targets
	// a formula curve.
	ErrNotChannelCurve = errors.New("not a channel curve")
)

// Fetcher retrieves historical samples for a channel. The archiver client
// implements it; tests substitute stubs.
type Fetcher interface {
	Fetch(ctx context.Context, pv string, start, end float64, processing string) ([]series.Sample, error)
}

// Config carries the tunables of a plot. Zero values fall back to the
// package defaults.
type Config struct {
	LiveBufferSize    int
	ArchiveBufferSize int
	OptimizedBins     int
	RawThreshold      float64
	RequestTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.LiveBufferSize <= 0 {
		c.LiveBufferSize = config.DefaultLiveBufferSize
	}
	if c.ArchiveBufferSize <= 0 {
		c.ArchiveBufferSize = config.DefaultArchiveBufferSize
	}
	if c.OptimizedBins <= 0 {
		c.OptimizedBins = config.DefaultOptimizedBins
	}
	if c.RawThreshold <= 0 {
		c.RawThreshold = config.DefaultRawThresholdSeconds
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = config.DefaultRequestTimeout
	}
	return c
}

// Plot owns a set of curves, routes live samples into them, and backfills
// their history from the archiver. All methods are safe for concurrent
// use. At most one backfill request is in flight at a time; callers
// arriving while one is pending get ErrRequestPending instead of queuing.
type Plot struct {
	mu       sync.Mutex
	registry *curve.Registry
	planner  Planner
	cfg      Config
	fetcher  Fetcher

	visibleMin float64
	visibleMax float64
	hasVisible bool

	pending atomic.Bool
}

// New creates a plot backed by the given fetcher.
func New(cfg Config, fetcher Fetcher) *Plot {
	cfg = cfg.withDefaults()
	return &Plot{
		registry: curve.NewRegistry(),
		planner:  Planner{OptimizedBins: cfg.OptimizedBins, RawThreshold: cfg.RawThreshold},
		cfg:      cfg,
		fetcher:  fetcher,
	}
}

// CurveInfo is a point-in-time description of one curve. It carries only
// copied values, so callers may hold it without further locking.
type CurveInfo struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Connected  bool           `json:"connected"`
	Address    string         `json:"address,omitempty"`
	Expression string         `json:"expression,omitempty"`
	Refs       []string       `json:"refs,omitempty"`
	Samples    int            `json:"samples"`
	Latest     *series.Sample `json:"latest,omitempty"`
}

// describeLocked snapshots one source. Caller holds p.mu: reading the
// buffers races with live appends otherwise.
func describeLocked(s curve.Source) CurveInfo {
	info := CurveInfo{
		Name:      s.Name(),
		Connected: s.Connected(),
		Refs:      s.Refs(),
	}
	samples := s.Series()
	info.Samples = len(samples)
	if len(samples) > 0 {
		latest := samples[len(samples)-1]
		info.Latest = &latest
	}
	switch c := s.(type) {
	case *curve.Curve:
		info.Type = "channel"
		info.Address = c.Address()
	case *curve.FormulaCurve:
		info.Type = "formula"
		info.Expression = c.Expression()
	}
	return info
}

// AddCurve registers a channel curve under the given name.
func (p *Plot) AddCurve(name, addr string) (CurveInfo, error) {
	c, err := curve.New(name, addr, p.cfg.LiveBufferSize, p.cfg.ArchiveBufferSize)
	if err != nil {
		return CurveInfo{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.registry.Add(c); err != nil {
		return CurveInfo{}, err
	}
	return describeLocked(c), nil
}

// AddFormula registers a formula curve. Referenced curves must already be
// registered. The formula is evaluated immediately against their current
// buffers.
func (p *Plot) AddFormula(name, text string) (CurveInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := curve.NewFormula(name, text, p.registry, p.cfg.LiveBufferSize, p.cfg.ArchiveBufferSize)
	if err != nil {
		return CurveInfo{}, err
	}
	if err := p.registry.Add(f); err != nil {
		return CurveInfo{}, err
	}
	if err := f.Evaluate(); err != nil {
		log.Printf("formula %s: initial evaluation: %v", name, err)
	}
	return describeLocked(f), nil
}

// RemoveCurve unregisters a curve.
func (p *Plot) RemoveCurve(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registry.Remove(name)
}

// Describe snapshots every registered curve in insertion order.
func (p *Plot) Describe() []CurveInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	sources := p.registry.Sources()
	infos := make([]CurveInfo, 0, len(sources))
	for _, s := range sources {
		infos = append(infos, describeLocked(s))
	}
	return infos
}

// Data returns the drawable samples of one curve, archive region first.
func (p *Plot) Data(name string) ([]series.Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCurveNotFound, name)
	}
	return s.Series(), nil
}

// AppendLive routes one live sample into a channel curve and reevaluates
// the formulas that depend on it.
func (p *Plot) AppendLive(name string, s series.Sample) error {
	return p.AppendLiveBatch(name, []series.Sample{s})
}

// AppendLiveBatch routes a batch of live samples into a channel curve.
func (p *Plot) AppendLiveBatch(name string, samples []series.Sample) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.channelCurveLocked(name)
	if err != nil {
		return err
	}
	for _, s := range samples {
		c.AppendLive(s)
	}
	p.reevaluateLocked()
	return nil
}

// SetLiveConnected marks a channel curve's live stream up or down and
// propagates the change through dependent formulas.
func (p *Plot) SetLiveConnected(name string, up bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.channelCurveLocked(name)
	if err != nil {
		return err
	}
	c.SetLiveConnected(up)
	p.reevaluateLocked()
	return nil
}

func (p *Plot) channelCurveLocked(name string) (*curve.Curve, error) {
	s, ok := p.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCurveNotFound, name)
	}
	c, ok := s.(*curve.Curve)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotChannelCurve, name)
	}
	return c, nil
}

// reevaluateLocked recomputes every formula curve in insertion order, so
// formulas layered on formulas see fresh inputs.
func (p *Plot) reevaluateLocked() {
	for _, s := range p.registry.Sources() {
		if f, ok := s.(*curve.FormulaCurve); ok {
			if err := f.Evaluate(); err != nil {
				log.Printf("formula %s: %v", f.Name(), err)
			}
		}
	}
}

// SetVisibleRange records the time window currently on screen. It sets
// the default bounds for backfill requests.
func (p *Plot) SetVisibleRange(min, max float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visibleMin = min
	p.visibleMax = max
	p.hasVisible = true
}

// VisibleRange returns the recorded window.
func (p *Plot) VisibleRange() (min, max float64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visibleMin, p.visibleMax, p.hasVisible
}

// RequestArchiveData backfills every channel curve over its default
// window: from the left edge of the visible range up to the curve's
// oldest live sample.
func (p *Plot) RequestArchiveData(ctx context.Context) error {
	return p.requestArchiveData(ctx, nil, nil)
}

// RequestArchiveDataRange backfills every channel curve over an explicit
// window.
func (p *Plot) RequestArchiveDataRange(ctx context.Context, min, max float64) error {
	return p.requestArchiveData(ctx, &min, &max)
}

type fetchJob struct {
	name string
	pv   string
	req  Request
}

func (p *Plot) requestArchiveData(ctx context.Context, min, max *float64) error {
	if !p.pending.CompareAndSwap(false, true) {
		return ErrRequestPending
	}
	defer p.pending.Store(false)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	jobs := p.planJobs(min, max)
	if len(jobs) == 0 {
		return nil
	}

	var errs []error
	for _, job := range jobs {
		samples, err := p.fetcher.Fetch(ctx, job.pv, job.req.Start, job.req.End, job.req.Processing)
		if err != nil {
			errs = append(errs, fmt.Errorf("backfill %s: %w", job.name, err))
			continue
		}

		p.mu.Lock()
		if c, err := p.channelCurveLocked(job.name); err == nil {
			c.ReceiveArchiveData(samples)
		}
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.reevaluateLocked()
	p.mu.Unlock()

	return errors.Join(errs...)
}

// planJobs snapshots one request per channel curve. Explicit bounds win;
// otherwise the window runs from the visible minimum to the curve's
// oldest live sample, falling back to the visible maximum for curves
// with no live data yet. Curves with no resolvable window are skipped.
func (p *Plot) planJobs(min, max *float64) []fetchJob {
	p.mu.Lock()
	defer p.mu.Unlock()

	var jobs []fetchJob
	for _, s := range p.registry.Sources() {
		c, ok := s.(*curve.Curve)
		if !ok {
			continue
		}

		var reqMin float64
		switch {
		case min != nil:
			reqMin = *min
		case p.hasVisible:
			reqMin = p.visibleMin
		default:
			continue
		}

		var reqMax float64
		switch {
		case max != nil:
			reqMax = *max
		default:
			if oldest, ok := c.OldestLiveTime(); ok {
				reqMax = oldest
			} else if p.hasVisible {
				reqMax = p.visibleMax
			} else {
				continue
			}
		}

		req, ok := p.planner.Plan(reqMin, reqMax)
		if !ok {
			continue
		}
		jobs = append(jobs, fetchJob{name: c.Name(), pv: c.PV(), req: req})
	}
	return jobs
}
