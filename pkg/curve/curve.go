package curve

import (
	"fmt"

	"github.com/archplot/archplot/pkg/address"
	"github.com/archplot/archplot/pkg/series"
)

// Source is a named series of samples a plot can draw. Channel curves and
// formula curves both satisfy it.
type Source interface {
	// Name returns the unique curve name.
	Name() string
	// Connected reports whether the curve currently has a usable data
	// source.
	Connected() bool
	// LiveSamples returns the samples accumulated from the live stream.
	LiveSamples() []series.Sample
	// ArchiveSamples returns the backfilled historical samples.
	ArchiveSamples() []series.Sample
	// Series returns the drawable samples, archive region first.
	Series() []series.Sample
	// Refs returns the names of curves this curve depends on. Channel
	// curves have none.
	Refs() []string
}

// Curve is a channel-backed curve: live samples append on the right,
// archive backfill merges in on the left.
type Curve struct {
	name    string
	addr    string
	live    *series.Buffer
	archive *series.Buffer

	liveConnected    bool
	archiveConnected bool
}

// New creates a channel curve. The address is normalized to canonical
// archiver form.
func New(name, addr string, liveCap, archiveCap int) (*Curve, error) {
	if name == "" {
		return nil, fmt.Errorf("curve name must not be empty")
	}
	return &Curve{
		name:    name,
		addr:    address.Normalize(addr),
		live:    series.NewBuffer(liveCap),
		archive: series.NewBuffer(archiveCap),
	}, nil
}

// Name returns the curve name.
func (c *Curve) Name() string { return c.name }

// Address returns the canonical archiver address.
func (c *Curve) Address() string { return c.addr }

// PV returns the channel name queried against the archiver.
func (c *Curve) PV() string { return address.PV(c.addr) }

// Refs returns nil: channel curves depend on no other curves.
func (c *Curve) Refs() []string { return nil }

// Connected reports true when either the live stream or the archiver has
// delivered data for this curve.
func (c *Curve) Connected() bool {
	return c.liveConnected || c.archiveConnected
}

// SetLiveConnected marks the live stream up or down. Buffered samples are
// kept either way.
func (c *Curve) SetLiveConnected(up bool) {
	c.liveConnected = up
}

// AppendLive adds a sample from the live stream and marks the stream
// connected.
func (c *Curve) AppendLive(s series.Sample) {
	c.live.Append(s)
	c.liveConnected = true
}

// ReceiveArchiveData merges a backfill response into the archive buffer.
// Samples at or after the oldest live sample are dropped first so the
// archive never shadows the live region.
func (c *Curve) ReceiveArchiveData(samples []series.Sample) {
	if oldest, _, ok := c.live.ValidRange(); ok {
		trimmed := make([]series.Sample, 0, len(samples))
		for _, s := range samples {
			if s.Time < oldest {
				trimmed = append(trimmed, s)
			}
		}
		samples = trimmed
	}
	c.archive.Merge(samples)
	c.archiveConnected = true
}

// LiveSamples returns the live buffer contents, oldest first.
func (c *Curve) LiveSamples() []series.Sample { return c.live.Samples() }

// ArchiveSamples returns the archive buffer contents, oldest first.
func (c *Curve) ArchiveSamples() []series.Sample { return c.archive.Samples() }

// OldestLiveTime returns the timestamp of the oldest live sample.
func (c *Curve) OldestLiveTime() (float64, bool) {
	oldest, _, ok := c.live.ValidRange()
	return oldest, ok
}

// Series returns the drawable series: archive samples followed by live
// samples.
func (c *Curve) Series() []series.Sample {
	arch := c.archive.Samples()
	live := c.live.Samples()
	out := make([]series.Sample, 0, len(arch)+len(live))
	out = append(out, arch...)
	out = append(out, live...)
	return out
}

// Clear empties both buffers without changing connection state.
func (c *Curve) Clear() {
	c.live.Clear()
	c.archive.Clear()
}
