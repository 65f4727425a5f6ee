package plot

import "fmt"

// Request describes one backfill query against the archiver. Start and
// End are epoch seconds, both inclusive. Processing is the server-side
// operator to apply, empty for raw data.
type Request struct {
	Start      float64
	End        float64
	Processing string
}

// Planner decides how a visible time range translates into an archiver
// request. Short ranges fetch raw data; ranges wider than RawThreshold
// fetch server-side binned data so the response stays bounded.
type Planner struct {
	// OptimizedBins is the bin count requested for binned fetches.
	OptimizedBins int
	// RawThreshold is the widest span, in seconds, still fetched raw.
	RawThreshold float64
}

// Plan builds the request for the half-open window [min, max). The end
// is pulled in by one second so the newest requested sample stays clear
// of the live region. Returns false when the window is too narrow to
// request anything.
func (p Planner) Plan(min, max float64) (Request, bool) {
	end := max - 1
	if end < min {
		return Request{}, false
	}

	req := Request{Start: min, End: end}
	if end-min > p.RawThreshold {
		req.Processing = fmt.Sprintf("optimized_%d", p.OptimizedBins)
	}
	return req, true
}
