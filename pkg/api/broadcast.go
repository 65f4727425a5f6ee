package api

import (
	"context"
	"log"
	"time"

	"github.com/archplot/archplot/pkg/plot"
	"github.com/archplot/archplot/pkg/series"
)

// curveUpdate is one curve's entry in a broadcast snapshot.
type curveUpdate struct {
	Name      string         `json:"name"`
	Connected bool           `json:"connected"`
	Samples   int            `json:"samples"`
	Latest    *series.Sample `json:"latest,omitempty"`
}

// Broadcaster periodically pushes curve snapshots to connected viewers.
// Snapshots are skipped while nobody is listening.
type Broadcaster struct {
	hub      *UpdateHub
	plot     *plot.Plot
	interval time.Duration
}

// NewBroadcaster creates a broadcaster with the given push interval.
func NewBroadcaster(hub *UpdateHub, p *plot.Plot, interval time.Duration) *Broadcaster {
	return &Broadcaster{hub: hub, plot: p, interval: interval}
}

// Run pushes snapshots until the context ends. Blocks; run it in a
// goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !b.hub.HasClients() {
				continue
			}
			if err := b.hub.Broadcast(b.snapshot()); err != nil {
				log.Printf("broadcast failed: %v", err)
			}
		}
	}
}

func (b *Broadcaster) snapshot() map[string]interface{} {
	infos := b.plot.Describe()
	updates := make([]curveUpdate, 0, len(infos))
	for _, info := range infos {
		updates = append(updates, curveUpdate{
			Name:      info.Name,
			Connected: info.Connected,
			Samples:   info.Samples,
			Latest:    info.Latest,
		})
	}
	return map[string]interface{}{
		"type":   "snapshot",
		"time":   time.Now().Unix(),
		"curves": updates,
	}
}
