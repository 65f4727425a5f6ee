// Package live maintains a websocket subscription to a gateway that
// relays control-system channel updates. Incoming samples are routed
// into the plot; a dropped connection marks every subscribed curve
// disconnected and retries until the context ends.
package live

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/archplot/archplot/pkg/config"
	"github.com/archplot/archplot/pkg/series"
)

// Sink receives routed samples and connection state changes. The plot
// implements it.
type Sink interface {
	AppendLive(name string, s series.Sample) error
	AppendLiveBatch(name string, samples []series.Sample) error
	SetLiveConnected(name string, up bool) error
}

// update is one message from the gateway. Either a single time/value
// pair or parallel arrays for a batch.
type update struct {
	Curve  string    `json:"curve"`
	Time   float64   `json:"time"`
	Value  float64   `json:"value"`
	Times  []float64 `json:"times,omitempty"`
	Values []float64 `json:"values,omitempty"`
}

// subscribe is the first message sent after connecting.
type subscribe struct {
	Subscribe []string `json:"subscribe"`
}

// Stream is a resilient websocket subscription for a set of curves.
type Stream struct {
	url    string
	sink   Sink
	curves []string
	dialer *websocket.Dialer
}

// NewStream creates a stream for the given gateway URL and curve names.
func NewStream(url string, sink Sink, curves []string) *Stream {
	return &Stream{
		url:    url,
		sink:   sink,
		curves: curves,
		dialer: websocket.DefaultDialer,
	}
}

// Run connects and reads until the context ends, reconnecting after
// failures. Blocks; run it in a goroutine.
func (s *Stream) Run(ctx context.Context) {
	for {
		err := s.connectAndRead(ctx)
		s.markDisconnected()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("live stream: %v, reconnecting in %s", err, config.WSReconnectWait)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(config.WSReconnectWait):
		}
	}
}

func (s *Stream) connectAndRead(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribe{Subscribe: s.curves}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
		return nil
	})

	// Close the connection when the context ends so the read loop
	// unblocks, and keep the peer alive with pings.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(config.WSPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-pingDone:
				return
			case <-ticker.C:
				deadline := time.Now().Add(config.WSWriteDeadline)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		var u update
		if err := conn.ReadJSON(&u); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := s.dispatch(u); err != nil {
			log.Printf("live stream: dropping update for %s: %v", u.Curve, err)
		}
	}
}

// dispatch routes one update into the sink.
func (s *Stream) dispatch(u update) error {
	if u.Curve == "" {
		return fmt.Errorf("update without curve name")
	}

	if len(u.Times) > 0 {
		samples, err := series.FromArrays(u.Times, u.Values)
		if err != nil {
			return err
		}
		return s.sink.AppendLiveBatch(u.Curve, samples)
	}
	return s.sink.AppendLive(u.Curve, series.Sample{Time: u.Time, Value: u.Value})
}

// markDisconnected flags every subscribed curve down.
func (s *Stream) markDisconnected() {
	for _, name := range s.curves {
		if err := s.sink.SetLiveConnected(name, false); err != nil {
			log.Printf("live stream: %v", err)
		}
	}
}
