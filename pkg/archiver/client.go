package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/archplot/archplot/pkg/series"
)

// Client fetches historical samples from an EPICS Archiver Appliance
// retrieval endpoint. Server-side processing operators are applied by
// wrapping the channel name, e.g. optimized_2000(LINAC:TEMP).
type Client struct {
	baseURL string
	http    *http.Client
	cache   *Cache
}

// NewClient creates a client for the given retrieval base URL, e.g.
// http://archiver:17668/retrieval.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// WithCache attaches a response cache.
func (c *Client) WithCache(cache *Cache) *Client {
	c.cache = cache
	return c
}

// dataPoint is one sample in the appliance response.
type dataPoint struct {
	Secs  int64   `json:"secs"`
	Nanos int64   `json:"nanos"`
	Val   float64 `json:"val"`
}

// dataResponse is the appliance response: one element per requested
// channel, each with metadata and samples.
type dataResponse []struct {
	Meta struct {
		Name string `json:"name"`
	} `json:"meta"`
	Data []dataPoint `json:"data"`
}

// Fetch retrieves samples for one channel over [start, end], both epoch
// seconds inclusive. A non-empty processing operator is applied server
// side.
func (c *Client) Fetch(ctx context.Context, pv string, start, end float64, processing string) ([]series.Sample, error) {
	if c.cache != nil {
		if samples, ok := c.cache.Get(pv, start, end, processing); ok {
			return samples, nil
		}
	}

	queryPV := pv
	if processing != "" {
		queryPV = fmt.Sprintf("%s(%s)", processing, pv)
	}

	params := url.Values{}
	params.Set("pv", queryPV)
	params.Set("from", formatTime(start))
	params.Set("to", formatTime(end))

	reqURL := fmt.Sprintf("%s/data/getData.json?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("archiver request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archiver returned status %d", resp.StatusCode)
	}

	var decoded dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode archiver response: %w", err)
	}

	var samples []series.Sample
	for _, channel := range decoded {
		for _, p := range channel.Data {
			samples = append(samples, series.Sample{
				Time:  float64(p.Secs) + float64(p.Nanos)/1e9,
				Value: p.Val,
			})
		}
	}

	if c.cache != nil {
		if err := c.cache.Put(pv, start, end, processing, samples); err != nil {
			log.Printf("archiver cache: %v", err)
		}
	}
	return samples, nil
}

// formatTime renders epoch seconds as the ISO8601 form the appliance
// expects.
func formatTime(t float64) string {
	secs := int64(math.Floor(t))
	nanos := int64((t - math.Floor(t)) * 1e9)
	return time.Unix(secs, nanos).UTC().Format("2006-01-02T15:04:05.000Z")
}
