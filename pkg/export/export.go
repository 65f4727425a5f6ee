package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/archplot/archplot/pkg/series"
)

// CurveStore supplies the samples to export. The plot implements it.
type CurveStore interface {
	Data(name string) ([]series.Sample, error)
}

// Exporter writes curve data in various formats
type Exporter struct {
	store CurveStore
}

// New creates a new exporter
func New(store CurveStore) *Exporter {
	return &Exporter{store: store}
}

// Result contains stats about the export
type Result struct {
	SamplesExported int       `json:"samples_exported"`
	Curve           string    `json:"curve"`
	Format          string    `json:"format"`
	ExportedAt      time.Time `json:"exported_at"`
}

// ExportJSON exports one curve as JSON to the given writer
func (e *Exporter) ExportJSON(w io.Writer, name string) (*Result, error) {
	samples, err := e.store.Data(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load curve: %w", err)
	}
	if samples == nil {
		samples = []series.Sample{}
	}

	// Create export wrapper with metadata
	exportData := struct {
		Metadata struct {
			ExportedAt  time.Time `json:"exported_at"`
			Curve       string    `json:"curve"`
			SampleCount int       `json:"sample_count"`
			Format      string    `json:"format"`
			Version     string    `json:"version"`
		} `json:"metadata"`
		Samples []series.Sample `json:"samples"`
	}{
		Samples: samples,
	}

	exportData.Metadata.ExportedAt = time.Now()
	exportData.Metadata.Curve = name
	exportData.Metadata.SampleCount = len(samples)
	exportData.Metadata.Format = "json"
	exportData.Metadata.Version = "1.0"

	// Encode as pretty JSON
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}

	return &Result{
		SamplesExported: len(samples),
		Curve:           name,
		Format:          "json",
		ExportedAt:      exportData.Metadata.ExportedAt,
	}, nil
}

// ExportCSV exports one curve as CSV to the given writer
func (e *Exporter) ExportCSV(w io.Writer, name string) (*Result, error) {
	samples, err := e.store.Data(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load curve: %w", err)
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"time", "value", "curve"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, s := range samples {
		row := []string{
			strconv.FormatFloat(s.Time, 'f', -1, 64),
			strconv.FormatFloat(s.Value, 'f', -1, 64),
			name,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return &Result{
		SamplesExported: len(samples),
		Curve:           name,
		Format:          "csv",
		ExportedAt:      time.Now(),
	}, nil
}
