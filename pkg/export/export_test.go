package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/archplot/archplot/pkg/series"
)

// fakeStore serves canned samples per curve name.
type fakeStore struct {
	data map[string][]series.Sample
}

func (f *fakeStore) Data(name string) ([]series.Sample, error) {
	samples, ok := f.data[name]
	if !ok {
		return nil, fmt.Errorf("curve not found: %q", name)
	}
	return samples, nil
}

func testStore() *fakeStore {
	return &fakeStore{data: map[string][]series.Sample{
		"temp": {
			{Time: 100, Value: 2.5},
			{Time: 110.5, Value: 2.7},
		},
		"empty": nil,
	}}
}

func TestExportJSON(t *testing.T) {
	exporter := New(testStore())

	var buf bytes.Buffer
	result, err := exporter.ExportJSON(&buf, "temp")
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	if result.SamplesExported != 2 || result.Format != "json" {
		t.Errorf("unexpected result %+v", result)
	}

	var decoded struct {
		Metadata struct {
			Curve       string `json:"curve"`
			SampleCount int    `json:"sample_count"`
		} `json:"metadata"`
		Samples []series.Sample `json:"samples"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded.Metadata.Curve != "temp" || decoded.Metadata.SampleCount != 2 {
		t.Errorf("unexpected metadata %+v", decoded.Metadata)
	}
	if len(decoded.Samples) != 2 || decoded.Samples[1].Time != 110.5 {
		t.Errorf("unexpected samples %v", decoded.Samples)
	}
}

func TestExportCSV(t *testing.T) {
	exporter := New(testStore())

	var buf bytes.Buffer
	result, err := exporter.ExportCSV(&buf, "temp")
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if result.SamplesExported != 2 || result.Format != "csv" {
		t.Errorf("unexpected result %+v", result)
	}

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "time" || rows[0][1] != "value" || rows[0][2] != "curve" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "100" || rows[1][1] != "2.5" || rows[1][2] != "temp" {
		t.Errorf("unexpected row %v", rows[1])
	}
	if rows[2][0] != "110.5" {
		t.Errorf("unexpected row %v", rows[2])
	}
}

func TestExportEmptyCurve(t *testing.T) {
	exporter := New(testStore())

	var buf bytes.Buffer
	result, err := exporter.ExportJSON(&buf, "empty")
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	if result.SamplesExported != 0 {
		t.Errorf("expected 0 samples, got %d", result.SamplesExported)
	}
}

func TestExportUnknownCurve(t *testing.T) {
	exporter := New(testStore())

	var buf bytes.Buffer
	if _, err := exporter.ExportJSON(&buf, "nope"); err == nil {
		t.Error("expected error for unknown curve")
	}
	if _, err := exporter.ExportCSV(&buf, "nope"); err == nil {
		t.Error("expected error for unknown curve")
	}
}
