// Package export writes curve data to JSON or CSV for analysis in
// external tools.
//
// # Supported Formats
//
// JSON Format:
//   - Includes export metadata (timestamp, curve name, sample count)
//   - Human-readable with pretty-printing
//
// CSV Format:
//   - One row per sample: time, value, curve
//   - Good for analysis in Excel, pandas, or other tools
//
// # HTTP API
//
// Export endpoint: GET /v1/curves/{name}/export
// Query parameters:
//   - format: "json" or "csv" (default: json)
//
// Example:
//
//	curl "http://localhost:8080/v1/curves/temp/export?format=csv" \
//	  -o temp.csv
package export
