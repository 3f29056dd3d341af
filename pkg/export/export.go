package export

import (
	"fmt"
	"strings"
)

// Format names a supported export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises user input, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Column maps a row key to its rendered heading.
type Column struct {
	Key   string
	Label string
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

func (d Dataset) labels() []string {
	out := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		out[i] = col.Label
		if out[i] == "" {
			out[i] = col.Key
		}
	}
	return out
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		out[i] = row[col.Key]
	}
	return out
}

// Renderer encodes a dataset.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// Exporter dispatches datasets to the renderer registered for a format.
type Exporter struct {
	renderers map[Format]Renderer
}

// NewExporter wires the CSV and PDF renderers.
func NewExporter() *Exporter {
	return &Exporter{renderers: map[Format]Renderer{
		FormatCSV: NewCSVRenderer(),
		FormatPDF: NewPDFRenderer(),
	}}
}

// Render encodes data in the requested format.
func (e *Exporter) Render(format Format, data Dataset) ([]byte, error) {
	renderer, ok := e.renderers[format]
	if !ok {
		return nil, fmt.Errorf("no renderer for format %q", format)
	}
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("%s export requires at least one column", format)
	}
	return renderer.Render(data)
}
