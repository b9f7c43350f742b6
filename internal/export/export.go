// Package export writes the coin metadata in interchange formats.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/coin-gallery/internal/domain"
	"github.com/moby/sys/atomicwriter"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Format is an export file format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatParquet Format = "parquet"
)

// ParseFormat resolves a format name. "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (supported: json, yaml, parquet)", name)
	}
}

// Row is the flat, columnar shape of a record used for Parquet.
type Row struct {
	ID                 int64  `parquet:"id"`
	Country            string `parquet:"country"`
	Currency           string `parquet:"currency"`
	Value              string `parquet:"value"`
	Year               string `parquet:"year"`
	Notes              string `parquet:"notes"`
	AIGenerated        bool   `parquet:"ai_generated"`
	ValuationPrice     string `parquet:"valuation_price"`
	ValuationCurrency  string `parquet:"valuation_currency"`
	ValuationCondition string `parquet:"valuation_condition"`
	ValuationSource    string `parquet:"valuation_source"`
	ValuationSourceURL string `parquet:"valuation_source_url"`
	ValuationNotes     string `parquet:"valuation_notes"`
	ValuationUpdated   string `parquet:"valuation_last_updated"`
}

// RowOf flattens a record. Absent optional values become empty strings.
func RowOf(rec domain.CoinRecord) Row {
	row := Row{
		ID:          int64(rec.ID),
		Country:     rec.Country,
		Currency:    rec.Currency,
		Value:       rec.Value,
		Year:        rec.YearString(),
		Notes:       rec.NotesString(),
		AIGenerated: rec.AIGenerated,
	}
	if v := rec.Valuation; v != nil {
		row.ValuationPrice = v.Price
		row.ValuationCurrency = v.Currency
		row.ValuationCondition = v.Condition
		row.ValuationSource = v.SourceName
		row.ValuationSourceURL = v.SourceURL
		if v.Notes != nil {
			row.ValuationNotes = *v.Notes
		}
		row.ValuationUpdated = v.LastUpdated
	}
	return row
}

// Write encodes records to w in the given format.
func Write(w io.Writer, format Format, records []domain.CoinRecord) error {
	if records == nil {
		records = []domain.CoinRecord{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatParquet:
		rows := make([]Row, len(records))
		for i, rec := range records {
			rows[i] = RowOf(rec)
		}
		pw := parquet.NewGenericWriter[Row](w)
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("close parquet writer: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteFile writes records to path atomically. Nothing is written when
// encoding fails.
func WriteFile(path string, format Format, records []domain.CoinRecord) error {
	var buf bytes.Buffer
	if err := Write(&buf, format, records); err != nil {
		return err
	}
	if err := atomicwriter.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}
