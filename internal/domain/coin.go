// Package domain contains core domain types for the coin gallery.
package domain

import (
	"encoding/json"
	"fmt"
)

// Valuation is market pricing attached to a coin by an external import.
// It is display-only and never edited through the gallery.
type Valuation struct {
	Price       string  `json:"price" yaml:"price"`
	Currency    string  `json:"currency" yaml:"currency"`
	Condition   string  `json:"condition" yaml:"condition"`
	SourceName  string  `json:"source_name" yaml:"source_name"`
	SourceURL   string  `json:"source_url" yaml:"source_url"`
	Notes       *string `json:"notes,omitempty" yaml:"notes,omitempty"`
	LastUpdated string  `json:"last_updated" yaml:"last_updated"`
}

// CoinRecord is the descriptive metadata of one catalogued coin.
type CoinRecord struct {
	ID          int        `json:"id" yaml:"id"`
	Country     string     `json:"country" yaml:"country"`
	Currency    string     `json:"currency" yaml:"currency"`
	Value       string     `json:"value" yaml:"value"`
	Year        *string    `json:"year" yaml:"year"`
	Notes       *string    `json:"notes" yaml:"notes"`
	Valuation   *Valuation `json:"valuation,omitempty" yaml:"valuation,omitempty"`
	AIGenerated bool       `json:"ai_generated" yaml:"ai_generated"`

	// Written by the batch importer; carried through untouched.
	Images []string `json:"images,omitempty" yaml:"images,omitempty"`
	Error  string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// UnmarshalJSON treats a missing ai_generated key as true, matching records
// produced before the flag existed.
func (c *CoinRecord) UnmarshalJSON(data []byte) error {
	type plain CoinRecord
	aux := struct {
		*plain
		AIGenerated *bool `json:"ai_generated"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.AIGenerated = aux.AIGenerated == nil || *aux.AIGenerated
	return nil
}

// YearString returns the year or "" when absent.
func (c CoinRecord) YearString() string {
	if c.Year == nil {
		return ""
	}
	return *c.Year
}

// NotesString returns the notes or "" when absent.
func (c CoinRecord) NotesString() string {
	if c.Notes == nil {
		return ""
	}
	return *c.Notes
}

// Label is the short caption shown under a coin thumbnail.
func (c CoinRecord) Label() string {
	label := fmt.Sprintf("%s - %s", c.Country, c.Value)
	if y := c.YearString(); y != "" {
		label += " (" + y + ")"
	}
	return label
}

// PlaceholderLabel is the caption of a coin that has no metadata yet.
func PlaceholderLabel(id int) string {
	return fmt.Sprintf("Coin #%d", id+1)
}

// EditableFields are the fields a human editor may change.
type EditableFields struct {
	Country  string
	Currency string
	Value    string
	Year     string
	Notes    string
}

// Editable extracts the editable view of a record, with null as "".
func (c CoinRecord) Editable() EditableFields {
	return EditableFields{
		Country:  c.Country,
		Currency: c.Currency,
		Value:    c.Value,
		Year:     c.YearString(),
		Notes:    c.NotesString(),
	}
}

// Diff lists the names of the fields that differ between f and other.
func (f EditableFields) Diff(other EditableFields) []string {
	var changed []string
	if f.Country != other.Country {
		changed = append(changed, "country")
	}
	if f.Currency != other.Currency {
		changed = append(changed, "currency")
	}
	if f.Value != other.Value {
		changed = append(changed, "value")
	}
	if f.Year != other.Year {
		changed = append(changed, "year")
	}
	if f.Notes != other.Notes {
		changed = append(changed, "notes")
	}
	return changed
}

// Apply writes f onto the record as a human edit. Empty year and notes
// become null and the record stops being AI-generated.
func (c *CoinRecord) Apply(f EditableFields) {
	c.Country = f.Country
	c.Currency = f.Currency
	c.Value = f.Value
	c.Year = nullable(f.Year)
	c.Notes = nullable(f.Notes)
	c.AIGenerated = false
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
