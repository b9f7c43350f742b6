package edit

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/ashureev/coin-gallery/internal/domain"
	"github.com/microcosm-cc/bluemonday"
)

// Maximum field lengths, in characters.
const (
	MaxShortField = 100
	MaxNotes      = 500
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	yearPattern = regexp.MustCompile(`^\d{4}$`)
)

// maxStripPasses bounds the strip/decode loop for nested entity encodings.
const maxStripPasses = 8

// StripMarkup removes HTML tags and returns plain text. Entity-encoded tags
// are decoded and stripped as well, so the result never contains markup
// that a later decode would revive.
func StripMarkup(s string) string {
	for range maxStripPasses {
		next := html.UnescapeString(stripPolicy.Sanitize(s))
		if next == s {
			return next
		}
		s = next
	}
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func clean(s string, limit int) string {
	return Truncate(strings.TrimSpace(StripMarkup(s)), limit)
}

// Sanitize strips markup from every field and enforces length limits. The
// year is left untruncated so that ValidateYear sees what was submitted.
func Sanitize(f domain.EditableFields) domain.EditableFields {
	return domain.EditableFields{
		Country:  clean(f.Country, MaxShortField),
		Currency: clean(f.Currency, MaxShortField),
		Value:    clean(f.Value, MaxShortField),
		Year:     strings.TrimSpace(StripMarkup(f.Year)),
		Notes:    clean(f.Notes, MaxNotes),
	}
}

// ValidateYear accepts an empty year or exactly four digits.
func ValidateYear(year string) error {
	if year == "" || yearPattern.MatchString(year) {
		return nil
	}
	return domain.ErrInvalidYear
}

// ParseCoinID parses a coin id from form input.
func ParseCoinID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id < 0 {
		return 0, domain.ErrInvalidInput
	}
	return id, nil
}
