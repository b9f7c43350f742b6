package metadata

import (
	"slices"
	"sort"

	"github.com/ashureev/coin-gallery/internal/domain"
)

// Facets are the distinct filterable values present in an index.
type Facets struct {
	Countries  []string `json:"countries"`
	Currencies []string `json:"currencies"`
	Years      []string `json:"years"`
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Country  string `json:"country,omitempty"`
	Currency string `json:"currency,omitempty"`
	Year     string `json:"year,omitempty"`
}

// Distinct collects the sorted distinct countries, currencies and years.
func Distinct(ix Index) Facets {
	countries := map[string]struct{}{}
	currencies := map[string]struct{}{}
	years := map[string]struct{}{}
	for _, rec := range ix {
		if rec.Country != "" {
			countries[rec.Country] = struct{}{}
		}
		if rec.Currency != "" {
			currencies[rec.Currency] = struct{}{}
		}
		if y := rec.YearString(); y != "" {
			years[y] = struct{}{}
		}
	}
	return Facets{
		Countries:  sortedKeys(countries),
		Currencies: sortedKeys(currencies),
		Years:      sortedKeys(years),
	}
}

// Restrict drops filter values that are not known facets.
func (f Facets) Restrict(filter Filter) Filter {
	if !slices.Contains(f.Countries, filter.Country) {
		filter.Country = ""
	}
	if !slices.Contains(f.Currencies, filter.Currency) {
		filter.Currency = ""
	}
	if !slices.Contains(f.Years, filter.Year) {
		filter.Year = ""
	}
	return filter
}

// Active reports whether any filter field is set.
func (f Filter) Active() bool {
	return f.Country != "" || f.Currency != "" || f.Year != ""
}

// Match reports whether rec satisfies the filter.
func (f Filter) Match(rec domain.CoinRecord) bool {
	if f.Country != "" && rec.Country != f.Country {
		return false
	}
	if f.Currency != "" && rec.Currency != f.Currency {
		return false
	}
	if f.Year != "" && rec.YearString() != f.Year {
		return false
	}
	return true
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
