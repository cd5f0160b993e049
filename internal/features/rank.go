package features

import (
	"slices"
	"strconv"

	"github.com/rotisserie/eris"
)

// DefaultTopN is the number of ranked categories kept per neighborhood.
const DefaultTopN = 10

// ErrInvalidTopN is returned when fewer than one category is requested.
var ErrInvalidTopN = eris.New("features: top-n must be positive")

// RankedCategory is a category with its frequency in one row.
type RankedCategory struct {
	Category  string  `json:"category"`
	Frequency float64 `json:"frequency"`
}

// TopCategories returns the n most frequent categories of row, descending.
// Ties, including the zero-frequency fillers used when fewer than n
// categories are present, keep column order. The result is shorter than n
// only when there are fewer than n columns.
func TopCategories(columns []string, row []float64, n int) ([]RankedCategory, error) {
	if n <= 0 {
		return nil, ErrInvalidTopN
	}

	ranked := make([]RankedCategory, len(columns))
	for i, c := range columns {
		var f float64
		if i < len(row) {
			f = row[i]
		}
		ranked[i] = RankedCategory{Category: c, Frequency: f}
	}

	slices.SortStableFunc(ranked, func(a, b RankedCategory) int {
		switch {
		case a.Frequency > b.Frequency:
			return -1
		case a.Frequency < b.Frequency:
			return 1
		default:
			return 0
		}
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// TopCategoryNames ranks id's row of t and returns only the labels.
func (t *Table) TopCategoryNames(id string, n int) ([]string, error) {
	row, ok := t.Row(id)
	if !ok {
		return nil, nil
	}
	ranked, err := TopCategories(t.columns, row, n)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.Category
	}
	return names, nil
}

// Ordinal returns the "1st", "2nd", "3rd", "4th" style column label used when
// ranked categories are laid out as columns.
func Ordinal(i int) string {
	suffix := "th"
	if i%100 < 11 || i%100 > 13 {
		switch i % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(i) + suffix
}
