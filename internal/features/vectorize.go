// Package features turns per-venue category labels into per-neighborhood
// category frequency vectors and ranks the most common categories.
package features

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/sells-group/venuecluster/internal/model"
)

// Table is a dense neighborhood x category frequency matrix. Rows are
// addressed by neighborhood identifier; positions are only stable within a
// single Table value.
type Table struct {
	ids     []string
	columns []string
	rows    [][]float64
	counts  []int
	index   map[string]int
}

// Vectorize builds the frequency table for a batch of venues.
//
// ids lists neighborhoods that must have a row even if they own no venues;
// they come first in the given order. Neighborhoods that only appear in
// venues follow in first-seen order. Columns are the distinct categories of
// the batch in lexicographic order. Cell (n, c) is the share of n's venues
// labelled c; a neighborhood without venues gets an all-zero row.
func Vectorize(ids []string, venues []model.Venue) *Table {
	t := &Table{index: make(map[string]int)}
	for _, id := range ids {
		t.addRow(id)
	}

	cats := mapset.NewThreadUnsafeSet[string]()
	for _, v := range venues {
		t.addRow(v.Neighborhood)
		cats.Add(v.Category)
	}

	t.columns = cats.ToSlice()
	slices.Sort(t.columns)
	col := make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		col[c] = i
	}

	t.rows = make([][]float64, len(t.ids))
	t.counts = make([]int, len(t.ids))
	for i := range t.rows {
		t.rows[i] = make([]float64, len(t.columns))
	}
	for _, v := range venues {
		r := t.index[v.Neighborhood]
		t.rows[r][col[v.Category]]++
		t.counts[r]++
	}
	for r, row := range t.rows {
		if t.counts[r] == 0 {
			continue
		}
		total := float64(t.counts[r])
		for c := range row {
			row[c] /= total
		}
	}
	return t
}

func (t *Table) addRow(id string) {
	if _, ok := t.index[id]; ok {
		return
	}
	t.index[id] = len(t.ids)
	t.ids = append(t.ids, id)
}

// IDs returns the row identifiers in row order.
func (t *Table) IDs() []string { return slices.Clone(t.ids) }

// Columns returns the category labels in column order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.ids) }

// Has reports whether the table has a row for id.
func (t *Table) Has(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Row returns a copy of the frequency row for id.
func (t *Table) Row(id string) ([]float64, bool) {
	r, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(t.rows[r]), true
}

// VenueCount returns how many venues contributed to id's row.
func (t *Table) VenueCount(id string) int {
	r, ok := t.index[id]
	if !ok {
		return 0
	}
	return t.counts[r]
}

// Value returns the frequency of category for id, or 0 when either is unknown.
func (t *Table) Value(id, category string) float64 {
	r, ok := t.index[id]
	if !ok {
		return 0
	}
	c, found := slices.BinarySearch(t.columns, category)
	if !found {
		return 0
	}
	return t.rows[r][c]
}

// Matrix returns a copy of all rows in row order, ready for clustering.
func (t *Table) Matrix() [][]float64 {
	out := make([][]float64, len(t.rows))
	for i, row := range t.rows {
		out[i] = slices.Clone(row)
	}
	return out
}

// Empty returns the identifiers of all-zero rows in row order.
func (t *Table) Empty() []string {
	var out []string
	for i, id := range t.ids {
		if t.counts[i] == 0 {
			out = append(out, id)
		}
	}
	return out
}

// WithoutEmpty returns a table without the all-zero rows. Columns are kept so
// the feature space is unchanged.
func (t *Table) WithoutEmpty() *Table {
	out := &Table{columns: t.columns, index: make(map[string]int)}
	for i, id := range t.ids {
		if t.counts[i] == 0 {
			continue
		}
		out.index[id] = len(out.ids)
		out.ids = append(out.ids, id)
		out.rows = append(out.rows, t.rows[i])
		out.counts = append(out.counts, t.counts[i])
	}
	return out
}
