package catalog

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Table is a parsed HTML table with rowspan and colspan expanded.
type Table struct {
	Header []string
	Rows   [][]string
}

var footnoteRe = regexp.MustCompile(`\[[^\]]*\]`)

// foldCase returns a caseless form for header and filter comparison.
func foldCase(s string) string { return cases.Fold().String(s) }

// ParseTable parses the first table matching selector in the HTML document.
// Header cells come from the first all-<th> row; later all-<th> rows are
// skipped. Cells spanning several rows or columns are repeated into every
// position they cover.
func ParseTable(r io.Reader, selector string) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: parse html")
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, eris.Errorf("catalog: no table matches %q", selector)
	}

	t := &Table{}
	pending := map[int]*span{}
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}
		headerRow := cells.Length() == cells.Filter("th").Length()
		if headerRow {
			if t.Header == nil {
				t.Header = expandRow(cells, map[int]*span{})
			}
			return
		}
		t.Rows = append(t.Rows, expandRow(cells, pending))
	})

	if t.Header == nil {
		return nil, eris.Errorf("catalog: table %q has no header row", selector)
	}
	return t, nil
}

type span struct {
	text      string
	remaining int
}

func expandRow(cells *goquery.Selection, pending map[int]*span) []string {
	var out []string
	col := 0
	fillPending := func() {
		for {
			p, ok := pending[col]
			if !ok || p.remaining == 0 {
				return
			}
			out = append(out, p.text)
			p.remaining--
			if p.remaining == 0 {
				delete(pending, col)
			}
			col++
		}
	}

	cells.Each(func(_ int, cell *goquery.Selection) {
		fillPending()
		text := CellText(cell)
		colspan := spanAttr(cell, "colspan")
		rowspan := spanAttr(cell, "rowspan")
		for range colspan {
			out = append(out, text)
			if rowspan > 1 {
				pending[col] = &span{text: text, remaining: rowspan - 1}
			}
			col++
		}
	})
	fillPending()
	return out
}

func spanAttr(cell *goquery.Selection, name string) int {
	v, ok := cell.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// CellText returns the visible text of a cell without reference markers,
// whitespace runs collapsed, in Unicode NFC.
func CellText(cell *goquery.Selection) string {
	c := cell.Clone()
	c.Find("sup.reference, style, .sortkey, .mw-ref").Remove()
	text := footnoteRe.ReplaceAllString(c.Text(), "")
	return norm.NFC.String(strings.Join(strings.Fields(text), " "))
}

// Column returns the index of the header equal to name, or else the first
// header starting with name, compared case-insensitively. It returns -1 when
// nothing matches.
func (t *Table) Column(name string) int {
	want := foldCase(strings.TrimSpace(name))
	if want == "" {
		return -1
	}
	for i, h := range t.Header {
		if foldCase(h) == want {
			return i
		}
	}
	for i, h := range t.Header {
		if strings.HasPrefix(foldCase(h), want) {
			return i
		}
	}
	return -1
}

// Cell returns row[col], or "" when the row is short.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
