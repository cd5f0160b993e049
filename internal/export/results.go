package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/venuecluster/internal/model"
)

// WriteSheetCSV writes s as CSV with a header row.
func WriteSheetCSV(w io.Writer, s Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Header); err != nil {
		return eris.Wrapf(err, "export: write %s header", s.Name)
	}
	for _, row := range s.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "export: write %s row", s.Name)
		}
	}
	cw.Flush()
	return eris.Wrapf(cw.Error(), "export: flush %s", s.Name)
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

// WriteWorkbook saves the neighborhoods, clusters and frequency sheets of
// run to an XLSX file at path.
func WriteWorkbook(path string, run *model.Run) error {
	f := xlsx.NewFile()
	for _, s := range []Sheet{NeighborhoodSheet(run), ClusterSheet(run), FrequencySheet(run)} {
		sheet, err := f.AddSheet(s.Name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", s.Name)
		}
		header := sheet.AddRow()
		for _, h := range s.Header {
			header.AddCell().SetString(h)
		}
		for _, row := range s.Rows {
			r := sheet.AddRow()
			for _, v := range row {
				cell := r.AddCell()
				switch x := v.(type) {
				case string:
					cell.SetString(x)
				case int:
					cell.SetInt(x)
				case float64:
					cell.SetFloat(x)
				}
			}
		}
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}
