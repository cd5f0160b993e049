package catalog

import (
	"context"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venuecluster/internal/fetcher"
	"github.com/sells-group/venuecluster/internal/model"
)

// Builder assembles the neighborhood catalog from a set of sources.
type Builder struct {
	fetcher fetcher.Fetcher
	sources []Source
}

// NewBuilder creates a Builder that downloads pages with f.
func NewBuilder(f fetcher.Fetcher, sources []Source) *Builder {
	return &Builder{fetcher: f, sources: sources}
}

// Build scrapes every source in order and returns a flat, deduplicated
// catalog. A source that cannot be downloaded or parsed fails the build.
func (b *Builder) Build(ctx context.Context) ([]model.Neighborhood, error) {
	if len(b.sources) == 0 {
		return nil, eris.New("catalog: no sources configured")
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	var out []model.Neighborhood
	for _, src := range b.sources {
		hoods, err := b.scrape(ctx, src)
		if err != nil {
			return nil, err
		}
		for _, n := range hoods {
			if seen.Add(n.ID) {
				out = append(out, n)
			}
		}
		zap.L().Info("catalog: source scraped",
			zap.String("city", src.City),
			zap.Int("neighborhoods", len(hoods)),
		)
	}
	return out, nil
}

func (b *Builder) scrape(ctx context.Context, src Source) ([]model.Neighborhood, error) {
	body, err := b.fetcher.Download(ctx, src.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: download %s", src.City)
	}
	defer body.Close() //nolint:errcheck

	selector := src.Table
	if selector == "" {
		selector = DefaultTableSelector
	}
	tbl, err := ParseTable(body, selector)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: %s", src.City)
	}
	return FromTable(tbl, src)
}

// FromTable converts a parsed table into neighborhoods for src: it applies
// the row limit, splits multi-name cells, drops blank names and keeps only
// rows matching the include filter.
func FromTable(tbl *Table, src Source) ([]model.Neighborhood, error) {
	nameCol := tbl.Column(src.NameColumn)
	if nameCol < 0 {
		return nil, eris.Errorf("catalog: %s table has no %q column (headers: %s)",
			src.City, src.NameColumn, strings.Join(tbl.Header, ", "))
	}
	districtCol := -1
	if src.DistrictColumn != "" {
		districtCol = tbl.Column(src.DistrictColumn)
		if districtCol < 0 {
			return nil, eris.Errorf("catalog: %s table has no %q column", src.City, src.DistrictColumn)
		}
	}

	rows := tbl.Rows
	if src.Limit > 0 && len(rows) > src.Limit {
		rows = rows[:src.Limit]
	}

	include := mapset.NewThreadUnsafeSet[string]()
	for _, name := range src.Include {
		include.Add(foldCase(strings.TrimSpace(name)))
	}

	var out []model.Neighborhood
	for _, row := range rows {
		district := Cell(row, districtCol)
		for _, name := range splitNames(Cell(row, nameCol), src.Split) {
			if include.Cardinality() > 0 &&
				!include.Contains(foldCase(name)) &&
				!include.Contains(foldCase(district)) {
				continue
			}
			out = append(out, model.NewNeighborhood(name, district, src.City, src.Country))
		}
	}
	return out, nil
}

func splitNames(cell, sep string) []string {
	parts := []string{cell}
	if sep != "" {
		parts = strings.Split(cell, sep)
	}
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
