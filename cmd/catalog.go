package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/venuecluster/internal/model"
)

// catalogRecord is one row of the catalog CSV.
type catalogRecord struct {
	ID       string `csv:"id"`
	Name     string `csv:"name"`
	District string `csv:"district,omitempty"`
	City     string `csv:"city"`
	Country  string `csv:"country"`
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Scrape and print the neighborhood catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("catalog"); err != nil {
			return eris.Wrap(err, "catalog: invalid config")
		}

		builder, err := newCatalogBuilder(cfg)
		if err != nil {
			return err
		}
		hoods, err := builder.Build(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("catalog built", zap.Int("neighborhoods", len(hoods)))

		csvPath, _ := cmd.Flags().GetString("csv")
		if csvPath == "" {
			formatCatalog(os.Stdout, hoods)
			return nil
		}

		f, err := os.Create(csvPath)
		if err != nil {
			return eris.Wrapf(err, "catalog: create %s", csvPath)
		}
		if err := writeCatalogCSV(f, hoods); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "catalog: close %s", csvPath)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d neighborhoods to %s\n", len(hoods), csvPath)
		return nil
	},
}

func formatCatalog(w io.Writer, hoods []model.Neighborhood) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISTRICT\tCITY\tCOUNTRY")
	for _, n := range hoods {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.Name, n.District, n.City, n.Country)
	}
	tw.Flush() //nolint:errcheck
}

func writeCatalogCSV(w io.Writer, hoods []model.Neighborhood) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(hoods) == 0 {
		if err := enc.EncodeHeader(catalogRecord{}); err != nil {
			return eris.Wrap(err, "catalog: write header")
		}
	}
	for _, n := range hoods {
		rec := catalogRecord{ID: n.ID, Name: n.Name, District: n.District, City: n.City, Country: n.Country}
		if err := enc.Encode(rec); err != nil {
			return eris.Wrap(err, "catalog: encode row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "catalog: flush csv")
}

func init() {
	catalogCmd.Flags().String("csv", "", "write the catalog to this CSV file instead of stdout")
	rootCmd.AddCommand(catalogCmd)
}
