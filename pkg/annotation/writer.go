package annotation

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Write emits tbl as comma separated values with the canonical header.
func Write(w io.Writer, tbl Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := make([]string, len(Columns))
	for i, r := range tbl.Records {
		row[0] = strconv.Itoa(r.TaxID)
		row[1] = r.GeneID
		row[2] = r.GOID
		row[3] = r.Evidence
		row[4] = r.Qualifier
		row[5] = r.GOTerm
		row[6] = r.PubMed
		row[7] = r.Category
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
