package annotation

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Delimiter names accepted in configuration
const (
	DelimiterAuto  = ""
	DelimiterTab   = "tab"
	DelimiterComma = "comma"
)

// requiredColumns must be present in the header; the others default to empty.
var requiredColumns = []string{ColTaxID, ColGeneID, ColGOID}

// DelimiterFor resolves the field separator for path. With DelimiterAuto,
// .csv files (optionally gzipped) are comma separated and everything else,
// such as NCBI's gene2go, is tab separated.
func DelimiterFor(path, name string) (rune, error) {
	switch strings.ToLower(name) {
	case DelimiterTab, "\t", "tsv":
		return '\t', nil
	case DelimiterComma, ",", "csv":
		return ',', nil
	case DelimiterAuto:
		base := strings.TrimSuffix(strings.ToLower(path), ".gz")
		if strings.HasSuffix(base, ".csv") {
			return ',', nil
		}
		return '\t', nil
	}
	return 0, fmt.Errorf("unknown delimiter %q", name)
}

// ReadFile reads an annotation table from path, decompressing .gz files.
func ReadFile(path string, comma rune) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("opening annotation table: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return Table{}, &ParseError{Source: path, Msg: "invalid gzip stream", Err: err}
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	tbl, err := Read(r, comma)
	var perr *ParseError
	if errors.As(err, &perr) {
		perr.Source = path
	}
	return tbl, err
}

// Read parses a delimited annotation table with a header row. Columns are
// matched by name, so their order is free and extra columns are ignored.
func Read(r io.Reader, comma rune) (Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = comma == '\t'
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return Table{}, &ParseError{Line: 1, Msg: "missing header"}
	}
	if err != nil {
		return Table{}, csvError(err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return Table{}, err
	}

	tbl := Table{Records: make([]Record, 0, 1024)}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, csvError(err)
		}

		line, _ := cr.FieldPos(0)
		rec, err := cols.record(row, line)
		if err != nil {
			return Table{}, err
		}
		tbl.Records = append(tbl.Records, rec)
	}

	return tbl, nil
}

// columns holds the position of each known column, -1 when absent.
type columns struct {
	taxID, geneID, goID, evidence, qualifier, goTerm, pubMed, category int
}

func mapColumns(header []string) (*columns, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		pos[normalizeColumn(name)] = i
	}

	for _, req := range requiredColumns {
		if _, ok := pos[normalizeColumn(req)]; !ok {
			return nil, &ParseError{Line: 1, Column: req, Msg: "required column missing from header"}
		}
	}

	at := func(name string) int {
		if i, ok := pos[normalizeColumn(name)]; ok {
			return i
		}
		return -1
	}

	return &columns{
		taxID:     at(ColTaxID),
		geneID:    at(ColGeneID),
		goID:      at(ColGOID),
		evidence:  at(ColEvidence),
		qualifier: at(ColQualifier),
		goTerm:    at(ColGOTerm),
		pubMed:    at(ColPubMed),
		category:  at(ColCategory),
	}, nil
}

// normalizeColumn makes "#tax_id" and "tax_id" the same column.
func normalizeColumn(name string) string {
	return strings.TrimPrefix(name, "#")
}

func (c *columns) record(row []string, line int) (Record, error) {
	field := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	taxID, err := strconv.Atoi(field(c.taxID))
	if err != nil {
		return Record{}, &ParseError{
			Line:   line,
			Column: ColTaxID,
			Msg:    fmt.Sprintf("tax id %q is not an integer", field(c.taxID)),
		}
	}

	rec := Record{
		TaxID:     taxID,
		GeneID:    field(c.geneID),
		GOID:      field(c.goID),
		Evidence:  field(c.evidence),
		Qualifier: field(c.qualifier),
		GOTerm:    field(c.goTerm),
		PubMed:    field(c.pubMed),
		Category:  field(c.category),
	}
	if rec.GeneID == "" {
		return Record{}, &ParseError{Line: line, Column: ColGeneID, Msg: "empty gene id"}
	}
	if rec.GOID == "" {
		return Record{}, &ParseError{Line: line, Column: ColGOID, Msg: "empty GO id"}
	}
	return rec, nil
}

func csvError(err error) error {
	var cerr *csv.ParseError
	if errors.As(err, &cerr) {
		return &ParseError{Line: cerr.Line, Msg: "malformed row", Err: cerr.Err}
	}
	return &ParseError{Msg: "reading input", Err: err}
}
