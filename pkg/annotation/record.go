package annotation

// Column names of the gene2go table, as used in headers on input and output.
const (
	ColTaxID     = "#tax_id"
	ColGeneID    = "GeneID"
	ColGOID      = "GO_ID"
	ColEvidence  = "Evidence"
	ColQualifier = "Qualifier"
	ColGOTerm    = "GO_term"
	ColPubMed    = "PubMed"
	ColCategory  = "Category"
)

// Columns is the canonical column order.
var Columns = []string{
	ColTaxID, ColGeneID, ColGOID, ColEvidence, ColQualifier, ColGOTerm, ColPubMed, ColCategory,
}

// Record is one gene to GO term annotation.
type Record struct {
	TaxID     int    `json:"tax_id"`
	GeneID    string `json:"gene_id"`
	GOID      string `json:"go_id"`
	Evidence  string `json:"evidence"`
	Qualifier string `json:"qualifier"`
	GOTerm    string `json:"go_term"`
	PubMed    string `json:"pubmed"`
	Category  string `json:"category"`
}

// Table is an ordered collection of records. Tables are only ever extended by
// appending; existing rows are not edited.
type Table struct {
	Records []Record
}

// Len returns the number of rows
func (t Table) Len() int {
	return len(t.Records)
}

// TermIndex maps each GO id to the positions of its rows, in table order.
func (t Table) TermIndex() map[string][]int {
	idx := make(map[string][]int)
	for i, r := range t.Records {
		idx[r.GOID] = append(idx[r.GOID], i)
	}
	return idx
}

// Builder accumulates rows into a pre-sized slice and hands the table out once.
type Builder struct {
	records []Record
	built   bool
}

// NewBuilder returns a builder with room for capacity rows
func NewBuilder(capacity int) *Builder {
	return &Builder{records: make([]Record, 0, capacity)}
}

// Append adds a row
func (b *Builder) Append(r Record) {
	if b.built {
		panic("annotation: Append after Build")
	}
	b.records = append(b.records, r)
}

// AppendTable adds all rows of t
func (b *Builder) AppendTable(t Table) {
	if b.built {
		panic("annotation: Append after Build")
	}
	b.records = append(b.records, t.Records...)
}

// Len returns the number of rows appended so far
func (b *Builder) Len() int {
	return len(b.records)
}

// Build finalizes the table. The builder cannot be used afterwards.
func (b *Builder) Build() Table {
	b.built = true
	return Table{Records: b.records}
}
