package annotation

import "slices"

// Criteria restricts a table by evidence code and organism. An empty
// inclusion list places no restriction; it does not exclude everything.
type Criteria struct {
	IncludeEvidence []string
	ExcludeEvidence []string
	IncludeTaxIDs   []int
	ExcludeTaxIDs   []int
}

// Empty reports whether c keeps every row.
func (c Criteria) Empty() bool {
	return len(c.IncludeEvidence) == 0 && len(c.ExcludeEvidence) == 0 &&
		len(c.IncludeTaxIDs) == 0 && len(c.ExcludeTaxIDs) == 0
}

// Keep reports whether r passes both the evidence and the organism test.
func (c Criteria) Keep(r Record) bool {
	return admits(c.IncludeEvidence, c.ExcludeEvidence, r.Evidence) &&
		admits(c.IncludeTaxIDs, c.ExcludeTaxIDs, r.TaxID)
}

func admits[T comparable](include, exclude []T, v T) bool {
	if len(include) > 0 && !slices.Contains(include, v) {
		return false
	}
	return len(exclude) == 0 || !slices.Contains(exclude, v)
}

// Prefilter returns the rows of tbl that c keeps, in their original order.
// Rows are dropped, never modified.
func Prefilter(tbl Table, c Criteria) Table {
	if c.Empty() {
		return tbl
	}

	b := NewBuilder(tbl.Len())
	for _, r := range tbl.Records {
		if c.Keep(r) {
			b.Append(r)
		}
	}
	return b.Build()
}
