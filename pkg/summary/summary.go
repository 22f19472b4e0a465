// Package summary folds an annotation table into one row per gene.
package summary

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/ritzau/gene2go-expander/pkg/annotation"
)

// Separator joins the values of a summarized field.
const Separator = ";"

// GeneSummary merges every annotation of one gene. Each field holds the
// distinct non-empty values of the gene's rows, sorted and joined by Separator.
type GeneSummary struct {
	TaxID     int    `json:"tax_id"`
	GeneID    string `json:"gene_id"`
	GOIDs     string `json:"go_ids"`
	Evidence  string `json:"evidence"`
	Qualifier string `json:"qualifier"`
	GOTerms   string `json:"go_terms"`
	PubMed    string `json:"pubmed"`
	Category  string `json:"category"`
}

// Key identifies a gene within an organism.
type Key struct {
	TaxID  int
	GeneID string
}

type fieldSets struct {
	goIDs, evidence, qualifier, goTerms, pubMed, category map[string]struct{}
}

func newFieldSets() *fieldSets {
	return &fieldSets{
		goIDs:     make(map[string]struct{}),
		evidence:  make(map[string]struct{}),
		qualifier: make(map[string]struct{}),
		goTerms:   make(map[string]struct{}),
		pubMed:    make(map[string]struct{}),
		category:  make(map[string]struct{}),
	}
}

func (f *fieldSets) add(r annotation.Record) {
	put(f.goIDs, r.GOID)
	put(f.evidence, r.Evidence)
	put(f.qualifier, r.Qualifier)
	put(f.goTerms, r.GOTerm)
	put(f.pubMed, r.PubMed)
	put(f.category, r.Category)
}

func put(set map[string]struct{}, v string) {
	if v != "" {
		set[v] = struct{}{}
	}
}

func join(set map[string]struct{}) string {
	vals := make([]string, 0, len(set))
	for v := range set {
		vals = append(vals, v)
	}
	slices.Sort(vals)
	return strings.Join(vals, Separator)
}

// Aggregate groups tbl by (TaxID, GeneID). The result has one summary per
// gene, ordered by TaxID and then GeneID, and does not depend on row order.
func Aggregate(tbl annotation.Table) []GeneSummary {
	groups := make(map[Key]*fieldSets)
	for _, r := range tbl.Records {
		k := Key{TaxID: r.TaxID, GeneID: r.GeneID}
		g, ok := groups[k]
		if !ok {
			g = newFieldSets()
			groups[k] = g
		}
		g.add(r)
	}

	keys := make([]Key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	out := make([]GeneSummary, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		out = append(out, GeneSummary{
			TaxID:     k.TaxID,
			GeneID:    k.GeneID,
			GOIDs:     join(g.goIDs),
			Evidence:  join(g.evidence),
			Qualifier: join(g.qualifier),
			GOTerms:   join(g.goTerms),
			PubMed:    join(g.pubMed),
			Category:  join(g.category),
		})
	}
	return out
}

func compareKeys(a, b Key) int {
	if c := cmp.Compare(a.TaxID, b.TaxID); c != 0 {
		return c
	}
	return CompareGeneIDs(a.GeneID, b.GeneID)
}

// CompareGeneIDs orders NCBI gene ids numerically. Ids that are not integers
// sort after all integer ids, in string order.
func CompareGeneIDs(a, b string) int {
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// Index maps each key to its summary.
func Index(summaries []GeneSummary) map[Key]GeneSummary {
	idx := make(map[Key]GeneSummary, len(summaries))
	for _, s := range summaries {
		idx[Key{TaxID: s.TaxID, GeneID: s.GeneID}] = s
	}
	return idx
}
