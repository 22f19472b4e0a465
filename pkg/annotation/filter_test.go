package annotation

import "testing"

func filterFixture() Table {
	return Table{Records: []Record{
		{TaxID: 9606, GeneID: "1", GOID: "GO:1", Evidence: "EXP"},
		{TaxID: 9606, GeneID: "2", GOID: "GO:2", Evidence: "IEA"},
		{TaxID: 10090, GeneID: "3", GOID: "GO:1", Evidence: "EXP"},
		{TaxID: 10090, GeneID: "4", GOID: "GO:3", Evidence: "ND"},
	}}
}

func geneIDs(tbl Table) []string {
	ids := make([]string, 0, tbl.Len())
	for _, r := range tbl.Records {
		ids = append(ids, r.GeneID)
	}
	return ids
}

func TestPrefilter(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"no criteria keeps everything", Criteria{}, []string{"1", "2", "3", "4"}},
		{"include tax", Criteria{IncludeTaxIDs: []int{9606}}, []string{"1", "2"}},
		{"exclude tax", Criteria{ExcludeTaxIDs: []int{9606}}, []string{"3", "4"}},
		{"include evidence", Criteria{IncludeEvidence: []string{"EXP", "ND"}}, []string{"1", "3", "4"}},
		{"exclude evidence", Criteria{ExcludeEvidence: []string{"IEA"}}, []string{"1", "3", "4"}},
		{
			"evidence and tax applied independently",
			Criteria{IncludeEvidence: []string{"EXP"}, IncludeTaxIDs: []int{10090}},
			[]string{"3"},
		},
		{
			"include and exclude on the same field",
			Criteria{IncludeEvidence: []string{"EXP", "IEA"}, ExcludeEvidence: []string{"IEA"}},
			[]string{"1", "3"},
		},
		{"include nothing matching", Criteria{IncludeTaxIDs: []int{7227}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geneIDs(Prefilter(filterFixture(), tt.c))
			if len(got) != len(tt.want) {
				t.Fatalf("Prefilter() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Prefilter() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestPrefilter_DoesNotMutate(t *testing.T) {
	tbl := filterFixture()
	before := tbl.Records[1]

	Prefilter(tbl, Criteria{ExcludeEvidence: []string{"IEA"}})

	if tbl.Len() != 4 || tbl.Records[1] != before {
		t.Error("Prefilter() modified its input")
	}
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(2)
	b.AppendTable(filterFixture())
	b.Append(Record{TaxID: 1, GeneID: "5", GOID: "GO:9"})
	if b.Len() != 5 {
		t.Errorf("Len() = %d, want 5", b.Len())
	}

	tbl := b.Build()
	if idx := tbl.TermIndex(); len(idx["GO:1"]) != 2 || idx["GO:1"][1] != 2 {
		t.Errorf("TermIndex()[GO:1] = %v, want [0 2]", idx["GO:1"])
	}

	defer func() {
		if recover() == nil {
			t.Error("Append after Build should panic")
		}
	}()
	b.Append(Record{})
}
