package ontology

import (
	"errors"
	"strings"
	"testing"
)

const sampleOBO = `format-version: 1.2
data-version: releases/2024-01-17
ontology: go

[Term]
id: GO:0008150
name: biological_process
namespace: biological_process

[Term]
id: GO:0009987
name: cellular process
namespace: biological_process
is_a: GO:0008150 ! biological_process

[Term]
id: GO:0044237
name: cellular metabolic process
namespace: biological_process
is_a: GO:0009987 ! cellular process
is_a: GO:0008152 {source="GOC:mah"} ! metabolic process
relationship: part_of GO:0008150 ! biological_process

[Term]
id: GO:0000001
name: obsolete thing
is_obsolete: true

[Typedef]
id: part_of
name: part of
is_transitive: true
`

func TestParseOBO(t *testing.T) {
	doc, err := ParseOBO(strings.NewReader(sampleOBO))
	if err != nil {
		t.Fatalf("ParseOBO() error = %v", err)
	}

	if doc.DataVersion != "releases/2024-01-17" {
		t.Errorf("DataVersion = %q", doc.DataVersion)
	}
	if doc.Ontology != "go" {
		t.Errorf("Ontology = %q", doc.Ontology)
	}
	if len(doc.Terms) != 4 {
		t.Fatalf("Expected 4 term stanzas, got %d", len(doc.Terms))
	}

	term := doc.Terms[2]
	if term.ID != "GO:0044237" || term.Name != "cellular metabolic process" {
		t.Errorf("Unexpected term %+v", term)
	}
	wantIsA := []string{"GO:0009987", "GO:0008152"}
	if len(term.IsA) != len(wantIsA) {
		t.Fatalf("IsA = %v, want %v", term.IsA, wantIsA)
	}
	for i := range wantIsA {
		if term.IsA[i] != wantIsA[i] {
			t.Errorf("IsA[%d] = %q, want %q", i, term.IsA[i], wantIsA[i])
		}
	}
	if len(term.Relationships) != 1 || term.Relationships[0].Type != "part_of" {
		t.Errorf("Relationships = %+v", term.Relationships)
	}
	if !doc.Terms[3].IsObsolete {
		t.Error("Expected GO:0000001 to be obsolete")
	}
}

func TestParseOBO_SizedToInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		terms int
	}{
		{"empty", "format-version: 1.2\n", 0},
		{"sample", sampleOBO, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseOBO(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseOBO() error = %v", err)
			}
			if doc.Terms == nil || len(doc.Terms) != tt.terms {
				t.Fatalf("Terms = %v, want %d stanzas", doc.Terms, tt.terms)
			}
			if cap(doc.Terms) > 2*tt.terms+8 {
				t.Errorf("cap(Terms) = %d for %d stanzas", cap(doc.Terms), tt.terms)
			}
		})
	}
}

func TestParseOBO_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{
			name:     "missing id",
			input:    "[Term]\nname: nameless\n",
			wantLine: 1,
		},
		{
			name:     "line without tag",
			input:    "[Term]\nid: GO:1\nthis line has no separator\n",
			wantLine: 3,
		},
		{
			name:     "unterminated header",
			input:    "[Term\nid: GO:1\n",
			wantLine: 1,
		},
		{
			name:     "two ids",
			input:    "[Term]\nid: GO:1\nid: GO:2\n",
			wantLine: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOBO(strings.NewReader(tt.input))
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Expected *ParseError, got %v", err)
			}
			if perr.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d (%v)", perr.Line, tt.wantLine, err)
			}
		})
	}
}

func TestStripComment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GO:0008150", "GO:0008150"},
		{"GO:0008150 ! biological_process", "GO:0008150"},
		{`GO:0008152 {source="GOC:mah"} ! metabolic process`, "GO:0008152"},
		{"  GO:1  ", "GO:1"},
	}

	for _, tt := range tests {
		if got := stripComment(tt.in); got != tt.want {
			t.Errorf("stripComment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
