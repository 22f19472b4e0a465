package ontology

// Document is the raw content of an OBO file.
type Document struct {
	FormatVersion string    `json:"format_version,omitempty"`
	DataVersion   string    `json:"data_version,omitempty"`
	Ontology      string    `json:"ontology,omitempty"`
	Terms         []TermDef `json:"terms"`
}

// TermDef is a single [Term] stanza as written in the source file.
type TermDef struct {
	ID            string         `json:"id"`
	Name          string         `json:"name,omitempty"`
	Namespace     string         `json:"namespace,omitempty"`
	IsA           []string       `json:"is_a,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
	AltIDs        []string       `json:"alt_ids,omitempty"`
	IsObsolete    bool           `json:"is_obsolete,omitempty"`
	Line          int            `json:"-"` // line of the [Term] header
}

// Relationship is a typed, non is_a link such as part_of or regulates.
// Closure computation only follows is_a.
type Relationship struct {
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
}

// Term is a loaded ontology node.
type Term struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Namespace string   `json:"namespace,omitempty"`
	Parents   []string `json:"parents,omitempty"`
	Implicit  bool     `json:"implicit,omitempty"` // only referenced as a parent, never defined
}

// Ontology is the node table produced by Load.
type Ontology struct {
	DataVersion string
	Terms       map[string]*Term
	Order       []string // definition order, implicit terms appended as first referenced
}

// Term returns the term with the given id.
func (o *Ontology) Term(id string) (*Term, bool) {
	t, ok := o.Terms[id]
	return t, ok
}

// Name returns the display name for id, or "" when unknown.
func (o *Ontology) Name(id string) string {
	if t, ok := o.Terms[id]; ok {
		return t.Name
	}
	return ""
}

// Len returns the number of terms including implicit ones.
func (o *Ontology) Len() int {
	return len(o.Order)
}

// EdgeCount returns the number of is_a edges.
func (o *Ontology) EdgeCount() int {
	n := 0
	for _, t := range o.Terms {
		n += len(t.Parents)
	}
	return n
}
