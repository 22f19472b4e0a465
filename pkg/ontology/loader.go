package ontology

import (
	"fmt"
	"strings"
	"unicode"
)

// Load turns term definitions into a node table with a parents relation per
// node. Obsolete definitions are dropped. Parents that are referenced but never
// defined become implicit terms with an empty name.
func Load(defs []TermDef) (*Ontology, error) {
	ont := &Ontology{
		Terms: make(map[string]*Term, len(defs)),
		Order: make([]string, 0, len(defs)),
	}
	seenParent := make(map[string]map[string]bool, len(defs))

	for _, def := range defs {
		if def.IsObsolete {
			continue
		}
		if err := ValidateID(def.ID); err != nil {
			return nil, &ParseError{Line: def.Line, TermID: def.ID, Msg: err.Error()}
		}

		t, exists := ont.Terms[def.ID]
		switch {
		case !exists:
			t = &Term{ID: def.ID, Name: def.Name, Namespace: def.Namespace}
			ont.Terms[def.ID] = t
			ont.Order = append(ont.Order, def.ID)
			seenParent[def.ID] = make(map[string]bool, len(def.IsA))
		case def.Name != "" && t.Name != "" && def.Name != t.Name:
			return nil, &ParseError{
				Line:   def.Line,
				TermID: def.ID,
				Msg:    fmt.Sprintf("conflicting definitions: name %q vs %q", t.Name, def.Name),
			}
		case t.Name == "":
			t.Name = def.Name
		}

		for _, parent := range def.IsA {
			if err := ValidateID(parent); err != nil {
				return nil, &ParseError{Line: def.Line, TermID: def.ID, Msg: fmt.Sprintf("is_a %s", err)}
			}
			if parent == def.ID || seenParent[def.ID][parent] {
				continue
			}
			seenParent[def.ID][parent] = true
			t.Parents = append(t.Parents, parent)
		}
	}

	// Parents are resolved only after all stanzas are in, so forward
	// references never create implicit terms.
	for _, id := range ont.Order {
		for _, parent := range ont.Terms[id].Parents {
			if _, ok := ont.Terms[parent]; ok {
				continue
			}
			ont.Terms[parent] = &Term{ID: parent, Implicit: true}
			ont.Order = append(ont.Order, parent)
		}
	}

	return ont, nil
}

// LoadDocument is Load over a parsed OBO document.
func LoadDocument(doc *Document) (*Ontology, error) {
	ont, err := Load(doc.Terms)
	if err != nil {
		return nil, err
	}
	ont.DataVersion = doc.DataVersion
	return ont, nil
}

// ValidateID checks that id has the PREFIX:LOCAL shape without whitespace.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty identifier")
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return fmt.Errorf("identifier %q contains whitespace", id)
	}
	prefix, local, ok := strings.Cut(id, ":")
	if !ok || prefix == "" || local == "" {
		return fmt.Errorf("identifier %q is not of the form PREFIX:LOCAL", id)
	}
	return nil
}
