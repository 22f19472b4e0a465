package ontology

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const scannerBufferSize = 1 << 20 // 1 MB

// ParseOBOFile opens path (optionally gzip compressed) and parses it.
func ParseOBOFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ontology: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, &ParseError{Source: path, Msg: "invalid gzip stream", Err: err}
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	doc, err := ParseOBO(r)
	var perr *ParseError
	if errors.As(err, &perr) {
		perr.Source = path
	}
	return doc, err
}

// ParseOBO parses an OBO 1.2/1.4 document. Only [Term] stanzas are kept.
func ParseOBO(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scannerBufferSize), scannerBufferSize)

	doc := &Document{Terms: []TermDef{}}

	var (
		lineNo int
		stanza string // "" while in the header
		term   *TermDef
		flush  = func() error {
			if term == nil {
				return nil
			}
			if term.ID == "" {
				return &ParseError{Line: term.Line, Msg: "[Term] stanza without id"}
			}
			doc.Terms = append(doc.Terms, *term)
			term = nil
			return nil
		}
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '!' {
			continue
		}

		if line[0] == '[' {
			if err := flush(); err != nil {
				return nil, err
			}
			if !strings.HasSuffix(line, "]") {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("malformed stanza header %q", line)}
			}
			stanza = line
			if stanza == "[Term]" {
				term = &TermDef{Line: lineNo}
			}
			continue
		}

		tag, val, ok := strings.Cut(line, ":")
		if !ok || tag == "" || strings.ContainsAny(tag, " \t") {
			return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("expected tag: value, got %q", line)}
		}
		val = strings.TrimSpace(val)

		switch {
		case stanza == "":
			parseHeaderLine(doc, tag, val)
		case term != nil:
			if err := parseTermLine(term, tag, val); err != nil {
				return nil, &ParseError{Line: lineNo, TermID: term.ID, Msg: err.Error()}
			}
		}
		// Tags of other stanza types are skipped
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: lineNo, Msg: "reading input", Err: err}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return doc, nil
}

func parseHeaderLine(doc *Document, tag, val string) {
	switch tag {
	case "format-version":
		doc.FormatVersion = val
	case "data-version":
		doc.DataVersion = val
	case "ontology":
		doc.Ontology = val
	}
}

func parseTermLine(t *TermDef, tag, val string) error {
	switch tag {
	case "id":
		if t.ID != "" {
			return fmt.Errorf("duplicate id tag %q", val)
		}
		t.ID = stripComment(val)
	case "name":
		t.Name = val
	case "namespace":
		t.Namespace = val
	case "alt_id":
		t.AltIDs = append(t.AltIDs, stripComment(val))
	case "is_a":
		target := stripComment(val)
		if target == "" {
			return fmt.Errorf("empty is_a")
		}
		t.IsA = append(t.IsA, target)
	case "relationship":
		fields := strings.Fields(stripComment(val))
		if len(fields) < 2 {
			return fmt.Errorf("malformed relationship %q", val)
		}
		t.Relationships = append(t.Relationships, Relationship{Type: fields[0], TargetID: fields[1]})
	case "is_obsolete":
		t.IsObsolete = val == "true"
	}
	return nil
}

// stripComment removes trailing "! comment" and "{modifier}" parts of a value.
func stripComment(val string) string {
	if i := strings.Index(val, " !"); i >= 0 {
		val = val[:i]
	}
	if i := strings.Index(val, " {"); i >= 0 {
		val = val[:i]
	}
	return strings.TrimSpace(val)
}
