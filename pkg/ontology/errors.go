package ontology

import "fmt"

// ParseError reports malformed ontology input.
type ParseError struct {
	Source string // file name, may be empty
	Line   int    // 1-based, 0 when not tied to a line
	TermID string
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	where := e.Source
	if e.Line > 0 {
		if where != "" {
			where += ":"
		}
		where += fmt.Sprintf("%d", e.Line)
	}
	msg := e.Msg
	if e.TermID != "" {
		msg = fmt.Sprintf("term %s: %s", e.TermID, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if where == "" {
		return "ontology: " + msg
	}
	return fmt.Sprintf("ontology %s: %s", where, msg)
}

func (e *ParseError) Unwrap() error { return e.Err }
