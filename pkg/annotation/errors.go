package annotation

import "fmt"

// ParseError reports a malformed annotation table row or header.
type ParseError struct {
	Source string
	Line   int
	Column string
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	where := e.Source
	switch {
	case e.Line > 0 && where != "":
		where = fmt.Sprintf("%s:%d", where, e.Line)
	case e.Line > 0:
		where = fmt.Sprintf("line %d", e.Line)
	case where == "":
		where = "input"
	}
	msg := e.Msg
	if e.Column != "" {
		msg = fmt.Sprintf("column %s: %s", e.Column, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("annotation table %s: %s", where, msg)
}

func (e *ParseError) Unwrap() error { return e.Err }
