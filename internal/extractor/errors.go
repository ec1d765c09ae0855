package extractor

import "fmt"

// ParseError reports source that the grammar could not parse. It is fatal
// for a build: no artifact is produced from a tree with syntax errors.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Near   string
}

func (e *ParseError) Error() string {
	if e.Near != "" {
		return fmt.Sprintf("syntax error in %s:%d:%d near %q", e.Path, e.Line, e.Column, e.Near)
	}
	return fmt.Sprintf("syntax error in %s:%d:%d", e.Path, e.Line, e.Column)
}

// IOError wraps a failure to read the entry script or a discovered module.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
