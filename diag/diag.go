// Package diag defines the diagnostic sink the compiler and the lift layer
// report through: unknown tags, preserved-but-unknown binary fields, and
// other non-fatal conditions that should reach the caller without aborting
// the whole operation.
package diag

import (
	"fmt"
	"log"
	"os"
)

// Severity classifies a Diagnostic. Trace is used for preserved-but-unknown
// binary fields; the rest follow the usual meaning.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityTrace
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityTrace:
		return "trace"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Diagnostic is one reported condition, optionally located in source text.
type Diagnostic struct {
	Severity Severity
	Message  string
	Line     int // 1-based; 0 if not applicable
	Col      int // 1-based; 0 if not applicable
}

func (d Diagnostic) String() string {
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", d.Severity, d.Line, d.Col, d.Message)
}

// Sink receives diagnostics as they are produced. Implementations must be
// safe to call repeatedly during a single Compile/Decompile call; they need
// not be safe for concurrent use by multiple calls.
type Sink interface {
	Report(Diagnostic)
}

// Collector is a Sink that simply accumulates every Diagnostic it receives,
// for callers that want to inspect them after the fact (e.g. tests).
type Collector struct {
	Diagnostics []Diagnostic
}

func (c *Collector) Report(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// StdLogger adapts the standard library's log.Logger into a Sink. It is the
// default used by the CLI.
type StdLogger struct {
	*log.Logger
}

// NewStdLogger returns a StdLogger writing to os.Stderr with no timestamp
// prefix (diagnostics already carry their own line/col location).
func NewStdLogger() *StdLogger {
	return &StdLogger{Logger: log.New(os.Stderr, "", 0)}
}

func (s *StdLogger) Report(d Diagnostic) {
	s.Logger.Println(d.String())
}
