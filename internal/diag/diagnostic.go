package diag

import "kiln/internal/source"

// Note is a secondary annotation on a diagnostic, pointing at a related
// span (e.g. where a captured thread-local static was declared).
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one user-facing finding: a severity, a stable code for
// tooling, the message, and the primary span it points at.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}
