package compose

import "fmt"

// ManifestError describes a fatal problem with a compose manifest. The
// transformation that produced it must be treated as failed wholesale; no
// partially rewritten document is safe to launch.
type ManifestError struct {
	Service string // offending service, empty for document-level problems
	Field   string // offending field within the service, may be empty
	Msg     string
}

func (e *ManifestError) Error() string {
	switch {
	case e.Service != "" && e.Field != "":
		return fmt.Sprintf("service %q: field %q: %s", e.Service, e.Field, e.Msg)
	case e.Service != "":
		return fmt.Sprintf("service %q: %s", e.Service, e.Msg)
	default:
		return fmt.Sprintf("manifest: %s", e.Msg)
	}
}

// manifestErrorf builds a ManifestError with a formatted message.
func manifestErrorf(service, field, format string, args ...any) *ManifestError {
	return &ManifestError{Service: service, Field: field, Msg: fmt.Sprintf(format, args...)}
}
