// Package diagnostics defines the coded errors surfaced by the engine.
// Every failure is a static defect in the program being compiled, never a
// transient condition, so none of these are retryable.
package diagnostics

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

// Code identifies one diagnostic kind.
type Code string

const (
	DuplicateClass       Code = "DuplicateClass"
	DuplicateData        Code = "DuplicateData"
	UnknownClass         Code = "UnknownClass"
	UnknownMethod        Code = "UnknownMethod"
	ArityMismatch        Code = "ArityMismatch"
	MissingMethod        Code = "MissingMethod"
	OverlappingInstance  Code = "OverlappingInstance"
	AmbiguousInstance    Code = "AmbiguousInstance"
	UnresolvableDefaults Code = "UnresolvableDefaults"
	MissingFieldInstance Code = "MissingFieldInstance"
	NoInstance           Code = "NoInstance"
)

// Diagnostic is a single coded failure with enough structure for the
// pipeline's error-reporting layer: the offending class, the type head(s),
// and, for default cycles, the full cycle in order.
type Diagnostic struct {
	Code    Code
	Message string
	Class   string
	Heads   []string // rendered type heads, one per class parameter
	Cycle   []string // method names, for UnresolvableDefaults
	Unit    string   // originating compilation unit, when known
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// Is lets errors.Is match a diagnostic against a bare code sentinel.
func (d *Diagnostic) Is(target error) bool {
	t, ok := target.(*Diagnostic)
	if !ok {
		return false
	}
	return t.Code == d.Code && (t.Message == "" || t.Message == d.Message)
}

// SortKey orders diagnostics deterministically: class name, then heads, then
// message. Arrival order never leaks into reports.
func (d *Diagnostic) SortKey() string {
	return d.Class + "\x00" + strings.Join(d.Heads, ",") + "\x00" + d.Message
}

// New builds a diagnostic with a formatted message.
func New(code Code, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the diagnostic code from err, unwrapping as needed.
func CodeOf(err error) (Code, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Code, true
	}
	return "", false
}

// HasCode reports whether err carries the given code anywhere in its chain,
// including inside combined batches.
func HasCode(err error, code Code) bool {
	return errors.Is(err, &Diagnostic{Code: code})
}

// Sort orders a batch by SortKey in place.
func Sort(diags []*Diagnostic) {
	sort.Slice(diags, func(i, j int) bool {
		return diags[i].SortKey() < diags[j].SortKey()
	})
}

// Combine folds a sorted batch into one error (nil when empty).
func Combine(diags []*Diagnostic) error {
	var err error
	for _, d := range diags {
		err = multierr.Append(err, d)
	}
	return err
}

// FromError collects every Diagnostic inside a (possibly combined) error.
func FromError(err error) []*Diagnostic {
	var out []*Diagnostic
	for _, e := range multierr.Errors(err) {
		var d *Diagnostic
		if errors.As(e, &d) {
			out = append(out, d)
		}
	}
	return out
}
