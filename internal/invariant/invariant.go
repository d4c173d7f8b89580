// Package invariant provides panic-on-violation contract assertions for the
// Database's internal consistency checks. These guard against programming
// errors in this server, never against client-supplied bad input — a
// malformed program is always reported as Denied or Failed, not a panic.
package invariant

import (
	"fmt"
	"runtime"
)

// Precondition panics if condition is false. Use at function entry to check
// caller-supplied arguments that should already be valid by construction.
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition panics if condition is false. Use before returning to check
// a guarantee this function is supposed to uphold.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant panics if condition is false. Use mid-function for structural
// consistency checks (e.g. admin/anyone still present, names still unique).
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

func fail(kind, format string, args ...interface{}) {
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]interface{}{kind}, args...)...)
	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}
	panic(msg)
}
