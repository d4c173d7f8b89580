// Package status defines the wire-visible outcome of a program: the
// per-primitive status log a client receives over the connection. This is
// the only thing a client ever observes — internal diagnostics (parse error
// detail, stack traces) never reach this type.
package status

import (
	"encoding/json"

	"github.com/addisoncrump/delegatord/internal/ast"
)

// Status is one of the thirteen wire status values.
type Status string

const (
	CreatePrincipal  Status = "CREATE_PRINCIPAL"
	ChangePassword   Status = "CHANGE_PASSWORD"
	Set              Status = "SET"
	Append           Status = "APPEND"
	Local            Status = "LOCAL"
	ForEach          Status = "FOREACH"
	SetDelegation    Status = "SET_DELEGATION"
	DeleteDelegation Status = "DELETE_DELEGATION"
	DefaultDelegator Status = "DEFAULT_DELEGATOR"
	Denied           Status = "DENIED"
	Failed           Status = "FAILED"
	Returning        Status = "RETURNING"
	Exiting          Status = "EXITING"
)

// Entry is one line of the reply stream: one status, and — only for
// Returning — the evaluated output value.
type Entry struct {
	Status Status
	Output ast.Value // nil unless Status == Returning
}

// wireEntry is Entry's JSON shape: status always present, output omitted
// unless set.
type wireEntry struct {
	Status Status     `json:"status"`
	Output *ast.Value `json:"output,omitempty"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	w := wireEntry{Status: e.Status}
	if e.Status == Returning {
		w.Output = &e.Output
	}
	return json.Marshal(w)
}

// DeniedEntry is the canonical single-entry abort log for an authorization
// failure.
func DeniedEntry() Entry { return Entry{Status: Denied} }

// FailedEntry is the canonical single-entry abort log for a malformed or
// non-existent-entity failure.
func FailedEntry() Entry { return Entry{Status: Failed} }
