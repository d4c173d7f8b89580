// Package ast defines the value types and program representation produced
// by the parser: the data that flows from a parsed program into the
// interpreter.
package ast

import "github.com/addisoncrump/delegatord/internal/hash"

// Right is one of the four privileges a principal can hold on a variable.
type Right int

const (
	Read Right = iota
	Write
	Append
	Delegate
)

func (r Right) String() string {
	switch r {
	case Read:
		return "read"
	case Write:
		return "write"
	case Append:
		return "append"
	case Delegate:
		return "delegate"
	default:
		return "unknown"
	}
}

// Target names what a delegation edge grants a right on: either a single
// variable or the All sentinel. All only ever appears during edge creation
// (delegate/undelegate) — once stored on a principal, it has been expanded
// into one edge per variable it applied to.
type Target struct {
	All      bool
	Variable string
}

// Program is the root of a parsed submission: the authenticated header,
// the primitive commands to run in order, and the terminator.
type Program struct {
	Principal    string
	PasswordHash hash.Digest
	Commands     []Primitive
	Terminator   Terminator
}

// Primitive is one of the nine primitive commands a program body may
// contain. Each implementation corresponds to one line of the grammar in
// §4.2 of the spec.
type Primitive interface {
	primitiveNode()
}

// CreatePrincipal is `create principal p s`.
type CreatePrincipal struct {
	Name         string
	PasswordHash hash.Digest
}

func (*CreatePrincipal) primitiveNode() {}

// ChangePassword is `change password p s`.
type ChangePassword struct {
	Name         string
	PasswordHash hash.Digest
}

func (*ChangePassword) primitiveNode() {}

// Assignment is `set x = e` or `set x.y = e`.
type Assignment struct {
	Variable Variable
	Expr     Expr
}

func (*Assignment) primitiveNode() {}

// AppendCommand is `append to x with e`.
type AppendCommand struct {
	Variable Variable
	Expr     Expr
}

func (*AppendCommand) primitiveNode() {}

// LocalAssignment is `local x = e`.
type LocalAssignment struct {
	Name string
	Expr Expr
}

func (*LocalAssignment) primitiveNode() {}

// ForEach is `foreach y in x replacewith e`.
type ForEach struct {
	LoopVar string
	List    string
	Expr    Expr
}

func (*ForEach) primitiveNode() {}

// SetDelegation is `set delegation T q r -> p`.
type SetDelegation struct {
	Target    Target
	Delegator string
	Right     Right
	Delegatee string
}

func (*SetDelegation) primitiveNode() {}

// DeleteDelegation is `delete delegation T q r -> p`.
type DeleteDelegation struct {
	Target    Target
	Delegator string
	Right     Right
	Delegatee string
}

func (*DeleteDelegation) primitiveNode() {}

// DefaultDelegator is `default delegator = p`.
type DefaultDelegator struct {
	Name string
}

func (*DefaultDelegator) primitiveNode() {}

// Variable names an assignment/append target: a bare identifier or a
// `ident.ident` record-field reference.
type Variable struct {
	Name  string
	Field string // empty unless this is a member reference
}

func (v Variable) IsMember() bool { return v.Field != "" }

// Expr is the right-hand side of an assignment, append, local, or foreach
// body: a literal value, a variable reference, the empty list, or a
// record literal.
type Expr interface {
	exprNode()
}

// StringLiteral is a quoted string in source.
type StringLiteral struct {
	Value string
}

func (*StringLiteral) exprNode() {}

// VarRef is a bare identifier or `ident.ident` reference.
type VarRef struct {
	Variable Variable
}

func (*VarRef) exprNode() {}

// EmptyList is the `[]` literal. It is the only list-producing syntax in
// the grammar — there is no literal for a non-empty list.
type EmptyList struct{}

func (*EmptyList) exprNode() {}

// FieldAssign is one `ident = v` pair inside a record literal.
type FieldAssign struct {
	Name  string
	Value Expr
}

// RecordLiteral is `{ ident = v, ident = v, ... }`. Each value must be a
// StringLiteral or VarRef (never EmptyList/RecordLiteral) and field names
// must be unique; both are verified at evaluation time, not parse time.
type RecordLiteral struct {
	Fields []FieldAssign
}

func (*RecordLiteral) exprNode() {}

// Terminator is the final `exit` or `return e` of a program.
type Terminator interface {
	terminatorNode()
}

// Exit is the `exit` terminator.
type Exit struct{}

func (*Exit) terminatorNode() {}

// Return is the `return e` terminator.
type Return struct {
	Expr Expr
}

func (*Return) terminatorNode() {}
