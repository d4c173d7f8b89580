// Package store implements the Database: the authoritative in-memory
// principal/variable map and the reachability-based authorization walk that
// every primitive operation is checked against. Grounded on the original
// system's build/database/src/lib.rs, with the List-of-Value correction and
// anyone-union reachability walk from the design notes applied.
package store

import (
	"github.com/addisoncrump/delegatord/internal/ast"
	"github.com/addisoncrump/delegatord/internal/hash"
	"github.com/addisoncrump/delegatord/internal/invariant"
)

const (
	admin  = "admin"
	anyone = "anyone"
)

type kind int

const (
	kindAdmin kind = iota
	kindAnyone
	kindUser
)

// edge is a delegation `(variable, right, delegator)` attached to whichever
// principal holds it (the delegatee). Target.All is never stored directly —
// by the time an edge reaches this slice it has been expanded to a concrete
// variable, one edge per variable the grant applied to.
type edge struct {
	variable  string
	right     ast.Right
	delegator string
}

type principal struct {
	name         string
	kind         kind
	passwordHash hash.Digest
	edges        []edge
}

// Database is the full mutable state of the server: principals, global
// variables, and the current default delegator. The Interpreter never
// mutates a live Database directly — it works on a Clone and the Dispatcher
// installs the result only on success.
type Database struct {
	principals       map[string]*principal
	variables        map[string]ast.Value
	defaultDelegator string
}

// New creates a fresh Database with only admin (seeded with adminHash) and
// anyone present, and admin as the initial default delegator.
func New(adminHash hash.Digest) *Database {
	d := &Database{
		principals:       make(map[string]*principal),
		variables:        make(map[string]ast.Value),
		defaultDelegator: admin,
	}
	d.principals[admin] = &principal{name: admin, kind: kindAdmin, passwordHash: adminHash}
	d.principals[anyone] = &principal{name: anyone, kind: kindAnyone}
	return d
}

// Clone deep-copies the Database for the Interpreter's snapshot-commit
// discipline: mutating the clone must never be visible through the
// original.
func (d *Database) Clone() *Database {
	invariant.Invariant(d.principals[admin] != nil && d.principals[anyone] != nil,
		"admin and anyone must be present before cloning")

	c := &Database{
		principals:       make(map[string]*principal, len(d.principals)),
		variables:        make(map[string]ast.Value, len(d.variables)),
		defaultDelegator: d.defaultDelegator,
	}
	for name, p := range d.principals {
		edges := make([]edge, len(p.edges))
		copy(edges, p.edges)
		c.principals[name] = &principal{name: p.name, kind: p.kind, passwordHash: p.passwordHash, edges: edges}
	}
	for name, v := range d.variables {
		c.variables[name] = cloneValue(v)
	}

	invariant.Postcondition(c.principals[admin] != nil && c.principals[anyone] != nil,
		"admin and anyone must survive cloning")
	return c
}

func cloneValue(v ast.Value) ast.Value {
	switch t := v.(type) {
	case ast.List:
		out := make(ast.List, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case ast.Record:
		out := make(ast.Record, len(t))
		for k, f := range t {
			out[k] = f
		}
		return out
	default:
		return v
	}
}

// CheckPassword reports whether hash matches the stored digest for
// principalName. anyone can never authenticate.
func (d *Database) CheckPassword(principalName string, digest hash.Digest) Result {
	p, ok := d.principals[principalName]
	if !ok {
		return Failed
	}
	if p.kind == kindAnyone {
		return Denied
	}
	if p.passwordHash != digest {
		return Denied
	}
	return Success
}

// CreatePrincipal creates a new user principal and delegates all four
// rights on every currently-existing variable from the current default
// delegator, per §3's lifecycle note: this is a snapshot of present
// variables, not a standing grant.
func (d *Database) CreatePrincipal(actor, name string, digest hash.Digest) Result {
	if actor != admin {
		return Denied
	}
	if _, exists := d.principals[name]; exists {
		return Failed
	}
	d.principals[name] = &principal{name: name, kind: kindUser, passwordHash: digest}

	for _, r := range allRights {
		res := d.Delegate(admin, ast.Target{All: true}, d.defaultDelegator, r, name)
		invariant.Invariant(res == Success, "default-delegator grant to a fresh principal must succeed")
	}
	return Success
}

var allRights = []ast.Right{ast.Read, ast.Write, ast.Append, ast.Delegate}

func (d *Database) ChangePassword(actor, name string, digest hash.Digest) Result {
	p, ok := d.principals[name]
	if !ok || p.kind == kindAnyone {
		return Failed
	}
	if actor != admin && actor != name {
		return Denied
	}
	p.passwordHash = digest
	return Success
}

func (d *Database) SetDefaultDelegator(actor, name string) Result {
	if actor != admin {
		return Denied
	}
	if _, ok := d.principals[name]; !ok {
		return Failed
	}
	d.defaultDelegator = name
	return Success
}

// Set assigns a global variable. A fresh variable belongs to its creator
// (all four rights granted from admin), per §3's lifecycle note.
func (d *Database) Set(actor, variable string, value ast.Value) Result {
	if _, exists := d.variables[variable]; !exists {
		d.variables[variable] = value
		if actor != admin {
			for _, r := range allRights {
				res := d.Delegate(admin, ast.Target{Variable: variable}, admin, r, actor)
				invariant.Invariant(res == Success, "creator grant on a fresh variable must succeed")
			}
		}
		return Success
	}
	if !d.CheckRight(variable, ast.Write, actor) {
		return Denied
	}
	d.variables[variable] = value
	return Success
}

func (d *Database) SetMember(actor, variable, field, value string) Result {
	v, exists := d.variables[variable]
	if !exists {
		return Failed
	}
	rec, ok := v.(ast.Record)
	if !ok {
		return Failed
	}
	if _, ok := rec[field]; !ok {
		return Failed
	}
	if !d.CheckRight(variable, ast.Write, actor) {
		return Denied
	}
	rec[field] = value
	return Success
}

// Append requires var to exist and be a List. When value is itself a List
// its elements are spread in (list-to-list concatenation); any other value
// is appended as a single element. The Interpreter is responsible for only
// ever passing a List value here when the source expression was literally
// `[]` — see internal/interp.
func (d *Database) Append(actor, variable string, value ast.Value) Result {
	v, exists := d.variables[variable]
	if !exists {
		return Failed
	}
	list, ok := v.(ast.List)
	if !ok {
		return Failed
	}
	if !d.CheckRight(variable, ast.Write, actor) && !d.CheckRight(variable, ast.Append, actor) {
		return Denied
	}
	if sub, ok := value.(ast.List); ok {
		list = append(list, sub...)
	} else {
		list = append(list, value)
	}
	d.variables[variable] = list
	return Success
}

func (d *Database) Get(actor, variable string) (ast.Value, Result) {
	v, exists := d.variables[variable]
	if !exists {
		return nil, Failed
	}
	if !d.CheckRight(variable, ast.Read, actor) {
		return nil, Denied
	}
	return v, Success
}

func (d *Database) Contains(variable string) bool {
	_, ok := d.variables[variable]
	return ok
}

// CheckRight answers "does principal hold right on variable?" via the
// anyone-union breadth-first reachability walk of §4.1: admin holds
// everything; otherwise the walk starts from the union of principal's and
// anyone's matching edges and follows delegators, terminating at admin
// (true) or an empty frontier (false). A visited-set of principal names
// makes delegation cycles safe.
func (d *Database) CheckRight(variable string, right ast.Right, principalName string) bool {
	if principalName == admin {
		return true
	}

	visited := map[string]bool{principalName: true, anyone: true}
	queue := []string{principalName}
	if principalName != anyone {
		queue = append(queue, anyone)
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		p, ok := d.principals[name]
		if !ok {
			continue
		}
		for _, e := range p.edges {
			if e.variable != variable || e.right != right {
				continue
			}
			if e.delegator == admin {
				return true
			}
			if !visited[e.delegator] {
				visited[e.delegator] = true
				queue = append(queue, e.delegator)
			}
		}
	}
	return false
}

// Delegate implements the algorithm of §4.1. The call-level authorization
// gate is actor == admin or actor == delegator; for a Variable target,
// delegator must additionally hold Delegate on it. A target of All has no
// blanket gate beyond that — each existing variable is checked and granted
// independently, silently skipping any the delegator lacks Delegate on, per
// the spec's explicit "silently skip" wording.
func (d *Database) Delegate(actor string, target ast.Target, delegator string, right ast.Right, delegatee string) Result {
	if _, ok := d.principals[delegator]; !ok {
		return Failed
	}
	if _, ok := d.principals[delegatee]; !ok {
		return Failed
	}
	if !target.All {
		if _, ok := d.variables[target.Variable]; !ok {
			return Failed
		}
	}

	if actor != admin && actor != delegator {
		return Denied
	}
	if actor == delegator && !target.All && !d.CheckRight(target.Variable, ast.Delegate, delegator) {
		return Denied
	}

	if delegatee == admin {
		return Success
	}

	if target.All {
		for v := range d.variables {
			if actor == admin || d.CheckRight(v, ast.Delegate, delegator) {
				d.addEdge(delegatee, v, right, delegator)
			}
		}
	} else {
		d.addEdge(delegatee, target.Variable, right, delegator)
	}
	return Success
}

// Undelegate implements the algorithm of §4.1: authorized for admin, the
// delegator, or the delegatee; a self-service delegator additionally needs
// Delegate on a Variable target. Removal for All is gated per-variable the
// same way Delegate's grant is.
func (d *Database) Undelegate(actor string, target ast.Target, delegator string, right ast.Right, delegatee string) Result {
	if _, ok := d.principals[delegator]; !ok {
		return Failed
	}
	if _, ok := d.principals[delegatee]; !ok {
		return Failed
	}

	if actor != admin && actor != delegator && actor != delegatee {
		return Denied
	}
	if actor == delegator && !target.All && !d.CheckRight(target.Variable, ast.Delegate, delegator) {
		return Denied
	}

	if delegatee == admin {
		return Success
	}

	p := d.principals[delegatee]
	kept := p.edges[:0:0]
	for _, e := range p.edges {
		if e.delegator != delegator || e.right != right {
			kept = append(kept, e)
			continue
		}
		if !target.All && e.variable != target.Variable {
			kept = append(kept, e)
			continue
		}
		if target.All && actor != admin && !d.CheckRight(e.variable, ast.Delegate, delegator) {
			kept = append(kept, e)
			continue
		}
		// else: drop e
	}
	p.edges = kept
	return Success
}

func (d *Database) addEdge(delegatee, variable string, right ast.Right, delegator string) {
	p := d.principals[delegatee]
	invariant.Precondition(p != nil, "addEdge: delegatee %q must exist", delegatee)
	invariant.Precondition(p.kind != kindAdmin, "addEdge: admin never holds stored edges")
	p.edges = append(p.edges, edge{variable: variable, right: right, delegator: delegator})
}
