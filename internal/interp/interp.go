// Package interp executes a parsed ast.Program against a Database snapshot,
// producing the per-primitive status log described in §4.3/§6 of the
// design. The caller (internal/dispatch) owns cloning the Database before
// the call and installing it after — Run only ever mutates the Database
// passed to it.
package interp

import (
	"github.com/addisoncrump/delegatord/internal/ast"
	"github.com/addisoncrump/delegatord/internal/invariant"
	"github.com/addisoncrump/delegatord/internal/status"
	"github.com/addisoncrump/delegatord/internal/store"
)

// Run evaluates prog against db. db is mutated in place as primitives
// succeed; the caller must discard it unless committed is true. exit
// reports whether the program's terminator was a successful admin `exit`,
// which the server uses to end the process after flushing the reply.
func Run(db *store.Database, prog *ast.Program) (log []status.Entry, committed bool, exit bool) {
	switch db.CheckPassword(prog.Principal, prog.PasswordHash) {
	case store.Denied:
		return []status.Entry{status.DeniedEntry()}, false, false
	case store.Failed:
		return []status.Entry{status.FailedEntry()}, false, false
	}

	locals := make(map[string]ast.Value)
	for _, cmd := range prog.Commands {
		entry := execPrimitive(db, locals, prog.Principal, cmd)
		log = append(log, entry)
		if entry.Status == status.Denied || entry.Status == status.Failed {
			return []status.Entry{entry}, false, false
		}
	}

	term, ok := execTerminator(db, locals, prog.Principal, prog.Terminator)
	log = append(log, term)
	if !ok {
		return []status.Entry{term}, false, false
	}
	return log, true, term.Status == status.Exiting
}

func resultEntry(r store.Result, s status.Status) status.Entry {
	switch r {
	case store.Success:
		return status.Entry{Status: s}
	case store.Denied:
		return status.DeniedEntry()
	default:
		return status.FailedEntry()
	}
}

func entryFromEvalResult(r store.Result) status.Entry {
	if r == store.Denied {
		return status.DeniedEntry()
	}
	return status.FailedEntry()
}

func execPrimitive(db *store.Database, locals map[string]ast.Value, principal string, cmd ast.Primitive) status.Entry {
	switch c := cmd.(type) {
	case *ast.CreatePrincipal:
		return resultEntry(db.CreatePrincipal(principal, c.Name, c.PasswordHash), status.CreatePrincipal)
	case *ast.ChangePassword:
		return resultEntry(db.ChangePassword(principal, c.Name, c.PasswordHash), status.ChangePassword)
	case *ast.Assignment:
		return execAssignment(db, locals, principal, c)
	case *ast.AppendCommand:
		return execAppend(db, locals, principal, c)
	case *ast.LocalAssignment:
		return execLocalAssignment(db, locals, principal, c)
	case *ast.ForEach:
		return execForEach(db, locals, principal, c)
	case *ast.SetDelegation:
		return resultEntry(db.Delegate(principal, c.Target, c.Delegator, c.Right, c.Delegatee), status.SetDelegation)
	case *ast.DeleteDelegation:
		return resultEntry(db.Undelegate(principal, c.Target, c.Delegator, c.Right, c.Delegatee), status.DeleteDelegation)
	case *ast.DefaultDelegator:
		return resultEntry(db.SetDefaultDelegator(principal, c.Name), status.DefaultDelegator)
	default:
		invariant.Invariant(false, "unknown primitive node %T", cmd)
		return status.FailedEntry()
	}
}

func execAssignment(db *store.Database, locals map[string]ast.Value, principal string, c *ast.Assignment) status.Entry {
	if c.Variable.IsMember() {
		val, r := evalExpr(db, locals, principal, c.Expr)
		if r != store.Success {
			return entryFromEvalResult(r)
		}
		imm, ok := val.(ast.Immediate)
		if !ok {
			return status.FailedEntry()
		}
		if rec, isLocal := locals[c.Variable.Name].(ast.Record); isLocal {
			if _, exists := rec[c.Variable.Field]; !exists {
				return status.FailedEntry()
			}
			rec[c.Variable.Field] = string(imm)
			return status.Entry{Status: status.Set}
		}
		return resultEntry(db.SetMember(principal, c.Variable.Name, c.Variable.Field, string(imm)), status.Set)
	}

	val, r := evalExpr(db, locals, principal, c.Expr)
	if r != store.Success {
		return entryFromEvalResult(r)
	}
	if _, isLocal := locals[c.Variable.Name]; isLocal {
		locals[c.Variable.Name] = val
		return status.Entry{Status: status.Set}
	}
	return resultEntry(db.Set(principal, c.Variable.Name, val), status.Set)
}

// execAppend enforces the list/non-list append ambiguity policy: a List
// value reaches Database.Append only when the source expression was
// literally `[]` — the grammar has no other list-producing syntax, so any
// other expression that happens to evaluate to a List (e.g. a variable
// reference) is rejected here rather than silently concatenated.
func execAppend(db *store.Database, locals map[string]ast.Value, principal string, c *ast.AppendCommand) status.Entry {
	val, r := evalExpr(db, locals, principal, c.Expr)
	if r != store.Success {
		return entryFromEvalResult(r)
	}
	if _, isList := val.(ast.List); isList {
		if _, literal := c.Expr.(*ast.EmptyList); !literal {
			return status.FailedEntry()
		}
	}

	if cur, isLocal := locals[c.Variable.Name]; isLocal {
		list, ok := cur.(ast.List)
		if !ok {
			return status.FailedEntry()
		}
		if sub, ok := val.(ast.List); ok {
			list = append(list, sub...)
		} else {
			list = append(list, val)
		}
		locals[c.Variable.Name] = list
		return status.Entry{Status: status.Append}
	}
	return resultEntry(db.Append(principal, c.Variable.Name, val), status.Append)
}

func execLocalAssignment(db *store.Database, locals map[string]ast.Value, principal string, c *ast.LocalAssignment) status.Entry {
	if _, isLocal := locals[c.Name]; isLocal {
		return status.FailedEntry()
	}
	if db.Contains(c.Name) {
		return status.FailedEntry()
	}
	val, r := evalExpr(db, locals, principal, c.Expr)
	if r != store.Success {
		return entryFromEvalResult(r)
	}
	locals[c.Name] = val
	return status.Entry{Status: status.Local}
}

func execForEach(db *store.Database, locals map[string]ast.Value, principal string, c *ast.ForEach) status.Entry {
	if _, isLocal := locals[c.LoopVar]; isLocal {
		return status.FailedEntry()
	}
	if db.Contains(c.LoopVar) {
		return status.FailedEntry()
	}

	listVal, r := lookupBase(db, locals, principal, c.List)
	if r != store.Success {
		return entryFromEvalResult(r)
	}
	list, ok := listVal.(ast.List)
	if !ok {
		return status.FailedEntry()
	}

	results := make(ast.List, len(list))
	for i, elem := range list {
		iterLocals := make(map[string]ast.Value, len(locals)+1)
		for k, v := range locals {
			iterLocals[k] = v
		}
		iterLocals[c.LoopVar] = elem

		val, r := evalExpr(db, iterLocals, principal, c.Expr)
		if r != store.Success {
			return entryFromEvalResult(r)
		}
		if _, isList := val.(ast.List); isList {
			return status.FailedEntry()
		}
		results[i] = val
	}

	if _, isLocal := locals[c.List]; isLocal {
		locals[c.List] = results
		return status.Entry{Status: status.ForEach}
	}
	return resultEntry(db.Set(principal, c.List, results), status.ForEach)
}

func execTerminator(db *store.Database, locals map[string]ast.Value, principal string, term ast.Terminator) (status.Entry, bool) {
	switch t := term.(type) {
	case *ast.Exit:
		if principal != "admin" {
			return status.DeniedEntry(), false
		}
		return status.Entry{Status: status.Exiting}, true
	case *ast.Return:
		val, r := evalExpr(db, locals, principal, t.Expr)
		if r != store.Success {
			return entryFromEvalResult(r), false
		}
		return status.Entry{Status: status.Returning, Output: val}, true
	default:
		invariant.Invariant(false, "unknown terminator node %T", term)
		return status.FailedEntry(), false
	}
}

func evalExpr(db *store.Database, locals map[string]ast.Value, principal string, e ast.Expr) (ast.Value, store.Result) {
	switch x := e.(type) {
	case *ast.StringLiteral:
		return ast.Immediate(x.Value), store.Success
	case *ast.EmptyList:
		return ast.List{}, store.Success
	case *ast.VarRef:
		return evalVarRef(db, locals, principal, x.Variable)
	case *ast.RecordLiteral:
		return evalRecordLiteral(db, locals, principal, x)
	default:
		invariant.Invariant(false, "unknown expression node %T", e)
		return nil, store.Failed
	}
}

func evalVarRef(db *store.Database, locals map[string]ast.Value, principal string, v ast.Variable) (ast.Value, store.Result) {
	base, r := lookupBase(db, locals, principal, v.Name)
	if r != store.Success {
		return nil, r
	}
	if !v.IsMember() {
		return base, store.Success
	}
	rec, ok := base.(ast.Record)
	if !ok {
		return nil, store.Failed
	}
	val, ok := rec[v.Field]
	if !ok {
		return nil, store.Failed
	}
	return ast.Immediate(val), store.Success
}

// lookupBase resolves a bare name: locals first, then the global namespace
// with a Read authorization check.
func lookupBase(db *store.Database, locals map[string]ast.Value, principal, name string) (ast.Value, store.Result) {
	if v, ok := locals[name]; ok {
		return v, store.Success
	}
	return db.Get(principal, name)
}

func evalRecordLiteral(db *store.Database, locals map[string]ast.Value, principal string, rl *ast.RecordLiteral) (ast.Value, store.Result) {
	rec := make(ast.Record, len(rl.Fields))
	for _, f := range rl.Fields {
		if _, dup := rec[f.Name]; dup {
			return nil, store.Failed
		}
		val, r := evalExpr(db, locals, principal, f.Value)
		if r != store.Success {
			return nil, r
		}
		imm, ok := val.(ast.Immediate)
		if !ok {
			return nil, store.Failed
		}
		rec[f.Name] = string(imm)
	}
	return rec, store.Success
}
