package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addisoncrump/delegatord/internal/ast"
	"github.com/addisoncrump/delegatord/internal/hash"
)

func TestParseS1AdminExit(t *testing.T) {
	prog, err := Parse("as principal admin password \"admin\" do\nexit\n***\n")
	require.NoError(t, err)
	assert.Equal(t, "admin", prog.Principal)
	assert.Equal(t, hash.Sum("admin"), prog.PasswordHash)
	assert.Empty(t, prog.Commands)
	_, isExit := prog.Terminator.(*ast.Exit)
	assert.True(t, isExit)
}

func TestParseS2SetDelegateReturn(t *testing.T) {
	src := "as principal admin password \"admin\" do\n" +
		"create principal bob \"B0BPWxxd\"\n" +
		"set x = \"my string\"\n" +
		"set y = { f1 = x, f2 = \"field2\" }\n" +
		"set delegation x admin read -> bob\n" +
		"return y.f1\n" +
		"***\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Commands, 4)

	_, ok := prog.Commands[0].(*ast.CreatePrincipal)
	assert.True(t, ok)

	set1, ok := prog.Commands[1].(*ast.Assignment)
	require.True(t, ok)
	assert.Equal(t, "x", set1.Variable.Name)
	lit, ok := set1.Expr.(*ast.StringLiteral)
	require.True(t, ok)
	assert.Equal(t, "my string", lit.Value)

	set2, ok := prog.Commands[2].(*ast.Assignment)
	require.True(t, ok)
	rec, ok := set2.Expr.(*ast.RecordLiteral)
	require.True(t, ok)
	require.Len(t, rec.Fields, 2)
	assert.Equal(t, "f1", rec.Fields[0].Name)

	deleg, ok := prog.Commands[3].(*ast.SetDelegation)
	require.True(t, ok)
	assert.Equal(t, "x", deleg.Target.Variable)
	assert.False(t, deleg.Target.All)
	assert.Equal(t, "admin", deleg.Delegator)
	assert.Equal(t, ast.Read, deleg.Right)
	assert.Equal(t, "bob", deleg.Delegatee)

	ret, ok := prog.Terminator.(*ast.Return)
	require.True(t, ok)
	ref, ok := ret.Expr.(*ast.VarRef)
	require.True(t, ok)
	assert.Equal(t, ast.Variable{Name: "y", Field: "f1"}, ref.Variable)
}

func TestParseAppendAndForeachAndDefaultDelegator(t *testing.T) {
	src := "as principal admin password \"admin\" do\n" +
		"set records = []\n" +
		"append to records with { name = \"mike\", date = \"1-1-90\" }\n" +
		"local names = records\n" +
		"foreach rec in names replacewith rec.name\n" +
		"default delegator = records\n" +
		"return names\n" +
		"***\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Commands, 5)

	_, ok := prog.Commands[0].(*ast.Assignment)
	assert.True(t, ok)
	app, ok := prog.Commands[1].(*ast.AppendCommand)
	require.True(t, ok)
	assert.Equal(t, "records", app.Variable.Name)
	_, ok = prog.Commands[2].(*ast.LocalAssignment)
	assert.True(t, ok)
	fe, ok := prog.Commands[3].(*ast.ForEach)
	require.True(t, ok)
	assert.Equal(t, "rec", fe.LoopVar)
	assert.Equal(t, "names", fe.List)
	dd, ok := prog.Commands[4].(*ast.DefaultDelegator)
	require.True(t, ok)
	assert.Equal(t, "records", dd.Name)
}

func TestParseRejectsKeywordAsIdentifier(t *testing.T) {
	_, err := Parse("as principal read password \"admin\" do\nexit\n***\n")
	require.Error(t, err)
}

func TestParseRejectsMissingSentinel(t *testing.T) {
	_, err := Parse("as principal admin password \"admin\" do\nexit\n")
	require.Error(t, err)
}

func TestParseAllowsTrailingCommentsAfterSentinel(t *testing.T) {
	_, err := Parse("as principal admin password \"admin\" do\nexit\n***\n// trailer\n")
	require.NoError(t, err)
}

func TestParseRejectsContentAfterSentinel(t *testing.T) {
	_, err := Parse("as principal admin password \"admin\" do\nexit\n***\nexit\n")
	require.Error(t, err)
}

func TestParseDeleteDelegationAllTarget(t *testing.T) {
	src := "as principal admin password \"admin\" do\n" +
		"delete delegation all admin write -> bob\n" +
		"exit\n***\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	del, ok := prog.Commands[0].(*ast.DeleteDelegation)
	require.True(t, ok)
	assert.True(t, del.Target.All)
	assert.Equal(t, ast.Write, del.Right)
}
