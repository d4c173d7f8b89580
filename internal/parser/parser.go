// Package parser turns a token stream from internal/lexer into an
// internal/ast.Program via recursive descent. A parse error is always
// reported to the client as {status: FAILED} — the detail here is for logs
// only, per §4.3 of the design.
package parser

import (
	"log/slog"

	"github.com/addisoncrump/delegatord/internal/ast"
	"github.com/addisoncrump/delegatord/internal/hash"
	"github.com/addisoncrump/delegatord/internal/lexer"
)

// Parse lexes and parses a full program submission.
func Parse(input string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens, input: input}
	return p.parseProgram()
}

// Parser holds the token stream and a read cursor. It never backtracks.
type Parser struct {
	tokens []lexer.Token
	pos    int
	input  string
}

func (p *Parser) cur() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

// expectWord consumes an IDENT token whose value is exactly word.
func (p *Parser) expectWord(word string) error {
	t := p.cur()
	if t.Type != lexer.IDENT || t.Value != word {
		if t.Type == lexer.IDENT {
			if s := suggestKeyword(t.Value); s != "" && s != t.Value {
				slog.Debug("parser: unrecognized word, closest keyword found", "got", t.Value, "suggestion", s)
			}
		}
		return p.errf(t, "expected %q, got %s", word, describe(t))
	}
	p.advance()
	return nil
}

func (p *Parser) expect(typ lexer.Type) (lexer.Token, error) {
	t := p.cur()
	if t.Type != typ {
		return lexer.Token{}, p.errf(t, "expected %s, got %s", typ, describe(t))
	}
	return p.advance(), nil
}

func describe(t lexer.Token) string {
	if t.Type == lexer.IDENT || t.Type == lexer.STRING {
		return t.Type.String() + " " + quote(t.Value)
	}
	return t.Type.String()
}

func quote(s string) string {
	return "\"" + s + "\""
}

// expectIdent consumes an IDENT token and rejects reserved words.
func (p *Parser) expectIdent() (string, error) {
	t, err := p.expect(lexer.IDENT)
	if err != nil {
		return "", err
	}
	if lexer.IsKeyword(t.Value) {
		return "", p.errf(t, "%q is a reserved word and cannot be used as an identifier", t.Value)
	}
	return t.Value, nil
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	p.skipCommentLines()

	if err := p.expectWord("as"); err != nil {
		return nil, err
	}
	if err := p.expectWord("principal"); err != nil {
		return nil, err
	}
	principal, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("password"); err != nil {
		return nil, err
	}
	pwTok, err := p.expect(lexer.STRING)
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("do"); err != nil {
		return nil, err
	}
	if err := p.skipTrailingCommentAndNewline(); err != nil {
		return nil, err
	}

	p.skipCommentLines()

	var commands []ast.Primitive
	for !p.isTerminatorStart() {
		prim, err := p.parsePrimitive()
		if err != nil {
			return nil, err
		}
		commands = append(commands, prim)
		if err := p.skipTrailingCommentAndNewline(); err != nil {
			return nil, err
		}
	}

	term, err := p.parseTerminator()
	if err != nil {
		return nil, err
	}
	if err := p.skipTrailingCommentAndNewline(); err != nil {
		return nil, err
	}

	if _, err := p.expect(lexer.SENTINEL); err != nil {
		return nil, err
	}
	if err := p.skipTrailingCommentAndNewline(); err != nil {
		return nil, err
	}

	// Only comment lines may follow the sentinel.
	p.skipCommentLines()

	if t := p.cur(); t.Type != lexer.EOF {
		return nil, p.errf(t, "unexpected content after program terminator: %s", describe(t))
	}

	return &ast.Program{
		Principal:    principal,
		PasswordHash: hash.Sum(pwTok.Value),
		Commands:     commands,
		Terminator:   term,
	}, nil
}

// skipCommentLines consumes zero or more whole lines that are nothing but a
// comment, per the two "(comment \n)*" productions in the grammar.
func (p *Parser) skipCommentLines() {
	for p.cur().Type == lexer.COMMENT && p.peekIsNewlineAfterComment() {
		p.advance()
		p.advance() // NEWLINE
	}
}

func (p *Parser) peekIsNewlineAfterComment() bool {
	if p.pos+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.pos+1].Type == lexer.NEWLINE
}

// skipTrailingCommentAndNewline consumes an optional same-line comment then
// requires the newline that ends the current line.
func (p *Parser) skipTrailingCommentAndNewline() error {
	if p.cur().Type == lexer.COMMENT {
		p.advance()
	}
	_, err := p.expect(lexer.NEWLINE)
	return err
}

func (p *Parser) isTerminatorStart() bool {
	t := p.cur()
	return t.Type == lexer.IDENT && (t.Value == "exit" || t.Value == "return")
}

func (p *Parser) parseTerminator() (ast.Terminator, error) {
	t := p.cur()
	switch {
	case t.Type == lexer.IDENT && t.Value == "exit":
		p.advance()
		return &ast.Exit{}, nil
	case t.Type == lexer.IDENT && t.Value == "return":
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Return{Expr: expr}, nil
	default:
		return nil, p.errf(t, "expected \"exit\" or \"return\", got %s", describe(t))
	}
}

func (p *Parser) parsePrimitive() (ast.Primitive, error) {
	t := p.cur()
	if t.Type != lexer.IDENT {
		return nil, p.errf(t, "expected a command, got %s", describe(t))
	}

	switch t.Value {
	case "create":
		p.advance()
		if err := p.expectWord("principal"); err != nil {
			return nil, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		pw, err := p.expect(lexer.STRING)
		if err != nil {
			return nil, err
		}
		return &ast.CreatePrincipal{Name: name, PasswordHash: hash.Sum(pw.Value)}, nil

	case "change":
		p.advance()
		if err := p.expectWord("password"); err != nil {
			return nil, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		pw, err := p.expect(lexer.STRING)
		if err != nil {
			return nil, err
		}
		return &ast.ChangePassword{Name: name, PasswordHash: hash.Sum(pw.Value)}, nil

	case "set":
		p.advance()
		if p.cur().Type == lexer.IDENT && p.cur().Value == "delegation" {
			p.advance()
			return p.parseDelegationTail(false)
		}
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQUALS); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Assignment{Variable: variable, Expr: expr}, nil

	case "append":
		p.advance()
		if err := p.expectWord("to"); err != nil {
			return nil, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectWithWord(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.AppendCommand{Variable: ast.Variable{Name: name}, Expr: expr}, nil

	case "local":
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQUALS); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.LocalAssignment{Name: name, Expr: expr}, nil

	case "foreach":
		p.advance()
		loopVar, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectWord("in"); err != nil {
			return nil, err
		}
		list, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectWord("replacewith"); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ForEach{LoopVar: loopVar, List: list, Expr: expr}, nil

	case "delete":
		p.advance()
		if err := p.expectWord("delegation"); err != nil {
			return nil, err
		}
		return p.parseDelegationTail(true)

	case "default":
		p.advance()
		if err := p.expectWord("delegator"); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQUALS); err != nil {
			return nil, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &ast.DefaultDelegator{Name: name}, nil

	default:
		if s := suggestKeyword(t.Value); s != "" {
			slog.Debug("parser: unrecognized command, closest keyword found", "got", t.Value, "suggestion", s)
		}
		return nil, p.errf(t, "unrecognized command %q", t.Value)
	}
}

// expectWithWord consumes the structural "with" word used by append. It is
// not a reserved keyword, so it's matched by literal value as an IDENT
// token; unlike expectWord, it logs no keyword suggestion on a mismatch.
func (p *Parser) expectWithWord() error {
	t := p.cur()
	if t.Type != lexer.IDENT || t.Value != "with" {
		return p.errf(t, "expected \"with\", got %s", describe(t))
	}
	p.advance()
	return nil
}

// parseDelegationTail parses `T q r -> p` after `set delegation` or
// `delete delegation` has already been consumed.
func (p *Parser) parseDelegationTail(isDelete bool) (ast.Primitive, error) {
	target, err := p.parseTarget()
	if err != nil {
		return nil, err
	}
	delegator, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	right, err := p.parseRight()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ARROW); err != nil {
		return nil, err
	}
	delegatee, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if isDelete {
		return &ast.DeleteDelegation{Target: target, Delegator: delegator, Right: right, Delegatee: delegatee}, nil
	}
	return &ast.SetDelegation{Target: target, Delegator: delegator, Right: right, Delegatee: delegatee}, nil
}

func (p *Parser) parseTarget() (ast.Target, error) {
	t := p.cur()
	if t.Type == lexer.IDENT && t.Value == "all" {
		p.advance()
		return ast.Target{All: true}, nil
	}
	name, err := p.expectIdent()
	if err != nil {
		return ast.Target{}, err
	}
	return ast.Target{Variable: name}, nil
}

// parseRight matches one of the four right names by literal value. Like
// "with", "delegate" is grammar-structural but not in the reserved-word set.
func (p *Parser) parseRight() (ast.Right, error) {
	t := p.cur()
	if t.Type != lexer.IDENT {
		return 0, p.errf(t, "expected a right (read, write, append, delegate), got %s", describe(t))
	}
	switch t.Value {
	case "read":
		p.advance()
		return ast.Read, nil
	case "write":
		p.advance()
		return ast.Write, nil
	case "append":
		p.advance()
		return ast.Append, nil
	case "delegate":
		p.advance()
		return ast.Delegate, nil
	default:
		return 0, p.errf(t, "expected a right (read, write, append, delegate), got %q", t.Value)
	}
}

func (p *Parser) parseVariable() (ast.Variable, error) {
	name, err := p.expectIdent()
	if err != nil {
		return ast.Variable{}, err
	}
	if p.cur().Type == lexer.DOT {
		p.advance()
		field, err := p.expectIdent()
		if err != nil {
			return ast.Variable{}, err
		}
		return ast.Variable{Name: name, Field: field}, nil
	}
	return ast.Variable{Name: name}, nil
}

// parseExpr parses any right-hand-side expression: a string literal, the
// empty list, a record literal, or a variable reference. All four share one
// production in the grammar; restrictions specific to a particular use
// (e.g. that a record field's value must evaluate to an Immediate, or that
// append's source must be a literal list) are enforced by the interpreter
// at evaluation time, not here.
func (p *Parser) parseExpr() (ast.Expr, error) {
	t := p.cur()
	switch t.Type {
	case lexer.STRING:
		p.advance()
		return &ast.StringLiteral{Value: t.Value}, nil
	case lexer.LBRACKET:
		p.advance()
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return &ast.EmptyList{}, nil
	case lexer.LBRACE:
		return p.parseRecordLiteral()
	case lexer.IDENT:
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &ast.VarRef{Variable: variable}, nil
	default:
		return nil, p.errf(t, "expected a value, got %s", describe(t))
	}
}

func (p *Parser) parseRecordLiteral() (ast.Expr, error) {
	p.advance() // consume {
	var fields []ast.FieldAssign
	for {
		key, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQUALS); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.FieldAssign{Name: key, Value: val})
		if p.cur().Type == lexer.COMMA {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.RecordLiteral{Fields: fields}, nil
}
