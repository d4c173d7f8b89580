package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeBasicProgram(t *testing.T) {
	src := "as principal admin password \"admin\" do\nexit\n***\n"
	tokens, err := Tokenize(src)
	require.NoError(t, err)

	var kinds []Type
	for _, tok := range tokens {
		kinds = append(kinds, tok.Type)
	}
	assert.Equal(t, []Type{
		IDENT, IDENT, IDENT, IDENT, STRING, IDENT, NEWLINE,
		IDENT, NEWLINE,
		SENTINEL, NEWLINE,
		EOF,
	}, kinds)
}

func TestTokenizeRejectsNonASCII(t *testing.T) {
	_, err := Tokenize("as principal admín password \"x\" do\nexit\n***\n")
	require.Error(t, err)
}

func TestTokenizeRejectsOversizedProgram(t *testing.T) {
	huge := strings.Repeat("a", MaxProgramBytes+1)
	_, err := Tokenize(huge)
	require.Error(t, err)
}

func TestTokenizeRejectsOversizedIdentifier(t *testing.T) {
	ident := "a" + strings.Repeat("b", MaxIdentLen)
	_, err := Tokenize("set " + ident + " = \"x\"\n")
	require.Error(t, err)
}

func TestTokenizeRejectsOversizedString(t *testing.T) {
	str := strings.Repeat("a", MaxStringLen+1)
	_, err := Tokenize("set x = \"" + str + "\"\n")
	require.Error(t, err)
}

func TestTokenizeRejectsBlankLine(t *testing.T) {
	_, err := Tokenize("as principal admin password \"admin\" do\n\nexit\n***\n")
	require.Error(t, err)
}

func TestTokenizeRejectsTab(t *testing.T) {
	_, err := Tokenize("set\tx = \"y\"\n")
	require.Error(t, err)
}

func TestTokenizeRejectsForbiddenStringChar(t *testing.T) {
	_, err := Tokenize("set x = \"has#hash\"\n")
	require.Error(t, err)
}

func TestTokenizeRejectsUnterminatedString(t *testing.T) {
	_, err := Tokenize("set x = \"oops\n")
	require.Error(t, err)
}

func TestTokenizeSymbolsAndArrowAndSentinel(t *testing.T) {
	tokens, err := Tokenize("x.y = {} -> ***\n")
	require.NoError(t, err)

	var got []string
	for _, tok := range tokens {
		if tok.Type == EOF || tok.Type == NEWLINE {
			continue
		}
		got = append(got, tok.Value)
	}
	assert.Equal(t, []string{"x", ".", "y", "=", "{", "}", "->", "***"}, got)
}

func TestTokenizeComment(t *testing.T) {
	tokens, err := Tokenize("// a comment, with punctuation!\n")
	require.NoError(t, err)
	require.Len(t, tokens, 3) // COMMENT, NEWLINE, EOF
	assert.Equal(t, COMMENT, tokens[0].Type)
	assert.Equal(t, " a comment, with punctuation!", tokens[0].Value)
}

func TestIsKeyword(t *testing.T) {
	assert.True(t, IsKeyword("principal"))
	assert.True(t, IsKeyword("foreach"))
	assert.False(t, IsKeyword("with"))
	assert.False(t, IsKeyword("delegate"))
	assert.False(t, IsKeyword("bob"))
}
