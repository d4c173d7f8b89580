package server

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addisoncrump/delegatord/internal/ast"
	"github.com/addisoncrump/delegatord/internal/lexer"
	"github.com/addisoncrump/delegatord/internal/parser"
)

func TestReadProgramStopsAtSentinel(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("exit\n***\nnext program\n***\n"))

	prog, err := readProgram(r)
	require.NoError(t, err)
	assert.Equal(t, "exit\n***\n", prog)

	prog2, err := readProgram(r)
	require.NoError(t, err)
	assert.Equal(t, "next program\n***\n", prog2)
}

func TestReadProgramTreatsShortAsteriskRunAsContent(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("a**b***\n"))

	prog, err := readProgram(r)
	require.NoError(t, err)
	assert.Equal(t, "a**b***\n", prog)
}

func TestReadProgramReturnsEOFWithoutSentinel(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("no sentinel here"))

	_, err := readProgram(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadProgramRejectsNonASCII(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("héllo***\n"))

	_, err := readProgram(r)
	assert.ErrorIs(t, err, errOversized)
}

func TestReadProgramRejectsOversizedContent(t *testing.T) {
	huge := strings.Repeat("a", lexer.MaxProgramBytes+1)
	r := bufio.NewReader(strings.NewReader(huge + "***\n"))

	_, err := readProgram(r)
	assert.ErrorIs(t, err, errOversized)
}

func TestReadProgramAllowsSubsequentProgramAfterOversized(t *testing.T) {
	huge := strings.Repeat("a", lexer.MaxProgramBytes+1)
	r := bufio.NewReader(strings.NewReader(huge + "***\nexit\n***\n"))

	_, err := readProgram(r)
	require.ErrorIs(t, err, errOversized)

	prog, err := readProgram(r)
	require.NoError(t, err)
	assert.Equal(t, "exit\n***\n", prog)
}

// TestReadProgramOutputParsesEndToEnd guards the framer/parser seam directly:
// the sentinel-inclusive string readProgram hands back must be exactly what
// parser.Parse expects, with no separate SENTINEL token to re-supply.
func TestReadProgramOutputParsesEndToEnd(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("as principal admin password \"admin\" do\nexit\n***\n"))

	prog, err := readProgram(r)
	require.NoError(t, err)

	parsed, err := parser.Parse(prog)
	require.NoError(t, err)
	_, isExit := parsed.Terminator.(*ast.Exit)
	assert.True(t, isExit)
}
