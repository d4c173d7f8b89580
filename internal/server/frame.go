package server

import (
	"bufio"
	"errors"

	"github.com/addisoncrump/delegatord/internal/lexer"
)

// errOversized marks a framed program that exceeded the size/ASCII bounds
// of §6 — it is reported to the client as {status: FAILED} without ever
// reaching the parser.
var errOversized = errors.New("program exceeds size or ASCII bounds")

// readProgram accumulates bytes from r through the first occurrence of
// three consecutive `*` bytes (the `***` sentinel) and the newline that
// terminates its line, returning that content verbatim including the
// sentinel — the parser's grammar consumes "***" as its own token, so the
// framer must hand it the sentinel rather than strip it. A run of one or
// two asterisks that doesn't reach three is ordinary content, not a
// partial sentinel. io.EOF before a sentinel is returned as-is so the
// caller can close the connection.
func readProgram(r *bufio.Reader) (string, error) {
	var buf []byte
	stars := 0
	oversized := false

	for stars < 3 {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == '*' {
			stars++
			continue
		}
		for ; stars > 0; stars-- {
			oversized = appendByte(&buf, '*') || oversized
		}
		oversized = appendByte(&buf, b) || oversized
	}
	oversized = appendByte(&buf, '*') || oversized
	oversized = appendByte(&buf, '*') || oversized
	oversized = appendByte(&buf, '*') || oversized

	// The sentinel's own line still needs its trailing comment (if any)
	// and line terminator, so the parser sees a complete "***\n".
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		oversized = appendByte(&buf, b) || oversized
		if b == '\n' {
			break
		}
	}

	if oversized {
		return "", errOversized
	}
	return string(buf), nil
}

// appendByte grows buf by one byte, reporting whether doing so would push
// the program over the size bound or introduce a non-ASCII byte. Once
// oversized, bytes stop being retained (there is no use holding content we
// will reject outright).
func appendByte(buf *[]byte, b byte) bool {
	if b >= 0x80 {
		return true
	}
	if len(*buf) >= lexer.MaxProgramBytes {
		return true
	}
	*buf = append(*buf, b)
	return false
}
