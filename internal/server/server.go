// Package server provides the TCP transport: framing program submissions
// off the wire, handing them to a Dispatcher, and writing back a
// newline-delimited JSON status stream. None of this is part of the core
// spec.md triad (authorization/execution/grammar) — it's the external
// collaborator spec.md §1 describes, implemented in the teacher's idiom.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/addisoncrump/delegatord/internal/dispatch"
	"github.com/addisoncrump/delegatord/internal/status"
)

// Serve accepts connections on ln, handling each on its own goroutine,
// until ctx is canceled.
func Serve(ctx context.Context, ln net.Listener, disp *dispatch.Dispatcher) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go handleConn(ctx, conn, disp)
	}
}

func handleConn(ctx context.Context, conn net.Conn, disp *dispatch.Dispatcher) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	for {
		program, err := readProgram(reader)
		switch {
		case errors.Is(err, errOversized):
			if writeErr := writeReply(conn, []status.Entry{status.FailedEntry()}); writeErr != nil {
				slog.Debug("server: write failed after oversized program", "err", writeErr)
				return
			}
			continue
		case errors.Is(err, io.EOF):
			return
		case err != nil:
			slog.Debug("server: connection read error", "err", err)
			return
		}

		reply, err := disp.Submit(ctx, program)
		if err != nil {
			slog.Debug("server: submission dropped", "err", err)
			return
		}
		if writeErr := writeReply(conn, reply.Log); writeErr != nil {
			slog.Debug("server: write failed", "err", writeErr)
			return
		}
		if reply.Exit {
			slog.Info("server: admin exit, shutting down")
			os.Exit(0)
		}
	}
}

// writeReply marshals one JSON object per status entry, newline-separated,
// per §6's reply format.
func writeReply(w io.Writer, log []status.Entry) error {
	enc := json.NewEncoder(w)
	for _, entry := range log {
		if err := enc.Encode(entry); err != nil {
			return err
		}
	}
	return nil
}
