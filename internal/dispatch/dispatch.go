// Package dispatch serializes program submissions onto a single Database.
// One goroutine owns the live Database exclusively and is the only writer;
// the channel it reads from is the serialization point, the same shape as
// the original system's tokio::sync::mpsc single-task loop
// (original_source/fix/code/build/runtime/src/lib.rs's BiBiFi::run).
package dispatch

import (
	"context"
	"log/slog"

	"github.com/addisoncrump/delegatord/internal/interp"
	"github.com/addisoncrump/delegatord/internal/parser"
	"github.com/addisoncrump/delegatord/internal/status"
	"github.com/addisoncrump/delegatord/internal/store"
)

// Reply is what a submission gets back: the status log and whether the
// program's terminator was a successful admin exit.
type Reply struct {
	Log  []status.Entry
	Exit bool
}

type submission struct {
	program string
	reply   chan Reply
}

// Dispatcher runs a single consumer goroutine over an unbuffered channel of
// submissions. No mutex guards the Database — the channel is the only way
// in, so exactly one clone/run/install cycle is in flight at a time.
type Dispatcher struct {
	submissions chan submission
}

// New starts the dispatcher goroutine, taking ownership of db.
func New(db *store.Database) *Dispatcher {
	d := &Dispatcher{submissions: make(chan submission)}
	go d.run(db)
	return d
}

// Submit enqueues program text and blocks for its reply, or until ctx is
// done (e.g. the connection's read deadline firing).
func (d *Dispatcher) Submit(ctx context.Context, program string) (Reply, error) {
	reply := make(chan Reply, 1)
	select {
	case d.submissions <- submission{program: program, reply: reply}:
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		// The submission is already queued or running; its state change
		// (if any) still commits. Only this caller's reply is lost, per
		// §5's "a dropped connection discards the reply but never the
		// already-committed state change."
		return Reply{}, ctx.Err()
	}
}

func (d *Dispatcher) run(db *store.Database) {
	for sub := range d.submissions {
		prog, err := parser.Parse(sub.program)
		if err != nil {
			slog.Debug("dispatch: rejecting unparseable program", "err", err)
			sub.reply <- Reply{Log: []status.Entry{status.FailedEntry()}}
			continue
		}

		clone := db.Clone()
		log, committed, exit := interp.Run(clone, prog)
		if committed {
			db = clone
		}
		sub.reply <- Reply{Log: log, Exit: exit}
	}
}
