// Package replay reconstructs book state from a recorded intent stream.
// Matching is deterministic: the same command sequence applied to an
// empty book always yields the same reports, the same snapshot and the
// same fingerprint, which is what makes recorded streams usable as
// regression fixtures and for divergence checks between runs.
package replay

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"

	"github.com/quantbed/tickbook/pkg/core"
)

// Op names a replayable intent.
type Op string

// Replayable operations
const (
	OpSubmit Op = "SUBMIT"
	OpCancel Op = "CANCEL"
	OpModify Op = "MODIFY"
)

// Command is one recorded intent. Streams are encoded as JSON lines,
// one command per line.
//
// SUBMIT carries type, side, quantity and (for limits) price. CANCEL
// carries order_id. MODIFY carries order_id plus the new price and
// quantity; a zero price keeps the current price and a zero quantity
// cancels. Order IDs are assigned deterministically, so IDs recorded
// from a live run resolve to the same orders when replayed.
type Command struct {
	Op       Op             `json:"op"`
	Type     core.OrderType `json:"type,omitempty"`
	Side     core.Side      `json:"side,omitempty"`
	OrderID  core.OrderID   `json:"order_id,omitempty"`
	Price    int64          `json:"price,omitempty"`
	Quantity int64          `json:"quantity,omitempty"`
}

// SubmitCommand records a limit or market submission.
func SubmitCommand(t core.Ticket) Command {
	return Command{Op: OpSubmit, Type: t.Type, Side: t.Side, Price: t.Price, Quantity: t.Quantity}
}

// CancelCommand records a cancellation.
func CancelCommand(id core.OrderID) Command {
	return Command{Op: OpCancel, OrderID: id}
}

// ModifyCommand records a cancel-replace.
func ModifyCommand(id core.OrderID, price, quantity int64) Command {
	return Command{Op: OpModify, OrderID: id, Price: price, Quantity: quantity}
}

// Result is the full outcome of a replay. Reports appear in command
// order; rejected intents are included, so len(Reports) equals the
// number of commands applied. Fingerprint is a hex SHA-256 over the
// canonical encoding of every report followed by the final snapshot,
// so two Results with equal fingerprints came from identical runs.
type Result struct {
	Reports     []*core.Report
	Snapshot    *core.Snapshot
	Fingerprint string
}

// Replayer applies a command stream to a book and accumulates the
// outcome. Not safe for concurrent use.
type Replayer struct {
	book    *core.Book
	reports []*core.Report
	digest  hash.Hash
}

// NewReplayer builds a Replayer over a fresh book.
func NewReplayer(opts core.BookOptions) *Replayer {
	return &Replayer{
		book:   core.NewBook(opts),
		digest: sha256.New(),
	}
}

// Book exposes the book being rebuilt, for inspection after a replay.
func (r *Replayer) Book() *core.Book { return r.book }

// Apply executes one command. The returned report is always non-nil
// for a well-formed command; the error mirrors what the book returned
// (a rejection still produces a report). Malformed commands, such as
// an unknown op, return a nil report and an error.
func (r *Replayer) Apply(cmd Command) (*core.Report, error) {
	var (
		rep *core.Report
		err error
	)
	switch cmd.Op {
	case OpSubmit:
		rep, err = r.book.Accept(core.Ticket{
			Type:     cmd.Type,
			Side:     cmd.Side,
			Price:    cmd.Price,
			Quantity: cmd.Quantity,
		})
	case OpCancel:
		rep, err = r.book.Cancel(cmd.OrderID)
	case OpModify:
		rep, err = r.book.Modify(cmd.OrderID, cmd.Price, cmd.Quantity)
	default:
		return nil, fmt.Errorf("%w: op %q", core.ErrInvalidArgument, cmd.Op)
	}
	if rep != nil {
		r.record(rep)
	}
	return rep, err
}

func (r *Replayer) record(rep *core.Report) {
	r.reports = append(r.reports, rep)
	// Canonical form: encoding/json emits struct fields in declaration
	// order, so the encoded report is stable across runs.
	raw, _ := json.Marshal(rep)
	r.digest.Write(raw)
	r.digest.Write([]byte{'\n'})
}

// Finish seals the replay: it folds the final snapshot into the digest
// and returns the accumulated result. The Replayer must not be used
// after Finish.
func (r *Replayer) Finish() *Result {
	snap := r.book.Snapshot()
	raw, _ := json.Marshal(snap)
	r.digest.Write(raw)
	return &Result{
		Reports:     r.reports,
		Snapshot:    snap,
		Fingerprint: hex.EncodeToString(r.digest.Sum(nil)),
	}
}

// Replay applies a whole command slice to a fresh book. Book-level
// rejections (bad price, unknown order) are recorded and replay
// continues; only malformed commands abort.
func Replay(opts core.BookOptions, cmds []Command) (*Result, error) {
	r := NewReplayer(opts)
	for i, cmd := range cmds {
		if rep, err := r.Apply(cmd); rep == nil && err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
	}
	return r.Finish(), nil
}

// ReplayStream decodes a JSONL command stream and replays it. The
// context is checked between commands so long replays can be aborted.
func ReplayStream(ctx context.Context, opts core.BookOptions, in io.Reader) (*Result, error) {
	r := NewReplayer(opts)
	dec := json.NewDecoder(bufio.NewReader(in))
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var cmd Command
		if err := dec.Decode(&cmd); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decode command %d: %w", i, err)
		}
		if rep, err := r.Apply(cmd); rep == nil && err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
	}
	return r.Finish(), nil
}

// WriteCommands encodes commands as JSON lines.
func WriteCommands(w io.Writer, cmds []Command) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i, cmd := range cmds {
		if err := enc.Encode(cmd); err != nil {
			return fmt.Errorf("encode command %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// ReadCommands decodes a full JSONL command stream into memory.
func ReadCommands(in io.Reader) ([]Command, error) {
	var cmds []Command
	dec := json.NewDecoder(bufio.NewReader(in))
	for i := 0; ; i++ {
		var cmd Command
		if err := dec.Decode(&cmd); err == io.EOF {
			return cmds, nil
		} else if err != nil {
			return nil, fmt.Errorf("decode command %d: %w", i, err)
		}
		cmds = append(cmds, cmd)
	}
}
