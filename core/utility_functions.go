package core

// utility_functions.go – small cross-cutting helpers.
//
// The teacher's core/utility_functions.go is almost entirely an EVM opcode
// table (opADD, opSHA256, opCALL, ...). Contract execution is out of scope
// here — spec.md §9 delegates it to an external ExecutionHook the core never
// interprets — so none of that survives. What's kept is the one piece that
// generalises: a short-hex Hash formatter, grounded on the teacher's
// Hash.Short.

import (
	"time"
)

// Short returns a shortened hex form of the hash (first 4 + last 4 nibbles),
// used in log lines where the full 64-char hash would be noise.
func (h Hash) Short() string {
	full := h.String()
	if len(full) <= 8 {
		return full
	}
	return full[:4] + ".." + full[len(full)-4:]
}

// NowMicro returns the current time as Unix microseconds, the canonical
// Transaction.Timestamp unit across this ledger (spec.md §3).
func NowMicro() int64 { return time.Now().UnixMicro() }
