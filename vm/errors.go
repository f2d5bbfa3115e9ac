package vm

import "errors"

// ---------------------------------------------------------------------------
// Runtime error taxonomy
//
// Interpreter errors terminate only the call frame that raised them; the
// caller observes an undefined result. Script errors (Throw) are explicit
// completion records, not Go errors. Resource errors (decoder failures)
// degrade the affected character and are absorbed at load time. Nothing in
// this package terminates the host process.
// ---------------------------------------------------------------------------

var (
	ErrStackUnderflow  = errors.New("vm: operand stack underflow")
	ErrUnknownOpcode   = errors.New("vm: unknown opcode")
	ErrBadJump         = errors.New("vm: jump target out of bounds")
	ErrBadActionRecord = errors.New("vm: malformed action record")
	ErrStackOverflow   = errors.New("vm: call stack overflow")
	ErrBudgetExhausted = errors.New("vm: instruction budget exhausted")
	ErrStaleHandle     = errors.New("vm: stale object handle")
	ErrNotAnObject     = errors.New("vm: value is not an object")
	ErrCyclicData      = errors.New("vm: cannot encode cyclic data")
	ErrNotLoaded       = errors.New("vm: no movie loaded")
)

// IsInterpreterError reports whether err is one of the frame-fatal
// interpreter faults.
func IsInterpreterError(err error) bool {
	return errors.Is(err, ErrStackUnderflow) ||
		errors.Is(err, ErrUnknownOpcode) ||
		errors.Is(err, ErrBadJump) ||
		errors.Is(err, ErrBadActionRecord) ||
		errors.Is(err, ErrStackOverflow) ||
		errors.Is(err, ErrBudgetExhausted)
}
