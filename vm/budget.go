package vm

// ---------------------------------------------------------------------------
// Instruction budget
//
// A runaway script (infinite loop) cannot be cancelled mid-frame; the
// budget is the documented extension point for bounding one top-level
// script execution. A zero limit disables the check.
// ---------------------------------------------------------------------------

// Budget counts interpreter instructions against an optional limit.
type Budget struct {
	limit int64
	used  int64
}

// NewBudget returns a budget with the given instruction limit. A limit of
// zero (or negative) never trips.
func NewBudget(limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

// Limit returns the configured limit.
func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}
	return b.limit
}

// Used returns the instructions charged since the last Reset.
func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used
}

// Reset clears the used counter. Called at the start of each top-level
// script execution.
func (b *Budget) Reset() {
	if b != nil {
		b.used = 0
	}
}

// Charge records n instructions, returning ErrBudgetExhausted once the
// limit is exceeded.
func (b *Budget) Charge(n int64) error {
	if b == nil || b.limit == 0 || n <= 0 {
		return nil
	}
	if b.used+n > b.limit {
		return ErrBudgetExhausted
	}
	b.used += n
	return nil
}
