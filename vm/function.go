package vm

// ---------------------------------------------------------------------------
// Functions and scope chains
// ---------------------------------------------------------------------------

// Scope is one link in a scope chain: an object consulted for variable
// resolution, plus the enclosing chain. Chains are persistent: extending a
// chain allocates a new head node and shares the tail structurally, so a
// closure's captured chain can never be mutated after capture.
type Scope struct {
	object Value
	parent *Scope
}

// NewScope returns a chain whose single (outermost) entry is obj.
func NewScope(obj Value) *Scope {
	return &Scope{object: obj}
}

// Push returns a new chain with obj as the innermost entry.
func (s *Scope) Push(obj Value) *Scope {
	return &Scope{object: obj, parent: s}
}

// Object returns this link's scope object.
func (s *Scope) Object() Value { return s.object }

// Parent returns the enclosing chain, or nil at the outermost link.
func (s *Scope) Parent() *Scope { return s.parent }

// Function is the closure payload of a callable object: either script
// bytecode with a captured scope chain, or a native host function.
type Function struct {
	Name      string
	Params    []string
	Registers int // register file size; at least 4
	Code      []byte
	Constants []string // constant pool captured at definition
	Scope     *Scope   // scope chain at closure creation

	Native NativeFunc // non-nil for host builtins; Code is then unused
}

// NativeFunc is a host-implemented function. A returned error becomes a
// script-level thrown value (the error message), not an interpreter fault.
type NativeFunc func(in *Interp, this Value, args []Value) (Value, error)

// minRegisters is the register file size when a function declares none.
const minRegisters = 4

// IsNative reports whether the function is a host builtin.
func (f *Function) IsNative() bool { return f.Native != nil }
