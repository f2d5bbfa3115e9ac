package vm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Completion records
//
// Every bytecode execution reports how it finished: normally, via an
// explicit return, or via a thrown value. Abrupt completions propagate up
// the frame stack as values, never as Go panics, so containment boundaries
// stay explicit. Interpreter faults (stack underflow, bad jumps, unknown
// opcodes) are Go errors that terminate only the offending frame.
// ---------------------------------------------------------------------------

type completionKind int

const (
	completionNormal completionKind = iota
	completionReturn
	completionThrow
)

type completion struct {
	kind  completionKind
	value Value
}

var normalCompletion = completion{kind: completionNormal, value: Undefined}

// vmFault carries a frame-fatal interpreter error out of the dispatch loop
// to the enclosing frame boundary, where it is converted back to an error.
// It never escapes the vm package.
type vmFault struct {
	err error
}

// ---------------------------------------------------------------------------
// Call frames
// ---------------------------------------------------------------------------

// frame is one stack machine activation: operand stack, register file,
// scope chain, this binding, and the clip targeted by timeline actions.
type frame struct {
	name      string
	code      []byte
	constants []string
	stack     []Value
	registers []Value
	scope     *Scope
	this      Value
	target    *DisplayObject
}

func (f *frame) push(v Value) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() Value {
	n := len(f.stack)
	if n == 0 {
		panic(vmFault{ErrStackUnderflow})
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v
}

func (f *frame) peek() Value {
	n := len(f.stack)
	if n == 0 {
		panic(vmFault{ErrStackUnderflow})
	}
	return f.stack[n-1]
}

// location describes the frame for uncaught error reports.
func (f *frame) location() string {
	if f.target != nil {
		return f.target.Path()
	}
	if f.name != "" {
		return f.name
	}
	return "<anonymous>"
}

// ---------------------------------------------------------------------------
// Interp: the bytecode interpreter
// ---------------------------------------------------------------------------

// ErrorSink receives every uncaught script error that reaches the top of a
// call stack: a frame location and a message. The host decides whether to
// log, ignore, or stop driving ticks.
type ErrorSink func(location, message string)

// TraceSink receives the output of the trace action.
type TraceSink func(message string)

// Interp executes action bytecode against the managed heap. It is
// single-threaded and re-entrant: script calls dispatch synchronously and
// may re-enter the interpreter, bounded by the frame depth limit.
type Interp struct {
	heap    *Heap
	globals Value

	frames   []*frame
	maxDepth int
	budget   *Budget

	errorSink ErrorSink
	traceSink TraceSink

	player *Player // non-nil when driven by a Player; used by builtins
}

// DefaultMaxDepth bounds script re-entrancy when no limit is configured.
const DefaultMaxDepth = 256

// NewInterp creates an interpreter over the given heap, allocating the
// global object and registering the interpreter's GC roots (the global
// object and every live frame's stack, registers, scope chain, and this).
func NewInterp(heap *Heap) *Interp {
	in := &Interp{
		heap:     heap,
		maxDepth: DefaultMaxDepth,
	}
	in.globals = heap.Alloc(Undefined)
	heap.AddRoots(func(mark func(Value)) {
		mark(in.globals)
		for _, f := range in.frames {
			for _, v := range f.stack {
				mark(v)
			}
			for _, v := range f.registers {
				mark(v)
			}
			for sc := f.scope; sc != nil; sc = sc.parent {
				mark(sc.object)
			}
			mark(f.this)
		}
	})
	return in
}

// Globals returns the global object handle.
func (in *Interp) Globals() Value { return in.globals }

// Heap returns the managed heap the interpreter executes against.
func (in *Interp) Heap() *Heap { return in.heap }

// SetMaxDepth bounds the call frame stack.
func (in *Interp) SetMaxDepth(n int) {
	if n > 0 {
		in.maxDepth = n
	}
}

// SetBudget installs an instruction budget, reset at every top-level
// execution. A nil budget disables the watchdog.
func (in *Interp) SetBudget(b *Budget) { in.budget = b }

// SetErrorSink installs the uncaught error callback.
func (in *Interp) SetErrorSink(sink ErrorSink) { in.errorSink = sink }

// SetTraceSink installs the trace output callback.
func (in *Interp) SetTraceSink(sink TraceSink) { in.traceSink = sink }

func (in *Interp) reportError(location, message string) {
	if in.errorSink != nil {
		in.errorSink(location, message)
	}
}

func (in *Interp) trace(message string) {
	if in.traceSink != nil {
		in.traceSink(message)
	}
}

// ---------------------------------------------------------------------------
// Top-level execution
// ---------------------------------------------------------------------------

// ExecuteActions runs a top-level action blob (a frame script or event
// handler) against the given target clip. The scope chain is the global
// object with the clip's backing object innermost; this binds to the clip.
//
// The returned error reports only load-time validation failure. Runtime
// faults and uncaught throws are delivered to the error sink; they never
// escape as errors and never affect other scripts.
func (in *Interp) ExecuteActions(code []byte, target *DisplayObject) error {
	if err := ValidateActions(code); err != nil {
		return err
	}
	in.budget.Reset()

	scope := NewScope(in.globals)
	this := Undefined
	if target != nil {
		backing := target.EnsureBacking()
		scope = scope.Push(backing)
		this = backing
	}
	f := &frame{
		name:      "frame actions",
		code:      code,
		registers: make([]Value, minRegisters),
		scope:     scope,
		this:      this,
		target:    target,
	}
	c, err := in.runFrame(f, code)
	if err != nil {
		in.reportError(f.location(), err.Error())
		return nil
	}
	if c.kind == completionThrow {
		in.reportError(f.location(), in.heap.ToString(c.value))
	}
	return nil
}

// Call invokes a callable object from the host (event dispatch, accessor
// invocation by collaborators). The target for timeline actions is derived
// from the this binding when it is clip-backed.
func (in *Interp) Call(fn Value, this Value, args []Value) (Value, error) {
	c, err := in.call(fn, this, args, in.heap.DisplayOf(this))
	if err != nil {
		return Undefined, err
	}
	if c.kind == completionThrow {
		in.reportError(in.heap.ToString(this), in.heap.ToString(c.value))
		return Undefined, nil
	}
	return c.value, nil
}

// runFrame executes code in frame f with the frame registered as a GC
// root, converting escaped faults to errors at this boundary.
func (in *Interp) runFrame(f *frame, code []byte) (c completion, err error) {
	if len(in.frames) >= in.maxDepth {
		return normalCompletion, ErrStackOverflow
	}
	in.frames = append(in.frames, f)
	defer func() {
		in.frames = in.frames[:len(in.frames)-1]
		if r := recover(); r != nil {
			fault, ok := r.(vmFault)
			if !ok {
				panic(r)
			}
			c, err = normalCompletion, fault.err
		}
	}()
	return in.runBlock(f, code), nil
}

// ---------------------------------------------------------------------------
// Function calls
// ---------------------------------------------------------------------------

// call invokes a callable object, returning its completion. A non-callable
// value yields undefined without error. Interpreter faults in the callee
// are returned as errors; the caller converts them to an undefined result.
func (in *Interp) call(fnVal Value, this Value, args []Value, target *DisplayObject) (completion, error) {
	fn := in.heap.FunctionOf(fnVal)
	if fn == nil {
		return normalCompletion, nil
	}

	if fn.IsNative() {
		// Natives get a pseudo-frame so their arguments stay rooted if
		// they re-enter the interpreter and a collection runs.
		f := &frame{name: fn.Name, stack: append([]Value(nil), args...), this: this, target: target}
		if len(in.frames) >= in.maxDepth {
			return normalCompletion, ErrStackOverflow
		}
		in.frames = append(in.frames, f)
		defer func() { in.frames = in.frames[:len(in.frames)-1] }()

		result, err := fn.Native(in, this, args)
		if err != nil {
			// Host function failures surface as script-level throws.
			return completion{kind: completionThrow, value: in.heap.Intern(err.Error())}, nil
		}
		return completion{kind: completionNormal, value: result}, nil
	}

	// Script function: fresh operand stack and registers, scope chain
	// formed by extending the captured chain with a new activation object
	// holding the arguments.
	activation := in.heap.Alloc(Undefined)
	for i, p := range fn.Params {
		if i < len(args) {
			in.heap.Set(activation, p, args[i])
		} else {
			in.heap.Set(activation, p, Undefined)
		}
	}
	outer := fn.Scope
	if outer == nil {
		outer = NewScope(in.globals)
	}
	f := &frame{
		name:      fn.Name,
		code:      fn.Code,
		constants: fn.Constants,
		registers: make([]Value, fn.Registers),
		scope:     outer.Push(activation),
		this:      this,
		target:    target,
	}
	c, err := in.runFrame(f, fn.Code)
	if err != nil {
		return normalCompletion, err
	}
	if c.kind == completionReturn {
		return completion{kind: completionNormal, value: c.value}, nil
	}
	return c, nil
}

// invoke wraps call for use inside the dispatch loop: faults in the callee
// are reported and absorbed (the caller observes undefined), while throw
// completions propagate to the caller's handlers.
func (in *Interp) invoke(f *frame, fnVal Value, this Value, args []Value) (Value, completion) {
	c, err := in.call(fnVal, this, args, f.target)
	if err != nil {
		in.reportError(f.location(), err.Error())
		return Undefined, normalCompletion
	}
	if c.kind == completionThrow {
		return Undefined, c
	}
	return c.value, normalCompletion
}

// ---------------------------------------------------------------------------
// Property access with accessor dispatch
// ---------------------------------------------------------------------------

// getMember reads a property with full semantics: declared getters are
// invoked, otherwise the prototype chain is walked own-first. The second
// result is a throw completion escaping from a getter, if any.
func (in *Interp) getMember(f *frame, obj Value, name string) (Value, completion) {
	if obj.IsString() {
		if name == "length" {
			return FromFloat64(float64(len(in.heap.StringValue(obj)))), normalCompletion
		}
		return Undefined, normalCompletion
	}
	if !obj.IsObject() {
		return Undefined, normalCompletion
	}
	if getter, ok := in.heap.LookupGetter(obj, name); ok {
		return in.invokeAccessor(f, getter, obj, nil)
	}
	return in.heap.Get(obj, name), normalCompletion
}

// setMember writes a property, dispatching to a declared setter when one
// exists anywhere on the prototype chain.
func (in *Interp) setMember(f *frame, obj Value, name string, v Value) completion {
	if !obj.IsObject() {
		return normalCompletion
	}
	if setter, ok := in.heap.LookupSetter(obj, name); ok {
		_, c := in.invokeAccessor(f, setter, obj, []Value{v})
		return c
	}
	in.heap.Set(obj, name, v)
	return normalCompletion
}

func (in *Interp) invokeAccessor(f *frame, accessor Value, this Value, args []Value) (Value, completion) {
	v, c := in.invoke(f, accessor, this, args)
	return v, c
}

// ---------------------------------------------------------------------------
// Variable resolution through the scope chain
// ---------------------------------------------------------------------------

// getVariable resolves a bare name: the scope chain is consulted
// innermost-first, each link with full prototype-chain lookup, the global
// object (outermost link) last.
func (in *Interp) getVariable(f *frame, name string) (Value, completion) {
	switch name {
	case "this":
		return f.this, normalCompletion
	case "_global":
		return in.globals, normalCompletion
	}
	for sc := f.scope; sc != nil; sc = sc.parent {
		if in.heap.Has(sc.object, name) {
			return in.getMember(f, sc.object, name)
		}
	}
	return Undefined, normalCompletion
}

// setVariable writes a bare name: the write lands on the innermost scope
// link that already resolves the name. An undeclared name is created on
// the global object, so a frame script's variables are visible to every
// other clip's scripts; clip-local state goes through this.
func (in *Interp) setVariable(f *frame, name string, v Value) completion {
	for sc := f.scope; sc != nil; sc = sc.parent {
		if in.heap.Has(sc.object, name) {
			return in.setMember(f, sc.object, name, v)
		}
	}
	return in.setMember(f, in.globals, name, v)
}

// ---------------------------------------------------------------------------
// Dispatch loop
// ---------------------------------------------------------------------------

// runBlock executes one code block within frame f. Inline blocks (function
// bodies are skipped; try/catch/finally and with blocks recurse) share the
// frame's operand stack and registers.
func (in *Interp) runBlock(f *frame, code []byte) completion {
	heap := in.heap
	ip := 0
	for ip < len(code) {
		// Cooperative point: collection may run between instructions,
		// never within one. Live frames are registered roots.
		heap.MaybeCollect()
		if err := in.budget.Charge(1); err != nil {
			panic(vmFault{err})
		}

		rec, err := readRecord(code, ip)
		if err != nil {
			panic(vmFault{err})
		}
		ip = rec.next

		switch rec.op {
		case OpEnd:
			return normalCompletion

		// --- Stack ---
		case OpPop:
			f.pop()

		case OpPushDuplicate:
			f.push(f.peek())

		case OpPush:
			items, err := decodePushItems(rec.payload)
			if err != nil {
				panic(vmFault{err})
			}
			for _, item := range items {
				f.push(in.pushItemValue(f, item))
			}

		case OpStoreRegister:
			idx := int(rec.payload[0])
			for idx >= len(f.registers) {
				f.registers = append(f.registers, Undefined)
			}
			f.registers[idx] = f.peek()

		case OpConstantPool:
			pool, err := decodeConstantPool(rec.payload)
			if err != nil {
				panic(vmFault{err})
			}
			f.constants = pool

		// --- Arithmetic ---
		case OpAdd2:
			b, a := f.pop(), f.pop()
			if a.IsString() || b.IsString() {
				f.push(heap.Intern(heap.ToString(a) + heap.ToString(b)))
			} else {
				f.push(FromFloat64(heap.ToNumber(a) + heap.ToNumber(b)))
			}

		case OpSubtract:
			b, a := f.pop(), f.pop()
			f.push(FromFloat64(heap.ToNumber(a) - heap.ToNumber(b)))

		case OpMultiply:
			b, a := f.pop(), f.pop()
			f.push(FromFloat64(heap.ToNumber(a) * heap.ToNumber(b)))

		case OpDivide:
			b, a := f.pop(), f.pop()
			f.push(FromFloat64(heap.ToNumber(a) / heap.ToNumber(b)))

		case OpModulo:
			b, a := f.pop(), f.pop()
			f.push(FromFloat64(math.Mod(heap.ToNumber(a), heap.ToNumber(b))))

		case OpIncrement:
			f.push(FromFloat64(heap.ToNumber(f.pop()) + 1))

		case OpDecrement:
			f.push(FromFloat64(heap.ToNumber(f.pop()) - 1))

		// --- Comparison and logic ---
		case OpEquals2:
			b, a := f.pop(), f.pop()
			f.push(FromBool(heap.Equals(a, b)))

		case OpStrictEquals:
			b, a := f.pop(), f.pop()
			f.push(FromBool(heap.StrictEquals(a, b)))

		case OpLess2:
			b, a := f.pop(), f.pop()
			f.push(FromBool(lessThan(heap, a, b)))

		case OpGreater:
			b, a := f.pop(), f.pop()
			f.push(FromBool(lessThan(heap, b, a)))

		case OpNot:
			f.push(FromBool(!heap.Truthy(f.pop())))

		// --- Conversion and introspection ---
		case OpToNumber:
			f.push(FromFloat64(heap.ToNumber(f.pop())))

		case OpToString:
			f.push(heap.Intern(heap.ToString(f.pop())))

		case OpTypeOf:
			f.push(heap.Intern(heap.TypeOf(f.pop())))

		// --- Variables ---
		case OpGetVariable:
			name := heap.ToString(f.pop())
			v, c := in.getVariable(f, name)
			if c.kind == completionThrow {
				return c
			}
			f.push(v)

		case OpSetVariable:
			v := f.pop()
			name := heap.ToString(f.pop())
			if c := in.setVariable(f, name, v); c.kind == completionThrow {
				return c
			}

		case OpDefineLocal:
			v := f.pop()
			name := heap.ToString(f.pop())
			heap.Set(f.scope.object, name, v)

		case OpDefineLocal2:
			name := heap.ToString(f.pop())
			if _, ok := heap.GetOwn(f.scope.object, name); !ok {
				heap.Set(f.scope.object, name, Undefined)
			}

		// --- Properties and objects ---
		case OpGetMember:
			name := heap.ToString(f.pop())
			obj := f.pop()
			v, c := in.getMember(f, obj, name)
			if c.kind == completionThrow {
				return c
			}
			f.push(v)

		case OpSetMember:
			v := f.pop()
			name := heap.ToString(f.pop())
			obj := f.pop()
			if c := in.setMember(f, obj, name, v); c.kind == completionThrow {
				return c
			}

		case OpDelete:
			name := heap.ToString(f.pop())
			obj := f.pop()
			heap.Delete(obj, name)
			f.push(True)

		case OpNewObject:
			name := heap.ToString(f.pop())
			args := in.popArgs(f)
			v, c := in.construct(f, name, args)
			if c.kind == completionThrow {
				return c
			}
			f.push(v)

		case OpInitObject:
			n := int(heap.ToNumber(f.pop()))
			type prop struct {
				name  string
				value Value
			}
			props := make([]prop, 0, n)
			for i := 0; i < n; i++ {
				v := f.pop()
				name := heap.ToString(f.pop())
				props = append(props, prop{name, v})
			}
			obj := heap.Alloc(Undefined)
			// Restore source order for deterministic enumeration.
			for i := len(props) - 1; i >= 0; i-- {
				heap.Set(obj, props[i].name, props[i].value)
			}
			f.push(obj)

		case OpInitArray:
			n := int(heap.ToNumber(f.pop()))
			obj := heap.Alloc(Undefined)
			for i := 0; i < n; i++ {
				heap.Set(obj, fmt.Sprintf("%d", i), f.pop())
			}
			heap.Set(obj, "length", FromFloat64(float64(n)))
			f.push(obj)

		// --- Functions ---
		case OpDefineFunction, OpDefineFunction2:
			var decl funcDecl
			var declErr error
			if rec.op == OpDefineFunction {
				decl, declErr = decodeDefineFunction(rec, code)
			} else {
				decl, declErr = decodeDefineFunction2(rec, code)
			}
			if declErr != nil {
				panic(vmFault{declErr})
			}
			fn := &Function{
				Name:      decl.name,
				Params:    decl.params,
				Registers: decl.registers,
				Code:      code[decl.bodyStart:decl.bodyEnd],
				Constants: f.constants,
				Scope:     f.scope,
			}
			fnVal := heap.NewFunction(fn)
			proto := heap.Alloc(Undefined)
			heap.Set(proto, "constructor", fnVal)
			heap.Set(fnVal, "prototype", proto)
			if decl.name != "" {
				heap.Set(f.scope.object, decl.name, fnVal)
			} else {
				f.push(fnVal)
			}
			ip = decl.bodyEnd

		case OpCallFunction:
			name := heap.ToString(f.pop())
			args := in.popArgs(f)
			fnVal, c := in.getVariable(f, name)
			if c.kind == completionThrow {
				return c
			}
			v, c := in.invoke(f, fnVal, f.this, args)
			if c.kind == completionThrow {
				return c
			}
			f.push(v)

		case OpCallMethod:
			nameVal := f.pop()
			obj := f.pop()
			args := in.popArgs(f)
			var fnVal Value
			name := ""
			if !nameVal.IsUndefined() {
				name = heap.ToString(nameVal)
			}
			if name == "" {
				fnVal = obj
			} else {
				var c completion
				fnVal, c = in.getMember(f, obj, name)
				if c.kind == completionThrow {
					return c
				}
			}
			v, c := in.invoke(f, fnVal, obj, args)
			if c.kind == completionThrow {
				return c
			}
			f.push(v)

		case OpReturn:
			return completion{kind: completionReturn, value: f.pop()}

		// --- Control flow ---
		case OpJump:
			offset := int(int16(binary.LittleEndian.Uint16(rec.payload)))
			ip = jumpTarget(code, rec.next, offset)

		case OpIf:
			offset := int(int16(binary.LittleEndian.Uint16(rec.payload)))
			if heap.Truthy(f.pop()) {
				ip = jumpTarget(code, rec.next, offset)
			}

		// --- Error handling ---
		case OpThrow:
			return completion{kind: completionThrow, value: f.pop()}

		case OpTry:
			decl, err := decodeTry(rec, code)
			if err != nil {
				panic(vmFault{err})
			}
			c := in.runBlock(f, code[decl.tryStart:decl.tryEnd])
			if c.kind == completionThrow && decl.hasCatch {
				if decl.catchRegister >= 0 {
					for decl.catchRegister >= len(f.registers) {
						f.registers = append(f.registers, Undefined)
					}
					f.registers[decl.catchRegister] = c.value
				} else {
					heap.Set(f.scope.object, decl.catchName, c.value)
				}
				c = in.runBlock(f, code[decl.tryEnd:decl.catchEnd])
			}
			if decl.hasFinally {
				if fc := in.runBlock(f, code[decl.catchEnd:decl.finallyEnd]); fc.kind != completionNormal {
					c = fc
				}
			}
			if c.kind != completionNormal {
				return c
			}
			ip = decl.finallyEnd

		case OpWith:
			size := int(binary.LittleEndian.Uint16(rec.payload))
			obj := f.pop()
			saved := f.scope
			if obj.IsObject() {
				f.scope = f.scope.Push(obj)
			}
			c := in.runBlock(f, code[rec.next:rec.next+size])
			f.scope = saved
			if c.kind != completionNormal {
				return c
			}
			ip = rec.next + size

		// --- Timeline ---
		case OpTrace:
			in.trace(heap.ToString(f.pop()))

		case OpPlay:
			if f.target != nil {
				f.target.Play()
			}

		case OpStop:
			if f.target != nil {
				f.target.Stop()
			}

		case OpGotoFrame:
			frameIdx := int(binary.LittleEndian.Uint16(rec.payload))
			if f.target != nil {
				f.target.GotoFrame(frameIdx, false)
			}

		case OpGoToLabel:
			label, _, err := payloadString(rec.payload)
			if err != nil {
				panic(vmFault{err})
			}
			if f.target != nil {
				f.target.GotoLabel(label, false)
			}

		case OpNextFrame:
			if f.target != nil {
				f.target.GotoFrame(f.target.CurrentFrame()+1, false)
			}

		case OpPrevFrame:
			if f.target != nil {
				f.target.GotoFrame(f.target.CurrentFrame()-1, false)
			}

		default:
			panic(vmFault{fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, byte(rec.op))})
		}
	}
	return normalCompletion
}

// jumpTarget computes and checks a branch destination. Validated code
// cannot fail here; the check keeps faults defined rather than undefined
// for code executed without validation.
func jumpTarget(code []byte, from, offset int) int {
	target := from + offset
	if target < 0 || target > len(code) {
		panic(vmFault{fmt.Errorf("%w: %d", ErrBadJump, target)})
	}
	return target
}

// pushItemValue materializes one Push operand.
func (in *Interp) pushItemValue(f *frame, item pushItem) Value {
	switch item.kind {
	case pushString:
		return in.heap.Intern(item.str)
	case pushFloat32, pushDouble, pushInt32:
		return FromFloat64(item.num)
	case pushNull:
		return Null
	case pushUndefined:
		return Undefined
	case pushRegister:
		if int(item.register) < len(f.registers) {
			return f.registers[item.register]
		}
		return Undefined
	case pushBool:
		return FromBool(item.boolean)
	case pushConst8, pushConst16:
		if int(item.constIdx) < len(f.constants) {
			return in.heap.Intern(f.constants[item.constIdx])
		}
		return Undefined
	default:
		return Undefined
	}
}

// popArgs pops an argument count then that many arguments. Arguments are
// pushed last-first, so the first pop yields the first argument.
func (in *Interp) popArgs(f *frame) []Value {
	n := int(in.heap.ToNumber(f.pop()))
	if n < 0 || n > len(f.stack) {
		panic(vmFault{ErrStackUnderflow})
	}
	args := make([]Value, n)
	for i := 0; i < n; i++ {
		args[i] = f.pop()
	}
	return args
}

// construct implements new-style construction: the named constructor is
// resolved through the scope chain, the fresh object's prototype links to
// the constructor's prototype property, and the constructor runs with the
// fresh object as this.
func (in *Interp) construct(f *frame, name string, args []Value) (Value, completion) {
	ctorVal, c := in.getVariable(f, name)
	if c.kind == completionThrow {
		return Undefined, c
	}
	obj := in.heap.Alloc(Undefined)
	if ctor := in.heap.FunctionOf(ctorVal); ctor != nil {
		if proto := in.heap.Get(ctorVal, "prototype"); proto.IsObject() {
			in.heap.SetProto(obj, proto)
		}
		if _, c := in.invoke(f, ctorVal, obj, args); c.kind == completionThrow {
			return Undefined, c
		}
	}
	return obj, normalCompletion
}

// lessThan implements the coercing ordered comparison: two strings compare
// lexicographically, anything else numerically. A NaN operand compares
// false.
func lessThan(h *Heap, a, b Value) bool {
	if a.IsString() && b.IsString() {
		return h.StringValue(a) < h.StringValue(b)
	}
	fa, fb := h.ToNumber(a), h.ToNumber(b)
	return fa < fb
}
