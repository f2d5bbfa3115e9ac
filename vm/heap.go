package vm

// ---------------------------------------------------------------------------
// Heap: the managed object arena
//
// Script objects live in indexed slots; scripts only ever see handles
// (slot index + generation), so the collector can trace the whole graph
// from an explicit root set and reclaim reference cycles that refcounting
// could not. Handles are never relocated: identity is stable across
// collection, and a reclaimed slot bumps its generation so stale handles
// resolve to nothing instead of to a recycled object.
//
// Roots are registered explicitly (the global object, the display tree,
// live call frames, host pins), mirroring the contract that no component
// holds an aliasable pointer into an object's internals.
// ---------------------------------------------------------------------------

// heapObject is one arena slot's object: an ordered property map, an
// optional prototype link, optional accessor tables, and an optional
// backing payload (function closure or display object).
type heapObject struct {
	gen   uint16
	props map[string]Value
	keys  []string // property insertion order, for deterministic iteration
	proto Value    // prototype link, or Undefined

	// Accessor convention: a property may be backed by getter/setter
	// functions instead of a stored value. Lookup consults these before
	// plain properties, walking the prototype chain.
	getters map[string]Value
	setters map[string]Value

	// Backing payloads
	fn      *Function
	display *DisplayObject

	marked bool
}

// RootSource enumerates live values for the collector. Each registered
// source is invoked once per collection with a mark callback.
type RootSource func(mark func(Value))

// Heap is the managed object arena.
type Heap struct {
	slots []*heapObject
	free  []uint32

	strings   []string
	stringIDs map[string]uint32

	pins  map[uint32]int
	roots []RootSource

	allocsSinceGC int
	gcThreshold   int

	collections uint64
	lastSwept   int
}

// defaultGCThreshold is the allocation count that triggers an automatic
// collection at the next cooperative point.
const defaultGCThreshold = 4096

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{
		stringIDs:   make(map[string]uint32),
		pins:        make(map[uint32]int),
		gcThreshold: defaultGCThreshold,
	}
}

// ---------------------------------------------------------------------------
// String interning
// ---------------------------------------------------------------------------

// Intern returns the string Value for s, interning it on first use.
// Interned strings are immortal; scripts compare them by value.
func (h *Heap) Intern(s string) Value {
	if id, ok := h.stringIDs[s]; ok {
		return fromStringID(id)
	}
	id := uint32(len(h.strings))
	h.strings = append(h.strings, s)
	h.stringIDs[s] = id
	return fromStringID(id)
}

// StringValue returns the Go string for a string Value.
// Panics if v is not a string.
func (h *Heap) StringValue(v Value) string {
	return h.strings[v.stringID()]
}

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

// Alloc allocates a fresh object with the given prototype (Undefined for
// none) and returns its handle.
func (h *Heap) Alloc(proto Value) Value {
	obj := &heapObject{
		props: make(map[string]Value),
		proto: proto,
	}
	h.allocsSinceGC++

	if n := len(h.free); n > 0 {
		idx := h.free[n-1]
		h.free = h.free[:n-1]
		obj.gen = h.slots[idx].gen // generation already bumped at sweep
		h.slots[idx] = obj
		return fromHandle(idx, obj.gen)
	}
	idx := uint32(len(h.slots))
	h.slots = append(h.slots, obj)
	return fromHandle(idx, 0)
}

// NewFunction allocates an object backed by a function closure.
func (h *Heap) NewFunction(fn *Function) Value {
	v := h.Alloc(Undefined)
	h.slots[v.handleIndex()].fn = fn
	return v
}

// NewDisplayBacking allocates the scriptable backing object for a display
// object, linked to the shared clip prototype.
func (h *Heap) NewDisplayBacking(d *DisplayObject, proto Value) Value {
	v := h.Alloc(proto)
	h.slots[v.handleIndex()].display = d
	return v
}

// resolve returns the live object for a handle, or nil for non-objects and
// stale handles.
func (h *Heap) resolve(v Value) *heapObject {
	if !v.IsObject() {
		return nil
	}
	idx := v.handleIndex()
	if int(idx) >= len(h.slots) {
		return nil
	}
	obj := h.slots[idx]
	if obj == nil || obj.gen != v.handleGen() || obj.props == nil {
		return nil
	}
	return obj
}

// ---------------------------------------------------------------------------
// Property access
// ---------------------------------------------------------------------------

// GetOwn returns the object's own property, without walking the prototype
// chain. The second result reports whether the property exists.
func (h *Heap) GetOwn(obj Value, name string) (Value, bool) {
	o := h.resolve(obj)
	if o == nil {
		return Undefined, false
	}
	v, ok := o.props[name]
	return v, ok
}

// Get returns the named property, walking the prototype chain own-first.
// Absent properties are Undefined, not an error. Accessor properties are
// not invoked here; the interpreter's member reads layer accessor
// dispatch on top of this.
func (h *Heap) Get(obj Value, name string) Value {
	for cur := obj; ; {
		o := h.resolve(cur)
		if o == nil {
			return Undefined
		}
		if v, ok := o.props[name]; ok {
			return v
		}
		cur = o.proto
	}
}

// Has reports whether the property exists on the object or anywhere on its
// prototype chain.
func (h *Heap) Has(obj Value, name string) bool {
	for cur := obj; ; {
		o := h.resolve(cur)
		if o == nil {
			return false
		}
		if _, ok := o.props[name]; ok {
			return true
		}
		if o.getters != nil {
			if _, ok := o.getters[name]; ok {
				return true
			}
		}
		cur = o.proto
	}
}

// Set writes an own property on the receiver, preserving first-write
// insertion order for deterministic enumeration. Writes through declared
// setters are the interpreter's concern.
func (h *Heap) Set(obj Value, name string, v Value) {
	o := h.resolve(obj)
	if o == nil {
		return
	}
	if _, exists := o.props[name]; !exists {
		o.keys = append(o.keys, name)
	}
	o.props[name] = v
}

// Delete removes an own property. Removing an absent property is a no-op.
func (h *Heap) Delete(obj Value, name string) {
	o := h.resolve(obj)
	if o == nil {
		return
	}
	if _, exists := o.props[name]; !exists {
		return
	}
	delete(o.props, name)
	for i, k := range o.keys {
		if k == name {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// OwnKeys returns the object's own property names in insertion order.
func (h *Heap) OwnKeys(obj Value) []string {
	o := h.resolve(obj)
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// Proto returns the object's prototype link, or Undefined.
func (h *Heap) Proto(obj Value) Value {
	o := h.resolve(obj)
	if o == nil {
		return Undefined
	}
	return o.proto
}

// SetProto replaces the object's prototype link.
func (h *Heap) SetProto(obj Value, proto Value) {
	if o := h.resolve(obj); o != nil {
		o.proto = proto
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// DefineAccessor declares getter/setter functions for a property name.
// Either may be Undefined. Member reads and writes in the interpreter
// invoke them instead of touching the plain property.
func (h *Heap) DefineAccessor(obj Value, name string, getter, setter Value) {
	o := h.resolve(obj)
	if o == nil {
		return
	}
	if !getter.IsUndefined() {
		if o.getters == nil {
			o.getters = make(map[string]Value)
		}
		o.getters[name] = getter
	}
	if !setter.IsUndefined() {
		if o.setters == nil {
			o.setters = make(map[string]Value)
		}
		o.setters[name] = setter
	}
}

// LookupGetter finds a getter for name along the prototype chain.
func (h *Heap) LookupGetter(obj Value, name string) (Value, bool) {
	for cur := obj; ; {
		o := h.resolve(cur)
		if o == nil {
			return Undefined, false
		}
		if o.getters != nil {
			if g, ok := o.getters[name]; ok {
				return g, true
			}
		}
		// A plain own property shadows inherited accessors.
		if _, ok := o.props[name]; ok {
			return Undefined, false
		}
		cur = o.proto
	}
}

// LookupSetter finds a setter for name along the prototype chain.
func (h *Heap) LookupSetter(obj Value, name string) (Value, bool) {
	for cur := obj; ; {
		o := h.resolve(cur)
		if o == nil {
			return Undefined, false
		}
		if o.setters != nil {
			if s, ok := o.setters[name]; ok {
				return s, true
			}
		}
		cur = o.proto
	}
}

// ---------------------------------------------------------------------------
// Payload access
// ---------------------------------------------------------------------------

// FunctionOf returns the function closure backing an object, or nil.
func (h *Heap) FunctionOf(v Value) *Function {
	o := h.resolve(v)
	if o == nil {
		return nil
	}
	return o.fn
}

// DisplayOf returns the display object backing a value, or nil.
func (h *Heap) DisplayOf(v Value) *DisplayObject {
	o := h.resolve(v)
	if o == nil {
		return nil
	}
	return o.display
}

// ---------------------------------------------------------------------------
// Roots and pinning
// ---------------------------------------------------------------------------

// AddRoots registers a root source consulted on every collection.
func (h *Heap) AddRoots(rs RootSource) {
	h.roots = append(h.roots, rs)
}

// Pin keeps the object alive independently of the script-visible graph.
// Host collaborators pin handles they retain across ticks. Pins nest.
func (h *Heap) Pin(v Value) {
	if v.IsObject() && h.resolve(v) != nil {
		h.pins[v.handleIndex()]++
	}
}

// Unpin releases one pin.
func (h *Heap) Unpin(v Value) {
	if !v.IsObject() {
		return
	}
	idx := v.handleIndex()
	if n, ok := h.pins[idx]; ok {
		if n <= 1 {
			delete(h.pins, idx)
		} else {
			h.pins[idx] = n - 1
		}
	}
}

// ---------------------------------------------------------------------------
// Collection
// ---------------------------------------------------------------------------

// Collect runs a stop-the-world mark-sweep and returns the number of
// objects reclaimed. It must only be called at cooperative points, between
// interpreter instructions, never within one.
func (h *Heap) Collect() int {
	// Mark phase: trace from explicit roots and pinned handles.
	var worklist []Value
	mark := func(v Value) {
		if v.IsObject() {
			worklist = append(worklist, v)
		}
	}
	for _, rs := range h.roots {
		rs(mark)
	}
	for idx := range h.pins {
		if int(idx) < len(h.slots) && h.slots[idx] != nil {
			worklist = append(worklist, fromHandle(idx, h.slots[idx].gen))
		}
	}

	for len(worklist) > 0 {
		v := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		o := h.resolve(v)
		if o == nil || o.marked {
			continue
		}
		o.marked = true
		mark(o.proto)
		for _, pv := range o.props {
			mark(pv)
		}
		for _, g := range o.getters {
			mark(g)
		}
		for _, s := range o.setters {
			mark(s)
		}
		if o.fn != nil {
			for sc := o.fn.Scope; sc != nil; sc = sc.parent {
				mark(sc.object)
			}
		}
		if o.display != nil {
			// Children are owned; the parent back-reference is weak and
			// deliberately not traced from here.
			for _, child := range o.display.children {
				mark(child.backing)
			}
		}
	}

	// Sweep phase: reclaim unmarked slots, bumping generations so stale
	// handles resolve to nothing.
	swept := 0
	for idx, o := range h.slots {
		if o == nil {
			continue
		}
		if o.marked {
			o.marked = false
			continue
		}
		h.slots[idx] = &heapObject{gen: o.gen + 1}
		h.free = append(h.free, uint32(idx))
		swept++
	}

	h.allocsSinceGC = 0
	h.collections++
	h.lastSwept = swept
	return swept
}

// MaybeCollect runs a collection if enough allocation has happened since
// the last one. Called at cooperative points in the interpreter loop.
func (h *Heap) MaybeCollect() {
	if h.gcThreshold > 0 && h.allocsSinceGC >= h.gcThreshold {
		h.Collect()
	}
}

// Live returns the number of live objects.
func (h *Heap) Live() int {
	live := 0
	for _, o := range h.slots {
		if o != nil && o.props != nil {
			live++
		}
	}
	return live
}

// Collections returns how many collection cycles have run.
func (h *Heap) Collections() uint64 { return h.collections }
