package vm

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Snapshots and data encoding
//
// Both encoders use canonical CBOR so equal states produce equal bytes:
// snapshots are compared byte-for-byte in determinism checks, and saved
// script data round-trips through the persistence store.
// ---------------------------------------------------------------------------

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

type snapshotNode struct {
	Path      string         `cbor:"path"`
	Character uint16         `cbor:"character"`
	Depth     uint16         `cbor:"depth"`
	Frame     int            `cbor:"frame"`
	Playing   bool           `cbor:"playing"`
	Children  []snapshotNode `cbor:"children,omitempty"`
}

type snapshotDoc struct {
	Ticks      uint64        `cbor:"ticks"`
	Background [3]uint8      `cbor:"background"`
	Root       *snapshotNode `cbor:"root,omitempty"`
}

// Snapshot serializes the observable display state: tick count, stage
// background, and the display tree with each node's character, depth,
// timeline cursor, and play state. Two runs of the same movie with the
// same inputs produce identical snapshots at every tick.
func (p *Player) Snapshot() ([]byte, error) {
	doc := snapshotDoc{
		Ticks:      p.ticks,
		Background: p.backgroundColor,
	}
	if p.root != nil {
		n := snapshotTree(p.root)
		doc.Root = &n
	}
	return encMode.Marshal(doc)
}

func snapshotTree(d *DisplayObject) snapshotNode {
	n := snapshotNode{
		Path:      d.Path(),
		Character: d.characterID,
		Depth:     d.depth,
		Frame:     d.currentFrame,
		Playing:   d.playing,
	}
	for _, c := range d.children {
		n.Children = append(n.Children, snapshotTree(c))
	}
	return n
}

// ---------------------------------------------------------------------------
// Script data codec
// ---------------------------------------------------------------------------

// EncodeData serializes a script value tree for persistence. Numbers,
// strings, booleans, null/undefined, and plain objects encode; functions
// and clip references encode as null. Cycles are rejected.
func (h *Heap) EncodeData(v Value) ([]byte, error) {
	plain, err := h.toPlain(v, map[Value]bool{})
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(plain)
}

func (h *Heap) toPlain(v Value, visiting map[Value]bool) (any, error) {
	switch {
	case v.IsNumber():
		return v.Float64(), nil
	case v.IsString():
		return h.StringValue(v), nil
	case v == True:
		return true, nil
	case v == False:
		return false, nil
	case v.IsNull(), v.IsUndefined():
		return nil, nil
	case v.IsObject():
		if h.FunctionOf(v) != nil || h.DisplayOf(v) != nil {
			return nil, nil
		}
		if visiting[v] {
			return nil, ErrCyclicData
		}
		visiting[v] = true
		defer delete(visiting, v)
		out := map[string]any{}
		for _, key := range h.OwnKeys(v) {
			pv, _ := h.GetOwn(v, key)
			plain, err := h.toPlain(pv, visiting)
			if err != nil {
				return nil, err
			}
			out[key] = plain
		}
		return out, nil
	default:
		return nil, nil
	}
}

// DecodeData deserializes persisted data back into script values. Maps
// become objects; arrays become objects with numeric keys and a length
// property.
func (h *Heap) DecodeData(raw []byte) (Value, error) {
	var plain any
	if err := cbor.Unmarshal(raw, &plain); err != nil {
		return Undefined, fmt.Errorf("decode data: %w", err)
	}
	return h.fromPlain(plain)
}

func (h *Heap) fromPlain(plain any) (Value, error) {
	switch t := plain.(type) {
	case nil:
		return Null, nil
	case bool:
		return FromBool(t), nil
	case float64:
		return FromFloat64(t), nil
	case int64:
		return FromFloat64(float64(t)), nil
	case uint64:
		return FromFloat64(float64(t)), nil
	case string:
		return h.Intern(t), nil
	case map[string]any:
		// Insert in sorted key order so decoded objects enumerate the same
		// way on every load.
		obj := h.Alloc(Undefined)
		keys := make([]string, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			v, err := h.fromPlain(t[key])
			if err != nil {
				return Undefined, err
			}
			h.Set(obj, key, v)
		}
		return obj, nil
	case map[any]any:
		obj := h.Alloc(Undefined)
		flat := make(map[string]any, len(t))
		for key, pv := range t {
			ks, ok := key.(string)
			if !ok {
				ks = fmt.Sprintf("%v", key)
			}
			flat[ks] = pv
		}
		keys := make([]string, 0, len(flat))
		for key := range flat {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			v, err := h.fromPlain(flat[key])
			if err != nil {
				return Undefined, err
			}
			h.Set(obj, key, v)
		}
		return obj, nil
	case []any:
		obj := h.Alloc(Undefined)
		for i, pv := range t {
			v, err := h.fromPlain(pv)
			if err != nil {
				return Undefined, err
			}
			h.Set(obj, fmt.Sprintf("%d", i), v)
		}
		h.Set(obj, "length", FromFloat64(float64(len(t))))
		return obj, nil
	default:
		return Undefined, fmt.Errorf("decode data: unsupported type %T", plain)
	}
}
