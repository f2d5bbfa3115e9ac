package vm

import (
	"fmt"

	"github.com/flickplay/flick/swf"
)

// ---------------------------------------------------------------------------
// Display list
//
// The display list is a tree of display objects. Interior nodes are movie
// clips with their own timelines; leaves are placed shapes, images, and
// sounds. Children are keyed by depth, unique within a parent, and
// enumerate in ascending depth order.
// ---------------------------------------------------------------------------

// CharacterKind classifies what a dictionary entry places.
type CharacterKind int

const (
	KindClip CharacterKind = iota
	KindShape
	KindImage
	KindSound
)

// DisplayObject is one node of the display list. Clip-backed nodes carry a
// timeline cursor; leaf nodes only carry placement state.
type DisplayObject struct {
	owner *Player

	def  *ClipDefinition // nil for leaf characters
	kind CharacterKind

	name        string
	characterID uint16
	depth       uint16
	clipDepth   uint16
	ratio       uint16

	matrix         swf.Matrix
	hasMatrix      bool
	colorTransform swf.ColorTransform
	hasColorXform  bool

	parent   *DisplayObject
	children []*DisplayObject // ascending depth

	// Timeline cursor. Starts at -1 so the first advance lands on frame 0.
	currentFrame int
	playing      bool

	backing   Value
	destroyed bool
}

func newDisplayObject(owner *Player, kind CharacterKind, def *ClipDefinition, characterID uint16) *DisplayObject {
	return &DisplayObject{
		owner:        owner,
		kind:         kind,
		def:          def,
		characterID:  characterID,
		currentFrame: -1,
		playing:      true,
		backing:      Undefined,
	}
}

// Name returns the instance name.
func (d *DisplayObject) Name() string { return d.name }

// Depth returns the placement depth within the parent.
func (d *DisplayObject) Depth() uint16 { return d.depth }

// CharacterID returns the dictionary ID this node was placed from, or 0
// for the root.
func (d *DisplayObject) CharacterID() uint16 { return d.characterID }

// Kind returns the character kind.
func (d *DisplayObject) Kind() CharacterKind { return d.kind }

// Parent returns the containing clip, or nil for the root.
func (d *DisplayObject) Parent() *DisplayObject { return d.parent }

// Matrix returns the placement matrix and whether one was set.
func (d *DisplayObject) Matrix() (swf.Matrix, bool) { return d.matrix, d.hasMatrix }

// ColorTransform returns the placement color transform and whether one was
// set.
func (d *DisplayObject) ColorTransform() (swf.ColorTransform, bool) {
	return d.colorTransform, d.hasColorXform
}

// CurrentFrame returns the zero-based timeline cursor. Before the first
// tick this is -1.
func (d *DisplayObject) CurrentFrame() int { return d.currentFrame }

// TotalFrames returns the frame count of the clip's timeline, or 0 for
// leaf characters.
func (d *DisplayObject) TotalFrames() int {
	if d.def == nil {
		return 0
	}
	return len(d.def.Frames)
}

// Playing reports whether the timeline cursor advances on the next tick.
func (d *DisplayObject) Playing() bool { return d.playing }

// Destroyed reports whether the node has been removed from the tree.
// Script references may outlive removal; timeline operations on a
// destroyed node are no-ops.
func (d *DisplayObject) Destroyed() bool { return d.destroyed }

// Path returns the slash-free dotted path from the root, the script-visible
// identity used in trace output and error reports.
func (d *DisplayObject) Path() string {
	if d.parent == nil {
		return "_level0"
	}
	name := d.name
	if name == "" {
		name = fmt.Sprintf("instance%d", d.depth)
	}
	return d.parent.Path() + "." + name
}

// Root walks to the top of the tree.
func (d *DisplayObject) Root() *DisplayObject {
	r := d
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// ChildAtDepth returns the child placed at the given depth, or nil.
func (d *DisplayObject) ChildAtDepth(depth uint16) *DisplayObject {
	for _, c := range d.children {
		if c.depth == depth {
			return c
		}
	}
	return nil
}

// ChildByName returns the first child with the given instance name, or nil.
func (d *DisplayObject) ChildByName(name string) *DisplayObject {
	for _, c := range d.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Children returns the child list in ascending depth order. The returned
// slice is shared; callers must not mutate it.
func (d *DisplayObject) Children() []*DisplayObject { return d.children }

// EnsureBacking returns the node's script object, allocating it on first
// use. The backing object's prototype is the shared clip prototype, so
// placed clips respond to play, stop, and the position accessors. A handle
// left stale by collection (possible only after the node is destroyed and
// unreferenced) is replaced rather than handed back.
func (d *DisplayObject) EnsureBacking() Value {
	if d.owner.heap.resolve(d.backing) != nil {
		return d.backing
	}
	d.backing = d.owner.heap.NewDisplayBacking(d, d.owner.clipProto)
	return d.backing
}

// ---------------------------------------------------------------------------
// Timeline control (play/stop/goto)
// ---------------------------------------------------------------------------

// Play resumes timeline advancement.
func (d *DisplayObject) Play() {
	if !d.destroyed {
		d.playing = true
	}
}

// Stop halts the timeline cursor at the current frame.
func (d *DisplayObject) Stop() {
	if !d.destroyed {
		d.playing = false
	}
}

// GotoFrame jumps the cursor to a zero-based frame, clamped to the
// timeline, applying the target frame's tags immediately. Frame actions
// queue behind any actions already pending, so a goto issued from a frame
// script runs the target frame's script later in the same tick.
func (d *DisplayObject) GotoFrame(frameIdx int, play bool) {
	if d.destroyed || d.def == nil || len(d.def.Frames) == 0 {
		return
	}
	if frameIdx < 0 {
		frameIdx = 0
	}
	if frameIdx >= len(d.def.Frames) {
		frameIdx = len(d.def.Frames) - 1
	}
	d.playing = play
	d.enterFrame(frameIdx)
}

// GotoLabel jumps to a named frame. Unknown labels are ignored.
func (d *DisplayObject) GotoLabel(label string, play bool) {
	if d.destroyed || d.def == nil {
		return
	}
	if idx, ok := d.def.Labels[label]; ok {
		d.GotoFrame(idx, play)
	}
}

// ---------------------------------------------------------------------------
// Tick advancement
// ---------------------------------------------------------------------------

// advanceTree runs one tick over this subtree: the node's own timeline
// advances first, then each child's, depth-first in depth order. The child
// list is snapshotted per level so children placed during this tick are
// advanced within it while removed children are skipped.
func (d *DisplayObject) advanceTree() {
	if d.destroyed {
		return
	}
	d.advance()
	snapshot := append([]*DisplayObject(nil), d.children...)
	for _, c := range snapshot {
		if !c.destroyed {
			c.advanceTree()
		}
	}
}

// advance moves a playing clip's cursor to the next frame, wrapping to
// frame 0 past the end, and applies that frame's tags.
func (d *DisplayObject) advance() {
	if d.def == nil || len(d.def.Frames) == 0 || !d.playing {
		return
	}
	next := d.currentFrame + 1
	if next >= len(d.def.Frames) {
		next = 0
	}
	d.enterFrame(next)
}

// enterFrame sets the cursor and applies the frame's control tags in
// order. Script tags queue for the post-traversal drain; they never run
// while the display list is being mutated.
func (d *DisplayObject) enterFrame(frameIdx int) {
	d.currentFrame = frameIdx
	for _, tag := range d.def.Frames[frameIdx] {
		switch t := tag.(type) {
		case swf.PlaceObject2:
			d.applyPlace(t)
		case swf.RemoveObject2:
			d.removeAtDepth(t.Depth)
		case swf.DoAction:
			d.owner.queueActions(d, t.Code)
		case swf.SetBackgroundColor:
			d.owner.backgroundColor = [3]uint8{t.R, t.G, t.B}
		}
		// FrameLabel is resolved at load time; unknown tags carry no
		// runtime behavior.
	}
}

// ---------------------------------------------------------------------------
// Placement
// ---------------------------------------------------------------------------

// applyPlace executes one PlaceObject2 tag against this node's children.
func (d *DisplayObject) applyPlace(t swf.PlaceObject2) {
	existing := d.ChildAtDepth(t.Depth)

	switch {
	case t.HasCharacter && !t.Move:
		// New placement. A depth collision evicts the incumbent subtree.
		if existing != nil {
			d.removeAtDepth(t.Depth)
		}
		d.placeNew(t)

	case t.HasCharacter && t.Move:
		// Replacement: the incumbent is destroyed, not updated.
		if existing != nil {
			d.removeAtDepth(t.Depth)
		}
		d.placeNew(t)

	case t.Move:
		// Modification of the existing placement. No incumbent, no effect.
		if existing == nil {
			return
		}
		d.applyPlaceAttrs(existing, t)
	}
}

func (d *DisplayObject) placeNew(t swf.PlaceObject2) {
	entry := d.owner.dictionary[t.CharacterID]
	if entry == nil {
		// Dangling character reference; placement is dropped.
		d.owner.log.Warningf("place of undefined character %d at depth %d", t.CharacterID, t.Depth)
		return
	}
	child := newDisplayObject(d.owner, entry.Kind, entry.Clip, t.CharacterID)
	child.parent = d
	child.depth = t.Depth
	d.applyPlaceAttrs(child, t)
	d.insertChild(child)
	if child.name != "" {
		d.owner.heap.Set(d.EnsureBacking(), child.name, child.EnsureBacking())
	}
}

func (d *DisplayObject) applyPlaceAttrs(child *DisplayObject, t swf.PlaceObject2) {
	if t.Matrix != nil {
		child.matrix = *t.Matrix
		child.hasMatrix = true
	}
	if t.ColorTransform != nil {
		child.colorTransform = *t.ColorTransform
		child.hasColorXform = true
	}
	if t.HasRatio {
		child.ratio = t.Ratio
	}
	if t.HasName {
		child.name = t.Name
	}
	if t.HasClipDepth {
		child.clipDepth = t.ClipDepth
	}
}

// insertChild keeps the child list sorted by depth.
func (d *DisplayObject) insertChild(child *DisplayObject) {
	at := len(d.children)
	for i, c := range d.children {
		if c.depth > child.depth {
			at = i
			break
		}
	}
	d.children = append(d.children, nil)
	copy(d.children[at+1:], d.children[at:])
	d.children[at] = child
}

// removeAtDepth destroys the child at the given depth and its whole
// subtree. Removing an empty depth is a no-op.
func (d *DisplayObject) removeAtDepth(depth uint16) {
	for i, c := range d.children {
		if c.depth == depth {
			d.children = append(d.children[:i], d.children[i+1:]...)
			if c.name != "" && !d.backing.IsUndefined() {
				d.owner.heap.Delete(d.backing, c.name)
			}
			c.destroy()
			return
		}
	}
}

// destroy marks the subtree dead. Backing objects survive for any script
// references still holding them; their timeline operations become no-ops
// and the collector reclaims them once unreferenced.
func (d *DisplayObject) destroy() {
	d.destroyed = true
	d.playing = false
	for _, c := range d.children {
		c.destroy()
	}
	d.children = nil
}
