package vm

import (
	"github.com/flickplay/flick/swf"
)

// ---------------------------------------------------------------------------
// Clip definitions
//
// A clip definition is the static form of a timeline: the movie's (or a
// sprite's) tag stream split into frames at ShowFrame boundaries, with
// frame labels resolved to indices at build time. Placed clips share their
// definition; all per-instance state lives on the DisplayObject.
// ---------------------------------------------------------------------------

// ClipDefinition is an immutable timeline: per-frame control tags and the
// label table.
type ClipDefinition struct {
	Frames [][]swf.Tag
	Labels map[string]int
}

// BuildClipDefinition splits a tag stream into frames. Each ShowFrame
// closes the current frame; a trailing run of tags with no closing
// ShowFrame still forms a final frame. Definition tags inside the stream
// are carried along but have no frame-entry behavior.
func BuildClipDefinition(tags []swf.Tag) *ClipDefinition {
	def := &ClipDefinition{Labels: map[string]int{}}
	var pending []swf.Tag
	for _, tag := range tags {
		switch t := tag.(type) {
		case swf.ShowFrame:
			def.Frames = append(def.Frames, pending)
			pending = nil
		case swf.FrameLabel:
			// First label wins on duplicates.
			if _, dup := def.Labels[t.Name]; !dup {
				def.Labels[t.Name] = len(def.Frames)
			}
			pending = append(pending, tag)
		case swf.End:
			// Stream terminator, not a frame tag.
		default:
			pending = append(pending, tag)
		}
	}
	if len(pending) > 0 {
		def.Frames = append(def.Frames, pending)
	}
	return def
}

// FrameForLabel returns the zero-based frame index for a label.
func (d *ClipDefinition) FrameForLabel(label string) (int, bool) {
	idx, ok := d.Labels[label]
	return idx, ok
}

// ---------------------------------------------------------------------------
// Character dictionary
// ---------------------------------------------------------------------------

// dictionaryEntry is one defined character, keyed by character ID in the
// player's dictionary. Exactly one payload field is set, matching Kind.
type dictionaryEntry struct {
	Kind CharacterKind

	Clip  *ClipDefinition
	Shape []byte // raw shape records, kept for host-side rendering
	Image *Image // nil when decoding was skipped or failed
	Sound *Sound // nil when decoding was skipped or failed
}
