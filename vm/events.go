package vm

// ---------------------------------------------------------------------------
// Host events
//
// The host injects input events between ticks; the player dispatches them
// to script handler properties during the next tick, after frame actions
// have drained. Dispatch walks the display list in tree order and calls
// the matching handler on every clip that defines one.
// ---------------------------------------------------------------------------

// EventKind identifies an injected host event.
type EventKind int

const (
	EventKeyDown EventKind = iota
	EventKeyUp
	EventMouseDown
	EventMouseUp
	EventMouseMove
)

// Event is one host input event.
type Event struct {
	Kind    EventKind
	KeyCode int     // key events
	X, Y    float64 // mouse events, stage pixels
}

// handlerName maps an event to the script property consulted on each clip.
func (e Event) handlerName() string {
	switch e.Kind {
	case EventKeyDown:
		return "onKeyDown"
	case EventKeyUp:
		return "onKeyUp"
	case EventMouseDown:
		return "onMouseDown"
	case EventMouseUp:
		return "onMouseUp"
	case EventMouseMove:
		return "onMouseMove"
	default:
		return ""
	}
}

// dispatchEvent delivers one event: mouse position updates first so
// handlers observe the new coordinates, then every clip with a matching
// handler property is invoked in tree order.
func (p *Player) dispatchEvent(e Event) {
	switch e.Kind {
	case EventMouseMove, EventMouseDown, EventMouseUp:
		p.mouseX, p.mouseY = e.X, e.Y
	}
	name := e.handlerName()
	if name == "" {
		return
	}
	if e.Kind == EventKeyDown || e.Kind == EventKeyUp {
		p.lastKeyCode = e.KeyCode
	}
	p.VisitDisplayList(func(d *DisplayObject) {
		if d.backing.IsUndefined() {
			return
		}
		handler := p.heap.Get(d.backing, name)
		if p.heap.FunctionOf(handler) == nil {
			return
		}
		if _, err := p.interp.Call(handler, d.backing, nil); err != nil {
			p.interp.reportError(d.Path()+"."+name, err.Error())
		}
	})
}
