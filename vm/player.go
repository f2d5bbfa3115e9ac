package vm

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/flickplay/flick/swf"
)

// ---------------------------------------------------------------------------
// Player
//
// Player is the single-threaded facade over the whole runtime: it owns the
// heap, the interpreter, the character dictionary, and the display list,
// and the host drives it one tick at a time. It is not safe for concurrent
// use; a host wanting parallelism runs one Player per goroutine.
// ---------------------------------------------------------------------------

// Options configures a Player. The zero value is usable: null media
// decoders, no persistence, default limits, and the package logger.
type Options struct {
	Log    commonlog.Logger
	Store  DataStore    // nil disables loadData/saveData
	Images ImageDecoder // nil means NullImageDecoder
	Audio  AudioDecoder // nil means NullAudioDecoder

	Budget   int // instructions per top-level script run; 0 disables
	MaxDepth int // call frame limit; 0 means DefaultMaxDepth
}

// Player hosts one loaded movie.
type Player struct {
	heap   *Heap
	interp *Interp
	log    commonlog.Logger

	images ImageDecoder
	audio  AudioDecoder
	store  DataStore

	header     swf.Header
	dictionary map[uint16]*dictionaryEntry
	root       *DisplayObject
	clipProto  Value

	backgroundColor [3]uint8

	actionQueue []queuedAction
	eventQueue  []Event

	ticks       uint64
	mouseX      float64
	mouseY      float64
	lastKeyCode int
}

type queuedAction struct {
	target *DisplayObject
	code   []byte
}

// NewPlayer builds an empty player. Load must run before Tick.
func NewPlayer(opts Options) *Player {
	p := &Player{
		log:    opts.Log,
		images: opts.Images,
		audio:  opts.Audio,
		store:  opts.Store,
	}
	if p.log == nil {
		p.log = commonlog.GetLogger("flick.player")
	}
	if p.images == nil {
		p.images = NullImageDecoder{}
	}
	if p.audio == nil {
		p.audio = NullAudioDecoder{}
	}

	p.heap = NewHeap()
	p.interp = NewInterp(p.heap)
	p.interp.player = p
	if opts.MaxDepth > 0 {
		p.interp.SetMaxDepth(opts.MaxDepth)
	}
	if opts.Budget > 0 {
		p.interp.SetBudget(NewBudget(int64(opts.Budget)))
	}
	p.interp.SetErrorSink(func(location, message string) {
		p.log.Errorf("script error at %s: %s", location, message)
	})
	p.interp.SetTraceSink(func(message string) {
		p.log.Infof("trace: %s", message)
	})

	p.interp.InstallBuiltins()
	p.clipProto = p.buildClipProto()

	// Key.getCode() exposes the most recent key event's code to scripts.
	key := p.heap.Alloc(Undefined)
	p.heap.Set(key, "getCode", p.heap.NewFunction(&Function{
		Name: "getCode",
		Native: func(in *Interp, this Value, args []Value) (Value, error) {
			return FromFloat64(float64(p.lastKeyCode)), nil
		},
	}))
	p.heap.Set(p.interp.Globals(), "Key", key)

	p.heap.AddRoots(func(mark func(Value)) {
		mark(p.clipProto)
		// Every backing in the live display tree is a root, whether or not
		// its ancestors have backings of their own. Destroyed nodes are out
		// of the tree; their backings survive only via script references.
		var walk func(d *DisplayObject)
		walk = func(d *DisplayObject) {
			mark(d.backing)
			for _, c := range d.children {
				walk(c)
			}
		}
		if p.root != nil {
			walk(p.root)
		}
		for _, qa := range p.actionQueue {
			if qa.target != nil {
				mark(qa.target.backing)
			}
		}
	})
	return p
}

// Heap exposes the managed heap, mainly for inspection in tests and tools.
func (p *Player) Heap() *Heap { return p.heap }

// Interp exposes the interpreter for hosts that call script directly.
func (p *Player) Interp() *Interp { return p.interp }

// SetErrorSink replaces the default uncaught error logger.
func (p *Player) SetErrorSink(sink ErrorSink) { p.interp.SetErrorSink(sink) }

// SetTraceSink replaces the default trace logger.
func (p *Player) SetTraceSink(sink TraceSink) { p.interp.SetTraceSink(sink) }

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load decodes a movie and prepares the display list. The root clip exists
// afterwards but has not entered its first frame; the first Tick runs
// frame 0. A format error aborts the load; media decode failures degrade
// the affected characters only.
func (p *Player) Load(data []byte) error {
	movie, err := swf.DecodeMovie(data)
	if err != nil {
		return fmt.Errorf("load movie: %w", err)
	}

	p.header = movie.Header
	p.dictionary = map[uint16]*dictionaryEntry{}
	p.backgroundColor = [3]uint8{255, 255, 255}
	p.actionQueue = nil
	p.eventQueue = nil
	p.ticks = 0

	p.registerCharacters(movie.Tags)

	p.root = newDisplayObject(p, KindClip, BuildClipDefinition(movie.Tags), 0)
	rootBacking := p.root.EnsureBacking()
	p.heap.Set(p.interp.Globals(), "_root", rootBacking)
	p.heap.Set(p.interp.Globals(), "_level0", rootBacking)

	p.log.Infof("loaded movie: version %d, %d frames, %d characters",
		p.header.Version, p.header.FrameCount, len(p.dictionary))
	return nil
}

// registerCharacters fills the dictionary from definition tags, recursing
// into sprites since nothing forbids nested definitions in practice.
func (p *Player) registerCharacters(tags []swf.Tag) {
	for _, tag := range tags {
		switch t := tag.(type) {
		case swf.DefineSprite:
			p.registerCharacters(t.Tags)
			p.dictionary[t.CharacterID] = &dictionaryEntry{
				Kind: KindClip,
				Clip: BuildClipDefinition(t.Tags),
			}
		case swf.DefineShape:
			p.dictionary[t.CharacterID] = &dictionaryEntry{Kind: KindShape, Shape: t.Shape}
		case swf.DefineBits:
			entry := &dictionaryEntry{Kind: KindImage}
			img, err := p.images.DecodeImage(t.Data)
			if err != nil {
				p.log.Warningf("character %d: image decode failed: %s", t.CharacterID, err)
			} else {
				entry.Image = img
			}
			p.dictionary[t.CharacterID] = entry
		case swf.DefineSound:
			entry := &dictionaryEntry{Kind: KindSound}
			snd, err := p.audio.DecodeSound(t.Flags, t.SampleCount, t.Data)
			if err != nil {
				p.log.Warningf("character %d: sound decode failed: %s", t.CharacterID, err)
			} else {
				entry.Sound = snd
			}
			p.dictionary[t.CharacterID] = entry
		}
	}
}

// Loaded reports whether a movie is loaded.
func (p *Player) Loaded() bool { return p.root != nil }

// Header returns the loaded movie's header.
func (p *Player) Header() swf.Header { return p.header }

// Root returns the root clip, or nil before Load.
func (p *Player) Root() *DisplayObject { return p.root }

// BackgroundColor returns the current stage background.
func (p *Player) BackgroundColor() (r, g, b uint8) {
	return p.backgroundColor[0], p.backgroundColor[1], p.backgroundColor[2]
}

// Ticks returns how many ticks have completed since Load.
func (p *Player) Ticks() uint64 { return p.ticks }

// ---------------------------------------------------------------------------
// Ticking
// ---------------------------------------------------------------------------

// Tick runs one timeline step:
//
//  1. every playing timeline advances one frame, depth-first, applying
//     placement tags and queueing frame scripts;
//  2. onEnterFrame handlers run, in tree order;
//  3. queued frame scripts drain, including scripts queued by gotos those
//     scripts perform, until the queue is empty;
//  4. injected host events dispatch to handler properties.
//
// Script errors are reported to the error sink and never abort the tick.
func (p *Player) Tick() error {
	if p.root == nil {
		return ErrNotLoaded
	}

	p.root.advanceTree()

	p.VisitDisplayList(func(d *DisplayObject) {
		if d.backing.IsUndefined() {
			return
		}
		handler := p.heap.Get(d.backing, "onEnterFrame")
		if p.heap.FunctionOf(handler) == nil {
			return
		}
		if _, err := p.interp.Call(handler, d.backing, nil); err != nil {
			p.interp.reportError(d.Path()+".onEnterFrame", err.Error())
		}
	})

	for len(p.actionQueue) > 0 {
		qa := p.actionQueue[0]
		p.actionQueue = p.actionQueue[1:]
		if qa.target != nil && qa.target.destroyed {
			continue
		}
		if err := p.interp.ExecuteActions(qa.code, qa.target); err != nil {
			location := "frame actions"
			if qa.target != nil {
				location = qa.target.Path()
			}
			p.interp.reportError(location, err.Error())
		}
	}

	events := p.eventQueue
	p.eventQueue = nil
	for _, e := range events {
		p.dispatchEvent(e)
	}

	p.ticks++
	p.heap.MaybeCollect()
	return nil
}

// RunFrames ticks n times.
func (p *Player) RunFrames(n int) error {
	for i := 0; i < n; i++ {
		if err := p.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// InjectEvent queues a host input event for the next tick.
func (p *Player) InjectEvent(e Event) {
	p.eventQueue = append(p.eventQueue, e)
}

// queueActions defers a frame script for the post-traversal drain.
func (p *Player) queueActions(target *DisplayObject, code []byte) {
	p.actionQueue = append(p.actionQueue, queuedAction{target: target, code: code})
}

// VisitDisplayList walks the live display list in tree order (each node
// before its children, children in ascending depth). The visitor must not
// mutate the tree.
func (p *Player) VisitDisplayList(visit func(*DisplayObject)) {
	if p.root == nil {
		return
	}
	var walk func(d *DisplayObject)
	walk = func(d *DisplayObject) {
		if d.destroyed {
			return
		}
		visit(d)
		for _, c := range d.children {
			walk(c)
		}
	}
	walk(p.root)
}

// ---------------------------------------------------------------------------
// The shared clip prototype
// ---------------------------------------------------------------------------

// buildClipProto constructs the prototype object every clip backing links
// to: timeline methods plus the position and identity accessors.
func (p *Player) buildClipProto() Value {
	h := p.heap
	proto := h.Alloc(Undefined)
	h.Pin(proto)

	method := func(name string, fn func(d *DisplayObject, args []Value) Value) {
		h.Set(proto, name, h.NewFunction(&Function{
			Name: name,
			Native: func(in *Interp, this Value, args []Value) (Value, error) {
				d := in.heap.DisplayOf(this)
				if d == nil {
					return Undefined, nil
				}
				return fn(d, args), nil
			},
		}))
	}
	getter := func(name string, get func(d *DisplayObject) Value) {
		g := h.NewFunction(&Function{
			Name: "get " + name,
			Native: func(in *Interp, this Value, args []Value) (Value, error) {
				d := in.heap.DisplayOf(this)
				if d == nil {
					return Undefined, nil
				}
				return get(d), nil
			},
		})
		h.DefineAccessor(proto, name, g, Undefined)
	}
	accessor := func(name string, get func(d *DisplayObject) Value, set func(d *DisplayObject, v Value)) {
		g := h.NewFunction(&Function{
			Name: "get " + name,
			Native: func(in *Interp, this Value, args []Value) (Value, error) {
				d := in.heap.DisplayOf(this)
				if d == nil {
					return Undefined, nil
				}
				return get(d), nil
			},
		})
		s := h.NewFunction(&Function{
			Name: "set " + name,
			Native: func(in *Interp, this Value, args []Value) (Value, error) {
				d := in.heap.DisplayOf(this)
				if d != nil && len(args) > 0 {
					set(d, args[0])
				}
				return Undefined, nil
			},
		})
		h.DefineAccessor(proto, name, g, s)
	}

	method("play", func(d *DisplayObject, args []Value) Value {
		d.Play()
		return Undefined
	})
	method("stop", func(d *DisplayObject, args []Value) Value {
		d.Stop()
		return Undefined
	})
	method("gotoAndPlay", func(d *DisplayObject, args []Value) Value {
		p.scriptGoto(d, args, true)
		return Undefined
	})
	method("gotoAndStop", func(d *DisplayObject, args []Value) Value {
		p.scriptGoto(d, args, false)
		return Undefined
	})
	method("nextFrame", func(d *DisplayObject, args []Value) Value {
		d.GotoFrame(d.CurrentFrame()+1, false)
		return Undefined
	})
	method("prevFrame", func(d *DisplayObject, args []Value) Value {
		d.GotoFrame(d.CurrentFrame()-1, false)
		return Undefined
	})

	accessor("_x",
		func(d *DisplayObject) Value {
			return FromFloat64(swf.PixelsFromTwips(d.matrix.TranslateX))
		},
		func(d *DisplayObject, v Value) {
			d.matrix.TranslateX = swf.TwipsFromPixels(h.ToNumber(v))
			d.hasMatrix = true
		})
	accessor("_y",
		func(d *DisplayObject) Value {
			return FromFloat64(swf.PixelsFromTwips(d.matrix.TranslateY))
		},
		func(d *DisplayObject, v Value) {
			d.matrix.TranslateY = swf.TwipsFromPixels(h.ToNumber(v))
			d.hasMatrix = true
		})
	accessor("_name",
		func(d *DisplayObject) Value { return h.Intern(d.name) },
		func(d *DisplayObject, v Value) { p.renameChild(d, h.ToString(v)) })

	getter("_currentframe", func(d *DisplayObject) Value {
		return FromFloat64(float64(d.CurrentFrame() + 1))
	})
	getter("_totalframes", func(d *DisplayObject) Value {
		return FromFloat64(float64(d.TotalFrames()))
	})
	getter("_root", func(d *DisplayObject) Value {
		return d.Root().EnsureBacking()
	})
	getter("_parent", func(d *DisplayObject) Value {
		if d.parent == nil {
			return Undefined
		}
		return d.parent.EnsureBacking()
	})
	getter("_xmouse", func(d *DisplayObject) Value { return FromFloat64(p.mouseX) })
	getter("_ymouse", func(d *DisplayObject) Value { return FromFloat64(p.mouseY) })

	return proto
}

// scriptGoto implements gotoAndPlay/gotoAndStop: a number is a one-based
// frame, anything else is a label.
func (p *Player) scriptGoto(d *DisplayObject, args []Value, play bool) {
	if len(args) == 0 {
		return
	}
	if args[0].IsNumber() {
		d.GotoFrame(int(args[0].Float64())-1, play)
		return
	}
	d.GotoLabel(p.heap.ToString(args[0]), play)
}

// renameChild updates an instance name and the parent's named-child
// property.
func (p *Player) renameChild(d *DisplayObject, name string) {
	if d.parent != nil && !d.parent.backing.IsUndefined() {
		if d.name != "" {
			p.heap.Delete(d.parent.backing, d.name)
		}
		if name != "" {
			p.heap.Set(d.parent.backing, name, d.EnsureBacking())
		}
	}
	d.name = name
}
