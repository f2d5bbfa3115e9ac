// Package swf decodes and encodes the legacy multimedia container format:
// a small fixed header followed by a stream of length-prefixed, typed,
// versioned records ("tags") describing assets, placements, and scripts.
//
// The package is a pure codec. It performs no rendering, no script
// execution, and no I/O beyond the byte buffer it is handed; those concerns
// belong to the vm package and the host.
package swf

// Fixed16 is a signed 16.16 fixed-point number as stored in matrices.
type Fixed16 int32

// Float64 converts the fixed-point value to a float64.
func (f Fixed16) Float64() float64 { return float64(f) / 65536.0 }

// Fixed16FromFloat converts a float64 to 16.16 fixed point, truncating.
func Fixed16FromFloat(v float64) Fixed16 { return Fixed16(v * 65536.0) }

// Twips is the coordinate unit of the container: 1/20 of a pixel.
type Twips = int32

// PixelsFromTwips converts a twips coordinate to pixels.
func PixelsFromTwips(t Twips) float64 { return float64(t) / 20 }

// TwipsFromPixels converts a pixel coordinate to twips, rounding to the
// nearest twip.
func TwipsFromPixels(p float64) Twips {
	if p < 0 {
		return Twips(p*20 - 0.5)
	}
	return Twips(p*20 + 0.5)
}

// Rect is a bit-packed rectangle in twips.
type Rect struct {
	XMin Twips
	XMax Twips
	YMin Twips
	YMax Twips
}

// Matrix is the 2x3 affine placement transform. Scale and rotate terms are
// 16.16 fixed point; translation is in twips.
type Matrix struct {
	HasScale    bool
	ScaleX      Fixed16
	ScaleY      Fixed16
	HasRotate   bool
	RotateSkew0 Fixed16
	RotateSkew1 Fixed16
	TranslateX  Twips
	TranslateY  Twips
}

// IdentityMatrix returns the identity placement transform.
func IdentityMatrix() Matrix {
	return Matrix{}
}

// ColorTransform is the bit-packed RGBA multiply/add color adjustment
// carried by placement tags.
type ColorTransform struct {
	HasMult bool
	MultR   int32 // 8.8 fixed point
	MultG   int32
	MultB   int32
	MultA   int32
	HasAdd  bool
	AddR    int32
	AddG    int32
	AddB    int32
	AddA    int32
}

// Header is the fixed container header. FileLength is the declared length
// of the whole (decompressed) file including the 8 uncompressed prefix
// bytes. FrameRate is stored as 8.8 fixed point.
type Header struct {
	Version    uint8
	Compressed bool
	FileLength uint32
	Bounds     Rect
	FrameRate  float64
	FrameCount uint16
}

// Tag codes understood by this package. Codes not listed here decode as
// Unknown and are preserved verbatim.
const (
	CodeEnd                uint16 = 0
	CodeShowFrame          uint16 = 1
	CodeDefineShape        uint16 = 2
	CodeDefineBits         uint16 = 6
	CodeSetBackgroundColor uint16 = 9
	CodeDoAction           uint16 = 12
	CodeDefineSound        uint16 = 14
	CodePlaceObject2       uint16 = 26
	CodeRemoveObject2      uint16 = 28
	CodeDefineSprite       uint16 = 39
	CodeFrameLabel         uint16 = 43
)

// Tag is one structured record in the container stream. Tags are immutable
// once decoded.
type Tag interface {
	TagCode() uint16
}

// End terminates a tag stream (the whole movie or one sprite).
type End struct{}

func (End) TagCode() uint16 { return CodeEnd }

// ShowFrame marks the end of one timeline frame.
type ShowFrame struct{}

func (ShowFrame) TagCode() uint16 { return CodeShowFrame }

// SetBackgroundColor sets the stage background.
type SetBackgroundColor struct {
	R, G, B uint8
}

func (SetBackgroundColor) TagCode() uint16 { return CodeSetBackgroundColor }

// FrameLabel names the frame it appears in, for scripted navigation.
type FrameLabel struct {
	Name string
}

func (FrameLabel) TagCode() uint16 { return CodeFrameLabel }

// DefineShape declares a drawable character. The shape records themselves
// are opaque to the runtime (rendering is a host collaborator) and kept raw.
type DefineShape struct {
	CharacterID uint16
	Bounds      Rect
	Shape       []byte
}

func (DefineShape) TagCode() uint16 { return CodeDefineShape }

// DefineBits declares an encoded image character. The payload is handed to
// the host's image decoder collaborator; the codec never interprets it.
type DefineBits struct {
	CharacterID uint16
	Data        []byte
}

func (DefineBits) TagCode() uint16 { return CodeDefineBits }

// DefineSound declares an encoded audio character. Flags pack the format,
// sample rate, sample size, and channel count; the encoded payload is
// handed to the host's audio decoder collaborator.
type DefineSound struct {
	CharacterID uint16
	Flags       uint8
	SampleCount uint32
	Data        []byte
}

func (DefineSound) TagCode() uint16 { return CodeDefineSound }

// DoAction attaches a script action blob to the frame it appears in. The
// bytecode is decoded and validated by the vm package, not here.
type DoAction struct {
	Code []byte
}

func (DoAction) TagCode() uint16 { return CodeDoAction }

// PlaceObject2 places a character on the display list at a depth, or
// modifies the object already there when Move is set.
type PlaceObject2 struct {
	Move           bool
	Depth          uint16
	HasCharacter   bool
	CharacterID    uint16
	Matrix         *Matrix
	ColorTransform *ColorTransform
	HasRatio       bool
	Ratio          uint16
	HasName        bool
	Name           string
	HasClipDepth   bool
	ClipDepth      uint16
	// ClipActions is preserved raw; per-placement event scripts are a
	// later-version feature the runtime dispatches through script-assigned
	// handlers instead.
	ClipActions []byte
}

func (PlaceObject2) TagCode() uint16 { return CodePlaceObject2 }

// RemoveObject2 removes whatever occupies the given depth.
type RemoveObject2 struct {
	Depth uint16
}

func (RemoveObject2) TagCode() uint16 { return CodeRemoveObject2 }

// DefineSprite declares a character with its own nested timeline. The
// nested tag stream is decoded recursively with the same tag reader.
type DefineSprite struct {
	CharacterID uint16
	FrameCount  uint16
	Tags        []Tag
}

func (DefineSprite) TagCode() uint16 { return CodeDefineSprite }

// Unknown is any tag kind this package does not understand. The declared
// length is consumed exactly and the payload preserved, so unknown tags
// round-trip and are never an error.
type Unknown struct {
	Code uint16
	Data []byte
}

func (u Unknown) TagCode() uint16 { return u.Code }
