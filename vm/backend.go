package vm

// ---------------------------------------------------------------------------
// Media backends
//
// The runtime is headless: it never rasterizes or plays audio itself.
// Hosts supply decoders for embedded media; the null implementations keep
// movies loadable with no media support at all.
// ---------------------------------------------------------------------------

// Image is a decoded bitmap character.
type Image struct {
	Width  int
	Height int
	Pixels []byte // RGBA, 4 bytes per pixel, row-major
}

// Sound is a decoded audio character.
type Sound struct {
	SampleRate  int
	Stereo      bool
	SampleCount uint32
	Samples     []int16
}

// ImageDecoder decodes an embedded bitmap's payload. A decode failure
// degrades that character to an empty placeholder; it never fails the
// movie load.
type ImageDecoder interface {
	DecodeImage(data []byte) (*Image, error)
}

// AudioDecoder decodes an embedded sound's payload. Failures degrade the
// character the same way image failures do.
type AudioDecoder interface {
	DecodeSound(flags uint8, sampleCount uint32, data []byte) (*Sound, error)
}

// NullImageDecoder accepts every bitmap and produces an empty image.
type NullImageDecoder struct{}

func (NullImageDecoder) DecodeImage(data []byte) (*Image, error) {
	return &Image{}, nil
}

// NullAudioDecoder accepts every sound and produces silence of the
// declared length.
type NullAudioDecoder struct{}

func (NullAudioDecoder) DecodeSound(flags uint8, sampleCount uint32, data []byte) (*Sound, error) {
	return &Sound{SampleCount: sampleCount}, nil
}
