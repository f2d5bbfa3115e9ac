package swf

import (
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"testing"
)

// testHeader returns a plausible header for synthesized movies.
func testHeader(compressed bool) Header {
	return Header{
		Version:    6,
		Compressed: compressed,
		Bounds:     Rect{XMin: 0, XMax: 11000, YMin: 0, YMax: 8000},
		FrameRate:  12.0,
		FrameCount: 3,
	}
}

func mustEncode(t *testing.T, m *Movie) []byte {
	t.Helper()
	data, err := EncodeMovie(m)
	if err != nil {
		t.Fatalf("EncodeMovie: %v", err)
	}
	return data
}

func TestHeaderRoundTrip(t *testing.T) {
	for _, compressed := range []bool{false, true} {
		m := &Movie{Header: testHeader(compressed)}
		data := mustEncode(t, m)

		got, err := DecodeMovie(data)
		if err != nil {
			t.Fatalf("DecodeMovie(compressed=%v): %v", compressed, err)
		}
		if got.Header.Version != 6 {
			t.Errorf("version = %d, want 6", got.Header.Version)
		}
		if got.Header.Compressed != compressed {
			t.Errorf("compressed = %v, want %v", got.Header.Compressed, compressed)
		}
		if got.Header.Bounds != m.Header.Bounds {
			t.Errorf("bounds = %+v, want %+v", got.Header.Bounds, m.Header.Bounds)
		}
		if got.Header.FrameRate != 12.0 {
			t.Errorf("frame rate = %v, want 12", got.Header.FrameRate)
		}
		if got.Header.FrameCount != 3 {
			t.Errorf("frame count = %d, want 3", got.Header.FrameCount)
		}
	}
}

func TestTagRoundTrip(t *testing.T) {
	matrix := &Matrix{
		HasScale:   true,
		ScaleX:     Fixed16FromFloat(2.0),
		ScaleY:     Fixed16FromFloat(0.5),
		TranslateX: 100,
		TranslateY: -240,
	}
	tags := []Tag{
		SetBackgroundColor{R: 255, G: 128, B: 0},
		DefineShape{CharacterID: 1, Bounds: Rect{XMax: 200, YMax: 200}, Shape: []byte{1, 2, 3}},
		DefineBits{CharacterID: 2, Data: []byte{0xFF, 0xD8, 0xFF}},
		DefineSound{CharacterID: 3, Flags: 0x24, SampleCount: 4410, Data: []byte{9, 9}},
		FrameLabel{Name: "intro"},
		PlaceObject2{
			Depth:        1,
			HasCharacter: true,
			CharacterID:  1,
			Matrix:       matrix,
			HasName:      true,
			Name:         "hero",
		},
		DoAction{Code: []byte{0x06, 0x00}},
		ShowFrame{},
		RemoveObject2{Depth: 1},
		ShowFrame{},
	}
	m := &Movie{Header: testHeader(false), Tags: tags}

	got, err := DecodeMovie(mustEncode(t, m))
	if err != nil {
		t.Fatalf("DecodeMovie: %v", err)
	}
	if len(got.Tags) != len(tags) {
		t.Fatalf("decoded %d tags, want %d", len(got.Tags), len(tags))
	}
	for i, want := range tags {
		if !reflect.DeepEqual(got.Tags[i], want) {
			t.Errorf("tag %d = %#v, want %#v", i, got.Tags[i], want)
		}
	}
}

func TestSpriteNestedRoundTrip(t *testing.T) {
	sprite := DefineSprite{
		CharacterID: 5,
		FrameCount:  2,
		Tags: []Tag{
			PlaceObject2{Depth: 1, HasCharacter: true, CharacterID: 1},
			ShowFrame{},
			RemoveObject2{Depth: 1},
			ShowFrame{},
		},
	}
	m := &Movie{Header: testHeader(false), Tags: []Tag{sprite}}

	got, err := DecodeMovie(mustEncode(t, m))
	if err != nil {
		t.Fatalf("DecodeMovie: %v", err)
	}
	if len(got.Tags) != 1 {
		t.Fatalf("decoded %d tags, want 1", len(got.Tags))
	}
	if !reflect.DeepEqual(got.Tags[0], sprite) {
		t.Errorf("sprite = %#v, want %#v", got.Tags[0], sprite)
	}
}

func TestColorTransformRoundTrip(t *testing.T) {
	cx := &ColorTransform{
		HasMult: true,
		MultR:   256, MultG: 128, MultB: 64, MultA: 256,
		HasAdd: true,
		AddR:   -10, AddG: 0, AddB: 10, AddA: 0,
	}
	place := PlaceObject2{Depth: 3, HasCharacter: true, CharacterID: 1, ColorTransform: cx}
	m := &Movie{Header: testHeader(false), Tags: []Tag{place}}

	got, err := DecodeMovie(mustEncode(t, m))
	if err != nil {
		t.Fatalf("DecodeMovie: %v", err)
	}
	if !reflect.DeepEqual(got.Tags[0], place) {
		t.Errorf("place = %#v, want %#v", got.Tags[0], place)
	}
}

func TestUnknownTagSkipped(t *testing.T) {
	// Unknown kinds consume exactly their declared length and decode as
	// Unknown records; they are never an error.
	m := &Movie{Header: testHeader(false), Tags: []Tag{
		Unknown{Code: 83, Data: []byte{1, 2, 3, 4}},
		ShowFrame{},
	}}
	got, err := DecodeMovie(mustEncode(t, m))
	if err != nil {
		t.Fatalf("DecodeMovie: %v", err)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("decoded %d tags, want 2", len(got.Tags))
	}
	u, ok := got.Tags[0].(Unknown)
	if !ok {
		t.Fatalf("tag 0 = %#v, want Unknown", got.Tags[0])
	}
	if u.Code != 83 || !reflect.DeepEqual(u.Data, []byte{1, 2, 3, 4}) {
		t.Errorf("unknown = %#v", u)
	}
	if _, ok := got.Tags[1].(ShowFrame); !ok {
		t.Errorf("tag after unknown = %#v, want ShowFrame", got.Tags[1])
	}
}

func TestLongTagHeader(t *testing.T) {
	// A body of 100 bytes does not fit the 6-bit short length.
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	m := &Movie{Header: testHeader(false), Tags: []Tag{Unknown{Code: 77, Data: data}}}

	got, err := DecodeMovie(mustEncode(t, m))
	if err != nil {
		t.Fatalf("DecodeMovie: %v", err)
	}
	u := got.Tags[0].(Unknown)
	if !reflect.DeepEqual(u.Data, data) {
		t.Errorf("long tag body mismatch")
	}
}

func TestTrailingBytesIgnored(t *testing.T) {
	// The reader must consume exactly the declared length and never read
	// past it, so trailing garbage after the declared end is invisible.
	m := &Movie{Header: testHeader(false), Tags: []Tag{ShowFrame{}}}
	data := append(mustEncode(t, m), 0xDE, 0xAD, 0xBE, 0xEF)

	got, err := DecodeMovie(data)
	if err != nil {
		t.Fatalf("DecodeMovie with trailing bytes: %v", err)
	}
	if len(got.Tags) != 1 {
		t.Errorf("decoded %d tags, want 1", len(got.Tags))
	}
}

func TestTruncatedHeader(t *testing.T) {
	cases := [][]byte{
		nil,
		{'F'},
		{'F', 'W'},
		{'F', 'W', 'S', 6, 0x10, 0x00, 0x00},
	}
	for i, data := range cases {
		if _, err := DecodeMovie(data); !errors.Is(err, ErrTruncatedHeader) {
			t.Errorf("case %d: err = %v, want ErrTruncatedHeader", i, err)
		}
	}
}

func TestBadSignature(t *testing.T) {
	data := []byte{'X', 'W', 'S', 6, 8, 0, 0, 0}
	if _, err := DecodeMovie(data); !errors.Is(err, ErrBadSignature) {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
}

func TestDeclaredLengthLongerThanBody(t *testing.T) {
	m := &Movie{Header: testHeader(false), Tags: []Tag{ShowFrame{}}}
	data := mustEncode(t, m)
	// Inflate the declared length past the actual body.
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(data)+50))

	if _, err := DecodeMovie(data); !errors.Is(err, ErrTruncatedHeader) {
		t.Errorf("err = %v, want ErrTruncatedHeader", err)
	}
}

func TestTruncatedTagBody(t *testing.T) {
	m := &Movie{Header: testHeader(false), Tags: []Tag{
		DefineBits{CharacterID: 9, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
	}}
	data := mustEncode(t, m)
	// Shorten the file but fix up the declared length so the header parses;
	// the tag's own declared length now runs past the end.
	data = data[:len(data)-6]
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(data)))

	if _, err := DecodeMovie(data); !errors.Is(err, ErrTruncatedTag) {
		t.Errorf("err = %v, want ErrTruncatedTag", err)
	}
}

func TestCorruptCompressedBody(t *testing.T) {
	data := []byte{'C', 'W', 'S', 6, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x01, 0x02}
	if _, err := DecodeMovie(data); !errors.Is(err, ErrBadCompression) {
		t.Errorf("err = %v, want ErrBadCompression", err)
	}
}

func TestReaderLazySequence(t *testing.T) {
	m := &Movie{Header: testHeader(false), Tags: []Tag{
		SetBackgroundColor{R: 1, G: 2, B: 3},
		ShowFrame{},
	}}
	r, err := NewReader(mustEncode(t, m))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	if tag, err := r.Next(); err != nil {
		t.Fatalf("Next 1: %v", err)
	} else if _, ok := tag.(SetBackgroundColor); !ok {
		t.Errorf("tag 1 = %#v", tag)
	}
	if tag, err := r.Next(); err != nil {
		t.Fatalf("Next 2: %v", err)
	} else if _, ok := tag.(ShowFrame); !ok {
		t.Errorf("tag 2 = %#v", tag)
	}
	if tag, err := r.Next(); err != nil {
		t.Fatalf("Next 3: %v", err)
	} else if _, ok := tag.(End); !ok {
		t.Errorf("tag 3 = %#v, want End", tag)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("after End: err = %v, want io.EOF", err)
	}
}

func TestIsFormatError(t *testing.T) {
	for _, err := range []error{
		ErrBadSignature, ErrTruncatedHeader, ErrTruncatedTag, ErrBadTagBody, ErrBadCompression,
	} {
		if !IsFormatError(err) {
			t.Errorf("IsFormatError(%v) = false", err)
		}
	}
	if IsFormatError(io.EOF) {
		t.Errorf("IsFormatError(io.EOF) = true")
	}
}
