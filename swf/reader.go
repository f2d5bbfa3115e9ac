package swf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ---------------------------------------------------------------------------
// Format error types
// ---------------------------------------------------------------------------

var (
	ErrBadSignature    = errors.New("swf: bad container signature")
	ErrTruncatedHeader = errors.New("swf: truncated header")
	ErrTruncatedTag    = errors.New("swf: truncated tag body")
	ErrBadTagBody      = errors.New("swf: malformed tag body")
	ErrBadCompression  = errors.New("swf: corrupt compressed body")
)

// IsFormatError reports whether err is any container format error. All of
// the sentinel errors above satisfy it.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrBadSignature) ||
		errors.Is(err, ErrTruncatedHeader) ||
		errors.Is(err, ErrTruncatedTag) ||
		errors.Is(err, ErrBadTagBody) ||
		errors.Is(err, ErrBadCompression)
}

// ---------------------------------------------------------------------------
// Header decoding
// ---------------------------------------------------------------------------

// Signature bytes. The third byte is always 'S'; the first selects raw or
// zlib-compressed body.
const (
	sigUncompressed = 'F'
	sigCompressed   = 'C'
)

// uncompressedPrefixSize is the portion of the file that is never
// compressed: signature (3), version (1), declared file length (4).
const uncompressedPrefixSize = 8

// DecodeHeader parses the fixed header and returns it along with the
// decompressed tag stream body. The declared file length covers the whole
// decompressed file including the 8 prefix bytes; the returned body is
// truncated to exactly that length so later reads can never run past the
// declared end.
//
// A truncated or unrecognizable header fails the whole load.
func DecodeHeader(data []byte) (Header, []byte, error) {
	if len(data) < uncompressedPrefixSize {
		return Header{}, nil, ErrTruncatedHeader
	}
	if data[1] != 'W' || data[2] != 'S' {
		return Header{}, nil, fmt.Errorf("%w: %q", ErrBadSignature, data[:3])
	}

	var compressed bool
	switch data[0] {
	case sigUncompressed:
		compressed = false
	case sigCompressed:
		compressed = true
	default:
		return Header{}, nil, fmt.Errorf("%w: %q", ErrBadSignature, data[:3])
	}

	h := Header{
		Version:    data[3],
		Compressed: compressed,
		FileLength: binary.LittleEndian.Uint32(data[4:8]),
	}
	if h.FileLength < uncompressedPrefixSize {
		return Header{}, nil, fmt.Errorf("%w: declared length %d", ErrTruncatedHeader, h.FileLength)
	}

	body := data[uncompressedPrefixSize:]
	if compressed {
		// The body must be fully materialized before tag decoding begins.
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return Header{}, nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
		defer zr.Close()
		inflated, err := io.ReadAll(zr)
		if err != nil {
			return Header{}, nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
		body = inflated
	}

	declared := int(h.FileLength) - uncompressedPrefixSize
	if len(body) < declared {
		return Header{}, nil, fmt.Errorf("%w: body is %d bytes, header declares %d",
			ErrTruncatedHeader, len(body), declared)
	}
	body = body[:declared]

	// Stage bounds, frame rate (8.8 fixed), frame count.
	br := newBitReader(body)
	bounds, err := readRect(br)
	if err != nil {
		return Header{}, nil, fmt.Errorf("%w: stage bounds", ErrTruncatedHeader)
	}
	h.Bounds = bounds
	pos := br.BytesConsumed()
	if pos+4 > len(body) {
		return Header{}, nil, ErrTruncatedHeader
	}
	h.FrameRate = float64(binary.LittleEndian.Uint16(body[pos:])) / 256.0
	h.FrameCount = binary.LittleEndian.Uint16(body[pos+2:])
	return h, body[pos+4:], nil
}

// ---------------------------------------------------------------------------
// Reader: lazy tag stream decoding
// ---------------------------------------------------------------------------

// Reader decodes the tag stream of one container body. It is finite and
// not restartable; decode a fresh Reader per body.
//
// Tag-level error policy: a truncated or malformed tag body aborts the
// whole load (the alternative, skipping the one tag, is permitted by the
// format but this implementation chooses the strict policy consistently).
type Reader struct {
	header Header
	data   []byte
	pos    int
	done   bool
}

// NewReader decodes the header (decompressing the body when the signature
// calls for it) and returns a Reader positioned at the first tag.
func NewReader(data []byte) (*Reader, error) {
	h, body, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	return &Reader{header: h, data: body}, nil
}

// Header returns the decoded container header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next tag in the stream, or io.EOF after the End tag or
// the end of the declared content.
func (r *Reader) Next() (Tag, error) {
	if r.done || r.pos >= len(r.data) {
		r.done = true
		return nil, io.EOF
	}
	tag, n, err := decodeTag(r.data[r.pos:])
	if err != nil {
		return nil, err
	}
	r.pos += n
	if _, isEnd := tag.(End); isEnd {
		r.done = true
	}
	return tag, nil
}

// ReadAll decodes every remaining tag. The trailing End tag is consumed
// but not included in the result.
func (r *Reader) ReadAll() ([]Tag, error) {
	var tags []Tag
	for {
		tag, err := r.Next()
		if err == io.EOF {
			return tags, nil
		}
		if err != nil {
			return nil, err
		}
		if _, isEnd := tag.(End); isEnd {
			return tags, nil
		}
		tags = append(tags, tag)
	}
}

// Movie is a fully decoded container.
type Movie struct {
	Header Header
	Tags   []Tag
}

// DecodeMovie decodes a complete container from a byte buffer.
func DecodeMovie(data []byte) (*Movie, error) {
	r, err := NewReader(data)
	if err != nil {
		return nil, err
	}
	tags, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return &Movie{Header: r.Header(), Tags: tags}, nil
}

// ---------------------------------------------------------------------------
// Tag decoding
// ---------------------------------------------------------------------------

// longTagMarker in the short length field signals a following 32-bit length.
const longTagMarker = 0x3F

// decodeTag decodes one tag from the front of data, returning the tag and
// the total number of bytes consumed (header plus declared body length).
func decodeTag(data []byte) (Tag, int, error) {
	if len(data) < 2 {
		return nil, 0, ErrTruncatedTag
	}
	codeAndLen := binary.LittleEndian.Uint16(data)
	code := codeAndLen >> 6
	length := int(codeAndLen & 0x3F)
	headerSize := 2
	if length == longTagMarker {
		if len(data) < 6 {
			return nil, 0, ErrTruncatedTag
		}
		length = int(binary.LittleEndian.Uint32(data[2:6]))
		headerSize = 6
	}
	if headerSize+length > len(data) {
		return nil, 0, fmt.Errorf("%w: tag %d declares %d bytes, %d remain",
			ErrTruncatedTag, code, length, len(data)-headerSize)
	}
	body := data[headerSize : headerSize+length]

	tag, err := decodeTagBody(code, body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w (tag %d)", err, code)
	}
	// The declared length is consumed exactly regardless of how much of the
	// body the typed decoder looked at.
	return tag, headerSize + length, nil
}

func decodeTagBody(code uint16, body []byte) (Tag, error) {
	switch code {
	case CodeEnd:
		return End{}, nil

	case CodeShowFrame:
		return ShowFrame{}, nil

	case CodeSetBackgroundColor:
		if len(body) < 3 {
			return nil, ErrBadTagBody
		}
		return SetBackgroundColor{R: body[0], G: body[1], B: body[2]}, nil

	case CodeFrameLabel:
		name, _, err := readString(body)
		if err != nil {
			return nil, err
		}
		return FrameLabel{Name: name}, nil

	case CodeDefineShape:
		if len(body) < 2 {
			return nil, ErrBadTagBody
		}
		id := binary.LittleEndian.Uint16(body)
		br := newBitReader(body[2:])
		bounds, err := readRect(br)
		if err != nil {
			return nil, ErrBadTagBody
		}
		shape := make([]byte, len(body)-2-br.BytesConsumed())
		copy(shape, body[2+br.BytesConsumed():])
		return DefineShape{CharacterID: id, Bounds: bounds, Shape: shape}, nil

	case CodeDefineBits:
		if len(body) < 2 {
			return nil, ErrBadTagBody
		}
		d := make([]byte, len(body)-2)
		copy(d, body[2:])
		return DefineBits{CharacterID: binary.LittleEndian.Uint16(body), Data: d}, nil

	case CodeDefineSound:
		if len(body) < 7 {
			return nil, ErrBadTagBody
		}
		d := make([]byte, len(body)-7)
		copy(d, body[7:])
		return DefineSound{
			CharacterID: binary.LittleEndian.Uint16(body),
			Flags:       body[2],
			SampleCount: binary.LittleEndian.Uint32(body[3:7]),
			Data:        d,
		}, nil

	case CodeDoAction:
		code := make([]byte, len(body))
		copy(code, body)
		return DoAction{Code: code}, nil

	case CodePlaceObject2:
		return decodePlaceObject2(body)

	case CodeRemoveObject2:
		if len(body) < 2 {
			return nil, ErrBadTagBody
		}
		return RemoveObject2{Depth: binary.LittleEndian.Uint16(body)}, nil

	case CodeDefineSprite:
		return decodeDefineSprite(body)

	default:
		d := make([]byte, len(body))
		copy(d, body)
		return Unknown{Code: code, Data: d}, nil
	}
}

// PlaceObject2 flag bits.
const (
	placeFlagMove           = 1 << 0
	placeFlagHasCharacter   = 1 << 1
	placeFlagHasMatrix      = 1 << 2
	placeFlagHasColorXform  = 1 << 3
	placeFlagHasRatio       = 1 << 4
	placeFlagHasName        = 1 << 5
	placeFlagHasClipDepth   = 1 << 6
	placeFlagHasClipActions = 1 << 7
)

func decodePlaceObject2(body []byte) (Tag, error) {
	if len(body) < 3 {
		return nil, ErrBadTagBody
	}
	flags := body[0]
	p := PlaceObject2{
		Move:  flags&placeFlagMove != 0,
		Depth: binary.LittleEndian.Uint16(body[1:3]),
	}
	pos := 3

	if flags&placeFlagHasCharacter != 0 {
		if pos+2 > len(body) {
			return nil, ErrBadTagBody
		}
		p.HasCharacter = true
		p.CharacterID = binary.LittleEndian.Uint16(body[pos:])
		pos += 2
	}
	if flags&placeFlagHasMatrix != 0 {
		br := newBitReader(body[pos:])
		m, err := readMatrix(br)
		if err != nil {
			return nil, ErrBadTagBody
		}
		p.Matrix = &m
		pos += br.BytesConsumed()
	}
	if flags&placeFlagHasColorXform != 0 {
		br := newBitReader(body[pos:])
		cx, err := readColorTransform(br)
		if err != nil {
			return nil, ErrBadTagBody
		}
		p.ColorTransform = &cx
		pos += br.BytesConsumed()
	}
	if flags&placeFlagHasRatio != 0 {
		if pos+2 > len(body) {
			return nil, ErrBadTagBody
		}
		p.HasRatio = true
		p.Ratio = binary.LittleEndian.Uint16(body[pos:])
		pos += 2
	}
	if flags&placeFlagHasName != 0 {
		name, n, err := readString(body[pos:])
		if err != nil {
			return nil, err
		}
		p.HasName = true
		p.Name = name
		pos += n
	}
	if flags&placeFlagHasClipDepth != 0 {
		if pos+2 > len(body) {
			return nil, ErrBadTagBody
		}
		p.HasClipDepth = true
		p.ClipDepth = binary.LittleEndian.Uint16(body[pos:])
		pos += 2
	}
	if flags&placeFlagHasClipActions != 0 {
		// Preserved raw so the tag re-encodes byte for byte.
		p.ClipActions = make([]byte, len(body)-pos)
		copy(p.ClipActions, body[pos:])
	}
	return p, nil
}

func decodeDefineSprite(body []byte) (Tag, error) {
	if len(body) < 4 {
		return nil, ErrBadTagBody
	}
	sprite := DefineSprite{
		CharacterID: binary.LittleEndian.Uint16(body),
		FrameCount:  binary.LittleEndian.Uint16(body[2:4]),
	}
	// The nested timeline is a complete tag stream, End-terminated,
	// decoded with the same tag reader logic.
	rest := body[4:]
	for len(rest) > 0 {
		tag, n, err := decodeTag(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
		if _, isEnd := tag.(End); isEnd {
			return sprite, nil
		}
		sprite.Tags = append(sprite.Tags, tag)
	}
	return sprite, nil
}

// ---------------------------------------------------------------------------
// Shared structure decoding
// ---------------------------------------------------------------------------

func readRect(br *bitReader) (Rect, error) {
	nbits, err := br.ReadUB(5)
	if err != nil {
		return Rect{}, err
	}
	var r Rect
	fields := []*Twips{&r.XMin, &r.XMax, &r.YMin, &r.YMax}
	for _, f := range fields {
		v, err := br.ReadSB(uint(nbits))
		if err != nil {
			return Rect{}, err
		}
		*f = v
	}
	return r, nil
}

func readMatrix(br *bitReader) (Matrix, error) {
	var m Matrix
	hasScale, err := br.ReadUB(1)
	if err != nil {
		return m, err
	}
	if hasScale == 1 {
		m.HasScale = true
		nbits, err := br.ReadUB(5)
		if err != nil {
			return m, err
		}
		if m.ScaleX, err = br.ReadFB(uint(nbits)); err != nil {
			return m, err
		}
		if m.ScaleY, err = br.ReadFB(uint(nbits)); err != nil {
			return m, err
		}
	}
	hasRotate, err := br.ReadUB(1)
	if err != nil {
		return m, err
	}
	if hasRotate == 1 {
		m.HasRotate = true
		nbits, err := br.ReadUB(5)
		if err != nil {
			return m, err
		}
		if m.RotateSkew0, err = br.ReadFB(uint(nbits)); err != nil {
			return m, err
		}
		if m.RotateSkew1, err = br.ReadFB(uint(nbits)); err != nil {
			return m, err
		}
	}
	nbits, err := br.ReadUB(5)
	if err != nil {
		return m, err
	}
	if m.TranslateX, err = br.ReadSB(uint(nbits)); err != nil {
		return m, err
	}
	if m.TranslateY, err = br.ReadSB(uint(nbits)); err != nil {
		return m, err
	}
	br.Align()
	return m, nil
}

func readColorTransform(br *bitReader) (ColorTransform, error) {
	var cx ColorTransform
	hasAdd, err := br.ReadUB(1)
	if err != nil {
		return cx, err
	}
	hasMult, err := br.ReadUB(1)
	if err != nil {
		return cx, err
	}
	nbits, err := br.ReadUB(4)
	if err != nil {
		return cx, err
	}
	if hasMult == 1 {
		cx.HasMult = true
		fields := []*int32{&cx.MultR, &cx.MultG, &cx.MultB, &cx.MultA}
		for _, f := range fields {
			if *f, err = br.ReadSB(uint(nbits)); err != nil {
				return cx, err
			}
		}
	}
	if hasAdd == 1 {
		cx.HasAdd = true
		fields := []*int32{&cx.AddR, &cx.AddG, &cx.AddB, &cx.AddA}
		for _, f := range fields {
			if *f, err = br.ReadSB(uint(nbits)); err != nil {
				return cx, err
			}
		}
	}
	br.Align()
	return cx, nil
}

// readString reads a null-terminated string, returning the string and the
// number of bytes consumed including the terminator.
func readString(data []byte) (string, int, error) {
	for i, b := range data {
		if b == 0 {
			return string(data[:i]), i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("%w: unterminated string", ErrBadTagBody)
}
