package swf

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zlib"
)

// ---------------------------------------------------------------------------
// Writer: symmetric encoder for the tag stream
//
// Every tag the reader produces re-encodes to a form that parses back to an
// equal structured record. Bit-field widths are chosen minimally, so the
// encoded bytes are not guaranteed identical to the input bytes, only
// structurally equivalent.
// ---------------------------------------------------------------------------

// EncodeMovie encodes a header and tag list into a complete container,
// appending the terminating End tag and back-patching the declared file
// length. The header's Compressed flag selects a zlib-compressed body.
func EncodeMovie(m *Movie) ([]byte, error) {
	var body bytes.Buffer

	bw := &bitWriter{}
	writeRect(bw, m.Header.Bounds)
	body.Write(bw.Bytes())

	var fr [4]byte
	binary.LittleEndian.PutUint16(fr[0:], uint16(m.Header.FrameRate*256.0))
	binary.LittleEndian.PutUint16(fr[2:], m.Header.FrameCount)
	body.Write(fr[:])

	for _, tag := range m.Tags {
		enc, err := EncodeTag(tag)
		if err != nil {
			return nil, err
		}
		body.Write(enc)
	}
	endTag, _ := EncodeTag(End{})
	body.Write(endTag)

	fileLength := uint32(uncompressedPrefixSize + body.Len())

	var out bytes.Buffer
	if m.Header.Compressed {
		out.WriteByte(sigCompressed)
	} else {
		out.WriteByte(sigUncompressed)
	}
	out.WriteString("WS")
	out.WriteByte(m.Header.Version)
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], fileLength)
	out.Write(lenBytes[:])

	if m.Header.Compressed {
		zw := zlib.NewWriter(&out)
		if _, err := zw.Write(body.Bytes()); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	} else {
		out.Write(body.Bytes())
	}
	return out.Bytes(), nil
}

// EncodeTag encodes a single tag including its record header.
func EncodeTag(tag Tag) ([]byte, error) {
	body, err := encodeTagBody(tag)
	if err != nil {
		return nil, err
	}
	return wrapTag(tag.TagCode(), body), nil
}

// wrapTag prepends the code-and-length record header, using the long form
// when the body does not fit the 6-bit short length.
func wrapTag(code uint16, body []byte) []byte {
	var out []byte
	if len(body) < longTagMarker {
		out = make([]byte, 2, 2+len(body))
		binary.LittleEndian.PutUint16(out, code<<6|uint16(len(body)))
	} else {
		out = make([]byte, 6, 6+len(body))
		binary.LittleEndian.PutUint16(out, code<<6|longTagMarker)
		binary.LittleEndian.PutUint32(out[2:], uint32(len(body)))
	}
	return append(out, body...)
}

func encodeTagBody(tag Tag) ([]byte, error) {
	switch t := tag.(type) {
	case End:
		return nil, nil

	case ShowFrame:
		return nil, nil

	case SetBackgroundColor:
		return []byte{t.R, t.G, t.B}, nil

	case FrameLabel:
		return append([]byte(t.Name), 0), nil

	case DefineShape:
		var buf bytes.Buffer
		writeUint16(&buf, t.CharacterID)
		bw := &bitWriter{}
		writeRect(bw, t.Bounds)
		buf.Write(bw.Bytes())
		buf.Write(t.Shape)
		return buf.Bytes(), nil

	case DefineBits:
		var buf bytes.Buffer
		writeUint16(&buf, t.CharacterID)
		buf.Write(t.Data)
		return buf.Bytes(), nil

	case DefineSound:
		var buf bytes.Buffer
		writeUint16(&buf, t.CharacterID)
		buf.WriteByte(t.Flags)
		var sc [4]byte
		binary.LittleEndian.PutUint32(sc[:], t.SampleCount)
		buf.Write(sc[:])
		buf.Write(t.Data)
		return buf.Bytes(), nil

	case DoAction:
		return t.Code, nil

	case PlaceObject2:
		return encodePlaceObject2(t), nil

	case RemoveObject2:
		var buf bytes.Buffer
		writeUint16(&buf, t.Depth)
		return buf.Bytes(), nil

	case DefineSprite:
		var buf bytes.Buffer
		writeUint16(&buf, t.CharacterID)
		writeUint16(&buf, t.FrameCount)
		for _, sub := range t.Tags {
			enc, err := EncodeTag(sub)
			if err != nil {
				return nil, err
			}
			buf.Write(enc)
		}
		endTag, _ := EncodeTag(End{})
		buf.Write(endTag)
		return buf.Bytes(), nil

	case Unknown:
		return t.Data, nil

	default:
		return nil, fmt.Errorf("swf: cannot encode tag type %T", tag)
	}
}

func encodePlaceObject2(p PlaceObject2) []byte {
	var flags byte
	if p.Move {
		flags |= placeFlagMove
	}
	if p.HasCharacter {
		flags |= placeFlagHasCharacter
	}
	if p.Matrix != nil {
		flags |= placeFlagHasMatrix
	}
	if p.ColorTransform != nil {
		flags |= placeFlagHasColorXform
	}
	if p.HasRatio {
		flags |= placeFlagHasRatio
	}
	if p.HasName {
		flags |= placeFlagHasName
	}
	if p.HasClipDepth {
		flags |= placeFlagHasClipDepth
	}
	if len(p.ClipActions) > 0 {
		flags |= placeFlagHasClipActions
	}

	var buf bytes.Buffer
	buf.WriteByte(flags)
	writeUint16(&buf, p.Depth)
	if p.HasCharacter {
		writeUint16(&buf, p.CharacterID)
	}
	if p.Matrix != nil {
		bw := &bitWriter{}
		writeMatrix(bw, *p.Matrix)
		buf.Write(bw.Bytes())
	}
	if p.ColorTransform != nil {
		bw := &bitWriter{}
		writeColorTransform(bw, *p.ColorTransform)
		buf.Write(bw.Bytes())
	}
	if p.HasRatio {
		writeUint16(&buf, p.Ratio)
	}
	if p.HasName {
		buf.WriteString(p.Name)
		buf.WriteByte(0)
	}
	if p.HasClipDepth {
		writeUint16(&buf, p.ClipDepth)
	}
	if len(p.ClipActions) > 0 {
		buf.Write(p.ClipActions)
	}
	return buf.Bytes()
}

// ---------------------------------------------------------------------------
// Shared structure encoding
// ---------------------------------------------------------------------------

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeRect(bw *bitWriter, r Rect) {
	nbits := bitsRequiredSigned(r.XMin, r.XMax, r.YMin, r.YMax)
	bw.WriteUB(5, uint32(nbits))
	bw.WriteSB(nbits, r.XMin)
	bw.WriteSB(nbits, r.XMax)
	bw.WriteSB(nbits, r.YMin)
	bw.WriteSB(nbits, r.YMax)
}

func writeMatrix(bw *bitWriter, m Matrix) {
	if m.HasScale {
		bw.WriteUB(1, 1)
		nbits := bitsRequiredSigned(int32(m.ScaleX), int32(m.ScaleY))
		bw.WriteUB(5, uint32(nbits))
		bw.WriteSB(nbits, int32(m.ScaleX))
		bw.WriteSB(nbits, int32(m.ScaleY))
	} else {
		bw.WriteUB(1, 0)
	}
	if m.HasRotate {
		bw.WriteUB(1, 1)
		nbits := bitsRequiredSigned(int32(m.RotateSkew0), int32(m.RotateSkew1))
		bw.WriteUB(5, uint32(nbits))
		bw.WriteSB(nbits, int32(m.RotateSkew0))
		bw.WriteSB(nbits, int32(m.RotateSkew1))
	} else {
		bw.WriteUB(1, 0)
	}
	nbits := bitsRequiredSigned(m.TranslateX, m.TranslateY)
	bw.WriteUB(5, uint32(nbits))
	bw.WriteSB(nbits, m.TranslateX)
	bw.WriteSB(nbits, m.TranslateY)
}

func writeColorTransform(bw *bitWriter, cx ColorTransform) {
	if cx.HasAdd {
		bw.WriteUB(1, 1)
	} else {
		bw.WriteUB(1, 0)
	}
	if cx.HasMult {
		bw.WriteUB(1, 1)
	} else {
		bw.WriteUB(1, 0)
	}
	var vals []int32
	if cx.HasMult {
		vals = append(vals, cx.MultR, cx.MultG, cx.MultB, cx.MultA)
	}
	if cx.HasAdd {
		vals = append(vals, cx.AddR, cx.AddG, cx.AddB, cx.AddA)
	}
	nbits := uint(1)
	if len(vals) > 0 {
		nbits = bitsRequiredSigned(vals...)
	}
	if nbits > 15 {
		nbits = 15
	}
	bw.WriteUB(4, uint32(nbits))
	if cx.HasMult {
		bw.WriteSB(nbits, cx.MultR)
		bw.WriteSB(nbits, cx.MultG)
		bw.WriteSB(nbits, cx.MultB)
		bw.WriteSB(nbits, cx.MultA)
	}
	if cx.HasAdd {
		bw.WriteSB(nbits, cx.AddR)
		bw.WriteSB(nbits, cx.AddG)
		bw.WriteSB(nbits, cx.AddB)
		bw.WriteSB(nbits, cx.AddA)
	}
}
