package swf

// ---------------------------------------------------------------------------
// Bit-level reading and writing
//
// Several container structures (stage bounds, placement matrices, color
// transforms) are bit-packed rather than byte-aligned. bitReader and
// bitWriter provide the UB/SB/FB primitives those structures are built from.
// ---------------------------------------------------------------------------

// bitReader reads bit fields from a byte slice, most significant bit first.
type bitReader struct {
	data    []byte
	bytePos int
	bitPos  uint // 0..7, next bit to read within data[bytePos]
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// ReadUB reads an n-bit unsigned integer.
func (r *bitReader) ReadUB(n uint) (uint32, error) {
	var v uint32
	for i := uint(0); i < n; i++ {
		if r.bytePos >= len(r.data) {
			return 0, ErrTruncatedTag
		}
		bit := (r.data[r.bytePos] >> (7 - r.bitPos)) & 1
		v = v<<1 | uint32(bit)
		r.bitPos++
		if r.bitPos == 8 {
			r.bitPos = 0
			r.bytePos++
		}
	}
	return v, nil
}

// ReadSB reads an n-bit signed (two's complement) integer.
func (r *bitReader) ReadSB(n uint) (int32, error) {
	v, err := r.ReadUB(n)
	if err != nil {
		return 0, err
	}
	if n > 0 && v&(1<<(n-1)) != 0 {
		// Sign extend
		v |= ^uint32(0) << n
	}
	return int32(v), nil
}

// ReadFB reads an n-bit signed 16.16 fixed-point value.
func (r *bitReader) ReadFB(n uint) (Fixed16, error) {
	v, err := r.ReadSB(n)
	if err != nil {
		return 0, err
	}
	return Fixed16(v), nil
}

// Align skips to the next byte boundary.
func (r *bitReader) Align() {
	if r.bitPos != 0 {
		r.bitPos = 0
		r.bytePos++
	}
}

// BytesConsumed returns the number of whole bytes consumed, counting a
// partially read byte as consumed.
func (r *bitReader) BytesConsumed() int {
	if r.bitPos != 0 {
		return r.bytePos + 1
	}
	return r.bytePos
}

// bitWriter writes bit fields to a growing byte buffer, MSB first.
type bitWriter struct {
	data   []byte
	bitPos uint // bits already written into the final byte
}

// WriteUB writes the low n bits of v.
func (w *bitWriter) WriteUB(n uint, v uint32) {
	for i := uint(0); i < n; i++ {
		if w.bitPos == 0 {
			w.data = append(w.data, 0)
		}
		bit := (v >> (n - 1 - i)) & 1
		w.data[len(w.data)-1] |= byte(bit) << (7 - w.bitPos)
		w.bitPos = (w.bitPos + 1) % 8
	}
}

// WriteSB writes an n-bit signed integer.
func (w *bitWriter) WriteSB(n uint, v int32) {
	w.WriteUB(n, uint32(v))
}

// Bytes returns the accumulated buffer, padded to a byte boundary.
func (w *bitWriter) Bytes() []byte {
	return w.data
}

// bitsRequiredSigned returns the minimum field width able to hold every
// value in vs as a two's complement signed integer.
func bitsRequiredSigned(vs ...int32) uint {
	n := uint(1)
	for _, v := range vs {
		if v < 0 {
			v = ^v
		}
		bits := uint(1)
		for x := v; x != 0; x >>= 1 {
			bits++
		}
		if bits > n {
			n = bits
		}
	}
	return n
}
