package vm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Action bytecode
//
// Script logic is a stream of action records. Opcodes below 0x80 are a
// single byte; opcodes at or above 0x80 carry a little-endian u16 payload
// length. A few records (function definitions, try, with) are followed by
// inline code blocks whose sizes are declared in the payload.
// ---------------------------------------------------------------------------

// Opcode is a single action instruction.
type Opcode byte

// Single-byte actions
const (
	OpEnd           Opcode = 0x00
	OpNextFrame     Opcode = 0x04
	OpPrevFrame     Opcode = 0x05
	OpPlay          Opcode = 0x06
	OpStop          Opcode = 0x07
	OpSubtract      Opcode = 0x0B
	OpMultiply      Opcode = 0x0C
	OpDivide        Opcode = 0x0D
	OpNot           Opcode = 0x12
	OpPop           Opcode = 0x17
	OpGetVariable   Opcode = 0x1C
	OpSetVariable   Opcode = 0x1D
	OpTrace         Opcode = 0x26
	OpThrow         Opcode = 0x2A
	OpDelete        Opcode = 0x3A
	OpDefineLocal   Opcode = 0x3C
	OpCallFunction  Opcode = 0x3D
	OpReturn        Opcode = 0x3E
	OpModulo        Opcode = 0x3F
	OpNewObject     Opcode = 0x40
	OpDefineLocal2  Opcode = 0x41
	OpInitArray     Opcode = 0x42
	OpInitObject    Opcode = 0x43
	OpTypeOf        Opcode = 0x44
	OpAdd2          Opcode = 0x47
	OpLess2         Opcode = 0x48
	OpEquals2       Opcode = 0x49
	OpToNumber      Opcode = 0x4A
	OpToString      Opcode = 0x4B
	OpPushDuplicate Opcode = 0x4C
	OpGetMember     Opcode = 0x4E
	OpSetMember     Opcode = 0x4F
	OpIncrement     Opcode = 0x50
	OpDecrement     Opcode = 0x51
	OpCallMethod    Opcode = 0x52
	OpStrictEquals  Opcode = 0x66
	OpGreater       Opcode = 0x67
)

// Actions with a payload
const (
	OpGotoFrame       Opcode = 0x81
	OpStoreRegister   Opcode = 0x87
	OpConstantPool    Opcode = 0x88
	OpGoToLabel       Opcode = 0x8C
	OpDefineFunction2 Opcode = 0x8E
	OpTry             Opcode = 0x8F
	OpWith            Opcode = 0x94
	OpPush            Opcode = 0x96
	OpJump            Opcode = 0x99
	OpDefineFunction  Opcode = 0x9B
	OpIf              Opcode = 0x9D
)

// hasPayload reports whether the opcode carries a length-prefixed payload.
func (op Opcode) hasPayload() bool { return op >= 0x80 }

// ---------------------------------------------------------------------------
// Record framing
// ---------------------------------------------------------------------------

// record is one decoded action record. next is the offset just past the
// record (payload included, inline blocks excluded).
type record struct {
	op      Opcode
	payload []byte
	next    int
}

// readRecord decodes the record starting at ip. Framing errors are
// ErrBadActionRecord; validated code never produces them at run time.
func readRecord(code []byte, ip int) (record, error) {
	if ip >= len(code) {
		return record{}, fmt.Errorf("%w: offset %d past end", ErrBadActionRecord, ip)
	}
	op := Opcode(code[ip])
	if !op.hasPayload() {
		return record{op: op, next: ip + 1}, nil
	}
	if ip+3 > len(code) {
		return record{}, fmt.Errorf("%w: truncated length at %d", ErrBadActionRecord, ip)
	}
	length := int(binary.LittleEndian.Uint16(code[ip+1:]))
	if ip+3+length > len(code) {
		return record{}, fmt.Errorf("%w: payload runs past end at %d", ErrBadActionRecord, ip)
	}
	return record{op: op, payload: code[ip+3 : ip+3+length], next: ip + 3 + length}, nil
}

// payloadString reads a null-terminated string from a payload, returning
// the string and the bytes consumed including the terminator.
func payloadString(p []byte) (string, int, error) {
	for i, b := range p {
		if b == 0 {
			return string(p[:i]), i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("%w: unterminated string", ErrBadActionRecord)
}

// ---------------------------------------------------------------------------
// Push items
// ---------------------------------------------------------------------------

// Push payload item type markers.
const (
	pushString    = 0
	pushFloat32   = 1
	pushNull      = 2
	pushUndefined = 3
	pushRegister  = 4
	pushBool      = 5
	pushDouble    = 6
	pushInt32     = 7
	pushConst8    = 8
	pushConst16   = 9
)

// pushItem is one decoded operand of a Push action.
type pushItem struct {
	kind     byte
	str      string
	num      float64
	boolean  bool
	register uint8
	constIdx uint16
}

// decodePushItems decodes the operand list of a Push payload.
func decodePushItems(p []byte) ([]pushItem, error) {
	var items []pushItem
	pos := 0
	for pos < len(p) {
		kind := p[pos]
		pos++
		item := pushItem{kind: kind}
		switch kind {
		case pushString:
			s, n, err := payloadString(p[pos:])
			if err != nil {
				return nil, err
			}
			item.str = s
			pos += n
		case pushFloat32:
			if pos+4 > len(p) {
				return nil, ErrBadActionRecord
			}
			item.num = float64(math.Float32frombits(binary.LittleEndian.Uint32(p[pos:])))
			pos += 4
		case pushNull, pushUndefined:
			// No operand bytes.
		case pushRegister:
			if pos+1 > len(p) {
				return nil, ErrBadActionRecord
			}
			item.register = p[pos]
			pos++
		case pushBool:
			if pos+1 > len(p) {
				return nil, ErrBadActionRecord
			}
			item.boolean = p[pos] != 0
			pos++
		case pushDouble:
			// Doubles are stored with their two 32-bit halves swapped, a
			// quirk of the original format.
			if pos+8 > len(p) {
				return nil, ErrBadActionRecord
			}
			hi := binary.LittleEndian.Uint32(p[pos:])
			lo := binary.LittleEndian.Uint32(p[pos+4:])
			item.num = math.Float64frombits(uint64(hi)<<32 | uint64(lo))
			pos += 8
		case pushInt32:
			if pos+4 > len(p) {
				return nil, ErrBadActionRecord
			}
			item.num = float64(int32(binary.LittleEndian.Uint32(p[pos:])))
			pos += 4
		case pushConst8:
			if pos+1 > len(p) {
				return nil, ErrBadActionRecord
			}
			item.constIdx = uint16(p[pos])
			pos++
		case pushConst16:
			if pos+2 > len(p) {
				return nil, ErrBadActionRecord
			}
			item.constIdx = binary.LittleEndian.Uint16(p[pos:])
			pos += 2
		default:
			return nil, fmt.Errorf("%w: push item type %d", ErrBadActionRecord, kind)
		}
		items = append(items, item)
	}
	return items, nil
}

// decodeConstantPool decodes a ConstantPool payload.
func decodeConstantPool(p []byte) ([]string, error) {
	if len(p) < 2 {
		return nil, ErrBadActionRecord
	}
	count := int(binary.LittleEndian.Uint16(p))
	pool := make([]string, 0, count)
	pos := 2
	for i := 0; i < count; i++ {
		s, n, err := payloadString(p[pos:])
		if err != nil {
			return nil, err
		}
		pool = append(pool, s)
		pos += n
	}
	return pool, nil
}

// ---------------------------------------------------------------------------
// Function declarations
// ---------------------------------------------------------------------------

// funcDecl is a decoded DefineFunction/DefineFunction2 header. The body is
// the inline block [bodyStart, bodyEnd) of the enclosing code slice.
type funcDecl struct {
	name      string
	params    []string
	registers int
	bodyStart int
	bodyEnd   int
}

func decodeDefineFunction(rec record, code []byte) (funcDecl, error) {
	p := rec.payload
	name, pos, err := payloadString(p)
	if err != nil {
		return funcDecl{}, err
	}
	if pos+2 > len(p) {
		return funcDecl{}, ErrBadActionRecord
	}
	numParams := int(binary.LittleEndian.Uint16(p[pos:]))
	pos += 2
	params := make([]string, 0, numParams)
	for i := 0; i < numParams; i++ {
		s, n, err := payloadString(p[pos:])
		if err != nil {
			return funcDecl{}, err
		}
		params = append(params, s)
		pos += n
	}
	if pos+2 > len(p) {
		return funcDecl{}, ErrBadActionRecord
	}
	codeSize := int(binary.LittleEndian.Uint16(p[pos:]))
	if rec.next+codeSize > len(code) {
		return funcDecl{}, fmt.Errorf("%w: function body runs past end", ErrBadActionRecord)
	}
	return funcDecl{
		name:      name,
		params:    params,
		registers: minRegisters,
		bodyStart: rec.next,
		bodyEnd:   rec.next + codeSize,
	}, nil
}

func decodeDefineFunction2(rec record, code []byte) (funcDecl, error) {
	p := rec.payload
	name, pos, err := payloadString(p)
	if err != nil {
		return funcDecl{}, err
	}
	if pos+5 > len(p) {
		return funcDecl{}, ErrBadActionRecord
	}
	numParams := int(binary.LittleEndian.Uint16(p[pos:]))
	registers := int(p[pos+2])
	// Two flag bytes (register preloading hints) follow; this interpreter
	// always resolves parameters by name, so the hints are skipped.
	pos += 5
	params := make([]string, 0, numParams)
	for i := 0; i < numParams; i++ {
		if pos+1 > len(p) {
			return funcDecl{}, ErrBadActionRecord
		}
		pos++ // parameter register hint
		s, n, err := payloadString(p[pos:])
		if err != nil {
			return funcDecl{}, err
		}
		params = append(params, s)
		pos += n
	}
	if pos+2 > len(p) {
		return funcDecl{}, ErrBadActionRecord
	}
	codeSize := int(binary.LittleEndian.Uint16(p[pos:]))
	if rec.next+codeSize > len(code) {
		return funcDecl{}, fmt.Errorf("%w: function body runs past end", ErrBadActionRecord)
	}
	if registers < minRegisters {
		registers = minRegisters
	}
	return funcDecl{
		name:      name,
		params:    params,
		registers: registers,
		bodyStart: rec.next,
		bodyEnd:   rec.next + codeSize,
	}, nil
}

// ---------------------------------------------------------------------------
// Try blocks
// ---------------------------------------------------------------------------

// Try flag bits.
const (
	tryFlagCatch           = 1 << 0
	tryFlagFinally         = 1 << 1
	tryFlagCatchInRegister = 1 << 2
)

// tryDecl is a decoded Try header. The three inline blocks follow the
// record back to back; absent blocks have start == end.
type tryDecl struct {
	hasCatch      bool
	hasFinally    bool
	catchRegister int // -1 when the catch target is a named variable
	catchName     string
	tryStart      int
	tryEnd        int
	catchEnd      int
	finallyEnd    int
}

func decodeTry(rec record, code []byte) (tryDecl, error) {
	p := rec.payload
	if len(p) < 7 {
		return tryDecl{}, ErrBadActionRecord
	}
	flags := p[0]
	trySize := int(binary.LittleEndian.Uint16(p[1:]))
	catchSize := int(binary.LittleEndian.Uint16(p[3:]))
	finallySize := int(binary.LittleEndian.Uint16(p[5:]))

	d := tryDecl{
		hasCatch:      flags&tryFlagCatch != 0,
		hasFinally:    flags&tryFlagFinally != 0,
		catchRegister: -1,
	}
	if flags&tryFlagCatchInRegister != 0 {
		if len(p) < 8 {
			return tryDecl{}, ErrBadActionRecord
		}
		d.catchRegister = int(p[7])
	} else {
		name, _, err := payloadString(p[7:])
		if err != nil {
			return tryDecl{}, err
		}
		d.catchName = name
	}
	if !d.hasCatch {
		catchSize = 0
	}
	if !d.hasFinally {
		finallySize = 0
	}

	d.tryStart = rec.next
	d.tryEnd = d.tryStart + trySize
	d.catchEnd = d.tryEnd + catchSize
	d.finallyEnd = d.catchEnd + finallySize
	if d.finallyEnd > len(code) {
		return tryDecl{}, fmt.Errorf("%w: try blocks run past end", ErrBadActionRecord)
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Load-time validation
// ---------------------------------------------------------------------------

// ValidateActions checks an action blob before execution: record framing,
// push/pool payloads, inline block bounds, and branch targets. Branch
// offsets are relative to the end of their record and must land within
// [0, len] of the enclosing block. Function and handler bodies are
// validated recursively.
func ValidateActions(code []byte) error {
	ip := 0
	for ip < len(code) {
		rec, err := readRecord(code, ip)
		if err != nil {
			return err
		}
		switch rec.op {
		case OpEnd:
			return nil

		case OpJump, OpIf:
			if len(rec.payload) < 2 {
				return fmt.Errorf("%w: branch without offset", ErrBadActionRecord)
			}
			offset := int(int16(binary.LittleEndian.Uint16(rec.payload)))
			target := rec.next + offset
			if target < 0 || target > len(code) {
				return fmt.Errorf("%w: branch to %d (block length %d)", ErrBadJump, target, len(code))
			}

		case OpPush:
			if _, err := decodePushItems(rec.payload); err != nil {
				return err
			}

		case OpConstantPool:
			if _, err := decodeConstantPool(rec.payload); err != nil {
				return err
			}

		case OpStoreRegister:
			if len(rec.payload) < 1 {
				return fmt.Errorf("%w: store register without index", ErrBadActionRecord)
			}

		case OpGotoFrame:
			if len(rec.payload) < 2 {
				return fmt.Errorf("%w: goto frame without index", ErrBadActionRecord)
			}

		case OpGoToLabel:
			if _, _, err := payloadString(rec.payload); err != nil {
				return err
			}

		case OpDefineFunction:
			decl, err := decodeDefineFunction(rec, code)
			if err != nil {
				return err
			}
			if err := ValidateActions(code[decl.bodyStart:decl.bodyEnd]); err != nil {
				return err
			}
			rec.next = decl.bodyEnd

		case OpDefineFunction2:
			decl, err := decodeDefineFunction2(rec, code)
			if err != nil {
				return err
			}
			if err := ValidateActions(code[decl.bodyStart:decl.bodyEnd]); err != nil {
				return err
			}
			rec.next = decl.bodyEnd

		case OpTry:
			decl, err := decodeTry(rec, code)
			if err != nil {
				return err
			}
			if err := ValidateActions(code[decl.tryStart:decl.tryEnd]); err != nil {
				return err
			}
			if err := ValidateActions(code[decl.tryEnd:decl.catchEnd]); err != nil {
				return err
			}
			if err := ValidateActions(code[decl.catchEnd:decl.finallyEnd]); err != nil {
				return err
			}
			rec.next = decl.finallyEnd

		case OpWith:
			if len(rec.payload) < 2 {
				return fmt.Errorf("%w: with without size", ErrBadActionRecord)
			}
			size := int(binary.LittleEndian.Uint16(rec.payload))
			if rec.next+size > len(code) {
				return fmt.Errorf("%w: with block runs past end", ErrBadActionRecord)
			}
			if err := ValidateActions(code[rec.next : rec.next+size]); err != nil {
				return err
			}
			rec.next += size
		}
		ip = rec.next
	}
	return nil
}
