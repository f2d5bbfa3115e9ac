package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DataStore persists script data across player runs. The vm package only
// depends on this interface; the storage package provides the sqlite
// implementation and the Player wires it in.
type DataStore interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// InstallBuiltins populates the global object with the host function
// library. Natives are ordinary callable objects; their Go errors surface
// to scripts as thrown values.
func (in *Interp) InstallBuiltins() {
	in.defineNative("trace", func(in *Interp, this Value, args []Value) (Value, error) {
		var parts []string
		for _, a := range args {
			parts = append(parts, in.heap.ToString(a))
		}
		in.trace(strings.Join(parts, " "))
		return Undefined, nil
	})

	in.defineNative("parseFloat", func(in *Interp, this Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return FromFloat64(math.NaN()), nil
		}
		s := strings.TrimSpace(in.heap.ToString(args[0]))
		f, ok := parseFloatPrefix(s)
		if !ok {
			return FromFloat64(math.NaN()), nil
		}
		return FromFloat64(f), nil
	})

	in.defineNative("parseInt", func(in *Interp, this Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return FromFloat64(math.NaN()), nil
		}
		s := strings.TrimSpace(in.heap.ToString(args[0]))
		base := 10
		if len(args) > 1 {
			if b := int(in.heap.ToNumber(args[1])); b >= 2 && b <= 36 {
				base = b
			}
		}
		if base == 10 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
			base = 16
			s = s[2:]
		}
		n, ok := parseIntPrefix(s, base)
		if !ok {
			return FromFloat64(math.NaN()), nil
		}
		return FromFloat64(float64(n)), nil
	})

	in.defineNative("String", func(in *Interp, this Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return in.heap.Intern(""), nil
		}
		return in.heap.Intern(in.heap.ToString(args[0])), nil
	})

	in.defineNative("Number", func(in *Interp, this Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return FromFloat64(0), nil
		}
		return FromFloat64(in.heap.ToNumber(args[0])), nil
	})

	in.defineNative("isNaN", func(in *Interp, this Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return True, nil
		}
		return FromBool(math.IsNaN(in.heap.ToNumber(args[0]))), nil
	})

	// addProperty(name, getter, setter) registers an accessor pair on the
	// receiver. A missing setter leaves the property read-only.
	in.defineNative("addProperty", func(in *Interp, this Value, args []Value) (Value, error) {
		if len(args) < 2 || !this.IsObject() {
			return False, nil
		}
		name := in.heap.ToString(args[0])
		getter := args[1]
		setter := Undefined
		if len(args) > 2 {
			setter = args[2]
		}
		if in.heap.FunctionOf(getter) == nil {
			return False, nil
		}
		in.heap.DefineAccessor(this, name, getter, setter)
		return True, nil
	})

	in.defineNative("loadData", func(in *Interp, this Value, args []Value) (Value, error) {
		if in.player == nil || in.player.store == nil || len(args) == 0 {
			return Undefined, nil
		}
		key := in.heap.ToString(args[0])
		raw, err := in.player.store.Load(key)
		if err != nil {
			return Undefined, fmt.Errorf("loadData %q: %w", key, err)
		}
		if raw == nil {
			return Undefined, nil
		}
		v, err := in.heap.DecodeData(raw)
		if err != nil {
			return Undefined, fmt.Errorf("loadData %q: %w", key, err)
		}
		return v, nil
	})

	in.defineNative("saveData", func(in *Interp, this Value, args []Value) (Value, error) {
		if in.player == nil || in.player.store == nil || len(args) < 2 {
			return False, nil
		}
		key := in.heap.ToString(args[0])
		raw, err := in.heap.EncodeData(args[1])
		if err != nil {
			return False, fmt.Errorf("saveData %q: %w", key, err)
		}
		if err := in.player.store.Save(key, raw); err != nil {
			return False, fmt.Errorf("saveData %q: %w", key, err)
		}
		return True, nil
	})

	// Object() with no arguments is the one constructor scripts reach for
	// via new when no user class is in scope.
	in.defineNative("Object", func(in *Interp, this Value, args []Value) (Value, error) {
		if this.IsObject() {
			return this, nil
		}
		return in.heap.Alloc(Undefined), nil
	})
}

func (in *Interp) defineNative(name string, fn NativeFunc) {
	v := in.heap.NewFunction(&Function{Name: name, Native: fn})
	in.heap.Set(in.globals, name, v)
}

// parseFloatPrefix parses the longest numeric prefix of s, the way script
// parseFloat does. Returns false when no prefix parses.
func parseFloatPrefix(s string) (float64, bool) {
	end := 0
	seenDigit := false
	seenDot := false
	seenExp := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			goto done
		}
		end = i + 1
	}
done:
	// Trim a trailing exponent marker with no digits after it.
	for end > 0 {
		c := s[end-1]
		if c == 'e' || c == 'E' || c == '+' || c == '-' || c == '.' {
			if c == '.' {
				break
			}
			end--
			continue
		}
		break
	}
	if !seenDigit || end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseIntPrefix parses the longest base-n integer prefix of s.
func parseIntPrefix(s string, base int) (int64, bool) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	end := 0
	for i := 0; i < len(s); i++ {
		if digitValue(s[i]) >= base || digitValue(s[i]) < 0 {
			break
		}
		end = i + 1
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return -1
	}
}
