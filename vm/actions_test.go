package vm

import (
	"errors"
	"math"
	"testing"
)

func TestReadRecordFraming(t *testing.T) {
	// Single-byte record.
	rec, err := readRecord([]byte{byte(OpPop)}, 0)
	if err != nil || rec.op != OpPop || rec.next != 1 {
		t.Fatalf("single byte: %+v, %v", rec, err)
	}

	// Payload record.
	code := []byte{byte(OpJump), 2, 0, 0xFB, 0xFF}
	rec, err = readRecord(code, 0)
	if err != nil || rec.op != OpJump || len(rec.payload) != 2 || rec.next != 5 {
		t.Fatalf("payload record: %+v, %v", rec, err)
	}

	// Truncations.
	for _, bad := range [][]byte{
		{byte(OpJump)},          // missing length
		{byte(OpJump), 4, 0, 1}, // payload past end
	} {
		if _, err := readRecord(bad, 0); !errors.Is(err, ErrBadActionRecord) {
			t.Errorf("readRecord(%v) err = %v, want ErrBadActionRecord", bad, err)
		}
	}
	if _, err := readRecord([]byte{}, 0); !errors.Is(err, ErrBadActionRecord) {
		t.Errorf("empty code err = %v", err)
	}
}

func TestDecodePushDouble(t *testing.T) {
	a := &asm{}
	a.pushNumber(1234.5678)
	rec, err := readRecord(a.b, 0)
	if err != nil {
		t.Fatal(err)
	}
	items, err := decodePushItems(rec.payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].num != 1234.5678 {
		t.Fatalf("items = %+v", items)
	}
}

func TestDecodePushMixedItems(t *testing.T) {
	var p []byte
	p = append(p, pushString)
	p = append(p, "hi"...)
	p = append(p, 0)
	p = append(p, pushBool, 1)
	p = append(p, pushNull)
	p = append(p, pushInt32, 0xFF, 0xFF, 0xFF, 0xFF) // -1
	p = append(p, pushConst16, 0x34, 0x12)

	items, err := decodePushItems(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 5 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].str != "hi" || !items[1].boolean || items[3].num != -1 || items[4].constIdx != 0x1234 {
		t.Fatalf("items = %+v", items)
	}
}

func TestDecodePushTruncated(t *testing.T) {
	for _, bad := range [][]byte{
		{pushString, 'x'},     // unterminated string
		{pushDouble, 1, 2, 3}, // short double
		{pushConst16, 1},      // short index
		{42},                  // unknown item type
	} {
		if _, err := decodePushItems(bad); !errors.Is(err, ErrBadActionRecord) {
			t.Errorf("decodePushItems(%v) err = %v", bad, err)
		}
	}
}

func TestValidateActionsBranches(t *testing.T) {
	good := &asm{}
	good.pushNumber(1)
	good.iff(-17) // back to start: push record is 12 bytes, if is 5
	if err := ValidateActions(good.b); err != nil {
		t.Fatalf("valid backward branch rejected: %v", err)
	}

	bad := &asm{}
	bad.jump(100)
	if err := ValidateActions(bad.b); !errors.Is(err, ErrBadJump) {
		t.Fatalf("forward branch past end = %v, want ErrBadJump", err)
	}

	bad2 := &asm{}
	bad2.jump(-100)
	if err := ValidateActions(bad2.b); !errors.Is(err, ErrBadJump) {
		t.Fatalf("backward branch before start = %v, want ErrBadJump", err)
	}
}

func TestValidateActionsFunctionBody(t *testing.T) {
	body := &asm{}
	body.pushNumber(1)
	body.op(OpReturn)
	a := &asm{}
	a.defineFunction("f", []string{"x"}, body.b)
	if err := ValidateActions(a.b); err != nil {
		t.Fatalf("valid function rejected: %v", err)
	}

	// A branch inside a body may not escape the body.
	escape := &asm{}
	escape.jump(50)
	b := &asm{}
	b.defineFunction("f", nil, escape.b)
	b.pushNumber(1) // padding so the jump target exists in the outer block
	b.pushNumber(2)
	b.pushNumber(3)
	b.pushNumber(4)
	if err := ValidateActions(b.b); !errors.Is(err, ErrBadJump) {
		t.Fatalf("escaping branch = %v, want ErrBadJump", err)
	}
}

func TestValidateActionsTruncatedFunction(t *testing.T) {
	// Declared body length runs past the end of the blob.
	var p []byte
	p = append(p, 'f', 0) // name
	p = append(p, 0, 0)   // no params
	p = append(p, 200, 0) // body size 200
	a := &asm{}
	a.rec(OpDefineFunction, p...)
	if err := ValidateActions(a.b); !errors.Is(err, ErrBadActionRecord) {
		t.Fatalf("truncated body = %v, want ErrBadActionRecord", err)
	}
}

func TestDecodeTryLayout(t *testing.T) {
	tryBlock := []byte{byte(OpPop)}
	catchBlock := []byte{byte(OpPop), byte(OpPop)}
	finallyBlock := []byte{byte(OpPop), byte(OpPop), byte(OpPop)}

	a := &asm{}
	a.try(tryBlock, catchBlock, finallyBlock, "err")
	rec, err := readRecord(a.b, 0)
	if err != nil {
		t.Fatal(err)
	}
	d, err := decodeTry(rec, a.b)
	if err != nil {
		t.Fatal(err)
	}
	if !d.hasCatch || !d.hasFinally || d.catchName != "err" || d.catchRegister != -1 {
		t.Fatalf("decl = %+v", d)
	}
	if d.tryEnd-d.tryStart != 1 || d.catchEnd-d.tryEnd != 2 || d.finallyEnd-d.catchEnd != 3 {
		t.Fatalf("block bounds = %+v", d)
	}
}

func TestBudgetCharging(t *testing.T) {
	b := NewBudget(10)
	if err := b.Charge(10); err != nil {
		t.Fatalf("within limit: %v", err)
	}
	if err := b.Charge(1); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("over limit = %v", err)
	}
	b.Reset()
	if err := b.Charge(5); err != nil {
		t.Fatalf("after reset: %v", err)
	}

	var nilBudget *Budget
	if err := nilBudget.Charge(math.MaxInt64); err != nil {
		t.Fatalf("nil budget must never trip: %v", err)
	}
}
