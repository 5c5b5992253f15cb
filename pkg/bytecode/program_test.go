package bytecode

import (
	"strings"
	"testing"
)

func TestBuilderEmit(t *testing.T) {
	b := NewBuilder()
	b.SetLine(3)
	if idx := b.Emit(OpStore, 5); idx != 0 {
		t.Errorf("first Emit index = %d", idx)
	}
	if idx := b.EmitFloat(OpStoreFloat, 2.5); idx != 1 {
		t.Errorf("second Emit index = %d", idx)
	}
	b.Emit(OpAdd, 0)

	p, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if p.Len() != 3 {
		t.Fatalf("Len = %d, want 3", p.Len())
	}
	if p.Code[0].Int() != 5 || p.Code[0].Line != 3 {
		t.Errorf("Code[0] = %+v", p.Code[0])
	}
	if p.Code[1].Float() != 2.5 {
		t.Errorf("Code[1].Float() = %v", p.Code[1].Float())
	}
	if got := strings.Join(p.Mnemonics(), " "); got != "STORE STORE_FLOAT ADD" {
		t.Errorf("Mnemonics = %s", got)
	}
}

func TestBuilderPatch(t *testing.T) {
	b := NewBuilder()
	j := b.EmitPlaceholder(OpJumpIf)
	b.Emit(OpStore, 1)
	b.Emit(OpPop, 0)

	if got := b.Pending(); len(got) != 1 || got[0] != j {
		t.Fatalf("Pending = %v", got)
	}
	if _, err := b.Finish(); err == nil {
		t.Fatal("Finish should fail with a pending placeholder")
	}

	if err := b.PatchHere(j); err != nil {
		t.Fatalf("PatchHere failed: %v", err)
	}
	if err := b.Patch(j, 0); err == nil {
		t.Error("patching twice should fail")
	}
	if err := b.Patch(1, 0); err == nil {
		t.Error("patching a non-placeholder should fail")
	}

	p, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if p.Code[j].Int() != 3 {
		t.Errorf("jump target = %d, want 3", p.Code[j].Int())
	}
}

func TestBuilderFinishCopies(t *testing.T) {
	b := NewBuilder()
	b.Emit(OpStore, 1)
	p, _ := b.Finish()
	b.Emit(OpStore, 2)
	if p.Len() != 1 {
		t.Errorf("program changed after Finish: %d instructions", p.Len())
	}
}

func TestBuilderCountsStructs(t *testing.T) {
	b := NewBuilder()
	b.Emit(OpDefineType, 2)
	b.Emit(OpDefineType, 3)
	b.AddSymbol(Symbol{Name: "p", Offset: 0, Size: 4, Type: "P"})
	p, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if p.Structs != 2 {
		t.Errorf("Structs = %d", p.Structs)
	}
	if s, ok := p.SymbolAt(0); !ok || s.Name != "p" {
		t.Errorf("SymbolAt(0) = %+v, %v", s, ok)
	}
	if _, ok := p.SymbolAt(4); ok {
		t.Error("SymbolAt(4) should miss")
	}
}
