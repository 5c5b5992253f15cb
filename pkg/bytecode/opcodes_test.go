package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	if got := OpcodeCount(); got != 35 {
		t.Errorf("OpcodeCount = %d, want 35", got)
	}
}

func TestOpcodeEncoding(t *testing.T) {
	tests := []struct {
		op   Opcode
		name string
		code byte
	}{
		{OpAdd, "ADD", 0x01},
		{OpMod, "MOD", 0x05},
		{OpNot, "NOT", 0x08},
		{OpGe, "GE", 0x0E},
		{OpStore, "STORE", 0x0F},
		{OpStoreByte, "STORE_BYTE", 0x10},
		{OpStoreFloat, "STORE_FLOAT", 0x11},
		{OpStoreChar, "STORE_CHAR", 0x12},
		{OpStoreMem, "STORE_MEM", 0x13},
		{OpLoad, "LOAD", 0x14},
		{OpJump, "JUMP", 0x15},
		{OpJumpIf, "JUMP_IF", 0x16},
		{OpCall, "CALL", 0x17},
		{OpReturn, "RETURN", 0x18},
		{OpBuildList, "BUILD_LIST", 0x19},
		{OpListAccess, "LIST_ACCESS", 0x1A},
		{OpListSet, "LIST_SET", 0x1B},
		{OpDefineType, "DEFINE_TYPE", 0x1C},
		{OpNew, "NEW", 0x1D},
		{OpCast, "CAST", 0x1E},
		{OpObjCall, "OBJCALL", 0xFE},
		{OpSyscall, "SYSCALL", 0xFF},
	}

	for _, tt := range tests {
		if byte(tt.op) != tt.code {
			t.Errorf("%s = 0x%02X, want 0x%02X", tt.name, byte(tt.op), tt.code)
		}
		if got := tt.op.String(); got != tt.name {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", tt.code, got, tt.name)
		}
		if op, ok := LookupMnemonic(tt.name); !ok || op != tt.op {
			t.Errorf("LookupMnemonic(%q) = %v, %v", tt.name, op, ok)
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	op := Opcode(0x90)
	if op.Valid() {
		t.Fatal("0x90 should not be a valid opcode")
	}
	if got := op.String(); got != "UNKNOWN(0x90)" {
		t.Errorf("String() = %q", got)
	}
	if _, ok := LookupMnemonic("NOP"); ok {
		t.Error("NOP is not part of the vocabulary")
	}
}

func TestOpcodeClassification(t *testing.T) {
	if !OpJump.IsJump() || !OpJumpIf.IsJump() || OpCall.IsJump() {
		t.Error("IsJump misclassifies")
	}
	if !OpReturn.IsReturn() || OpJump.IsReturn() {
		t.Error("IsReturn misclassifies")
	}
	for _, op := range []Opcode{OpStore, OpStoreByte, OpStoreFloat, OpStoreChar} {
		if !op.IsImmediate() {
			t.Errorf("%s should be an immediate", op)
		}
	}
	if OpStoreMem.IsImmediate() {
		t.Error("STORE_MEM is not an immediate")
	}
	for _, op := range AllOpcodes() {
		if op.HasFloatOperand() != (op == OpStoreFloat) {
			t.Errorf("%s: HasFloatOperand = %v", op, op.HasFloatOperand())
		}
	}
}

func TestAllOpcodesOrdered(t *testing.T) {
	ops := AllOpcodes()
	for i := 1; i < len(ops); i++ {
		if ops[i-1] >= ops[i] {
			t.Fatalf("AllOpcodes not ascending at %d: %s, %s", i, ops[i-1], ops[i])
		}
	}
}

func TestCastOperand(t *testing.T) {
	tests := []struct {
		depth    int
		src, dst TypeTag
		want     int32
	}{
		{0, TagInt, TagFloat, 0x0203},
		{0, TagBool, TagByte, 0x0107},
		{2, TagChar, TagInt, 0x020402},
	}
	for _, tt := range tests {
		got := CastOperand(tt.depth, tt.src, tt.dst)
		if got != tt.want {
			t.Errorf("CastOperand(%d, %s, %s) = 0x%X, want 0x%X", tt.depth, tt.src, tt.dst, got, tt.want)
		}
		d, s, ds := SplitCastOperand(got)
		if d != tt.depth || s != tt.src || ds != tt.dst {
			t.Errorf("SplitCastOperand(0x%X) = %d, %s, %s", got, d, s, ds)
		}
	}
}

func TestBuiltinTables(t *testing.T) {
	if Syscalls["print"] != 1 || Syscalls["write"] != 7 {
		t.Errorf("syscall ids drifted: %v", Syscalls)
	}
	if ObjCalls["append"] != 0 || ObjCalls["toString"] != 12 {
		t.Errorf("objcall ids drifted: %v", ObjCalls)
	}
	if SyscallName(SysScan) != "scan" {
		t.Errorf("SyscallName(5) = %q", SyscallName(SysScan))
	}
	if ObjCallName(ObjRemoveAt) != "remove_at" {
		t.Errorf("ObjCallName(2) = %q", ObjCallName(ObjRemoveAt))
	}
	if SyscallName(99) != "" {
		t.Error("unknown syscall should have no name")
	}
}
