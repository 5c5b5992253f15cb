package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Every instruction is one opcode byte followed by a 4-byte operand.
type Opcode byte

const (
	// ========================================================================
	// Arithmetic and logic (0x01-0x08)
	// ========================================================================

	OpAdd Opcode = 0x01 // Pop b, pop a, push a + b
	OpSub Opcode = 0x02 // Pop b, pop a, push a - b
	OpMul Opcode = 0x03 // Pop b, pop a, push a * b
	OpDiv Opcode = 0x04 // Pop b, pop a, push a / b (always float)
	OpMod Opcode = 0x05 // Pop b, pop a, push a % b
	OpAnd Opcode = 0x06 // Pop two, push logical and
	OpOr  Opcode = 0x07 // Pop two, push logical or
	OpNot Opcode = 0x08 // Pop one, push logical not

	// ========================================================================
	// Comparison (0x09-0x0E)
	// ========================================================================

	OpEq  Opcode = 0x09
	OpNeq Opcode = 0x0A
	OpLt  Opcode = 0x0B
	OpGt  Opcode = 0x0C
	OpLe  Opcode = 0x0D
	OpGe  Opcode = 0x0E

	// ========================================================================
	// Immediates (0x0F-0x12)
	// ========================================================================

	OpStore      Opcode = 0x0F // Push int32 operand
	OpStoreByte  Opcode = 0x10 // Push operand as a 1-byte value (BOOL, BYTE)
	OpStoreFloat Opcode = 0x11 // Push float32 operand
	OpStoreChar  Opcode = 0x12 // Push operand as a character

	// ========================================================================
	// Flat memory (0x13-0x14)
	// ========================================================================

	OpStoreMem Opcode = 0x13 // Pop and write to memory: STORE_MEM <offset>
	OpLoad     Opcode = 0x14 // Push memory value: LOAD <offset>

	// ========================================================================
	// Control flow (0x15-0x18)
	// ========================================================================

	OpJump   Opcode = 0x15 // JUMP <instruction index>
	OpJumpIf Opcode = 0x16 // Pop; jump when the value is 1
	OpCall   Opcode = 0x17 // CALL <entry>, or CALL -1 to pop the entry
	OpReturn Opcode = 0x18

	// ========================================================================
	// Lists (0x19-0x1B)
	// ========================================================================

	OpBuildList  Opcode = 0x19 // BUILD_LIST <n>; first pop is element 0
	OpListAccess Opcode = 0x1A // LIST_ACCESS <index>, or -1 to pop the index
	OpListSet    Opcode = 0x1B // LIST_SET <index>, or -1; pops index, list, value

	// ========================================================================
	// Structs and casts (0x1C-0x21)
	// ========================================================================

	OpDefineType Opcode = 0x1C // DEFINE_TYPE <field count>
	OpNew        Opcode = 0x1D // NEW <heap type index>
	OpCast       Opcode = 0x1E // CAST <depth<<16 | src<<8 | dst>
	OpLoadHeap   Opcode = 0x1F // Pop record base, push field: LOAD_HEAP <offset>
	OpStoreHeap  Opcode = 0x20 // Pop record base, pop value: STORE_HEAP <offset>
	OpPop        Opcode = 0x21 // Discard top of stack

	// ========================================================================
	// Built-in dispatch (0xFE-0xFF)
	// ========================================================================

	OpObjCall Opcode = 0xFE // OBJCALL <objcall id>; receiver on top of stack
	OpSyscall Opcode = 0xFF // SYSCALL <syscall id>
)

// OperandKind describes how the 4 operand bytes are interpreted.
type OperandKind uint8

const (
	OperandInt   OperandKind = iota // little-endian int32
	OperandFloat                    // little-endian IEEE-754 float32
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name      string      // Mnemonic
	StackPop  int         // How many values popped from stack (-1 = variable)
	StackPush int         // How many values pushed to stack
	Operand   OperandKind // Operand interpretation
}

// OperandLen is the fixed operand width of every instruction.
const OperandLen = 4

// InstructionLen is the encoded size of one instruction.
const InstructionLen = 1 + OperandLen

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Arithmetic and logic
	OpAdd: {"ADD", 2, 1, OperandInt},
	OpSub: {"SUB", 2, 1, OperandInt},
	OpMul: {"MUL", 2, 1, OperandInt},
	OpDiv: {"DIV", 2, 1, OperandInt},
	OpMod: {"MOD", 2, 1, OperandInt},
	OpAnd: {"AND", 2, 1, OperandInt},
	OpOr:  {"OR", 2, 1, OperandInt},
	OpNot: {"NOT", 1, 1, OperandInt},

	// Comparison
	OpEq:  {"EQ", 2, 1, OperandInt},
	OpNeq: {"NEQ", 2, 1, OperandInt},
	OpLt:  {"LT", 2, 1, OperandInt},
	OpGt:  {"GT", 2, 1, OperandInt},
	OpLe:  {"LE", 2, 1, OperandInt},
	OpGe:  {"GE", 2, 1, OperandInt},

	// Immediates
	OpStore:      {"STORE", 0, 1, OperandInt},
	OpStoreByte:  {"STORE_BYTE", 0, 1, OperandInt},
	OpStoreFloat: {"STORE_FLOAT", 0, 1, OperandFloat},
	OpStoreChar:  {"STORE_CHAR", 0, 1, OperandInt},

	// Memory
	OpStoreMem: {"STORE_MEM", 1, 0, OperandInt},
	OpLoad:     {"LOAD", 0, 1, OperandInt},

	// Control flow
	OpJump:   {"JUMP", 0, 0, OperandInt},
	OpJumpIf: {"JUMP_IF", 1, 0, OperandInt},
	OpCall:   {"CALL", -1, -1, OperandInt},
	OpReturn: {"RETURN", -1, 0, OperandInt},

	// Lists
	OpBuildList:  {"BUILD_LIST", -1, 1, OperandInt},
	OpListAccess: {"LIST_ACCESS", -1, 1, OperandInt},
	OpListSet:    {"LIST_SET", -1, 0, OperandInt},

	// Structs and casts
	OpDefineType: {"DEFINE_TYPE", 0, 0, OperandInt},
	OpNew:        {"NEW", -1, 1, OperandInt},
	OpCast:       {"CAST", 1, 1, OperandInt},
	OpLoadHeap:   {"LOAD_HEAP", 1, 1, OperandInt},
	OpStoreHeap:  {"STORE_HEAP", 2, 0, OperandInt},
	OpPop:        {"POP", 1, 0, OperandInt},

	// Built-ins
	OpObjCall: {"OBJCALL", -1, -1, OperandInt},
	OpSyscall: {"SYSCALL", -1, -1, OperandInt},
}

// mnemonicTable is the reverse of opcodeInfoTable.
var mnemonicTable = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// LookupMnemonic returns the opcode for a mnemonic such as "STORE_MEM".
func LookupMnemonic(name string) (Opcode, bool) {
	op, ok := mnemonicTable[name]
	return op, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is part of the vocabulary.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// HasFloatOperand reports whether the operand is a float32.
func (op Opcode) HasFloatOperand() bool {
	return GetOpcodeInfo(op).Operand == OperandFloat
}

// IsJump returns true if this opcode's operand is an instruction index.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIf
}

// IsReturn returns true if this opcode leaves the current function.
func (op Opcode) IsReturn() bool {
	return op == OpReturn
}

// IsImmediate returns true if this opcode pushes its own operand.
func (op Opcode) IsImmediate() bool {
	return op >= OpStore && op <= OpStoreChar
}

// AllOpcodes returns a slice of all defined opcodes in encoding order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for i := 0; i < 256; i++ {
		if _, ok := opcodeInfoTable[Opcode(i)]; ok {
			opcodes = append(opcodes, Opcode(i))
		}
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}

// ---------------------------------------------------------------------------
// Type tags
// ---------------------------------------------------------------------------

// TypeTag identifies a runtime data type in CAST operands.
type TypeTag uint8

const (
	TagUnassigned TypeTag = 0
	TagBool       TypeTag = 1
	TagInt        TypeTag = 2
	TagFloat      TypeTag = 3
	TagChar       TypeTag = 4
	TagArray      TypeTag = 5
	TagObject     TypeTag = 6
	TagByte       TypeTag = 7
)

var tagNames = [...]string{"UNASSIGNED", "BOOL", "INT", "FLOAT", "CHAR", "ARRAY", "OBJ", "BYTE"}

func (t TypeTag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("TAG(%d)", t)
}

// CastOperand packs a CAST operand: array depth, source tag, destination tag.
func CastOperand(depth int, src, dst TypeTag) int32 {
	return int32(depth)<<16 | int32(src)<<8 | int32(dst)
}

// SplitCastOperand is the inverse of CastOperand.
func SplitCastOperand(arg int32) (depth int, src, dst TypeTag) {
	return int(arg >> 16), TypeTag(arg >> 8 & 0xFF), TypeTag(arg & 0xFF)
}
