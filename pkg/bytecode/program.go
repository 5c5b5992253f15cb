package bytecode

import (
	"fmt"
	"math"
	"sort"
)

// FormatVersion is the current object-file format version.
// Increment when making incompatible changes to the format.
const FormatVersion uint16 = 1

// Instruction is one decoded instruction.
// Bits holds the raw operand: an int32, or float32 bits when Op.HasFloatOperand().
type Instruction struct {
	Op   Opcode
	Bits uint32
	Line int // Source line (1-based), 0 if unknown
}

// Int returns the operand as a signed integer.
func (in Instruction) Int() int32 {
	return int32(in.Bits)
}

// Float returns the operand as a float.
func (in Instruction) Float() float32 {
	return math.Float32frombits(in.Bits)
}

// Symbol records where a named variable or function lives in flat memory.
type Symbol struct {
	Name   string // Qualified name
	Offset int    // Byte offset
	Size   int    // Slot size in bytes
	Type   string // Declared type, for listings
}

// Program is a finalized instruction stream. All placeholders are resolved.
type Program struct {
	Version uint16
	Code    []Instruction
	Symbols []Symbol
	Structs int // Number of DEFINE_TYPE records
}

// Mnemonics returns the opcode mnemonics in order.
func (p *Program) Mnemonics() []string {
	out := make([]string, len(p.Code))
	for i, in := range p.Code {
		out[i] = in.Op.String()
	}
	return out
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Code)
}

// SymbolAt returns the symbol stored at a byte offset.
func (p *Program) SymbolAt(offset int) (Symbol, bool) {
	for _, s := range p.Symbols {
		if s.Offset == offset {
			return s, true
		}
	}
	return Symbol{}, false
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

// Builder accumulates instructions for a single compilation.
// Jump targets are instruction indices. Placeholders are recorded in a
// fix-up set and every one must be patched before Finish succeeds.
type Builder struct {
	code    []Instruction
	pending map[int]struct{}
	symbols []Symbol
	structs int
	line    int
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		code:    make([]Instruction, 0, 64),
		pending: make(map[int]struct{}),
	}
}

// SetLine sets the source line attached to subsequently emitted instructions.
func (b *Builder) SetLine(line int) {
	b.line = line
}

// Emit appends an instruction with an integer operand and returns its index.
func (b *Builder) Emit(op Opcode, arg int32) int {
	idx := len(b.code)
	b.code = append(b.code, Instruction{Op: op, Bits: uint32(arg), Line: b.line})
	if op == OpDefineType {
		b.structs++
	}
	return idx
}

// EmitFloat appends an instruction with a float operand.
func (b *Builder) EmitFloat(op Opcode, arg float32) int {
	idx := len(b.code)
	b.code = append(b.code, Instruction{Op: op, Bits: math.Float32bits(arg), Line: b.line})
	return idx
}

// EmitPlaceholder appends an instruction whose operand is not yet known.
// Returns the index to pass to Patch.
func (b *Builder) EmitPlaceholder(op Opcode) int {
	idx := b.Emit(op, 0)
	b.pending[idx] = struct{}{}
	return idx
}

// Patch resolves the placeholder at idx to target.
func (b *Builder) Patch(idx int, target int) error {
	if _, ok := b.pending[idx]; !ok {
		return fmt.Errorf("instruction %d is not a pending placeholder", idx)
	}
	delete(b.pending, idx)
	b.code[idx].Bits = uint32(int32(target))
	return nil
}

// PatchHere resolves the placeholder at idx to the next instruction index.
func (b *Builder) PatchHere(idx int) error {
	return b.Patch(idx, len(b.code))
}

// Pending returns the unresolved placeholder indices in ascending order.
func (b *Builder) Pending() []int {
	out := make([]int, 0, len(b.pending))
	for idx := range b.pending {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Len returns the index the next instruction will get.
func (b *Builder) Len() int {
	return len(b.code)
}

// Last returns the most recently emitted instruction.
func (b *Builder) Last() (Instruction, bool) {
	if len(b.code) == 0 {
		return Instruction{}, false
	}
	return b.code[len(b.code)-1], true
}

// At returns the instruction at idx.
func (b *Builder) At(idx int) Instruction {
	return b.code[idx]
}

// AddSymbol records a memory slot for listings and object files.
func (b *Builder) AddSymbol(sym Symbol) {
	b.symbols = append(b.symbols, sym)
}

// Finish returns the program. It fails if any placeholder is unresolved.
func (b *Builder) Finish() (*Program, error) {
	if len(b.pending) > 0 {
		return nil, fmt.Errorf("unresolved placeholders at %v", b.Pending())
	}
	code := make([]Instruction, len(b.code))
	copy(code, b.code)
	syms := make([]Symbol, len(b.symbols))
	copy(syms, b.symbols)
	return &Program{
		Version: FormatVersion,
		Code:    code,
		Symbols: syms,
		Structs: b.structs,
	}, nil
}
