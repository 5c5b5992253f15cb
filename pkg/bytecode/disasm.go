package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing for the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; stackc bytecode v%d\n", p.Version))
	sb.WriteString(fmt.Sprintf("; %d instructions, %d struct types\n", len(p.Code), p.Structs))

	// Memory map
	if len(p.Symbols) > 0 {
		sb.WriteString("; Memory:\n")
		for _, s := range p.Symbols {
			sb.WriteString(fmt.Sprintf(";   @%-5d %-24s %s\n", s.Offset, s.Name, s.Type))
		}
	}
	sb.WriteString("\n")

	// Code section
	sb.WriteString("; Code:\n")
	for i, in := range p.Code {
		text := p.disassembleInstruction(in)
		if in.Line > 0 {
			sb.WriteString(fmt.Sprintf("%04d  %-36s ; line %d\n", i, text, in.Line))
		} else {
			sb.WriteString(fmt.Sprintf("%04d  %s\n", i, text))
		}
	}

	return sb.String()
}

// disassembleInstruction formats one instruction with an annotation
// for operands that refer to something nameable.
func (p *Program) disassembleInstruction(in Instruction) string {
	base := fmt.Sprintf("%-12s %s", in.Op, FormatOperand(in))

	switch in.Op {
	case OpLoad, OpStoreMem:
		if sym, ok := p.SymbolAt(int(in.Int())); ok {
			return fmt.Sprintf("%s (%s)", base, sym.Name)
		}
	case OpJump, OpJumpIf:
		return fmt.Sprintf("%s -> %04d", base, in.Int())
	case OpCall, OpListAccess, OpListSet:
		if in.Int() == -1 {
			return fmt.Sprintf("%s (pop)", base)
		}
	case OpStoreChar:
		if r := rune(in.Int()); r >= 0x20 && r < 0x7F {
			return fmt.Sprintf("%s '%c'", base, r)
		}
	case OpCast:
		depth, src, dst := SplitCastOperand(in.Int())
		return fmt.Sprintf("%s (%s -> %s, depth %d)", base, src, dst, depth)
	case OpSyscall:
		if name := SyscallName(in.Int()); name != "" {
			return fmt.Sprintf("%s (%s)", base, name)
		}
	case OpObjCall:
		if name := ObjCallName(in.Int()); name != "" {
			return fmt.Sprintf("%s (%s)", base, name)
		}
	}
	return base
}

// DisassembleToLines returns the code section as a slice of lines,
// without the header or memory map.
func (p *Program) DisassembleToLines() []string {
	lines := make([]string, len(p.Code))
	for i, in := range p.Code {
		lines[i] = fmt.Sprintf("%04d  %s", i, p.disassembleInstruction(in))
	}
	return lines
}

// DisassembleCode lists raw instructions, e.g. decoded from a binary image.
func DisassembleCode(code []Instruction) string {
	p := &Program{Version: FormatVersion, Code: code}
	for _, in := range code {
		if in.Op == OpDefineType {
			p.Structs++
		}
	}
	return p.Disassemble()
}
