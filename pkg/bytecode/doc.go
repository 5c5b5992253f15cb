// Package bytecode defines the instruction vocabulary shared by the stackc
// code generator, the serializers, and the target virtual machine.
//
// The format is deliberately flat:
//   - Every instruction is one opcode byte followed by a 4-byte operand
//     (a little-endian int32, or float32 bits for STORE_FLOAT).
//   - Jump operands are absolute instruction indices, not byte offsets.
//   - Memory operands are byte offsets into the VM's single flat memory.
//
// # Components
//
//   - Opcodes: the closed vocabulary with metadata (mnemonic, stack effect,
//     operand kind), plus the CAST type tags.
//
//   - Builtins: the fixed syscall and objcall ID tables.
//
//   - Builder: an append-only instruction buffer. Forward jumps are emitted
//     as placeholders and recorded in a fix-up set; Finish refuses to
//     produce a Program while any placeholder is unresolved.
//
//   - Serialization: the binary image, the "MNEMONIC operand" text listing,
//     and CBOR object files carrying line and symbol tables.
//
//   - Disassembler: annotated listings for debugging.
package bytecode
