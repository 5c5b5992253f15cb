package bytecode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func sampleProgram(t *testing.T) *Program {
	t.Helper()
	b := NewBuilder()
	b.Emit(OpStore, 5)
	b.Emit(OpStoreMem, 0)
	b.Emit(OpLoad, 0)
	b.EmitFloat(OpStoreFloat, 1.5)
	b.Emit(OpAdd, 0)
	b.Emit(OpListAccess, -1)
	p, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	return p
}

func TestMarshalBinaryLayout(t *testing.T) {
	p := sampleProgram(t)
	data, err := p.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 6*InstructionLen {
		t.Fatalf("image length = %d", len(data))
	}
	// STORE 5: opcode then little-endian int32
	want := []byte{0x0F, 5, 0, 0, 0}
	if !bytes.Equal(data[:5], want) {
		t.Errorf("first instruction = % X, want % X", data[:5], want)
	}
	// LIST_ACCESS -1
	if !bytes.Equal(data[25:30], []byte{0x1A, 0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Errorf("last instruction = % X", data[25:30])
	}
	// STORE_FLOAT 1.5 = 0x3FC00000
	if !bytes.Equal(data[15:20], []byte{0x11, 0x00, 0x00, 0xC0, 0x3F}) {
		t.Errorf("float instruction = % X", data[15:20])
	}
}

func TestDecodeBinaryErrors(t *testing.T) {
	if _, err := DecodeBinary([]byte{0x01, 0, 0}); err == nil {
		t.Error("expected error for truncated image")
	}
	_, err := DecodeBinary([]byte{0x90, 0, 0, 0, 0})
	if err == nil || !strings.Contains(err.Error(), "unknown opcode") {
		t.Errorf("expected unknown opcode error, got %v", err)
	}
}

func TestTextListing(t *testing.T) {
	p := sampleProgram(t)
	want := "STORE 5\nSTORE_MEM 0\nLOAD 0\nSTORE_FLOAT 1.5\nADD 0\nLIST_ACCESS -1\n"
	if got := p.Text(); got != want {
		t.Errorf("Text() =\n%s\nwant\n%s", got, want)
	}

	code, err := ParseText(strings.NewReader("; comment\n" + want + "\n"))
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}
	if len(code) != len(p.Code) {
		t.Fatalf("parsed %d instructions, want %d", len(code), len(p.Code))
	}
	for i := range code {
		if code[i].Op != p.Code[i].Op || code[i].Bits != p.Code[i].Bits {
			t.Errorf("instruction %d: got %+v, want %+v", i, code[i], p.Code[i])
		}
	}
}

func TestFormatOperandWholeFloat(t *testing.T) {
	b := NewBuilder()
	b.EmitFloat(OpStoreFloat, 5)
	p, _ := b.Finish()
	if got := FormatOperand(p.Code[0]); got != "5.0" {
		t.Errorf("FormatOperand = %q, want 5.0", got)
	}
}

func TestParseTextErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"PUSH 1", "unknown mnemonic"},
		{"STORE x", "bad operand"},
		{"STORE_FLOAT abc", "bad float operand"},
	}
	for _, tt := range tests {
		_, err := ParseText(strings.NewReader(tt.src))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("ParseText(%q) error = %v, want %q", tt.src, err, tt.want)
		}
	}
}

// Encoding any instruction sequence and decoding it again recovers the
// same mnemonics and operand bits.
func TestProperty_BinaryRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	ops := AllOpcodes()

	properties.Property("decode(encode(code)) preserves mnemonics and operands", prop.ForAll(
		func(picks []int, operands []uint32) bool {
			code := make([]Instruction, len(picks))
			for i, pick := range picks {
				var bits uint32
				if len(operands) > 0 {
					bits = operands[i%len(operands)]
				}
				code[i] = Instruction{Op: ops[pick], Bits: bits}
			}

			decoded, err := DecodeBinary(EncodeBinary(code))
			if err != nil || len(decoded) != len(code) {
				return false
			}
			for i := range code {
				if decoded[i].Op.String() != code[i].Op.String() || decoded[i].Bits != code[i].Bits {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(ops)-1)),
		gen.SliceOf(gen.UInt32()),
	))

	properties.TestingRun(t)
}
