package bytecode

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Binary image
// ---------------------------------------------------------------------------

// MarshalBinary encodes the program as a flat image:
//
//	[opcode:1] [operand:4 little-endian] ...
//
// The operand is an int32, or float32 bits for STORE_FLOAT.
func (p *Program) MarshalBinary() ([]byte, error) {
	return EncodeBinary(p.Code), nil
}

// EncodeBinary encodes instructions into the flat binary image.
func EncodeBinary(code []Instruction) []byte {
	buf := make([]byte, 0, len(code)*InstructionLen)
	for _, in := range code {
		buf = append(buf, byte(in.Op))
		buf = binary.LittleEndian.AppendUint32(buf, in.Bits)
	}
	return buf
}

// DecodeBinary decodes a flat binary image. Line information is not
// part of the image, so decoded instructions have Line 0.
func DecodeBinary(data []byte) ([]Instruction, error) {
	if len(data)%InstructionLen != 0 {
		return nil, fmt.Errorf("binary image length %d is not a multiple of %d", len(data), InstructionLen)
	}
	code := make([]Instruction, 0, len(data)/InstructionLen)
	for pos := 0; pos < len(data); pos += InstructionLen {
		op := Opcode(data[pos])
		if !op.Valid() {
			return nil, fmt.Errorf("unknown opcode 0x%02X at byte %d", byte(op), pos)
		}
		code = append(code, Instruction{
			Op:   op,
			Bits: binary.LittleEndian.Uint32(data[pos+1:]),
		})
	}
	return code, nil
}

// ---------------------------------------------------------------------------
// Text listing
// ---------------------------------------------------------------------------

// WriteText writes one "MNEMONIC operand" line per instruction.
func (p *Program) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, in := range p.Code {
		if _, err := fmt.Fprintf(bw, "%s %s\n", in.Op, FormatOperand(in)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Text returns the text listing as a string.
func (p *Program) Text() string {
	var buf bytes.Buffer
	_ = p.WriteText(&buf)
	return buf.String()
}

// FormatOperand renders an operand the way the text listing does.
// Floats always carry a decimal point.
func FormatOperand(in Instruction) string {
	if in.Op.HasFloatOperand() {
		s := strconv.FormatFloat(float64(in.Float()), 'g', -1, 32)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return s
	}
	return strconv.FormatInt(int64(in.Int()), 10)
}

// ParseText reads a text listing back into instructions.
// Blank lines and lines starting with ';' are ignored.
func ParseText(r io.Reader) ([]Instruction, error) {
	var code []Instruction
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		op, ok := LookupMnemonic(fields[0])
		if !ok {
			return nil, fmt.Errorf("line %d: unknown mnemonic %q", lineNo, fields[0])
		}
		in := Instruction{Op: op}
		if len(fields) > 1 {
			if op.HasFloatOperand() {
				f, err := strconv.ParseFloat(fields[1], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad float operand %q: %w", lineNo, fields[1], err)
				}
				in.Bits = math.Float32bits(float32(f))
			} else {
				n, err := strconv.ParseInt(fields[1], 10, 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad operand %q: %w", lineNo, fields[1], err)
				}
				in.Bits = uint32(int32(n))
			}
		}
		code = append(code, in)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return code, nil
}
