package bytecode

import (
	"bytes"
	"fmt"
)

// Output formats.
const (
	FormatText   = "text"
	FormatBinary = "binary"
	FormatObject = "object"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatText, FormatBinary, FormatObject}

// Render serializes p in the named format. name and source are recorded
// in object files only.
func Render(p *Program, format, name, source string) ([]byte, error) {
	switch format {
	case FormatText, "":
		return []byte(p.Text()), nil
	case FormatBinary:
		return p.MarshalBinary()
	case FormatObject:
		return MarshalObject(NewObject(p, name, source))
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// Read loads a program from any output format: a CBOR object file, a
// binary image, or a text listing, tried in that order.
func Read(data []byte) (*Program, error) {
	if obj, err := UnmarshalObject(data); err == nil && obj.Image != nil {
		return obj.Program()
	}
	if len(data) > 0 && len(data)%InstructionLen == 0 {
		if code, err := DecodeBinary(data); err == nil {
			return &Program{Version: FormatVersion, Code: code}, nil
		}
	}
	code, err := ParseText(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not an object file, binary image or listing: %w", err)
	}
	return &Program{Version: FormatVersion, Code: code}, nil
}
