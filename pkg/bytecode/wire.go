package bytecode

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so identical programs encode to
// identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Object is the on-disk object file: the binary image plus debug data.
type Object struct {
	Version    uint16       `cbor:"1,keyasint"`
	Source     string       `cbor:"2,keyasint,omitempty"` // source file name
	SourceHash [32]byte     `cbor:"3,keyasint"`
	Image      []byte       `cbor:"4,keyasint"`           // MarshalBinary output
	Lines      []int        `cbor:"5,keyasint,omitempty"` // source line per instruction
	Symbols    []WireSymbol `cbor:"6,keyasint,omitempty"`
	Structs    int          `cbor:"7,keyasint,omitempty"`
}

// WireSymbol is the encoded form of Symbol.
type WireSymbol struct {
	Name   string `cbor:"1,keyasint"`
	Offset int    `cbor:"2,keyasint"`
	Size   int    `cbor:"3,keyasint"`
	Type   string `cbor:"4,keyasint,omitempty"`
}

// NewObject packages a program compiled from source.
func NewObject(p *Program, name, source string) *Object {
	obj := &Object{
		Version:    p.Version,
		Source:     name,
		SourceHash: sha256.Sum256([]byte(source)),
		Image:      EncodeBinary(p.Code),
		Lines:      make([]int, len(p.Code)),
		Structs:    p.Structs,
	}
	for i, in := range p.Code {
		obj.Lines[i] = in.Line
	}
	for _, s := range p.Symbols {
		obj.Symbols = append(obj.Symbols, WireSymbol{Name: s.Name, Offset: s.Offset, Size: s.Size, Type: s.Type})
	}
	return obj
}

// Program rebuilds the program carried by the object.
func (o *Object) Program() (*Program, error) {
	if o.Version > FormatVersion {
		return nil, fmt.Errorf("object version %d is newer than supported version %d", o.Version, FormatVersion)
	}
	code, err := DecodeBinary(o.Image)
	if err != nil {
		return nil, fmt.Errorf("bytecode: decode object image: %w", err)
	}
	if len(o.Lines) == len(code) {
		for i := range code {
			code[i].Line = o.Lines[i]
		}
	}
	p := &Program{Version: o.Version, Code: code, Structs: o.Structs}
	for _, s := range o.Symbols {
		p.Symbols = append(p.Symbols, Symbol{Name: s.Name, Offset: s.Offset, Size: s.Size, Type: s.Type})
	}
	return p, nil
}

// MarshalObject serializes an Object to CBOR bytes.
func MarshalObject(o *Object) ([]byte, error) {
	return cborEncMode.Marshal(o)
}

// UnmarshalObject deserializes an Object from CBOR bytes.
func UnmarshalObject(data []byte) (*Object, error) {
	var o Object
	if err := cbor.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal object: %w", err)
	}
	return &o, nil
}
