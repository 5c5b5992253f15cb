package compiler

import (
	"sort"
	"strings"

	"github.com/chazu/stackc/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Kind is the base of a Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindByte
	KindInt
	KindFloat
	KindChar
	KindString
	KindStruct
	KindEmptyList // the type of [] before it meets a destination
)

var kindNames = map[Kind]string{
	KindInvalid:   "INVALID",
	KindVoid:      "VOID",
	KindBool:      "BOOL",
	KindByte:      "BYTE",
	KindInt:       "INT",
	KindFloat:     "FLOAT",
	KindChar:      "CHAR",
	KindString:    "STRING",
	KindEmptyList: "[]",
}

// Type is a static type: a base kind, a struct name for KindStruct, and the
// number of array dimensions.
type Type struct {
	Kind   Kind
	Struct string
	Dims   int
}

// Common types.
var (
	Invalid   = Type{Kind: KindInvalid}
	Void      = Type{Kind: KindVoid}
	Bool      = Type{Kind: KindBool}
	Byte      = Type{Kind: KindByte}
	Int       = Type{Kind: KindInt}
	Float     = Type{Kind: KindFloat}
	Char      = Type{Kind: KindChar}
	String    = Type{Kind: KindString}
	EmptyList = Type{Kind: KindEmptyList}
)

// StructType returns the type of instances of the named struct.
func StructType(name string) Type {
	return Type{Kind: KindStruct, Struct: name}
}

// ArrayOf returns the type with one more array dimension.
func ArrayOf(t Type) Type {
	t.Dims++
	return t
}

// String renders the type as source syntax in upper case, e.g. "INT[]".
func (t Type) String() string {
	var base string
	if t.Kind == KindStruct {
		base = t.Struct
	} else {
		base = kindNames[t.Kind]
	}
	return base + strings.Repeat("[]", t.Dims)
}

// IsArray reports whether t has at least one array dimension.
func (t Type) IsArray() bool {
	return t.Dims > 0
}

// IsStruct reports whether t is a struct instance (not an array of them).
func (t Type) IsStruct() bool {
	return t.Kind == KindStruct && t.Dims == 0
}

// IsPrimitive reports whether t is a scalar primitive, STRING included.
func (t Type) IsPrimitive() bool {
	if t.Dims != 0 {
		return false
	}
	switch t.Kind {
	case KindBool, KindByte, KindInt, KindFloat, KindChar, KindString:
		return true
	}
	return false
}

// IsScalar reports whether t is a primitive other than STRING.
func (t Type) IsScalar() bool {
	return t.IsPrimitive() && t.Kind != KindString
}

// IsNumeric reports whether arithmetic on t yields a number.
func (t Type) IsNumeric() bool {
	if t.Dims != 0 {
		return false
	}
	switch t.Kind {
	case KindByte, KindInt, KindFloat, KindChar:
		return true
	}
	return false
}

// IsIndexable reports whether t supports a[i].
func (t Type) IsIndexable() bool {
	return t.Dims > 0 || t.Kind == KindString
}

// Elem returns the type produced by indexing t. STRING yields CHAR.
func (t Type) Elem() Type {
	if t.Dims > 0 {
		t.Dims--
		return t
	}
	if t.Kind == KindString {
		return Char
	}
	return Invalid
}

// Size returns the memory slot size in bytes: 1 for BOOL, BYTE and CHAR
// scalars, 4 for everything else.
func (t Type) Size() int {
	if t.Dims == 0 {
		switch t.Kind {
		case KindBool, KindByte, KindChar:
			return 1
		}
	}
	return 4
}

// Tag returns the VM type tag of t's innermost element and the array depth
// the VM sees. STRING is an array of CHAR.
func (t Type) Tag() (bytecode.TypeTag, int) {
	depth := t.Dims
	switch t.Kind {
	case KindBool:
		return bytecode.TagBool, depth
	case KindByte:
		return bytecode.TagByte, depth
	case KindInt:
		return bytecode.TagInt, depth
	case KindFloat:
		return bytecode.TagFloat, depth
	case KindChar:
		return bytecode.TagChar, depth
	case KindString:
		return bytecode.TagChar, depth + 1
	case KindStruct:
		return bytecode.TagObject, depth
	}
	return bytecode.TagUnassigned, depth
}

// primitiveNames maps the case-folded spelling of primitive type names.
var primitiveNames = map[string]Type{
	"int":    Int,
	"byte":   Byte,
	"float":  Float,
	"bool":   Bool,
	"string": String,
	"char":   Char,
	"void":   Void,
}

// PrimitiveType looks up a primitive type name case-insensitively.
func PrimitiveType(name string) (Type, bool) {
	t, ok := primitiveNames[strings.ToLower(name)]
	return t, ok
}

// wideningRank orders the scalar kinds that may be widened upward.
var wideningRank = map[Kind]int{
	KindBool:  0,
	KindByte:  1,
	KindInt:   2,
	KindFloat: 3,
}

// widens reports whether a value of kind src converts implicitly to dst.
// BOOL < BYTE < INT < FLOAT, and CHAR widens to INT and FLOAT.
func widens(src, dst Kind) bool {
	if src == dst {
		return false
	}
	if src == KindChar {
		return dst == KindInt || dst == KindFloat
	}
	sr, ok1 := wideningRank[src]
	dr, ok2 := wideningRank[dst]
	return ok1 && ok2 && sr < dr
}

// PrimitiveTypeNames returns the upper-case primitive type names, sorted.
func PrimitiveTypeNames() []string {
	out := make([]string, 0, len(primitiveNames))
	for _, t := range primitiveNames {
		out = append(out, t.String())
	}
	sort.Strings(out)
	return out
}
