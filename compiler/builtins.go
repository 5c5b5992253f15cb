package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/stackc/pkg/bytecode"
)

// anyType in a built-in signature accepts any non-VOID argument.
var anyType = Type{Kind: KindInvalid, Struct: "*"}

// syscallSig is the signature of a plain built-in.
type syscallSig struct {
	params   []Type
	variadic bool // params[0] repeats one or more times
	ret      Type
}

var syscallSigs = map[string]syscallSig{
	"exit":  {params: []Type{Int}, ret: Void},
	"print": {params: []Type{anyType}, variadic: true, ret: Void},
	"input": {ret: Int},
	"getf":  {ret: Float},
	"type":  {params: []Type{anyType}, ret: String},
	"scan":  {ret: String},
	"read":  {params: []Type{String}, ret: String},
	"write": {params: []Type{String, String}, ret: Void},
}

// isBuiltinName reports whether name is reserved by a built-in.
func isBuiltinName(name string) bool {
	_, sys := bytecode.Syscalls[name]
	_, obj := bytecode.ObjCalls[name]
	return sys || obj
}

// checkSyscall types a plain built-in call.
func (a *SemanticAnalyzer) checkSyscall(call *Call) (Type, error) {
	sig := syscallSigs[call.Name]
	line := call.Span().Line()

	need := len(sig.params)
	if sig.variadic && len(call.Args) > need {
		need = len(call.Args)
	}
	if err := arity(call.Name, need, len(call.Args), line); err != nil {
		return Invalid, err
	}
	for i, arg := range call.Args {
		want := sig.params[0]
		if !sig.variadic {
			want = sig.params[i]
		}
		got, err := a.TypeOf(arg)
		if err != nil {
			return Invalid, err
		}
		if want == anyType {
			if got.Kind == KindVoid {
				return Invalid, a.typeErrorf(line, "Argument %d of '%s' has no value", i+1, call.Name)
			}
			continue
		}
		coerced, err := a.coerce(arg, got, want, line, argMismatch(call.Name, i))
		if err != nil {
			return Invalid, err
		}
		call.Args[i] = coerced
	}
	call.Kind = CallSyscall
	return sig.ret, nil
}

// checkObjCall types a receiver-taking built-in call.
func (a *SemanticAnalyzer) checkObjCall(call *Call) (Type, error) {
	line := call.Span().Line()
	recv, err := a.TypeOf(call.Receiver)
	if err != nil {
		return Invalid, err
	}
	call.Kind = CallObject

	want := func(n int) error {
		return arity(call.Name, n, len(call.Args), line)
	}
	needArray := func() error {
		if !recv.IsArray() {
			return a.typeErrorf(line, "'%s' requires an array, but got %s", call.Name, recv)
		}
		return nil
	}
	needIndexable := func() error {
		if !recv.IsIndexable() {
			return a.typeErrorf(line, "'%s' requires an array or STRING, but got %s", call.Name, recv)
		}
		return nil
	}
	intArgs := func() error {
		for i, arg := range call.Args {
			coerced, err := a.checkValue(arg, Int, line, argMismatch(call.Name, i))
			if err != nil {
				return err
			}
			call.Args[i] = coerced
		}
		return nil
	}

	switch call.Name {
	case "append":
		if err := firstErr(want(1), needArray()); err != nil {
			return Invalid, err
		}
		elem := recv.Elem()
		coerced, err := a.checkValue(call.Args[0], elem, line, argMismatch(call.Name, 0))
		if err != nil {
			return Invalid, err
		}
		call.Args[0] = coerced
		return Void, nil

	case "size":
		if err := firstErr(want(0), needIndexable()); err != nil {
			return Invalid, err
		}
		return Int, nil

	case "is_empty":
		if err := firstErr(want(0), needIndexable()); err != nil {
			return Invalid, err
		}
		return Bool, nil

	case "remove_at":
		if err := firstErr(want(1), needArray(), intArgs()); err != nil {
			return Invalid, err
		}
		return Void, nil

	case "pop":
		if err := firstErr(want(0), needArray()); err != nil {
			return Invalid, err
		}
		return Void, nil

	case "slice":
		if err := firstErr(want(2), needIndexable(), intArgs()); err != nil {
			return Invalid, err
		}
		return recv, nil

	case "map", "filter":
		if err := firstErr(want(1), needArray()); err != nil {
			return Invalid, err
		}
		fn, sig, err := a.functionArg(call, recv.Elem())
		if err != nil {
			return Invalid, err
		}
		if call.Name == "filter" {
			if sig.Return != Bool {
				return Invalid, a.typeErrorf(line, "'filter' needs a function returning BOOL, but %s returns %s", fn.Name, sig.Return)
			}
			return recv, nil
		}
		if sig.Return.Kind == KindVoid {
			return Invalid, a.typeErrorf(line, "'map' needs a function returning a value, but %s returns VOID", fn.Name)
		}
		ret := sig.Return
		ret.Dims += recv.Dims
		return ret, nil

	case "min", "max":
		if err := want(0); err != nil {
			return Invalid, err
		}
		if recv.Dims != 1 || !recv.Elem().IsNumeric() {
			return Invalid, a.typeErrorf(line, "'%s' requires a numeric array, but got %s", call.Name, recv)
		}
		return Float, nil

	case "lower", "upper":
		if err := want(0); err != nil {
			return Invalid, err
		}
		if recv != String {
			return Invalid, a.typeErrorf(line, "'%s' requires a STRING, but got %s", call.Name, recv)
		}
		return String, nil

	case "toString":
		if err := want(0); err != nil {
			return Invalid, err
		}
		if !recv.IsPrimitive() {
			return Invalid, a.typeErrorf(line, "'toString' requires a primitive value, but got %s", recv)
		}
		return String, nil
	}
	return Invalid, a.nameErrorf(line, "Unknown method %s", call.Name)
}

// functionArg validates the function-name argument of map and filter.
func (a *SemanticAnalyzer) functionArg(call *Call, elem Type) (*Ident, *FuncSig, error) {
	line := call.Span().Line()
	id, ok := call.Args[0].(*Ident)
	if !ok {
		return nil, nil, a.typeErrorf(line, "'%s' expects a function name", call.Name)
	}
	sig, ok := a.funcs[id.Name]
	if !ok {
		return nil, nil, a.nameErrorf(line, "Function %s is not declared", id.Name)
	}
	if len(sig.Params) != 1 {
		return nil, nil, a.typeErrorf(line, "'%s' needs a function of one argument, but %s takes %d", call.Name, id.Name, len(sig.Params))
	}
	if p := sig.Params[0]; p != elem && !(elem.IsScalar() && p.IsScalar() && widens(elem.Kind, p.Kind)) {
		return nil, nil, a.typeErrorf(line, "Function %s takes %s, but the elements are %s", id.Name, p, elem)
	}
	id.Func = true
	id.Ref = id.Name
	id.setType(sig.Return)
	return id, sig, nil
}

func arity(name string, want, got, line int) error {
	if got > want {
		return &SemanticError{Kind: TypeError, Line: line,
			Msg: fmt.Sprintf("Too many arguments provided to '%s'. Expected %d, but got %d", name, want, got)}
	}
	if got < want {
		return &SemanticError{Kind: TypeError, Line: line,
			Msg: fmt.Sprintf("Too few arguments provided to '%s'. Expected %d, but got %d", name, want, got)}
	}
	return nil
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// methodDocs gives the signatures of receiver-taking built-ins.
var methodDocs = map[string]string{
	"append":    "T[].append(T) VOID",
	"size":      "T[].size() INT",
	"remove_at": "T[].remove_at(INT) VOID",
	"pop":       "T[].pop() VOID",
	"is_empty":  "T[].is_empty() BOOL",
	"slice":     "T[].slice(INT, INT) T[]",
	"map":       "T[].map(func(T) U) U[]",
	"filter":    "T[].filter(func(T) BOOL) T[]",
	"min":       "N[].min() FLOAT",
	"max":       "N[].max() FLOAT",
	"lower":     "STRING.lower() STRING",
	"upper":     "STRING.upper() STRING",
	"toString":  "T.toString() STRING",
}

// BuiltinNames returns every built-in function and method name, sorted.
func BuiltinNames() []string {
	var out []string
	for name := range bytecode.Syscalls {
		out = append(out, name)
	}
	for name := range bytecode.ObjCalls {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BuiltinSignature renders the signature of a built-in for display.
func BuiltinSignature(name string) (string, bool) {
	if doc, ok := methodDocs[name]; ok {
		return doc, true
	}
	sig, ok := syscallSigs[name]
	if !ok {
		return "", false
	}
	params := make([]string, len(sig.params))
	for i, p := range sig.params {
		if p == anyType {
			params[i] = "any"
		} else {
			params[i] = p.String()
		}
	}
	list := strings.Join(params, ", ")
	if sig.variadic {
		list += "..."
	}
	return fmt.Sprintf("%s(%s) %s", name, list, sig.ret), true
}
