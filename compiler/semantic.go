package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/stackc/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: scope-aware type checking
// ---------------------------------------------------------------------------

// MainContext is the name of the top-level context.
const MainContext = "MAIN"

// FuncSig is a registered function signature.
type FuncSig struct {
	Name   string
	Params []Type
	Return Type
}

// StructInfo is a registered struct. Field order never changes after
// registration, and Offsets is fixed with it: the heap offset of field i
// of n is n-1-i.
type StructInfo struct {
	Name    string
	Index   int // heap-table index, in declaration order
	Fields  []Field
	Offsets map[string]int
}

// FieldType returns the declared type of a field.
func (s *StructInfo) FieldType(name string) (Type, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return Invalid, false
}

// NewStructInfo computes the layout of a struct declaration.
func NewStructInfo(decl *StructDecl, index int) *StructInfo {
	n := len(decl.Fields)
	info := &StructInfo{
		Name:    decl.Name,
		Index:   index,
		Fields:  append([]Field(nil), decl.Fields...),
		Offsets: make(map[string]int, n),
	}
	for i, f := range decl.Fields {
		info.Offsets[f.Name] = n - 1 - i
	}
	return info
}

// SemanticAnalyzer checks declarations, assignments and calls as the AST
// is built. It owns all of its tables; one analyzer serves one compilation.
type SemanticAnalyzer struct {
	types       map[string]Type // qualified name -> declared type
	structs     map[string]*StructInfo
	structOrder []*StructInfo
	funcs       map[string]*FuncSig

	scope     []string // context path below MAIN
	blockSeq  int      // anonymous block counter
	loopDepth int
	current   *FuncSig // function being analyzed, nil at top level
}

// NewSemanticAnalyzer creates an analyzer positioned in the MAIN context.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{
		types:   make(map[string]Type),
		structs: make(map[string]*StructInfo),
		funcs:   make(map[string]*FuncSig),
	}
}

func (a *SemanticAnalyzer) nameErrorf(line int, format string, args ...interface{}) error {
	return &SemanticError{Kind: NameError, Msg: fmt.Sprintf(format, args...), Line: line}
}

func (a *SemanticAnalyzer) typeErrorf(line int, format string, args ...interface{}) error {
	return &SemanticError{Kind: TypeError, Msg: fmt.Sprintf(format, args...), Line: line}
}

// ---------------------------------------------------------------------------
// Contexts
// ---------------------------------------------------------------------------

// ContextName returns the current context: MAIN, a function name, or a
// dotted path ending in an anonymous block number.
func (a *SemanticAnalyzer) ContextName() string {
	if len(a.scope) == 0 {
		return MainContext
	}
	return strings.Join(a.scope, ".")
}

// qualify returns the qualified name of name in the current context.
// Top-level names stay bare.
func (a *SemanticAnalyzer) qualify(name string) string {
	if len(a.scope) == 0 {
		return name
	}
	return strings.Join(a.scope, ".") + "." + name
}

// EnterBlock pushes an anonymous block context and returns its name.
func (a *SemanticAnalyzer) EnterBlock() string {
	a.blockSeq++
	a.scope = append(a.scope, strconv.Itoa(a.blockSeq))
	return a.ContextName()
}

// ExitBlock pops the innermost context and discards its bindings.
func (a *SemanticAnalyzer) ExitBlock() {
	if len(a.scope) == 0 {
		return
	}
	prefix := a.ContextName() + "."
	for name := range a.types {
		if strings.HasPrefix(name, prefix) {
			delete(a.types, name)
		}
	}
	a.scope = a.scope[:len(a.scope)-1]
}

// EnterLoop marks that break and continue are legal.
func (a *SemanticAnalyzer) EnterLoop() { a.loopDepth++ }

// ExitLoop undoes EnterLoop.
func (a *SemanticAnalyzer) ExitLoop() { a.loopDepth-- }

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

// Resolve finds the innermost binding of name, stripping one context
// segment at a time until only the bare name is left.
func (a *SemanticAnalyzer) Resolve(name string, line int) (string, Type, error) {
	for i := len(a.scope); i >= 0; i-- {
		key := name
		if i > 0 {
			key = strings.Join(a.scope[:i], ".") + "." + name
		}
		if t, ok := a.types[key]; ok {
			return key, t, nil
		}
	}
	if _, ok := a.funcs[name]; ok {
		return "", Invalid, a.typeErrorf(line, "Function %s cannot be used as a value", name)
	}
	return "", Invalid, a.nameErrorf(line, "Variable %s is not declared", name)
}

// LookupStruct returns a registered struct.
func (a *SemanticAnalyzer) LookupStruct(name string) (*StructInfo, bool) {
	s, ok := a.structs[name]
	return s, ok
}

// Structs returns registered structs in declaration order.
func (a *SemanticAnalyzer) Structs() []*StructInfo {
	return a.structOrder
}

// LookupFunction returns a registered function signature.
func (a *SemanticAnalyzer) LookupFunction(name string) (*FuncSig, bool) {
	f, ok := a.funcs[name]
	return f, ok
}

// reserved reports why name cannot be declared, or "" if it can.
func (a *SemanticAnalyzer) reserved(name string) string {
	switch {
	case IsKeyword(name):
		return "a keyword"
	case isBuiltinName(name):
		return "a built-in function"
	}
	if _, ok := PrimitiveType(name); ok {
		return "a type name"
	}
	if _, ok := a.funcs[name]; ok {
		return "a function"
	}
	if _, ok := a.structs[name]; ok {
		return "a struct"
	}
	return ""
}

// checkType verifies that every struct named by t exists.
func (a *SemanticAnalyzer) checkType(t Type, line int, allowVoid bool) error {
	switch t.Kind {
	case KindStruct:
		if _, ok := a.structs[t.Struct]; !ok {
			return a.nameErrorf(line, "Struct %s is not declared", t.Struct)
		}
	case KindVoid:
		if !allowVoid || t.Dims > 0 {
			return a.typeErrorf(line, "VOID is not a value type")
		}
	case KindInvalid, KindEmptyList:
		return a.typeErrorf(line, "Invalid type %s", t)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

// DeclareVariable registers a variable declaration after checking its
// initializer against the declared type.
func (a *SemanticAnalyzer) DeclareVariable(d *VarDecl) error {
	line := d.Span().Line()
	if err := a.checkType(d.Type, line, false); err != nil {
		return err
	}
	q := a.qualify(d.Name)
	if _, ok := a.types[q]; ok {
		return a.nameErrorf(line, "Variable %s is already declared", d.Name)
	}
	if why := a.reserved(d.Name); why != "" {
		return a.nameErrorf(line, "Variable %s collides with %s", d.Name, why)
	}
	if d.Value == nil {
		return a.typeErrorf(line, "Variable %s needs an initial value", d.Name)
	}

	value, err := a.checkValue(d.Value, d.Type, line, assignMismatch)
	if err != nil {
		return err
	}
	d.Value = value
	d.Ref = q
	a.types[q] = d.Type
	return nil
}

// DeclareStruct registers a struct and precomputes its field offsets.
func (a *SemanticAnalyzer) DeclareStruct(s *StructDecl) error {
	line := s.Span().Line()
	if len(a.scope) != 0 {
		return a.typeErrorf(line, "Struct %s must be declared at top level", s.Name)
	}
	if why := a.reserved(s.Name); why != "" {
		return a.nameErrorf(line, "Struct %s collides with %s", s.Name, why)
	}
	if _, ok := a.types[s.Name]; ok {
		return a.nameErrorf(line, "Struct %s collides with a variable", s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if seen[f.Name] {
			return a.nameErrorf(line, "Field %s is already declared in struct %s", f.Name, s.Name)
		}
		seen[f.Name] = true
		if f.Type.Kind == KindStruct && f.Type.Struct == s.Name {
			continue
		}
		if err := a.checkType(f.Type, line, false); err != nil {
			return err
		}
	}

	info := NewStructInfo(s, len(a.structOrder))
	a.structs[s.Name] = info
	a.structOrder = append(a.structOrder, info)
	return nil
}

// DeclareFunction registers a function signature. It is called before
// the body is analyzed so the body may call the function recursively.
func (a *SemanticAnalyzer) DeclareFunction(f *FuncDecl) error {
	line := f.Span().Line()
	if len(a.scope) != 0 {
		return a.typeErrorf(line, "Function %s must be declared at top level", f.Name)
	}
	if why := a.reserved(f.Name); why != "" {
		return a.nameErrorf(line, "Function %s collides with %s", f.Name, why)
	}
	if _, ok := a.types[f.Name]; ok {
		return a.nameErrorf(line, "Function %s collides with a variable", f.Name)
	}
	if err := a.checkType(f.Return, line, true); err != nil {
		return err
	}
	sig := &FuncSig{Name: f.Name, Return: f.Return}
	seen := make(map[string]bool, len(f.Params))
	for _, p := range f.Params {
		if seen[p.Name] {
			return a.nameErrorf(line, "Parameter %s is already declared", p.Name)
		}
		seen[p.Name] = true
		if err := a.checkType(p.Type, line, false); err != nil {
			return err
		}
		sig.Params = append(sig.Params, p.Type)
	}
	a.funcs[f.Name] = sig
	return nil
}

// EnterFunction opens the function's context and binds its parameters.
func (a *SemanticAnalyzer) EnterFunction(f *FuncDecl) error {
	sig, ok := a.funcs[f.Name]
	if !ok {
		return a.nameErrorf(f.Span().Line(), "Function %s is not declared", f.Name)
	}
	a.scope = append(a.scope, f.Name)
	a.current = sig
	for i := range f.Params {
		p := &f.Params[i]
		if why := a.reserved(p.Name); why != "" {
			return a.nameErrorf(f.Span().Line(), "Parameter %s collides with %s", p.Name, why)
		}
		p.Ref = a.qualify(p.Name)
		a.types[p.Ref] = p.Type
	}
	if f.Body != nil {
		f.Body.Scope = a.ContextName()
	}
	return nil
}

// ExitFunction closes the function's context.
func (a *SemanticAnalyzer) ExitFunction() {
	a.ExitBlock()
	a.current = nil
}

// ---------------------------------------------------------------------------
// Statement checks
// ---------------------------------------------------------------------------

// CheckAssign validates an assignment and inserts any implicit cast.
func (a *SemanticAnalyzer) CheckAssign(s *Assign) error {
	line := s.Span().Line()
	var target Type

	switch t := s.Target.(type) {
	case *Ident:
		ref, ty, err := a.Resolve(t.Name, line)
		if err != nil {
			return err
		}
		t.Ref = ref
		t.setType(ty)
		target = ty
	case *Member:
		ty, err := a.TypeOf(t)
		if err != nil {
			return err
		}
		target = ty
	case *Index:
		ty, err := a.TypeOf(t)
		if err != nil {
			return err
		}
		if t.Array.ExprType() == String {
			return a.typeErrorf(line, "Cannot assign to a character of a STRING")
		}
		target = ty
	default:
		return a.typeErrorf(line, "Cannot assign to this expression")
	}

	value, err := a.checkValue(s.Value, target, line, assignMismatch)
	if err != nil {
		return err
	}
	s.Value = value
	return nil
}

// CheckCondition requires a BOOL, INT or BYTE condition.
func (a *SemanticAnalyzer) CheckCondition(e Expr) error {
	t, err := a.TypeOf(e)
	if err != nil {
		return err
	}
	if t != Bool && t != Int && t != Byte {
		return a.typeErrorf(e.Span().Line(), "Condition must be BOOL, INT or BYTE, but got %s", t)
	}
	return nil
}

// CheckReturn validates a return against the enclosing function.
func (a *SemanticAnalyzer) CheckReturn(r *ReturnStmt) error {
	line := r.Span().Line()
	if a.current == nil {
		return a.typeErrorf(line, "Return outside of a function")
	}
	fn := a.current
	if r.Value == nil {
		if fn.Return != Void {
			return a.typeErrorf(line, "Function %s must return a %s value", fn.Name, fn.Return)
		}
		return nil
	}
	if fn.Return == Void {
		return a.typeErrorf(line, "Function %s does not return a value", fn.Name)
	}
	value, err := a.checkValue(r.Value, fn.Return, line, func(got, want Type) string {
		return fmt.Sprintf("Function %s returns %s, but got %s", fn.Name, want, got)
	})
	if err != nil {
		return err
	}
	r.Value = value
	return nil
}

// CheckFunctionEnd rejects a value-returning function whose body can
// run off its end.
func (a *SemanticAnalyzer) CheckFunctionEnd(f *FuncDecl) error {
	if f.Return == Void || alwaysReturns(f.Body.List()) {
		return nil
	}
	return a.typeErrorf(f.Span().Line(), "Function %s can end without returning a %s value", f.Name, f.Return)
}

// alwaysReturns reports whether every path through stmts ends in a return.
func alwaysReturns(stmts []Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	switch s := stmts[len(stmts)-1].(type) {
	case *ReturnStmt:
		return true
	case *Block:
		return alwaysReturns(s.Statements)
	case *IfStmt:
		if s.Else == nil {
			return false
		}
		for _, c := range s.Clauses {
			if !alwaysReturns(c.Body.List()) {
				return false
			}
		}
		return alwaysReturns(s.Else.List())
	}
	return false
}

// CheckBreak rejects break and continue outside a loop.
func (a *SemanticAnalyzer) CheckBreak(s Stmt) error {
	if a.loopDepth > 0 {
		return nil
	}
	word := "break"
	if _, ok := s.(*ContinueStmt); ok {
		word = "continue"
	}
	return a.typeErrorf(s.Span().Line(), "'%s' outside of a loop", word)
}

// CheckForInit validates a for loop's initializer and records the loop
// variable. It runs inside the for statement's own block context.
func (a *SemanticAnalyzer) CheckForInit(f *ForStmt) error {
	line := f.Span().Line()
	switch init := f.Init.(type) {
	case *VarDecl:
		if err := a.DeclareVariable(init); err != nil {
			return err
		}
		f.VarRef, f.VarType = init.Ref, init.Type
	case *Assign:
		id, ok := init.Target.(*Ident)
		if !ok {
			return a.typeErrorf(line, "For loop variable must be a plain variable")
		}
		if err := a.CheckAssign(init); err != nil {
			return err
		}
		f.VarRef, f.VarType = id.Ref, id.ExprType()
	default:
		return a.typeErrorf(line, "For loop needs a declaration or assignment")
	}
	if !f.VarType.IsNumeric() {
		return a.typeErrorf(line, "For loop variable must be numeric, but got %s", f.VarType)
	}
	return nil
}

// CheckExprStmt validates an expression evaluated for its effect. A
// non-VOID result is discarded by the generator.
func (a *SemanticAnalyzer) CheckExprStmt(s *ExprStmt) error {
	t, err := a.TypeOf(s.Expr)
	if err != nil {
		return err
	}
	if isEmptyList(t) {
		settleList(s.Expr, ArrayOf(Int))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Type inference
// ---------------------------------------------------------------------------

// TypeOf infers and records the type of an expression.
func (a *SemanticAnalyzer) TypeOf(e Expr) (Type, error) {
	t, err := a.infer(e)
	if err != nil {
		return Invalid, err
	}
	e.setType(t)
	return t, nil
}

func (a *SemanticAnalyzer) infer(e Expr) (Type, error) {
	line := e.Span().Line()

	switch n := e.(type) {
	case *Literal:
		return Type{Kind: n.Kind}, nil

	case *ListLiteral:
		return a.inferList(n)

	case *Ident:
		ref, t, err := a.Resolve(n.Name, line)
		if err != nil {
			return Invalid, err
		}
		n.Ref = ref
		return t, nil

	case *Binary:
		lt, err := a.TypeOf(n.Left)
		if err != nil {
			return Invalid, err
		}
		rt, err := a.TypeOf(n.Right)
		if err != nil {
			return Invalid, err
		}
		return a.binaryResult(n.Op, lt, rt, line)

	case *Unary:
		t, err := a.TypeOf(n.Operand)
		if err != nil {
			return Invalid, err
		}
		switch n.Op {
		case "not":
			if !t.IsScalar() {
				return Invalid, a.typeErrorf(line, "Unsupported operand type for not: %s", t)
			}
			return Bool, nil
		case "-":
			if !t.IsNumeric() && t != Bool {
				return Invalid, a.typeErrorf(line, "Unsupported operand type for -: %s", t)
			}
			if t == Char || t == Bool {
				return Int, nil
			}
			return t, nil
		}
		return Invalid, a.typeErrorf(line, "Unknown unary operator %s", n.Op)

	case *Call:
		return a.CheckCall(n)

	case *New:
		return a.CheckNew(n)

	case *Member:
		ot, err := a.TypeOf(n.Object)
		if err != nil {
			return Invalid, err
		}
		if !ot.IsStruct() {
			return Invalid, a.typeErrorf(line, "Cannot access field %s of a %s value", n.Field, ot)
		}
		info := a.structs[ot.Struct]
		ft, ok := info.FieldType(n.Field)
		if !ok {
			return Invalid, a.nameErrorf(line, "Struct %s has no field %s", ot.Struct, n.Field)
		}
		return ft, nil

	case *Index:
		at, err := a.TypeOf(n.Array)
		if err != nil {
			return Invalid, err
		}
		if !at.IsIndexable() {
			return Invalid, a.typeErrorf(line, "Cannot index a %s value", at)
		}
		idx, err := a.checkValue(n.Index, Int, line, func(got, _ Type) string {
			return fmt.Sprintf("Index must be INT, but got %s", got)
		})
		if err != nil {
			return Invalid, err
		}
		n.Index = idx
		return at.Elem(), nil

	case *Cast:
		from, err := a.TypeOf(n.Inner)
		if err != nil {
			return Invalid, err
		}
		if !from.IsScalar() || !n.To.IsScalar() {
			return Invalid, a.typeErrorf(line, "Cannot cast %s to %s", from, n.To)
		}
		n.From = from
		return n.To, nil
	}

	return Invalid, &InternalError{Msg: fmt.Sprintf("unknown expression type: %T", e)}
}

// binaryResult applies the binary operator typing rules.
func (a *SemanticAnalyzer) binaryResult(op string, lt, rt Type, line int) (Type, error) {
	if !lt.IsPrimitive() || !rt.IsPrimitive() {
		return Invalid, a.typeErrorf(line, "Unsupported operand types for %s: %s and %s", op, lt, rt)
	}

	ls, rs := lt.Kind == KindString, rt.Kind == KindString
	if ls || rs {
		switch {
		case op == "+":
			return String, nil
		case ls && rs && (op == "==" || op == "!="):
			return Bool, nil
		}
		return Invalid, a.typeErrorf(line, "Unsupported operand types for %s: %s and %s", op, lt, rt)
	}

	switch op {
	case "/":
		return Float, nil
	case "+", "-", "*", "%":
		switch {
		case lt == rt:
			return lt, nil
		case lt == Float || rt == Float:
			return Float, nil
		}
		return Int, nil
	case "==", "!=", "<", ">", "<=", ">=", "and", "or":
		return Bool, nil
	}
	return Invalid, a.typeErrorf(line, "Unknown operator %s", op)
}

// inferList unifies element types. Empty sublists take the type of their
// non-empty siblings.
func (a *SemanticAnalyzer) inferList(n *ListLiteral) (Type, error) {
	if len(n.Elements) == 0 {
		return EmptyList, nil
	}
	line := n.Span().Line()

	elem := Invalid
	for _, e := range n.Elements {
		t, err := a.TypeOf(e)
		if err != nil {
			return Invalid, err
		}
		switch {
		case elem == Invalid:
			elem = t
		case t == elem:
		case isEmptyList(t) && fitsEmpty(t, elem):
		case isEmptyList(elem) && fitsEmpty(elem, t):
			elem = t
		default:
			return Invalid, a.typeErrorf(line, "List elements must share one type, but got %s and %s", elem, t)
		}
	}
	if elem.Kind == KindVoid {
		return Invalid, a.typeErrorf(line, "List elements must have a value")
	}
	if !isEmptyList(elem) {
		for _, e := range n.Elements {
			settleList(e, elem)
		}
	}
	return ArrayOf(elem), nil
}

// isEmptyList reports whether t is the type of [] or of lists of [].
func isEmptyList(t Type) bool {
	return t.Kind == KindEmptyList
}

// fitsEmpty reports whether an empty-list type can take destination type dst.
func fitsEmpty(empty, dst Type) bool {
	depth := dst.Dims
	if dst.Kind == KindString {
		depth++
	}
	return depth >= empty.Dims+1
}

// settleList retypes empty list literals nested in e to t.
func settleList(e Expr, t Type) {
	l, ok := e.(*ListLiteral)
	if !ok || !isEmptyList(l.ExprType()) {
		return
	}
	l.setType(t)
	for _, el := range l.Elements {
		settleList(el, t.Elem())
	}
}

// ---------------------------------------------------------------------------
// Calls and construction
// ---------------------------------------------------------------------------

// CheckCall validates a call, inserting implicit casts on arguments.
func (a *SemanticAnalyzer) CheckCall(call *Call) (Type, error) {
	line := call.Span().Line()

	if call.Receiver != nil {
		if _, ok := bytecode.ObjCalls[call.Name]; !ok {
			return Invalid, a.nameErrorf(line, "Unknown method %s", call.Name)
		}
		return a.checkObjCall(call)
	}

	if sig, ok := a.funcs[call.Name]; ok {
		if err := arity(call.Name, len(sig.Params), len(call.Args), line); err != nil {
			return Invalid, err
		}
		for i, arg := range call.Args {
			coerced, err := a.checkValue(arg, sig.Params[i], line, argMismatch(call.Name, i))
			if err != nil {
				return Invalid, err
			}
			call.Args[i] = coerced
		}
		call.Kind = CallUser
		return sig.Return, nil
	}

	if _, ok := bytecode.Syscalls[call.Name]; ok {
		return a.checkSyscall(call)
	}
	if _, ok := bytecode.ObjCalls[call.Name]; ok {
		return Invalid, a.typeErrorf(line, "%s must be called on a value, e.g. x.%s()", call.Name, call.Name)
	}
	return Invalid, a.nameErrorf(line, "Function %s is not declared", call.Name)
}

// CheckNew validates constructor arguments against the struct's fields.
func (a *SemanticAnalyzer) CheckNew(n *New) (Type, error) {
	line := n.Span().Line()
	info, ok := a.structs[n.Struct]
	if !ok {
		return Invalid, a.nameErrorf(line, "Struct %s is not declared", n.Struct)
	}
	if err := arity(n.Struct, len(info.Fields), len(n.Args), line); err != nil {
		return Invalid, err
	}
	for i, arg := range n.Args {
		coerced, err := a.checkValue(arg, info.Fields[i].Type, line, func(got, want Type) string {
			return fmt.Sprintf("Field %s of %s expects %s, but got %s", info.Fields[i].Name, info.Name, want, got)
		})
		if err != nil {
			return Invalid, err
		}
		n.Args[i] = coerced
	}
	return StructType(n.Struct), nil
}

// ---------------------------------------------------------------------------
// Implicit widening
// ---------------------------------------------------------------------------

// mismatchFunc renders the TypeError message for a rejected conversion.
type mismatchFunc func(got, want Type) string

func assignMismatch(got, want Type) string {
	return fmt.Sprintf("Type mismatch: Cannot assign a %s value to a %s variable", got, want)
}

func argMismatch(fn string, i int) mismatchFunc {
	return func(got, want Type) string {
		return fmt.Sprintf("Argument %d of '%s' has an invalid type. Expected %s value, but got %s value", i+1, fn, want, got)
	}
}

// checkValue infers e's type and converts it to dst.
func (a *SemanticAnalyzer) checkValue(e Expr, dst Type, line int, mm mismatchFunc) (Expr, error) {
	src, err := a.TypeOf(e)
	if err != nil {
		return nil, err
	}
	return a.coerce(e, src, dst, line, mm)
}

// coerce returns e converted to dst, wrapping it in an implicit Cast when
// widening applies. Literal sources are converted and retagged in place.
func (a *SemanticAnalyzer) coerce(e Expr, src, dst Type, line int, mm mismatchFunc) (Expr, error) {
	if src == dst {
		return e, nil
	}

	if isEmptyList(src) {
		if fitsEmpty(src, dst) {
			settleList(e, dst)
			return e, nil
		}
		return nil, a.typeErrorf(line, "%s", mm(src, dst))
	}

	if !src.IsScalar() || !dst.IsScalar() {
		return nil, a.typeErrorf(line, "%s", mm(src, dst))
	}

	if lit, ok := e.(*Literal); ok && (widens(src.Kind, dst.Kind) || (src == Int && dst == Byte)) {
		convertLiteral(lit, dst)
		return implicitCast(lit, src, dst), nil
	}
	if widens(src.Kind, dst.Kind) {
		return implicitCast(e, src, dst), nil
	}
	return nil, a.typeErrorf(line, "%s", mm(src, dst))
}

func implicitCast(e Expr, from, to Type) *Cast {
	c := &Cast{SpanVal: e.Span(), Inner: e, From: from, To: to, Implicit: true}
	c.setType(to)
	return c
}

// convertLiteral rewrites a literal's stored value as kind dst.
func convertLiteral(lit *Literal, dst Type) {
	switch dst.Kind {
	case KindByte:
		v := lit.Int
		if v > 127 {
			v = 127
		} else if v < -128 {
			v = -128
		}
		lit.Int = v
	case KindFloat:
		lit.Float = float64(lit.Int)
	}
	lit.Kind = dst.Kind
	lit.setType(dst)
}
