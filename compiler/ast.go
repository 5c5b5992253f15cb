package compiler

// ---------------------------------------------------------------------------
// AST
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Line returns the 1-based line the span starts on.
func (s Span) Line() int {
	return s.Start.Line
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// at builds a span covering a single line, for hand-built trees.
func at(line int) Span {
	return Span{Start: Position{Line: line}, End: Position{Line: line}}
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes. The semantic pass records
// each expression's type; ExprType returns Invalid before that.
type Expr interface {
	Node
	ExprType() Type
	setType(Type)
	expr() // marker method
}

// typed carries the type computed by the semantic pass.
type typed struct {
	T Type
}

func (t *typed) ExprType() Type  { return t.T }
func (t *typed) setType(ty Type) { t.T = ty }

// Literal is a scalar or string literal. Int holds INT, BYTE, BOOL (0/1)
// and CHAR (code point) values.
type Literal struct {
	typed
	SpanVal Span
	Kind    Kind
	Int     int64
	Float   float64
	Str     string
}

func (n *Literal) Span() Span { return n.SpanVal }
func (n *Literal) node()      {}
func (n *Literal) expr()      {}

// ListLiteral is [e1, e2, ...] or [].
type ListLiteral struct {
	typed
	SpanVal  Span
	Elements []Expr
}

func (n *ListLiteral) Span() Span { return n.SpanVal }
func (n *ListLiteral) node()      {}
func (n *ListLiteral) expr()      {}

// Ident is a variable reference. Ref is the qualified name the analyzer
// resolved it to; Func is set when it names a function.
type Ident struct {
	typed
	SpanVal Span
	Name    string
	Ref     string
	Func    bool
}

func (n *Ident) Span() Span { return n.SpanVal }
func (n *Ident) node()      {}
func (n *Ident) expr()      {}

// Binary is a binary operation. Op is the source operator ("+", "and", ...).
type Binary struct {
	typed
	SpanVal Span
	Op      string
	Left    Expr
	Right   Expr
}

func (n *Binary) Span() Span { return n.SpanVal }
func (n *Binary) node()      {}
func (n *Binary) expr()      {}

// Unary is "not e" or "-e".
type Unary struct {
	typed
	SpanVal Span
	Op      string
	Operand Expr
}

func (n *Unary) Span() Span { return n.SpanVal }
func (n *Unary) node()      {}
func (n *Unary) expr()      {}

// CallKind says how a call is dispatched.
type CallKind int

const (
	CallUnresolved CallKind = iota
	CallUser                // user function: CALL through its entry slot
	CallSyscall             // plain built-in: SYSCALL id
	CallObject              // receiver-taking built-in: OBJCALL id
)

// Call is f(args) or recv.f(args).
type Call struct {
	typed
	SpanVal  Span
	Name     string
	Receiver Expr // nil for plain calls
	Args     []Expr
	Kind     CallKind
}

func (n *Call) Span() Span { return n.SpanVal }
func (n *Call) node()      {}
func (n *Call) expr()      {}

// New is struct construction: new P(args).
type New struct {
	typed
	SpanVal Span
	Struct  string
	Args    []Expr
}

func (n *New) Span() Span { return n.SpanVal }
func (n *New) node()      {}
func (n *New) expr()      {}

// Member is field access: e.f.
type Member struct {
	typed
	SpanVal Span
	Object  Expr
	Field   string
}

func (n *Member) Span() Span { return n.SpanVal }
func (n *Member) node()      {}
func (n *Member) expr()      {}

// Index is array or string indexing: e[i].
type Index struct {
	typed
	SpanVal Span
	Array   Expr
	Index   Expr
}

func (n *Index) Span() Span { return n.SpanVal }
func (n *Index) node()      {}
func (n *Index) expr()      {}

// Cast converts Inner from From to To. The semantic pass inserts implicit
// casts; explicit ones come from type(expr) syntax.
type Cast struct {
	typed
	SpanVal  Span
	Inner    Expr
	From     Type
	To       Type
	Implicit bool
}

func (n *Cast) Span() Span { return n.SpanVal }
func (n *Cast) node()      {}
func (n *Cast) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// Block is a braced statement list, and the root of a program.
// Scope is the context name the analyzer gave it.
type Block struct {
	SpanVal    Span
	Statements []Stmt
	Scope      string
}

func (n *Block) Span() Span { return n.SpanVal }

// List returns the block's statements. A nil block has none.
func (n *Block) List() []Stmt {
	if n == nil {
		return nil
	}
	return n.Statements
}
func (n *Block) node()      {}
func (n *Block) stmt()      {}

// VarDecl is "let T name = value;".
type VarDecl struct {
	SpanVal Span
	Type    Type
	Name    string
	Value   Expr
	Ref     string
}

func (n *VarDecl) Span() Span { return n.SpanVal }
func (n *VarDecl) node()      {}
func (n *VarDecl) stmt()      {}

// Field is one struct field.
type Field struct {
	Name string
	Type Type
}

// StructDecl is "struct P { int x; int y; }".
type StructDecl struct {
	SpanVal Span
	Name    string
	Fields  []Field
}

func (n *StructDecl) Span() Span { return n.SpanVal }
func (n *StructDecl) node()      {}
func (n *StructDecl) stmt()      {}

// Param is one function parameter.
type Param struct {
	Name string
	Type Type
	Ref  string
}

// FuncDecl is "func f(int a) -> int { ... }". Return is Void when omitted.
type FuncDecl struct {
	SpanVal Span
	Name    string
	Params  []Param
	Return  Type
	Body    *Block
}

func (n *FuncDecl) Span() Span { return n.SpanVal }
func (n *FuncDecl) node()      {}
func (n *FuncDecl) stmt()      {}

// Assign is "target = value;" where target is an Ident, Member or Index.
type Assign struct {
	SpanVal Span
	Target  Expr
	Value   Expr
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) node()      {}
func (n *Assign) stmt()      {}

// IfClause is one "if (cond) { }" or "elif (cond) { }" arm.
type IfClause struct {
	Cond Expr
	Body *Block
}

// IfStmt is an if/elif/else chain. Else may be nil.
type IfStmt struct {
	SpanVal Span
	Clauses []IfClause
	Else    *Block
}

func (n *IfStmt) Span() Span { return n.SpanVal }
func (n *IfStmt) node()      {}
func (n *IfStmt) stmt()      {}

// WhileStmt is "while (c) { }" or, with DoWhile, "do { } while (c);".
type WhileStmt struct {
	SpanVal Span
	Cond    Expr
	Body    *Block
	DoWhile bool
}

func (n *WhileStmt) Span() Span { return n.SpanVal }
func (n *WhileStmt) node()      {}
func (n *WhileStmt) stmt()      {}

// ForStmt is "for (init cond) { }" where init is a VarDecl or Assign to a
// plain variable. The loop variable is incremented by one after each pass.
type ForStmt struct {
	SpanVal Span
	Init    Stmt
	Cond    Expr
	Body    *Block
	Scope   string // context holding the loop variable
	VarRef  string // qualified name of the loop variable
	VarType Type
}

func (n *ForStmt) Span() Span { return n.SpanVal }
func (n *ForStmt) node()      {}
func (n *ForStmt) stmt()      {}

// ReturnStmt is "return;" or "return e;".
type ReturnStmt struct {
	SpanVal Span
	Value   Expr
}

func (n *ReturnStmt) Span() Span { return n.SpanVal }
func (n *ReturnStmt) node()      {}
func (n *ReturnStmt) stmt()      {}

// BreakStmt is "break;".
type BreakStmt struct {
	SpanVal Span
}

func (n *BreakStmt) Span() Span { return n.SpanVal }
func (n *BreakStmt) node()      {}
func (n *BreakStmt) stmt()      {}

// ContinueStmt is "continue;".
type ContinueStmt struct {
	SpanVal Span
}

func (n *ContinueStmt) Span() Span { return n.SpanVal }
func (n *ContinueStmt) node()      {}
func (n *ContinueStmt) stmt()      {}

// ExprStmt is a call evaluated for its effect.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}
