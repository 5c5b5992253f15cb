package compiler

import (
	"fmt"

	"github.com/chazu/stackc/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Codegen: lower a type-checked AST to bytecode
// ---------------------------------------------------------------------------

// Generator lowers an analyzed tree to a bytecode program in one pass.
// A Generator is single use.
type Generator struct {
	b *bytecode.Builder

	memory  map[string]int // qualified name -> byte offset
	next    int            // next free byte offset
	structs map[string]*StructInfo
	nstruct int

	loops []*loopFrame
}

// loopFrame collects the pending jumps of one active loop.
type loopFrame struct {
	breaks    []int
	continues []int
}

// NewGenerator creates a generator with empty memory.
func NewGenerator() *Generator {
	return &Generator{
		b:       bytecode.NewBuilder(),
		memory:  make(map[string]int),
		structs: make(map[string]*StructInfo),
	}
}

// Generate lowers root with a fresh generator.
func Generate(root *Block) (*bytecode.Program, error) {
	return NewGenerator().Generate(root)
}

// Generate lowers the program rooted at root and finalizes it.
func (g *Generator) Generate(root *Block) (*bytecode.Program, error) {
	if err := g.statements(root.Statements); err != nil {
		return nil, err
	}
	prog, err := g.b.Finish()
	if err != nil {
		return nil, &InternalError{Msg: err.Error()}
	}
	return prog, nil
}

func internalf(format string, args ...interface{}) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

// allocate assigns the next byte offset to ref. Offsets are never reused.
func (g *Generator) allocate(ref string, size int, typ string) (int, error) {
	if ref == "" {
		return 0, internalf("unresolved declaration")
	}
	if _, ok := g.memory[ref]; ok {
		return 0, internalf("memory for %s assigned twice", ref)
	}
	off := g.next
	g.memory[ref] = off
	g.next += size
	g.b.AddSymbol(bytecode.Symbol{Name: ref, Offset: off, Size: size, Type: typ})
	return off, nil
}

func (g *Generator) offset(ref string) (int, error) {
	off, ok := g.memory[ref]
	if !ok {
		return 0, internalf("no memory assigned to %q", ref)
	}
	return off, nil
}

// fieldOffset returns the heap offset of a field of the struct value e.
func (g *Generator) fieldOffset(e Expr, field string) (int, error) {
	t := e.ExprType()
	info, ok := g.structs[t.Struct]
	if !t.IsStruct() || !ok {
		return 0, internalf("field %s of non-struct %s", field, t)
	}
	off, ok := info.Offsets[field]
	if !ok {
		return 0, internalf("struct %s has no field %s", info.Name, field)
	}
	return off, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *Generator) statements(stmts []Stmt) error {
	for _, s := range stmts {
		if err := g.statement(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) statement(s Stmt) error {
	g.b.SetLine(s.Span().Line())

	switch n := s.(type) {
	case *VarDecl:
		if err := g.expr(n.Value); err != nil {
			return err
		}
		off, err := g.allocate(n.Ref, n.Type.Size(), n.Type.String())
		if err != nil {
			return err
		}
		g.b.Emit(bytecode.OpStoreMem, int32(off))
		return nil

	case *StructDecl:
		g.structs[n.Name] = NewStructInfo(n, g.nstruct)
		g.nstruct++
		g.b.Emit(bytecode.OpDefineType, int32(len(n.Fields)))
		return nil

	case *FuncDecl:
		return g.function(n)

	case *Assign:
		return g.assign(n)

	case *IfStmt:
		return g.ifStmt(n)

	case *WhileStmt:
		if n.DoWhile {
			return g.doWhile(n)
		}
		return g.while(n)

	case *ForStmt:
		return g.forStmt(n)

	case *ReturnStmt:
		if n.Value != nil {
			if err := g.expr(n.Value); err != nil {
				return err
			}
		}
		g.b.Emit(bytecode.OpReturn, 0)
		return nil

	case *BreakStmt:
		frame, err := g.loop("break")
		if err != nil {
			return err
		}
		frame.breaks = append(frame.breaks, g.b.EmitPlaceholder(bytecode.OpJump))
		return nil

	case *ContinueStmt:
		frame, err := g.loop("continue")
		if err != nil {
			return err
		}
		frame.continues = append(frame.continues, g.b.EmitPlaceholder(bytecode.OpJump))
		return nil

	case *ExprStmt:
		if err := g.expr(n.Expr); err != nil {
			return err
		}
		if n.Expr.ExprType().Kind != KindVoid {
			g.b.Emit(bytecode.OpPop, 0)
		}
		return nil

	case *Block:
		return g.statements(n.Statements)
	}
	return internalf("unknown statement type: %T", s)
}

func (g *Generator) assign(n *Assign) error {
	switch t := n.Target.(type) {
	case *Ident:
		off, err := g.offset(t.Ref)
		if err != nil {
			return err
		}
		if err := g.expr(n.Value); err != nil {
			return err
		}
		g.b.Emit(bytecode.OpStoreMem, int32(off))
		return nil

	case *Member:
		off, err := g.fieldOffset(t.Object, t.Field)
		if err != nil {
			return err
		}
		if err := g.exprs(n.Value, t.Object); err != nil {
			return err
		}
		g.b.Emit(bytecode.OpStoreHeap, int32(off))
		return nil

	case *Index:
		if err := g.exprs(n.Value, t.Array); err != nil {
			return err
		}
		return g.indexed(bytecode.OpListSet, t.Index)
	}
	return internalf("cannot assign to %T", n.Target)
}

// function lowers a declaration as: store the entry point into the
// function's slot, jump over the body, then the body itself.
func (g *Generator) function(n *FuncDecl) error {
	entry := g.b.EmitPlaceholder(bytecode.OpStore)
	slot, err := g.allocate(n.Name, 4, "FUNC")
	if err != nil {
		return err
	}
	g.b.Emit(bytecode.OpStoreMem, int32(slot))
	skip := g.b.EmitPlaceholder(bytecode.OpJump)

	if err := g.patch(entry, g.b.Len()); err != nil {
		return err
	}
	for i := len(n.Params) - 1; i >= 0; i-- {
		p := n.Params[i]
		off, err := g.allocate(p.Ref, p.Type.Size(), p.Type.String())
		if err != nil {
			return err
		}
		g.b.Emit(bytecode.OpStoreMem, int32(off))
	}

	body := n.Body.List()
	if err := g.statements(body); err != nil {
		return err
	}
	if len(body) == 0 {
		g.b.Emit(bytecode.OpReturn, 0)
	} else if _, ok := body[len(body)-1].(*ReturnStmt); !ok {
		g.b.Emit(bytecode.OpReturn, 0)
	}
	return g.patch(skip, g.b.Len())
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func (g *Generator) patch(idx, target int) error {
	if err := g.b.Patch(idx, target); err != nil {
		return internalf("%v", err)
	}
	return nil
}

// branchUnless lowers cond and jumps to a pending target when it is false.
func (g *Generator) branchUnless(cond Expr) (int, error) {
	if err := g.expr(cond); err != nil {
		return 0, err
	}
	g.b.Emit(bytecode.OpNot, 0)
	return g.b.EmitPlaceholder(bytecode.OpJumpIf), nil
}

func (g *Generator) ifStmt(n *IfStmt) error {
	var ends []int
	for _, c := range n.Clauses {
		next, err := g.branchUnless(c.Cond)
		if err != nil {
			return err
		}
		if err := g.statements(c.Body.List()); err != nil {
			return err
		}
		ends = append(ends, g.b.EmitPlaceholder(bytecode.OpJump))
		if err := g.patch(next, g.b.Len()); err != nil {
			return err
		}
	}
	if err := g.statements(n.Else.List()); err != nil {
		return err
	}
	end := g.b.Len()
	for _, idx := range ends {
		if err := g.patch(idx, end); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) loop(word string) (*loopFrame, error) {
	if len(g.loops) == 0 {
		return nil, internalf("%s outside of a loop", word)
	}
	return g.loops[len(g.loops)-1], nil
}

func (g *Generator) pushLoop() {
	g.loops = append(g.loops, &loopFrame{})
}

// popLoop resolves the innermost loop's pending breaks to exit and its
// pending continues to recheck.
func (g *Generator) popLoop(exit, recheck int) error {
	frame := g.loops[len(g.loops)-1]
	g.loops = g.loops[:len(g.loops)-1]
	for _, idx := range frame.breaks {
		if err := g.patch(idx, exit); err != nil {
			return err
		}
	}
	for _, idx := range frame.continues {
		if err := g.patch(idx, recheck); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) while(n *WhileStmt) error {
	start := g.b.Len()
	exit, err := g.branchUnless(n.Cond)
	if err != nil {
		return err
	}
	g.pushLoop()
	if err := g.statements(n.Body.List()); err != nil {
		return err
	}
	g.b.Emit(bytecode.OpJump, int32(start))
	end := g.b.Len()
	if err := g.patch(exit, end); err != nil {
		return err
	}
	return g.popLoop(end, start)
}

func (g *Generator) doWhile(n *WhileStmt) error {
	start := g.b.Len()
	g.pushLoop()
	if err := g.statements(n.Body.List()); err != nil {
		return err
	}
	recheck := g.b.Len()
	if err := g.expr(n.Cond); err != nil {
		return err
	}
	g.b.Emit(bytecode.OpJumpIf, int32(start))
	return g.popLoop(g.b.Len(), recheck)
}

func (g *Generator) forStmt(n *ForStmt) error {
	if err := g.statement(n.Init); err != nil {
		return err
	}
	g.b.SetLine(n.Span().Line())
	start := g.b.Len()
	exit, err := g.branchUnless(n.Cond)
	if err != nil {
		return err
	}
	g.pushLoop()
	if err := g.statements(n.Body.List()); err != nil {
		return err
	}

	g.b.SetLine(n.Span().Line())
	step := g.b.Len()
	off, err := g.offset(n.VarRef)
	if err != nil {
		return err
	}
	g.b.Emit(bytecode.OpLoad, int32(off))
	g.constant(n.VarType, 1)
	g.b.Emit(bytecode.OpAdd, 0)
	g.b.Emit(bytecode.OpStoreMem, int32(off))
	g.b.Emit(bytecode.OpJump, int32(start))

	end := g.b.Len()
	if err := g.patch(exit, end); err != nil {
		return err
	}
	return g.popLoop(end, step)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

var binaryOps = map[string]bytecode.Opcode{
	"+":   bytecode.OpAdd,
	"-":   bytecode.OpSub,
	"*":   bytecode.OpMul,
	"/":   bytecode.OpDiv,
	"%":   bytecode.OpMod,
	"and": bytecode.OpAnd,
	"or":  bytecode.OpOr,
	"==":  bytecode.OpEq,
	"!=":  bytecode.OpNeq,
	"<":   bytecode.OpLt,
	">":   bytecode.OpGt,
	"<=":  bytecode.OpLe,
	">=":  bytecode.OpGe,
}

// exprs lowers each expression in order.
func (g *Generator) exprs(es ...Expr) error {
	for _, e := range es {
		if err := g.expr(e); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) expr(e Expr) error {
	switch n := e.(type) {
	case *Literal:
		return g.literal(n)

	case *ListLiteral:
		for i := len(n.Elements) - 1; i >= 0; i-- {
			if err := g.expr(n.Elements[i]); err != nil {
				return err
			}
		}
		g.b.Emit(bytecode.OpBuildList, int32(len(n.Elements)))
		return nil

	case *Ident:
		ref := n.Ref
		if n.Func {
			ref = n.Name
		}
		off, err := g.offset(ref)
		if err != nil {
			return err
		}
		g.b.Emit(bytecode.OpLoad, int32(off))
		return nil

	case *Binary:
		op, ok := binaryOps[n.Op]
		if !ok {
			return internalf("unknown binary operator %q", n.Op)
		}
		if err := g.exprs(n.Left, n.Right); err != nil {
			return err
		}
		g.b.Emit(op, 0)
		return nil

	case *Unary:
		switch n.Op {
		case "not":
			if err := g.expr(n.Operand); err != nil {
				return err
			}
			g.b.Emit(bytecode.OpNot, 0)
			return nil
		case "-":
			g.constant(n.Operand.ExprType(), 0)
			if err := g.expr(n.Operand); err != nil {
				return err
			}
			g.b.Emit(bytecode.OpSub, 0)
			return nil
		}
		return internalf("unknown unary operator %q", n.Op)

	case *Call:
		return g.call(n)

	case *New:
		info, ok := g.structs[n.Struct]
		if !ok {
			return internalf("struct %s constructed before its declaration", n.Struct)
		}
		if err := g.exprs(n.Args...); err != nil {
			return err
		}
		g.b.Emit(bytecode.OpNew, int32(info.Index))
		return nil

	case *Member:
		off, err := g.fieldOffset(n.Object, n.Field)
		if err != nil {
			return err
		}
		if err := g.expr(n.Object); err != nil {
			return err
		}
		g.b.Emit(bytecode.OpLoadHeap, int32(off))
		return nil

	case *Index:
		if err := g.expr(n.Array); err != nil {
			return err
		}
		return g.indexed(bytecode.OpListAccess, n.Index)

	case *Cast:
		if lit, ok := n.Inner.(*Literal); ok && lit.Kind == n.To.Kind {
			return g.literal(lit)
		}
		if err := g.expr(n.Inner); err != nil {
			return err
		}
		src, sd := n.From.Tag()
		dst, dd := n.To.Tag()
		if dd > sd {
			sd = dd
		}
		g.b.Emit(bytecode.OpCast, bytecode.CastOperand(sd, src, dst))
		return nil
	}
	return internalf("unknown expression type: %T", e)
}

// indexed emits op with a constant index when idx is a non-negative INT
// literal, and otherwise lowers idx and emits op -1.
func (g *Generator) indexed(op bytecode.Opcode, idx Expr) error {
	if lit, ok := idx.(*Literal); ok && lit.Kind == KindInt && lit.Int >= 0 {
		g.b.Emit(op, int32(lit.Int))
		return nil
	}
	if err := g.expr(idx); err != nil {
		return err
	}
	g.b.Emit(op, -1)
	return nil
}

func (g *Generator) literal(n *Literal) error {
	switch n.Kind {
	case KindInt:
		g.b.Emit(bytecode.OpStore, int32(n.Int))
	case KindBool, KindByte:
		g.b.Emit(bytecode.OpStoreByte, int32(n.Int))
	case KindChar:
		g.b.Emit(bytecode.OpStoreChar, int32(n.Int))
	case KindFloat:
		g.b.EmitFloat(bytecode.OpStoreFloat, float32(n.Float))
	case KindString:
		runes := []rune(n.Str)
		for i := len(runes) - 1; i >= 0; i-- {
			g.b.Emit(bytecode.OpStoreChar, int32(runes[i]))
		}
		g.b.Emit(bytecode.OpBuildList, int32(len(runes)))
	default:
		return internalf("literal of kind %s", Type{Kind: n.Kind})
	}
	return nil
}

// constant pushes v as an immediate of scalar type t.
func (g *Generator) constant(t Type, v int32) {
	switch t.Kind {
	case KindFloat:
		g.b.EmitFloat(bytecode.OpStoreFloat, float32(v))
	case KindBool, KindByte:
		g.b.Emit(bytecode.OpStoreByte, v)
	case KindChar:
		g.b.Emit(bytecode.OpStoreChar, v)
	default:
		g.b.Emit(bytecode.OpStore, v)
	}
}

func (g *Generator) call(n *Call) error {
	switch n.Kind {
	case CallUser:
		slot, err := g.offset(n.Name)
		if err != nil {
			return err
		}
		if err := g.exprs(n.Args...); err != nil {
			return err
		}
		g.b.Emit(bytecode.OpLoad, int32(slot))
		g.b.Emit(bytecode.OpCall, -1)
		return nil

	case CallSyscall:
		id, ok := bytecode.Syscalls[n.Name]
		if !ok {
			return internalf("unknown syscall %s", n.Name)
		}
		// print takes one value per syscall.
		if id == bytecode.SysPrint {
			for _, arg := range n.Args {
				if err := g.expr(arg); err != nil {
					return err
				}
				g.b.Emit(bytecode.OpSyscall, id)
			}
			return nil
		}
		if err := g.exprs(n.Args...); err != nil {
			return err
		}
		g.b.Emit(bytecode.OpSyscall, id)
		return nil

	case CallObject:
		id, ok := bytecode.ObjCalls[n.Name]
		if !ok {
			return internalf("unknown object call %s", n.Name)
		}
		if err := g.exprs(n.Args...); err != nil {
			return err
		}
		if err := g.expr(n.Receiver); err != nil {
			return err
		}
		g.b.Emit(bytecode.OpObjCall, id)
		return nil
	}
	return internalf("call to %s was not resolved", n.Name)
}
