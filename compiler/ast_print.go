package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders a tree as indented s-expressions, one statement per line.
// Checked expressions carry their type after a colon.
func Dump(root *Block) string {
	var sb strings.Builder
	d := &dumper{sb: &sb}
	d.block("program", root)
	return sb.String()
}

type dumper struct {
	sb     *strings.Builder
	indent int
}

func (d *dumper) line(format string, args ...interface{}) {
	d.sb.WriteString(strings.Repeat("  ", d.indent))
	fmt.Fprintf(d.sb, format, args...)
	d.sb.WriteByte('\n')
}

func (d *dumper) block(label string, b *Block) {
	if b == nil {
		return
	}
	if b.Scope != "" {
		d.line("(%s [%s]", label, b.Scope)
	} else {
		d.line("(%s", label)
	}
	d.indent++
	for _, s := range b.Statements {
		d.stmt(s)
	}
	d.indent--
	d.line(")")
}

func (d *dumper) stmt(s Stmt) {
	switch n := s.(type) {
	case *VarDecl:
		d.line("(let %s %s %s)", n.Type, n.Name, expr(n.Value))
	case *StructDecl:
		fields := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = f.Type.String() + " " + f.Name
		}
		d.line("(struct %s (%s))", n.Name, strings.Join(fields, ", "))
	case *FuncDecl:
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Type.String() + " " + p.Name
		}
		d.block(fmt.Sprintf("func %s (%s) -> %s", n.Name, strings.Join(params, ", "), n.Return), n.Body)
	case *Assign:
		d.line("(= %s %s)", expr(n.Target), expr(n.Value))
	case *IfStmt:
		for i, c := range n.Clauses {
			word := "if"
			if i > 0 {
				word = "elif"
			}
			d.block(word+" "+expr(c.Cond), c.Body)
		}
		d.block("else", n.Else)
	case *WhileStmt:
		word := "while"
		if n.DoWhile {
			word = "do-while"
		}
		d.block(word+" "+expr(n.Cond), n.Body)
	case *ForStmt:
		d.line("(for [%s]", n.Scope)
		d.indent++
		d.stmt(n.Init)
		d.block("cond "+expr(n.Cond), n.Body)
		d.indent--
		d.line(")")
	case *ReturnStmt:
		if n.Value == nil {
			d.line("(return)")
		} else {
			d.line("(return %s)", expr(n.Value))
		}
	case *BreakStmt:
		d.line("(break)")
	case *ContinueStmt:
		d.line("(continue)")
	case *ExprStmt:
		d.line("%s", expr(n.Expr))
	case *Block:
		d.block("block", n)
	default:
		d.line("(? %T)", s)
	}
}

func expr(e Expr) string {
	if e == nil {
		return "()"
	}
	s := exprBody(e)
	if t := e.ExprType(); t != Invalid {
		s += ":" + t.String()
	}
	return s
}

func exprBody(e Expr) string {
	switch n := e.(type) {
	case *Literal:
		switch n.Kind {
		case KindFloat:
			return strconv.FormatFloat(n.Float, 'g', -1, 64)
		case KindString:
			return strconv.Quote(n.Str)
		case KindChar:
			return strconv.QuoteRune(rune(n.Int))
		case KindBool:
			return strconv.FormatBool(n.Int != 0)
		}
		return strconv.FormatInt(n.Int, 10)
	case *ListLiteral:
		return "[" + exprList(n.Elements) + "]"
	case *Ident:
		if n.Ref != "" && n.Ref != n.Name {
			return n.Name + "@" + n.Ref
		}
		return n.Name
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", n.Op, expr(n.Left), expr(n.Right))
	case *Unary:
		return fmt.Sprintf("(%s %s)", n.Op, expr(n.Operand))
	case *Call:
		if n.Receiver != nil {
			return fmt.Sprintf("(%s.%s %s)", expr(n.Receiver), n.Name, exprList(n.Args))
		}
		return fmt.Sprintf("(%s %s)", n.Name, exprList(n.Args))
	case *New:
		return fmt.Sprintf("(new %s %s)", n.Struct, exprList(n.Args))
	case *Member:
		return fmt.Sprintf("%s.%s", expr(n.Object), n.Field)
	case *Index:
		return fmt.Sprintf("%s[%s]", expr(n.Array), expr(n.Index))
	case *Cast:
		if n.Implicit {
			return fmt.Sprintf("(widen %s)", expr(n.Inner))
		}
		return fmt.Sprintf("(cast %s)", expr(n.Inner))
	}
	return fmt.Sprintf("(? %T)", e)
}

func exprList(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = expr(e)
	}
	return strings.Join(parts, ", ")
}
