package compiler

import "fmt"

// Analyze type-checks a hand-built tree rooted at root. It calls the
// analyzer operations in the order the parser calls them while building
// the same tree, so both paths leave identical annotations.
func (a *SemanticAnalyzer) Analyze(root *Block) error {
	root.Scope = a.ContextName()
	return a.statements(root.Statements)
}

// Analyze type-checks root with a fresh analyzer.
func Analyze(root *Block) error {
	return NewSemanticAnalyzer().Analyze(root)
}

func (a *SemanticAnalyzer) statements(stmts []Stmt) error {
	for _, s := range stmts {
		if err := a.statement(s); err != nil {
			return err
		}
	}
	return nil
}

// block analyzes a nested block in its own anonymous context.
func (a *SemanticAnalyzer) block(b *Block) error {
	if b == nil {
		return nil
	}
	b.Scope = a.EnterBlock()
	err := a.statements(b.Statements)
	a.ExitBlock()
	return err
}

func (a *SemanticAnalyzer) statement(s Stmt) error {
	switch n := s.(type) {
	case *VarDecl:
		return a.DeclareVariable(n)

	case *StructDecl:
		return a.DeclareStruct(n)

	case *FuncDecl:
		if err := a.DeclareFunction(n); err != nil {
			return err
		}
		if err := a.EnterFunction(n); err != nil {
			return err
		}
		err := a.statements(n.Body.List())
		a.ExitFunction()
		if err != nil {
			return err
		}
		return a.CheckFunctionEnd(n)

	case *Assign:
		return a.CheckAssign(n)

	case *IfStmt:
		for _, c := range n.Clauses {
			if err := a.CheckCondition(c.Cond); err != nil {
				return err
			}
			if err := a.block(c.Body); err != nil {
				return err
			}
		}
		return a.block(n.Else)

	case *WhileStmt:
		if n.DoWhile {
			a.EnterLoop()
			err := a.block(n.Body)
			a.ExitLoop()
			if err != nil {
				return err
			}
			return a.CheckCondition(n.Cond)
		}
		if err := a.CheckCondition(n.Cond); err != nil {
			return err
		}
		a.EnterLoop()
		defer a.ExitLoop()
		return a.block(n.Body)

	case *ForStmt:
		n.Scope = a.EnterBlock()
		defer a.ExitBlock()
		if err := a.CheckForInit(n); err != nil {
			return err
		}
		if err := a.CheckCondition(n.Cond); err != nil {
			return err
		}
		a.EnterLoop()
		defer a.ExitLoop()
		return a.block(n.Body)

	case *ReturnStmt:
		return a.CheckReturn(n)

	case *BreakStmt, *ContinueStmt:
		return a.CheckBreak(n)

	case *ExprStmt:
		return a.CheckExprStmt(n)

	case *Block:
		return a.block(n)
	}
	return &InternalError{Msg: fmt.Sprintf("unknown statement type: %T", s)}
}
