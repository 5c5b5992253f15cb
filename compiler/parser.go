package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent, checked as it builds
// ---------------------------------------------------------------------------

// Parser parses source code into a type-checked AST. Each declaration and
// statement is handed to the semantic analyzer as soon as it is built, so
// the first error aborts the parse.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	sema      *SemanticAnalyzer
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		sema:  NewSemanticAnalyzer(),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses and checks a whole program.
func Parse(input string) (*Block, error) {
	return NewParser(input).ParseProgram()
}

// Analyzer returns the analyzer holding the program's tables.
func (p *Parser) Analyzer() *SemanticAnalyzer {
	return p.sema
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// errorf builds a syntax error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) error {
	if p.curTokenIs(TokenError) {
		return &SyntaxError{Msg: p.curToken.Literal, Line: p.curToken.Pos.Line, Column: p.curToken.Pos.Column}
	}
	return &SyntaxError{
		Msg:    fmt.Sprintf(format, args...),
		Line:   p.curToken.Pos.Line,
		Column: p.curToken.Pos.Column,
	}
}

// expect consumes a token of type t.
func (p *Parser) expect(t TokenType) (Token, error) {
	tok := p.curToken
	if tok.Type != t {
		return tok, p.errorf("expected %s, got %s", t, describe(tok))
	}
	p.nextToken()
	return tok, nil
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdentifier, TokenInteger, TokenFloat:
		return fmt.Sprintf("%q", tok.Literal)
	}
	return tok.Type.String()
}

func (p *Parser) span(start Position) Span {
	return Span{Start: start, End: p.curToken.Pos}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseProgram parses statements until end of input.
func (p *Parser) ParseProgram() (*Block, error) {
	root := &Block{SpanVal: p.span(p.curToken.Pos), Scope: p.sema.ContextName()}
	for !p.curTokenIs(TokenEOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		root.Statements = append(root.Statements, stmt)
	}
	root.SpanVal.End = p.curToken.Pos
	return root, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.curToken.Type {
	case TokenLet:
		decl, err := p.parseLet()
		if err != nil {
			return nil, err
		}
		return decl, p.sema.DeclareVariable(decl)
	case TokenStruct:
		return p.parseStruct()
	case TokenFunc:
		return p.parseFunc()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenDo:
		return p.parseDoWhile()
	case TokenFor:
		return p.parseFor()
	case TokenReturn:
		return p.parseReturn()
	case TokenBreak, TokenContinue:
		return p.parseJump()
	case TokenLBrace:
		return p.parseBlock()
	case TokenError:
		return nil, p.errorf("")
	}
	return p.parseSimple()
}

// parseLet parses "let T name = value;" without checking it.
func (p *Parser) parseLet() (*VarDecl, error) {
	start := p.curToken.Pos
	p.nextToken() // let

	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return &VarDecl{SpanVal: p.span(start), Type: typ, Name: name.Literal, Value: value}, nil
}

// parseType parses a type name followed by any number of "[]".
func (p *Parser) parseType() (Type, error) {
	tok, err := p.expect(TokenIdentifier)
	if err != nil {
		return Invalid, err
	}
	t, ok := PrimitiveType(tok.Literal)
	if !ok {
		t = StructType(tok.Literal)
	}
	for {
		switch {
		case p.curTokenIs(TokenEmptyList):
			p.nextToken()
		case p.curTokenIs(TokenLBracket) && p.peekTokenIs(TokenRBracket):
			p.nextToken()
			p.nextToken()
		default:
			return t, nil
		}
		t.Dims++
	}
}

func (p *Parser) parseStruct() (Stmt, error) {
	start := p.curToken.Pos
	p.nextToken() // struct

	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}
	decl := &StructDecl{Name: name.Literal}
	for !p.curTokenIs(TokenRBrace) {
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		field, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemicolon); err != nil {
			return nil, err
		}
		decl.Fields = append(decl.Fields, Field{Name: field.Literal, Type: typ})
	}
	p.nextToken() // }
	if p.curTokenIs(TokenSemicolon) {
		p.nextToken()
	}
	decl.SpanVal = p.span(start)
	return decl, p.sema.DeclareStruct(decl)
}

func (p *Parser) parseFunc() (Stmt, error) {
	start := p.curToken.Pos
	p.nextToken() // func

	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	decl := &FuncDecl{Name: name.Literal, Return: Void}
	for !p.curTokenIs(TokenRParen) {
		if len(decl.Params) > 0 {
			if _, err := p.expect(TokenComma); err != nil {
				return nil, err
			}
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		param, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		decl.Params = append(decl.Params, Param{Name: param.Literal, Type: typ})
	}
	p.nextToken() // )

	if p.curTokenIs(TokenArrow) {
		p.nextToken()
		if decl.Return, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	decl.SpanVal = p.span(start)
	bodyStart := p.curToken.Pos
	decl.Body = &Block{}

	if err := p.sema.DeclareFunction(decl); err != nil {
		return nil, err
	}
	if err := p.sema.EnterFunction(decl); err != nil {
		return nil, err
	}
	stmts, err := p.parseBraced()
	if err != nil {
		return nil, err
	}
	p.sema.ExitFunction()

	decl.Body.Statements = stmts
	decl.Body.SpanVal = p.span(bodyStart)
	if err := p.sema.CheckFunctionEnd(decl); err != nil {
		return nil, err
	}
	return decl, nil
}

// parseBraced parses "{ statements }" in the current context.
func (p *Parser) parseBraced() ([]Stmt, error) {
	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}
	var stmts []Stmt
	for !p.curTokenIs(TokenRBrace) {
		if p.curTokenIs(TokenEOF) {
			return nil, p.errorf("expected }, got end of input")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	p.nextToken() // }
	return stmts, nil
}

// parseBlock parses a braced block in a new anonymous context.
func (p *Parser) parseBlock() (*Block, error) {
	b := &Block{}
	start := p.curToken.Pos
	b.Scope = p.sema.EnterBlock()
	stmts, err := p.parseBraced()
	if err != nil {
		return nil, err
	}
	p.sema.ExitBlock()
	b.Statements = stmts
	b.SpanVal = p.span(start)
	return b, nil
}

// parseCondition parses "( expr )" and checks it as a condition.
func (p *Parser) parseCondition() (Expr, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return cond, p.sema.CheckCondition(cond)
}

func (p *Parser) parseIf() (Stmt, error) {
	stmt := &IfStmt{SpanVal: p.span(p.curToken.Pos)}
	p.nextToken() // if

	for {
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Clauses = append(stmt.Clauses, IfClause{Cond: cond, Body: body})
		if !p.curTokenIs(TokenElif) {
			break
		}
		p.nextToken()
	}
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = body
	}
	return stmt, nil
}

// loopBody parses a loop body with break and continue enabled.
func (p *Parser) loopBody() (*Block, error) {
	p.sema.EnterLoop()
	body, err := p.parseBlock()
	p.sema.ExitLoop()
	return body, err
}

func (p *Parser) parseWhile() (Stmt, error) {
	start := p.curToken.Pos
	p.nextToken() // while

	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.loopBody()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{SpanVal: p.span(start), Cond: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (Stmt, error) {
	start := p.curToken.Pos
	p.nextToken() // do

	body, err := p.loopBody()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenWhile); err != nil {
		return nil, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return &WhileStmt{SpanVal: p.span(start), Cond: cond, Body: body, DoWhile: true}, nil
}

// parseFor parses "for (init cond) { }" where init is a let declaration
// or an assignment, each ending in ';'.
func (p *Parser) parseFor() (Stmt, error) {
	stmt := &ForStmt{SpanVal: p.span(p.curToken.Pos)}
	p.nextToken() // for
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	stmt.Scope = p.sema.EnterBlock()
	if p.curTokenIs(TokenLet) {
		decl, err := p.parseLet()
		if err != nil {
			return nil, err
		}
		stmt.Init = decl
	} else {
		assign, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		stmt.Init = assign
	}
	if err := p.sema.CheckForInit(stmt); err != nil {
		return nil, err
	}

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	if err := p.sema.CheckCondition(cond); err != nil {
		return nil, err
	}
	stmt.Cond = cond

	if stmt.Body, err = p.loopBody(); err != nil {
		return nil, err
	}
	p.sema.ExitBlock()
	return stmt, nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	start := p.curToken.Pos
	p.nextToken() // return

	stmt := &ReturnStmt{}
	if !p.curTokenIs(TokenSemicolon) {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	stmt.SpanVal = p.span(start)
	return stmt, p.sema.CheckReturn(stmt)
}

func (p *Parser) parseJump() (Stmt, error) {
	tok := p.curToken
	p.nextToken()
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	var stmt Stmt
	if tok.Type == TokenBreak {
		stmt = &BreakStmt{SpanVal: p.span(tok.Pos)}
	} else {
		stmt = &ContinueStmt{SpanVal: p.span(tok.Pos)}
	}
	return stmt, p.sema.CheckBreak(stmt)
}

// parseSimple parses an assignment or an expression statement.
func (p *Parser) parseSimple() (Stmt, error) {
	start := p.curToken.Pos
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.curTokenIs(TokenAssign) {
		assign, err := p.finishAssignment(expr, start)
		if err != nil {
			return nil, err
		}
		return assign, p.sema.CheckAssign(assign)
	}

	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	stmt := &ExprStmt{SpanVal: p.span(start), Expr: expr}
	return stmt, p.sema.CheckExprStmt(stmt)
}

// parseAssignment parses "target = value;" without checking it.
func (p *Parser) parseAssignment() (*Assign, error) {
	start := p.curToken.Pos
	target, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	return p.finishAssignment(target, start)
}

func (p *Parser) finishAssignment(target Expr, start Position) (*Assign, error) {
	switch target.(type) {
	case *Ident, *Member, *Index:
	default:
		return nil, p.errorf("cannot assign to this expression")
	}
	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return &Assign{SpanVal: p.span(start), Target: target, Value: value}, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a single unchecked expression.
func (p *Parser) ParseExpression() (Expr, error) {
	return p.parseExpression()
}

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseOr()
}

// binaryLevel parses a left-associative chain of the operators in ops.
func (p *Parser) binaryLevel(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.curTokenIn(ops) {
		op := p.curToken
		p.nextToken()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &Binary{SpanVal: Span{Start: left.Span().Start, End: p.curToken.Pos}, Op: op.Literal, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) curTokenIn(types []TokenType) bool {
	for _, t := range types {
		if p.curToken.Type == t {
			return true
		}
	}
	return false
}

func (p *Parser) parseOr() (Expr, error) {
	return p.binaryLevel(p.parseAnd, TokenOr)
}

func (p *Parser) parseAnd() (Expr, error) {
	return p.binaryLevel(p.parseComparison, TokenAnd)
}

func (p *Parser) parseComparison() (Expr, error) {
	return p.binaryLevel(p.parseAdditive, TokenEq, TokenNeq, TokenLt, TokenGt, TokenLe, TokenGe)
}

func (p *Parser) parseAdditive() (Expr, error) {
	return p.binaryLevel(p.parseMultiplicative, TokenPlus, TokenMinus)
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.binaryLevel(p.parseUnary, TokenStar, TokenSlash, TokenPercent)
}

func (p *Parser) parseUnary() (Expr, error) {
	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenNot:
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{SpanVal: p.span(start), Op: "not", Operand: operand}, nil

	case TokenMinus:
		p.nextToken()
		// A minus directly before a number is part of the literal.
		if p.curTokenIs(TokenInteger) || p.curTokenIs(TokenFloat) {
			lit, err := p.parseNumber(true)
			if err != nil {
				return nil, err
			}
			lit.SpanVal.Start = start
			return p.parsePostfixOf(lit)
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{SpanVal: p.span(start), Op: "-", Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfixOf(primary)
}

// parsePostfixOf parses field access, method calls and indexing on e.
func (p *Parser) parsePostfixOf(e Expr) (Expr, error) {
	for {
		start := e.Span().Start
		switch p.curToken.Type {
		case TokenDot:
			p.nextToken()
			name, err := p.expect(TokenIdentifier)
			if err != nil {
				return nil, err
			}
			if p.curTokenIs(TokenLParen) {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				e = &Call{SpanVal: p.span(start), Name: name.Literal, Receiver: e, Args: args}
				continue
			}
			e = &Member{SpanVal: p.span(start), Object: e, Field: name.Literal}

		case TokenLBracket:
			p.nextToken()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRBracket); err != nil {
				return nil, err
			}
			e = &Index{SpanVal: p.span(start), Array: e, Index: idx}

		default:
			return e, nil
		}
	}
}

// parseArgs parses "( e, e, ... )".
func (p *Parser) parseArgs() ([]Expr, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	args := []Expr{}
	for !p.curTokenIs(TokenRParen) {
		if len(args) > 0 {
			if _, err := p.expect(TokenComma); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.nextToken() // )
	return args, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.curToken
	switch tok.Type {
	case TokenInteger, TokenFloat:
		return p.parseNumber(false)

	case TokenString:
		p.nextToken()
		return &Literal{SpanVal: p.span(tok.Pos), Kind: KindString, Str: tok.Literal}, nil

	case TokenCharacter:
		p.nextToken()
		r := []rune(tok.Literal)[0]
		return &Literal{SpanVal: p.span(tok.Pos), Kind: KindChar, Int: int64(r)}, nil

	case TokenTrue, TokenFalse:
		p.nextToken()
		lit := &Literal{SpanVal: p.span(tok.Pos), Kind: KindBool}
		if tok.Type == TokenTrue {
			lit.Int = 1
		}
		return lit, nil

	case TokenEmptyList:
		p.nextToken()
		return &ListLiteral{SpanVal: p.span(tok.Pos)}, nil

	case TokenLBracket:
		return p.parseList()

	case TokenLParen:
		p.nextToken()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return e, nil

	case TokenNew:
		p.nextToken()
		name, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &New{SpanVal: p.span(tok.Pos), Struct: name.Literal, Args: args}, nil

	case TokenIdentifier:
		p.nextToken()
		if !p.curTokenIs(TokenLParen) {
			return &Ident{SpanVal: p.span(tok.Pos), Name: tok.Literal}, nil
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if to, ok := PrimitiveType(tok.Literal); ok {
			if len(args) != 1 {
				return nil, &SyntaxError{Msg: fmt.Sprintf("cast to %s takes one value", to), Line: tok.Pos.Line, Column: tok.Pos.Column}
			}
			return &Cast{SpanVal: p.span(tok.Pos), Inner: args[0], To: to}, nil
		}
		return &Call{SpanVal: p.span(tok.Pos), Name: tok.Literal, Args: args}, nil
	}
	return nil, p.errorf("unexpected %s", describe(tok))
}

func (p *Parser) parseNumber(negative bool) (*Literal, error) {
	tok := p.curToken
	text := tok.Literal
	if negative {
		text = "-" + text
	}
	p.nextToken()

	if tok.Type == TokenFloat {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &SyntaxError{Msg: fmt.Sprintf("invalid float %s", text), Line: tok.Pos.Line, Column: tok.Pos.Column}
		}
		return &Literal{SpanVal: p.span(tok.Pos), Kind: KindFloat, Float: v}, nil
	}
	v, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return nil, &SyntaxError{Msg: fmt.Sprintf("integer %s out of range", text), Line: tok.Pos.Line, Column: tok.Pos.Column}
	}
	return &Literal{SpanVal: p.span(tok.Pos), Kind: KindInt, Int: v}, nil
}

func (p *Parser) parseList() (Expr, error) {
	start := p.curToken.Pos
	p.nextToken() // [
	list := &ListLiteral{}
	for !p.curTokenIs(TokenRBracket) {
		if len(list.Elements) > 0 {
			if _, err := p.expect(TokenComma); err != nil {
				return nil, err
			}
		}
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list.Elements = append(list.Elements, e)
	}
	p.nextToken() // ]
	list.SpanVal = p.span(start)
	return list, nil
}
