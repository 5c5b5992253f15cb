package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42
	TokenFloat      // 3.14
	TokenString     // "hello"
	TokenCharacter  // 'a'
	TokenIdentifier // foo, INT, Point

	// Operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenAssign  // =
	TokenEq      // ==
	TokenNeq     // !=
	TokenLt      // <
	TokenGt      // >
	TokenLe      // <=
	TokenGe      // >=
	TokenArrow   // ->

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenEmptyList // []
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenSemicolon // ;
	TokenDot       // .

	// Keywords
	TokenLet
	TokenIf
	TokenElif
	TokenElse
	TokenWhile
	TokenDo
	TokenFor
	TokenReturn
	TokenBreak
	TokenContinue
	TokenFunc
	TokenStruct
	TokenNew
	TokenTrue
	TokenFalse
	TokenAnd
	TokenOr
	TokenNot
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenCharacter:  "CHARACTER",
	TokenIdentifier: "IDENTIFIER",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenAssign:     "=",
	TokenEq:         "==",
	TokenNeq:        "!=",
	TokenLt:         "<",
	TokenGt:         ">",
	TokenLe:         "<=",
	TokenGe:         ">=",
	TokenArrow:      "->",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenEmptyList:  "[]",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenComma:      ",",
	TokenSemicolon:  ";",
	TokenDot:        ".",
	TokenLet:        "let",
	TokenIf:         "if",
	TokenElif:       "elif",
	TokenElse:       "else",
	TokenWhile:      "while",
	TokenDo:         "do",
	TokenFor:        "for",
	TokenReturn:     "return",
	TokenBreak:      "break",
	TokenContinue:   "continue",
	TokenFunc:       "func",
	TokenStruct:     "struct",
	TokenNew:        "new",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenAnd:        "and",
	TokenOr:         "or",
	TokenNot:        "not",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text, or the decoded value for strings and characters
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types. Keywords are lowercase only;
// type names are ordinary identifiers.
var reservedWords = map[string]TokenType{
	"let":      TokenLet,
	"if":       TokenIf,
	"elif":     TokenElif,
	"else":     TokenElse,
	"while":    TokenWhile,
	"do":       TokenDo,
	"for":      TokenFor,
	"return":   TokenReturn,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"func":     TokenFunc,
	"struct":   TokenStruct,
	"new":      TokenNew,
	"true":     TokenTrue,
	"false":    TokenFalse,
	"and":      TokenAnd,
	"or":       TokenOr,
	"not":      TokenNot,
}

// IsKeyword reports whether name is a reserved word.
func IsKeyword(name string) bool {
	_, ok := reservedWords[name]
	return ok
}

// Keywords returns the reserved words in sorted order.
func Keywords() []string {
	out := make([]string, 0, len(reservedWords))
	for w := range reservedWords {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
