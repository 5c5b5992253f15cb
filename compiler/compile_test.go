package compiler

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/chazu/stackc/pkg/bytecode"
)

// programFrom renders a valid source unit from a list of shape seeds.
func programFrom(seeds []int) string {
	var sb strings.Builder
	sb.WriteString("let INT v0 = 0;\n")
	for k, n := range seeds {
		switch n % 5 {
		case 0:
			fmt.Fprintf(&sb, "let INT v%d = v0 + %d;\n", k+1, n)
		case 1:
			fmt.Fprintf(&sb, "if (v0 < %d) { v0 = v0 + 1; } else { print(v0); }\n", n)
		case 2:
			fmt.Fprintf(&sb, "while (v0 > %d) { v0 = v0 - 1; if (v0 == 3) { break; } }\n", n)
		case 3:
			fmt.Fprintf(&sb, "for (let INT i%d = 0; i%d < %d) { print(i%d); continue; }\n", k, k, n, k)
		case 4:
			fmt.Fprintf(&sb, "do { v0 = v0 * 2; } while (v0 < %d);\n", n)
		}
	}
	return sb.String()
}

func TestCompileProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	seeds := gen.SliceOf(gen.IntRange(0, 99))

	properties.Property("compilation is deterministic", prop.ForAll(
		func(s []int) bool {
			src := programFrom(s)
			a, err := Compile(src)
			if err != nil {
				return false
			}
			b, err := Compile(src)
			if err != nil {
				return false
			}
			return a.Text() == b.Text()
		},
		seeds,
	))

	properties.Property("jump targets stay inside the program", prop.ForAll(
		func(s []int) bool {
			p, err := Compile(programFrom(s))
			if err != nil {
				return false
			}
			for _, in := range p.Code {
				if !in.Op.IsJump() {
					continue
				}
				if target := int(in.Int()); target < 0 || target > len(p.Code) {
					return false
				}
			}
			return true
		},
		seeds,
	))

	properties.Property("binary image decodes to the same listing", prop.ForAll(
		func(s []int) bool {
			p, err := Compile(programFrom(s))
			if err != nil {
				return false
			}
			code, err := bytecode.DecodeBinary(bytecode.EncodeBinary(p.Code))
			if err != nil || len(code) != len(p.Code) {
				return false
			}
			for i := range code {
				if code[i].Op != p.Code[i].Op || code[i].Bits != p.Code[i].Bits {
					return false
				}
			}
			return true
		},
		seeds,
	))

	properties.TestingRun(t)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		src  string
		kind string
		line int
	}{
		{"let INT x = ;", "SyntaxError", 1},
		{"let INT x = 1;\ny = 2;", "NameError", 2},
		{"let INT x = 1.5;", "TypeError", 1},
		{"func f() -> int { return 1; }\nlet BOOL b = f();", "TypeError", 2},
		{"break;", "TypeError", 1},
		{"let INT x = 0;\nwhile (x) { x = \"a\"; }", "TypeError", 2},
	}

	for _, tc := range tests {
		prog, err := Compile(tc.src)
		if prog != nil || err == nil {
			t.Errorf("Compile(%q) succeeded", tc.src)
			continue
		}
		if !strings.HasPrefix(err.Error(), tc.kind+":") {
			t.Errorf("Compile(%q) = %v, want %s", tc.src, err, tc.kind)
		}
		if LineOf(err) != tc.line {
			t.Errorf("Compile(%q) line = %d, want %d", tc.src, LineOf(err), tc.line)
		}
		if !IsUserError(err) {
			t.Errorf("Compile(%q): %v is not a user error", tc.src, err)
		}
	}
}

func TestCheckMatchesCompile(t *testing.T) {
	good := "let INT x = 1; print(x);"
	if err := Check(good); err != nil {
		t.Errorf("Check(%q) = %v", good, err)
	}
	bad := "let INT x = 1; let INT x = 2;"
	var se *SemanticError
	if err := Check(bad); !errors.As(err, &se) {
		t.Errorf("Check(%q) = %v, want SemanticError", bad, err)
	}
}

func TestCompileTreeAgreesWithCompile(t *testing.T) {
	// let INT x = 2; let FLOAT y = x * 3;
	root := &Block{SpanVal: at(1), Statements: []Stmt{
		&VarDecl{SpanVal: at(1), Type: Int, Name: "x",
			Value: &Literal{SpanVal: at(1), Kind: KindInt, Int: 2}},
		&VarDecl{SpanVal: at(1), Type: Float, Name: "y",
			Value: &Binary{SpanVal: at(1), Op: "*",
				Left:  &Ident{SpanVal: at(1), Name: "x"},
				Right: &Literal{SpanVal: at(1), Kind: KindInt, Int: 3}}},
	}}

	fromTree, err := CompileTree(root)
	if err != nil {
		t.Fatalf("CompileTree: %v", err)
	}
	fromSource, err := Compile("let INT x = 2; let FLOAT y = x * 3;")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if fromTree.Text() != fromSource.Text() {
		t.Errorf("tree listing:\n%s\nsource listing:\n%s", fromTree.Text(), fromSource.Text())
	}
}

func TestCompileTreeNilBodies(t *testing.T) {
	cond := func() Expr { return &Literal{SpanVal: at(1), Kind: KindBool, Int: 1} }
	tests := []struct {
		name string
		stmt func() Stmt
		src  string
	}{
		{"func", func() Stmt {
			return &FuncDecl{SpanVal: at(1), Name: "f", Return: Void}
		}, "func f() { }"},
		{"if", func() Stmt {
			return &IfStmt{SpanVal: at(1), Clauses: []IfClause{{Cond: cond()}}}
		}, "if (true) { }"},
		{"while", func() Stmt {
			return &WhileStmt{SpanVal: at(1), Cond: cond()}
		}, "while (true) { }"},
		{"do-while", func() Stmt {
			return &WhileStmt{SpanVal: at(1), Cond: cond(), DoWhile: true}
		}, "do { } while (true);"},
		{"for", func() Stmt {
			return &ForStmt{SpanVal: at(1),
				Init: &VarDecl{SpanVal: at(1), Type: Int, Name: "i",
					Value: &Literal{SpanVal: at(1), Kind: KindInt, Int: 0}},
				Cond: &Binary{SpanVal: at(1), Op: "<",
					Left:  &Ident{SpanVal: at(1), Name: "i"},
					Right: &Literal{SpanVal: at(1), Kind: KindInt, Int: 3}},
			}
		}, "for (let INT i = 0; i < 3) { }"},
	}

	for _, tc := range tests {
		root := &Block{SpanVal: at(1), Statements: []Stmt{tc.stmt()}}
		fromTree, err := CompileTree(root)
		if err != nil {
			t.Errorf("%s: CompileTree: %v", tc.name, err)
			continue
		}
		fromSource, err := Compile(tc.src)
		if err != nil {
			t.Fatalf("%s: Compile: %v", tc.name, err)
		}
		if fromTree.Text() != fromSource.Text() {
			t.Errorf("%s: tree listing:\n%s\nsource listing:\n%s", tc.name, fromTree.Text(), fromSource.Text())
		}
	}
}
