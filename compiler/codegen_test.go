package compiler

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/chazu/stackc/pkg/bytecode"
)

// listing compiles src and renders each instruction as "MNEMONIC operand".
func listing(t *testing.T, src string) []string {
	t.Helper()
	prog, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	lines := make([]string, len(prog.Code))
	for i, in := range prog.Code {
		lines[i] = in.Op.String() + " " + bytecode.FormatOperand(in)
	}
	return lines
}

func checkCode(t *testing.T, src string, want ...string) {
	t.Helper()
	got := listing(t, src)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("Compile(%q):\n got:\n  %s\nwant:\n  %s", src,
			strings.Join(got, "\n  "), strings.Join(want, "\n  "))
	}
}

func TestCodegenVariables(t *testing.T) {
	checkCode(t, "let INT x = 5; let INT y = x + 3;",
		"STORE 5",
		"STORE_MEM 0",
		"LOAD 0",
		"STORE 3",
		"ADD 0",
		"STORE_MEM 4",
	)
}

func TestCodegenWhile(t *testing.T) {
	checkCode(t, "let INT x = 0; while (x < 10) { x = x + 1; }",
		"STORE 0",
		"STORE_MEM 0",
		"LOAD 0", // 2: condition
		"STORE 10",
		"LT 0",
		"NOT 0",
		"JUMP_IF 12",
		"LOAD 0",
		"STORE 1",
		"ADD 0",
		"STORE_MEM 0",
		"JUMP 2",
	)
}

func TestCodegenStruct(t *testing.T) {
	checkCode(t, `struct P { int x; int y; }
let P p = new P(1, 2);
p.x = 5;
let INT v = p.y;`,
		"DEFINE_TYPE 2",
		"STORE 1",
		"STORE 2",
		"NEW 0",
		"STORE_MEM 0",
		"STORE 5",
		"LOAD 0",
		"STORE_HEAP 1",
		"LOAD 0",
		"LOAD_HEAP 0",
		"STORE_MEM 4",
	)
}

func TestCodegenStructIndexes(t *testing.T) {
	checkCode(t, `struct A { int a; }
struct B { int a; int b; int c; }
let B b = new B(1, 2, 3);
let A a = new A(b.a);`,
		"DEFINE_TYPE 1",
		"DEFINE_TYPE 3",
		"STORE 1",
		"STORE 2",
		"STORE 3",
		"NEW 1",
		"STORE_MEM 0",
		"LOAD 0",
		"LOAD_HEAP 2",
		"NEW 0",
		"STORE_MEM 4",
	)
}

func TestCodegenIfChain(t *testing.T) {
	checkCode(t, "let INT x = 1; if (x == 1) { x = 2; } elif (x == 2) { x = 3; } else { x = 4; }",
		"STORE 1",
		"STORE_MEM 0",
		"LOAD 0",
		"STORE 1",
		"EQ 0",
		"NOT 0",
		"JUMP_IF 10",
		"STORE 2",
		"STORE_MEM 0",
		"JUMP 20",
		"LOAD 0", // 10: elif
		"STORE 2",
		"EQ 0",
		"NOT 0",
		"JUMP_IF 18",
		"STORE 3",
		"STORE_MEM 0",
		"JUMP 20",
		"STORE 4", // 18: else
		"STORE_MEM 0",
	)
}

func TestCodegenIfWithoutElse(t *testing.T) {
	checkCode(t, "if (true) { print(1); }",
		"STORE_BYTE 1",
		"NOT 0",
		"JUMP_IF 6",
		"STORE 1",
		"SYSCALL 1",
		"JUMP 6",
	)
}

func TestCodegenFor(t *testing.T) {
	checkCode(t, "for (let INT i = 0; i < 3) { print(i); }",
		"STORE 0",
		"STORE_MEM 0",
		"LOAD 0", // 2: condition
		"STORE 3",
		"LT 0",
		"NOT 0",
		"JUMP_IF 14",
		"LOAD 0",
		"SYSCALL 1",
		"LOAD 0", // 9: increment
		"STORE 1",
		"ADD 0",
		"STORE_MEM 0",
		"JUMP 2",
	)
}

func TestCodegenForContinueTargetsIncrement(t *testing.T) {
	checkCode(t, "for (let INT i = 0; i < 5) { if (i == 2) { continue; } print(i); }",
		"STORE 0",
		"STORE_MEM 0",
		"LOAD 0", // 2: condition
		"STORE 5",
		"LT 0",
		"NOT 0",
		"JUMP_IF 21",
		"LOAD 0",
		"STORE 2",
		"EQ 0",
		"NOT 0",
		"JUMP_IF 14",
		"JUMP 16", // continue
		"JUMP 14",
		"LOAD 0",
		"SYSCALL 1",
		"LOAD 0", // 16: increment
		"STORE 1",
		"ADD 0",
		"STORE_MEM 0",
		"JUMP 2",
	)
}

func TestCodegenDoWhile(t *testing.T) {
	checkCode(t, "let INT n = 0; do { n = n + 1; if (n == 1) { continue; } break; } while (n < 3);",
		"STORE 0",
		"STORE_MEM 0",
		"LOAD 0", // 2: body
		"STORE 1",
		"ADD 0",
		"STORE_MEM 0",
		"LOAD 0",
		"STORE 1",
		"EQ 0",
		"NOT 0",
		"JUMP_IF 13",
		"JUMP 14", // continue
		"JUMP 13",
		"JUMP 18", // break
		"LOAD 0",  // 14: condition
		"STORE 3",
		"LT 0",
		"JUMP_IF 2",
	)
}

func TestCodegenManyBreaksAndContinues(t *testing.T) {
	src := `let INT x = 0;
while (x < 10) {
    x = x + 1;
    if (x == 2) { continue; }
    if (x == 3) { break; }
    if (x == 4) { continue; }
    if (x == 5) { break; }
    break;
}`
	prog, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	const start = 2
	exit := len(prog.Code)
	toExit, toStart := 0, 0
	for _, in := range prog.Code {
		if in.Op != bytecode.OpJump {
			continue
		}
		switch int(in.Int()) {
		case exit:
			toExit++
		case start:
			toStart++
		}
	}
	if toExit != 3 {
		t.Errorf("%d jumps to the exit, want 3 breaks", toExit)
	}
	// two continues and the loop's own back-jump
	if toStart != 3 {
		t.Errorf("%d jumps to the condition, want 3", toStart)
	}
}

func TestCodegenNestedLoopsKeepTheirOwnBreaks(t *testing.T) {
	src := `let INT i = 0;
while (i < 3) {
    while (true) { break; }
    i = i + 1;
    break;
}`
	lines := listing(t, src)
	var jumps []string
	for _, l := range lines {
		if strings.HasPrefix(l, "JUMP ") {
			jumps = append(jumps, l)
		}
	}
	want := []string{
		"JUMP 12", // inner break
		"JUMP 7",  // inner back-jump
		"JUMP 18", // outer break
		"JUMP 2",  // outer back-jump
	}
	if strings.Join(jumps, ",") != strings.Join(want, ",") {
		t.Errorf("jumps = %v, want %v\n%s", jumps, want, strings.Join(lines, "\n"))
	}
}

func TestCodegenFunction(t *testing.T) {
	checkCode(t, "func add(int a, int b) -> int { return a + b; } let INT r = add(1, 2);",
		"STORE 3", // entry point
		"STORE_MEM 0",
		"JUMP 9",
		"STORE_MEM 4", // b
		"STORE_MEM 8", // a
		"LOAD 8",
		"LOAD 4",
		"ADD 0",
		"RETURN 0",
		"STORE 1",
		"STORE 2",
		"LOAD 0",
		"CALL -1",
		"STORE_MEM 12",
	)
}

func TestCodegenFunctionImplicitReturn(t *testing.T) {
	checkCode(t, `func hi() { print("a"); } hi();`,
		"STORE 3",
		"STORE_MEM 0",
		"JUMP 7",
		"STORE_CHAR 97",
		"BUILD_LIST 1",
		"SYSCALL 1",
		"RETURN 0",
		"LOAD 0",
		"CALL -1",
	)
}

func TestCodegenListsAndStrings(t *testing.T) {
	checkCode(t, `let STRING s = "ab";
let INT[] xs = [1, 2, 3];
let INT v = xs[1];
let INT i = 0;
v = xs[i];
xs[0] = 9;
xs[i] = v;`,
		"STORE_CHAR 98",
		"STORE_CHAR 97",
		"BUILD_LIST 2",
		"STORE_MEM 0",
		"STORE 3",
		"STORE 2",
		"STORE 1",
		"BUILD_LIST 3",
		"STORE_MEM 4",
		"LOAD 4",
		"LIST_ACCESS 1",
		"STORE_MEM 8",
		"STORE 0",
		"STORE_MEM 12",
		"LOAD 4",
		"LOAD 12",
		"LIST_ACCESS -1",
		"STORE_MEM 8",
		"STORE 9",
		"LOAD 4",
		"LIST_SET 0",
		"LOAD 8",
		"LOAD 4",
		"LOAD 12",
		"LIST_SET -1",
	)
}

func TestCodegenEmptyAndNestedLists(t *testing.T) {
	checkCode(t, "let INT[][] m = [[1], []];",
		"BUILD_LIST 0",
		"STORE 1",
		"BUILD_LIST 1",
		"BUILD_LIST 2",
		"STORE_MEM 0",
	)
}

func TestCodegenCasts(t *testing.T) {
	intToFloat := bytecode.CastOperand(0, bytecode.TagInt, bytecode.TagFloat)
	floatToInt := bytecode.CastOperand(0, bytecode.TagFloat, bytecode.TagInt)
	charToFloat := bytecode.CastOperand(0, bytecode.TagChar, bytecode.TagFloat)

	checkCode(t, `let FLOAT f = 5;
let INT i = 2;
let FLOAT g = i;
let INT k = int(f);
let FLOAT h = float(7);
let CHAR c = 'a';
let FLOAT cf = c;`,
		"STORE_FLOAT 5.0",
		"STORE_MEM 0",
		"STORE 2",
		"STORE_MEM 4",
		"LOAD 4",
		"CAST "+strconv.Itoa(int(intToFloat)),
		"STORE_MEM 8",
		"LOAD 0",
		"CAST "+strconv.Itoa(int(floatToInt)),
		"STORE_MEM 12",
		"STORE 7",
		"CAST "+strconv.Itoa(int(intToFloat)),
		"STORE_MEM 16",
		"STORE_CHAR 97",
		"STORE_MEM 20",
		"LOAD 20",
		"CAST "+strconv.Itoa(int(charToFloat)),
		"STORE_MEM 21",
	)
}

func TestCodegenUnary(t *testing.T) {
	checkCode(t, "let INT x = 3; let INT y = -x; let BOOL b = not true; let FLOAT f = -2.5;",
		"STORE 3",
		"STORE_MEM 0",
		"STORE 0",
		"LOAD 0",
		"SUB 0",
		"STORE_MEM 4",
		"STORE_BYTE 1",
		"NOT 0",
		"STORE_MEM 8",
		"STORE_FLOAT -2.5",
		"STORE_MEM 9",
	)
}

func TestCodegenObjectCalls(t *testing.T) {
	checkCode(t, "let INT[] xs = [1]; xs.size(); xs.append(2);",
		"STORE 1",
		"BUILD_LIST 1",
		"STORE_MEM 0",
		"LOAD 0",
		"OBJCALL 1",
		"POP 0",
		"STORE 2",
		"LOAD 0",
		"OBJCALL 0",
	)
}

func TestCodegenMapLoadsFunctionSlot(t *testing.T) {
	checkCode(t, "func dbl(int v) -> int { return v * 2; } let INT[] xs = [1]; let INT[] ys = xs.map(dbl);",
		"STORE 3",
		"STORE_MEM 0",
		"JUMP 8",
		"STORE_MEM 4",
		"LOAD 4",
		"STORE 2",
		"MUL 0",
		"RETURN 0",
		"STORE 1",
		"BUILD_LIST 1",
		"STORE_MEM 8",
		"LOAD 0",
		"LOAD 8",
		"OBJCALL 6",
		"STORE_MEM 12",
	)
}

func TestCodegenPrintEachArgument(t *testing.T) {
	checkCode(t, "print(1, 2); exit(0);",
		"STORE 1",
		"SYSCALL 1",
		"STORE 2",
		"SYSCALL 1",
		"STORE 0",
		"SYSCALL 0",
	)
}

func TestCodegenSymbolsAndLines(t *testing.T) {
	prog, err := Compile("let INT x = 1;\nlet BOOL b = true;\nlet FLOAT y = 2.0;")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []bytecode.Symbol{
		{Name: "x", Offset: 0, Size: 4, Type: "INT"},
		{Name: "b", Offset: 4, Size: 1, Type: "BOOL"},
		{Name: "y", Offset: 5, Size: 4, Type: "FLOAT"},
	}
	if len(prog.Symbols) != len(want) {
		t.Fatalf("symbols = %v", prog.Symbols)
	}
	for i, s := range want {
		if prog.Symbols[i] != s {
			t.Errorf("symbol[%d] = %+v, want %+v", i, prog.Symbols[i], s)
		}
	}
	for i, in := range prog.Code {
		if want := i/2 + 1; in.Line != want {
			t.Errorf("instruction %d line = %d, want %d", i, in.Line, want)
		}
	}
}

func TestCompileRejectsBeforeEmitting(t *testing.T) {
	prog, err := Compile("let INT x = 1;\nlet INT x = 2;")
	if prog != nil {
		t.Errorf("got a program for a rejected unit")
	}
	var se *SemanticError
	if !errors.As(err, &se) || se.Kind != NameError {
		t.Fatalf("error = %v, want NameError", err)
	}
	if LineOf(err) != 2 {
		t.Errorf("LineOf = %d, want 2", LineOf(err))
	}
}

func TestGenerateInternalErrors(t *testing.T) {
	tests := []struct {
		name string
		root *Block
	}{
		{"unresolved call", &Block{Statements: []Stmt{
			&ExprStmt{SpanVal: at(1), Expr: &Call{SpanVal: at(1), Name: "f"}},
		}}},
		{"unresolved identifier", &Block{Statements: []Stmt{
			&ExprStmt{SpanVal: at(1), Expr: &Ident{SpanVal: at(1), Name: "x"}},
		}}},
		{"break outside loop", &Block{Statements: []Stmt{
			&BreakStmt{SpanVal: at(1)},
		}}},
		{"field of unknown struct", &Block{Statements: []Stmt{
			&ExprStmt{SpanVal: at(1), Expr: &New{SpanVal: at(1), Struct: "Q"}},
		}}},
	}

	for _, tc := range tests {
		prog, err := Generate(tc.root)
		var ie *InternalError
		if prog != nil || !errors.As(err, &ie) {
			t.Errorf("%s: got %v, %v; want InternalError", tc.name, prog, err)
			continue
		}
		if IsUserError(err) {
			t.Errorf("%s: internal error reported as a user error", tc.name)
		}
	}
}
