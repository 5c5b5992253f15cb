package compiler

import (
	"github.com/chazu/stackc/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

// Compile parses, checks and lowers one source unit. It returns the first
// error found; no program is produced for a rejected unit.
func Compile(source string) (*bytecode.Program, error) {
	root, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return Generate(root)
}

// CompileTree checks and lowers a hand-built tree.
func CompileTree(root *Block) (*bytecode.Program, error) {
	if err := Analyze(root); err != nil {
		return nil, err
	}
	return Generate(root)
}

// Check parses and checks source without generating code.
func Check(source string) error {
	_, err := Parse(source)
	return err
}
