package manifest

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Schema is the CUE definition every stackc.toml must satisfy.
// Definitions are closed, so unknown tables and keys are rejected.
const Schema = `
#Manifest: {
	project?: {
		name?:    string & =~"^[A-Za-z0-9_.-]+$"
		version?: string
	}
	build?: {
		entry?:  string & != ""
		output?: string & != ""
		format?: "text" | "binary" | "object"
		disasm?: bool
	}
	cache?: {
		enabled?: bool
		path?:    string & != ""
	}
	server?: {
		addr?: string & =~"^[^ ]*:[0-9]+$"
	}
}
`

// The CUE runtime is not safe for concurrent use; mu guards all of it.
var (
	mu        sync.Mutex
	schemaCtx *cue.Context
	schemaDef cue.Value
)

func manifestSchema() (*cue.Context, cue.Value, error) {
	if schemaCtx == nil {
		ctx := cuecontext.New()
		v := ctx.CompileString(Schema, cue.Filename("stackc.cue"))
		if err := v.Err(); err != nil {
			return nil, cue.Value{}, fmt.Errorf("manifest schema: %w", err)
		}
		def := v.LookupPath(cue.ParsePath("#Manifest"))
		if err := def.Err(); err != nil {
			return nil, cue.Value{}, fmt.Errorf("manifest schema: %w", err)
		}
		schemaCtx, schemaDef = ctx, def
	}
	return schemaCtx, schemaDef, nil
}

// Validate checks decoded manifest data against Schema.
func Validate(raw map[string]interface{}) error {
	mu.Lock()
	defer mu.Unlock()

	ctx, def, err := manifestSchema()
	if err != nil {
		return err
	}
	v := ctx.Encode(raw)
	if err := v.Err(); err != nil {
		return err
	}
	return def.Unify(v).Validate(cue.Concrete(true))
}
