package cache

import (
	"errors"

	"github.com/chazu/stackc/compiler"
	"github.com/chazu/stackc/pkg/bytecode"
)

// Compile compiles source, reusing an object stored in c when one exists
// and storing the result otherwise. c may be nil, which compiles directly.
// The boolean reports whether the program came from the cache. Cache
// failures are logged and never fail the compile; rejected programs are
// not stored.
func Compile(c *Cache, name, source string) (*bytecode.Program, bool, error) {
	if c == nil {
		prog, err := compiler.Compile(source)
		return prog, false, err
	}

	key := Key(source)
	obj, err := c.Get(key)
	switch {
	case err == nil:
		prog, perr := obj.Program()
		if perr == nil {
			return prog, true, nil
		}
		log.Warningf("unusable entry %s: %s", short(key), perr)
	case !errors.Is(err, ErrMiss):
		log.Warningf("cache lookup failed: %s", err)
	}

	prog, err := compiler.Compile(source)
	if err != nil {
		return nil, false, err
	}
	if err := c.Put(key, bytecode.NewObject(prog, name, source)); err != nil {
		log.Warningf("cache store failed: %s", err)
	}
	return prog, false, nil
}
