// Package condition compiles user-authored rule conditions written in tengo.
// A condition script reads the declared variables and assigns a boolean to result.
package condition

import (
	"context"
	"fmt"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

const resultVar = "result"

const (
	maxAllocs  = 10000
	runTimeout = 200 * time.Millisecond
)

type Program struct {
	compiled *tengo.Compiled
	names    []string
}

// Compile parses src with the given variable names in scope. Referencing an
// undeclared variable is a compile error.
func Compile(src string, names ...string) (*Program, error) {
	if src == "" {
		return nil, fmt.Errorf("condition is empty")
	}
	script := tengo.NewScript([]byte(src))
	script.SetImports(stdlib.GetModuleMap("math", "text", "times"))
	script.SetMaxAllocs(maxAllocs)

	for _, name := range names {
		if err := script.Add(name, nil); err != nil {
			return nil, fmt.Errorf("failed to declare %s: %w", name, err)
		}
	}
	if err := script.Add(resultVar, false); err != nil {
		return nil, err
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile condition: %w", err)
	}
	return &Program{compiled: compiled, names: names}, nil
}

// Eval runs the program against vars. Programs are safe for concurrent use.
func (p *Program) Eval(ctx context.Context, vars map[string]interface{}) (bool, error) {
	run := p.compiled.Clone()
	for _, name := range p.names {
		if err := run.Set(name, vars[name]); err != nil {
			return false, fmt.Errorf("failed to bind %s: %w", name, err)
		}
	}
	if err := run.Set(resultVar, false); err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	if err := run.RunContext(ctx); err != nil {
		return false, fmt.Errorf("failed to run condition: %w", err)
	}
	return run.Get(resultVar).Bool(), nil
}
