package rules

import (
	"fmt"

	"capi-inspector/internal/document"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// Env is the CEL environment shared by every expression rule. The
// document under evaluation is bound to "self"; the strings extension
// library is available.
var Env *cel.Env

func init() {
	var err error
	Env, err = cel.NewEnv(cel.Variable("self", cel.DynType), ext.Strings())
	if err != nil {
		panic(fmt.Sprintf("failed to create CEL environment: %v", err))
	}
}

// Expr is a compiled boolean CEL expression.
type Expr struct {
	source  string
	program cel.Program
}

// Compile parses and checks src against Env.
func Compile(src string) (*Expr, error) {
	ast, iss := Env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	prgm, err := Env.Program(ast, cel.InterruptCheckFrequency(10))
	if err != nil {
		return nil, err
	}
	return &Expr{source: src, program: prgm}, nil
}

// MustCompile is Compile for rule tables built at init time.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(fmt.Sprintf("compile %q: %v", src, err))
	}
	return e
}

func (e *Expr) String() string { return e.source }

// Eval reports whether the expression holds for doc. Non-boolean results
// are an error.
func (e *Expr) Eval(doc document.Document) (bool, error) {
	val, _, err := e.program.Eval(map[string]any{"self": doc.Root().Interface()})
	if err != nil {
		return false, err
	}
	b, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", e.source, val.Value())
	}
	return b, nil
}
