package expressions

import "context"

// Engine evaluates expressions against a workflow's data.
// Three implementations: CEL (gates), Expr (pricing rules), GoJQ (output projection).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
	// Compile checks an expression without evaluating it.
	Compile(expression string) error
}
