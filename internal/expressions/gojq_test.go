package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

func TestGoJQEngine_Name(t *testing.T) {
	assert.Equal(t, "jq", NewGoJQEngine().Name())
}

func TestGoJQ_ProjectField(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), `.invoiceNumber`, map[string]any{
		"invoiceId":     "inv_1",
		"invoiceNumber": "INV-2026-000001",
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-000001", out)
}

func TestGoJQ_NormalizesGoValues(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), `.slots + 1`, map[string]any{"slots": int64(4)})
	require.NoError(t, err)
	assert.Equal(t, 5.0, out)

	type pair struct {
		A string `json:"a"`
	}
	out, err = e.Evaluate(context.Background(), `.p.a`, map[string]any{"p": pair{A: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestGoJQ_MultipleAndEmptyOutputs(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), `.items[]`, map[string]any{"items": []any{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, out)

	out, err = e.Evaluate(context.Background(), `empty`, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestGoJQ_Errors(t *testing.T) {
	e := NewGoJQEngine()

	err := e.Compile(`.[`)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err, ""))

	_, err = e.Evaluate(context.Background(), `error("boom")`, nil)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeExecution, schema.CodeOf(err, ""))
}

func TestGoJQ_EnvIsSandboxed(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), `$ENV | length`, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out)
}
