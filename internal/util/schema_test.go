package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	A string   `json:"a" description:"Field A" enum:"x,y"`
	B *int     `json:"b" description:"Optional pointer field"`
	C int      `json:"c,omitempty"`
	D []string `json:"d,omitempty"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleArgs{})

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")

	a := props["a"].(map[string]any)
	assert.Equal(t, []any{"x", "y"}, a["enum"])

	d := props["d"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, d["items"])

	assert.ElementsMatch(t, []any{"a"}, schema["required"])
}

func TestCompileSchema_Validate(t *testing.T) {
	s, err := CompileSchema("sum", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		"required": []string{"x"},
	})
	require.NoError(t, err)

	assert.NoError(t, s.Validate(map[string]any{"x": 5}))
	assert.NoError(t, s.Validate(map[string]any{"x": 5.0}))

	err = s.Validate(map[string]any{})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Message, "x")

	err = s.Validate(map[string]any{"x": "not-int"})
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "x", vErr.Field)
	assert.Equal(t, "not-int", vErr.Value)
}

func TestCompileSchema_Empty(t *testing.T) {
	s, err := CompileSchema("noargs", nil)
	require.NoError(t, err)
	assert.NoError(t, s.Validate(nil))
}

func TestCompileSchema_Invalid(t *testing.T) {
	_, err := CompileSchema("bad", map[string]any{"type": 12})
	assert.Error(t, err)
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	out, err = RenderTemplate("You are {{.agent}} of {{join \", \" .team}}", map[string]any{
		"agent": "Head",
		"team":  []string{"Rag", "Analyst"},
	})
	require.NoError(t, err)
	assert.Equal(t, "You are Head of Rag, Analyst", out)

	_, err = RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}
