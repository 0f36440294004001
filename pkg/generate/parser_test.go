package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONPlain(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, ParseJSON(`{"name":"Vex"}`, &out))
	assert.Equal(t, "Vex", out.Name)
}

func TestParseJSONFenced(t *testing.T) {
	raw := "```json\n{\"name\":\"Vex\"}\n```"
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, ParseJSON(raw, &out))
	assert.Equal(t, "Vex", out.Name)
}

func TestParseJSONBareFence(t *testing.T) {
	raw := "```\n{\"name\":\"Vex\"}\n```"
	var out map[string]any
	require.NoError(t, ParseJSON(raw, &out))
	assert.Equal(t, "Vex", out["name"])
}

func TestParseJSONEmpty(t *testing.T) {
	var out map[string]any
	assert.ErrorIs(t, ParseJSON("   ", &out), ErrEmptyResponse)
}

func TestParseJSONMalformed(t *testing.T) {
	var out map[string]any
	assert.Error(t, ParseJSON("not json at all", &out))
}
