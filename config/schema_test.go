package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &schema))

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok, "schema should expose top-level properties")
	for _, key := range []string{"version", "server", "launch", "scan"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, props, "Extensions")
	assert.NotContains(t, props, "Sources")
}

func TestSchemaValidator(t *testing.T) {
	v, err := NewSchemaValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]interface{}{
		"launch":  map[string]interface{}{"interpreter": "/usr/bin/python3"},
		"logging": map[string]interface{}{"level": "debug"},
	}))

	err = v.Validate(map[string]interface{}{
		"launch": map[string]interface{}{"framework_args": "--server.headless"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "framework_args")
}
