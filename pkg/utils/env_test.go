package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_GET_ENV", "from-env")

	assert.Equal(t, "from-env", GetEnv("TEST_GET_ENV", "fallback"))
	assert.Equal(t, "fallback", GetEnv("TEST_GET_ENV_MISSING", "fallback"))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_EXPAND_KEY", "secret")

	assert.Equal(t, "api_key: secret", ExpandEnvVars("api_key: ${TEST_EXPAND_KEY}"))
	assert.Equal(t, "api_key: ", ExpandEnvVars("api_key: ${TEST_EXPAND_MISSING}"))
}

func TestBoolFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"1", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"nonsense", false},
	}

	for _, tt := range tests {
		t.Setenv("TEST_BOOL_ENV", tt.value)
		assert.Equal(t, tt.want, BoolFromEnv("TEST_BOOL_ENV", !tt.want), "value %q", tt.value)
	}

	assert.True(t, BoolFromEnv("TEST_BOOL_ENV_MISSING", true))
	assert.False(t, BoolFromEnv("TEST_BOOL_ENV_MISSING", false))
}
