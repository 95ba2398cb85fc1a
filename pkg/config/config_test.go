package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "kafka:9092", want: []string{"kafka:9092"}},
		{name: "spaces and blanks", in: " a:1 , ,b:2,", want: []string{"a:1", "b:2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CSV(tt.in))
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("STOREFRONT_STR", "value")
	t.Setenv("STOREFRONT_INT", "42")
	t.Setenv("STOREFRONT_BAD_INT", "x")
	t.Setenv("STOREFRONT_BOOL", "true")
	t.Setenv("STOREFRONT_DUR", "48h")

	assert.Equal(t, "value", EnvDefault("STOREFRONT_STR", "def"))
	assert.Equal(t, "def", EnvDefault("STOREFRONT_UNSET", "def"))
	assert.Equal(t, 42, EnvIntDefault("STOREFRONT_INT", 1))
	assert.Equal(t, 1, EnvIntDefault("STOREFRONT_BAD_INT", 1))
	assert.True(t, EnvBoolDefault("STOREFRONT_BOOL", false))
	assert.Equal(t, 48*time.Hour, EnvDurationDefault("STOREFRONT_DUR", time.Hour))
	assert.Equal(t, time.Hour, EnvDurationDefault("STOREFRONT_UNSET", time.Hour))
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(Required{Env: "A", Value: "x"}))

	err := Check(Required{Env: "A", Value: ""}, Required{Env: "B", Value: " "}, Required{Env: "C", Value: "ok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A, B")
	assert.NotContains(t, err.Error(), "C")
}
