package pwa_test

import (
	"testing"

	"github.com/advdv/pipehttp/pwa"
	"github.com/stretchr/testify/require"
)

func TestParseEnvDefaults(t *testing.T) {
	env, err := pwa.ParseEnv[pwa.BaseEnvironment]()()
	require.NoError(t, err)
	require.Equal(t, ":8080", env.Addr)
	require.False(t, env.Debug)
	require.Empty(t, env.MetricsURL)
}

func TestParseEnvReadsProcessEnvironment(t *testing.T) {
	t.Setenv("PIPEHTTP_ADDR", ":9090")
	t.Setenv("DEBUG", "true")
	t.Setenv("METRICS", "localhost:8125")

	env, err := pwa.ParseEnv[pwa.BaseEnvironment]()()
	require.NoError(t, err)
	require.Equal(t, ":9090", env.Addr)
	require.True(t, env.Debug)
	require.Equal(t, "localhost:8125", env.MetricsURL)
}
