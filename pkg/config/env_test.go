package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Str      string   `koanf:"str"`
	Int      int      `koanf:"int"`
	Postgres Postgres `koanf:"postgres"`
}

func TestReadFromEnv(t *testing.T) {
	t.Setenv("STR", "temp")
	t.Setenv("INT", "1")
	t.Setenv("POSTGRES__HOST", "db.local")

	var c testConfig
	require.NoError(t, ReadFromEnv(&c, nil))

	require.Equal(t, "temp", c.Str)
	require.Equal(t, 1, c.Int)
	require.Equal(t, "db.local", c.Postgres.Host)
}

func TestReadFromEnvDefaults(t *testing.T) {
	var c testConfig
	require.NoError(t, ReadFromEnv(&c, testConfig{Str: "fallback", Int: 9}))

	require.Equal(t, "fallback", c.Str)
	require.Equal(t, 9, c.Int)
}
