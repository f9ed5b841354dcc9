package stage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"local", "test", "dev", "staging", "prod"} {
		got, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, Stage(name), got)
	}

	for _, bad := range []string{"", "unknown", "PROD", "qa"} {
		got, err := Parse(bad)
		require.ErrorIs(t, err, ErrUnrecognizedStage, bad)
		assert.Equal(t, Unknown, got)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("RUNNING_ENV", "staging")

	got, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Staging, got)
}

func TestFromEnvRejectsUnknownValue(t *testing.T) {
	t.Setenv("RUNNING_ENV", "qa")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized stage")
}

func TestFromEnvDefaultsToTestInTests(t *testing.T) {
	t.Setenv("RUNNING_ENV", "")
	require.NoError(t, os.Unsetenv("RUNNING_ENV"))

	got, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Test, got)
}
