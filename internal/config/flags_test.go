package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCommand creates a fresh Cobra command with flags bound for testing.
// Using a fresh command avoids shared state between tests.
func newTestCommand() (*cobra.Command, *FlagValues) {
	cmd := &cobra.Command{
		Use:           "test",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	fv := BindFlags(cmd)
	return cmd, fv
}

func TestFlagDefaults(t *testing.T) {
	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, ".", fv.Source)
	assert.Equal(t, DefaultOutput, fv.Output)
	assert.Nil(t, fv.Render)
	assert.Nil(t, fv.Copy)
	assert.Nil(t, fv.Ignore)
	assert.True(t, fv.AutoIgnore)
	assert.False(t, fv.PrettyURLs)
	assert.Equal(t, "", fv.BaseURL)
	assert.False(t, fv.Clean)
	assert.False(t, fv.Sitemap)
	assert.Equal(t, "error", fv.FailOn)
	assert.False(t, fv.Minify)
	assert.Equal(t, 0, fv.Concurrency)
	assert.False(t, fv.Verbose)
	assert.False(t, fv.Quiet)
	assert.False(t, fv.DryRun)
	assert.Equal(t, 8080, fv.Port)
	assert.Equal(t, "localhost", fv.Host)
}

func TestVerboseQuietMutualExclusion(t *testing.T) {
	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--verbose", "--quiet"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestSourceNonExistentPath(t *testing.T) {
	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--source", filepath.Join(t.TempDir(), "nope")})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.Error(t, err)
}

func TestSourceNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a-file")
	require.NoError(t, os.WriteFile(file, []byte(""), 0o644))

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--source", file})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestFailOnInvalidValue(t *testing.T) {
	dir := t.TempDir()
	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--source", dir, "--fail-on", "catastrophic"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fail-on")
}

func TestRepeatableFlags(t *testing.T) {
	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{
		"--render", "*.xml", "--render", "*.json",
		"--ignore", "drafts/**",
	})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []string{"*.xml", "*.json"}, fv.Render)
	assert.Equal(t, []string{"drafts/**"}, fv.Ignore)
}

func TestApplyEnvOverrides_OnlyUnchangedFlags(t *testing.T) {
	clearUnifyEnv(t)
	t.Setenv(EnvOutput, "env-output")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--output", "flag-output"})
	require.NoError(t, cmd.Execute())

	require.NoError(t, ValidateFlags(fv, cmd))
	assert.Equal(t, "flag-output", fv.Output, "explicit flag must win over env override")
}

func TestApplyEnvOverrides_AppliesWhenFlagUnset(t *testing.T) {
	clearUnifyEnv(t)
	t.Setenv(EnvOutput, "env-output")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	require.NoError(t, ValidateFlags(fv, cmd))
	assert.Equal(t, "env-output", fv.Output)
}

func TestApplyEnvOverrides_DebugSetsVerbose(t *testing.T) {
	clearUnifyEnv(t)
	t.Setenv(EnvDebug, "1")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	require.NoError(t, ValidateFlags(fv, cmd))
	assert.True(t, fv.Verbose)
}

func TestToCLIFlags_OnlyIncludesChanged(t *testing.T) {
	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--minify", "--concurrency", "4"})
	require.NoError(t, cmd.Execute())

	m := ToCLIFlags(fv, cmd)
	assert.Equal(t, true, m["minify"])
	assert.Equal(t, 4, m["concurrency"])
	_, hasOutput := m["output"]
	assert.False(t, hasOutput, "unchanged --output must not appear in the CLI layer")
}

func TestToCLIFlags_VerboseQuietAlwaysIncludedWhenTrue(t *testing.T) {
	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--verbose"})
	require.NoError(t, cmd.Execute())

	m := ToCLIFlags(fv, cmd)
	assert.Equal(t, true, m["verbose"])
}
