package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertSamePath asserts that two paths refer to the same filesystem location,
// resolving symlinks on both sides before comparing. This is required on macOS
// where t.TempDir() returns paths under /var (a symlink to /private/var) while
// DiscoverRepoConfig uses filepath.EvalSymlinks internally and returns canonical
// /private/var paths.
func assertSamePath(t *testing.T, expected, actual string, msgAndArgs ...any) {
	t.Helper()
	if expected == "" || actual == "" {
		assert.Equal(t, expected, actual, msgAndArgs...)
		return
	}
	resolvedExpected := expected
	if r, err := filepath.EvalSymlinks(expected); err == nil {
		resolvedExpected = r
	}
	resolvedActual := actual
	if r, err := filepath.EvalSymlinks(actual); err == nil {
		resolvedActual = r
	}
	assert.Equal(t, resolvedExpected, resolvedActual, msgAndArgs...)
}

func TestDiscoverRepoConfig_FoundInStartDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "unify.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("output = \"dist\"\n"), 0o644))

	got, err := DiscoverRepoConfig(dir)
	require.NoError(t, err)
	assertSamePath(t, configPath, got)
}

func TestDiscoverRepoConfig_DotPrefixedVariant(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".unify.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("output = \"dist\"\n"), 0o644))

	got, err := DiscoverRepoConfig(dir)
	require.NoError(t, err)
	assertSamePath(t, configPath, got)
}

func TestDiscoverRepoConfig_FoundInParentDir(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	configPath := filepath.Join(parent, "unify.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("output = \"dist\"\n"), 0o644))

	child := filepath.Join(parent, "sub")
	require.NoError(t, os.Mkdir(child, 0o755))

	got, err := DiscoverRepoConfig(child)
	require.NoError(t, err)
	assertSamePath(t, configPath, got)
}

func TestDiscoverRepoConfig_NotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	got, err := DiscoverRepoConfig(dir)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscoverRepoConfig_StopsAtGitBoundary(t *testing.T) {
	t.Parallel()

	// Layout:
	//   grandparent/
	//     unify.toml       <-- should NOT be found
	//     child/
	//       .git/          <-- boundary
	//       grandchild/    <-- start dir

	grandparent := t.TempDir()
	grandparentConfig := filepath.Join(grandparent, "unify.toml")
	require.NoError(t, os.WriteFile(grandparentConfig, []byte("output = \"dist\"\n"), 0o644))

	child := filepath.Join(grandparent, "child")
	require.NoError(t, os.Mkdir(child, 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(child, ".git"), 0o755))

	grandchild := filepath.Join(child, "grandchild")
	require.NoError(t, os.Mkdir(grandchild, 0o755))

	got, err := DiscoverRepoConfig(grandchild)
	require.NoError(t, err)
	assert.Empty(t, got, "search must stop at .git boundary and not reach grandparent config")
}

func TestDiscoverRepoConfig_FoundAtGitBoundary(t *testing.T) {
	t.Parallel()

	// Layout:
	//   repoRoot/
	//     .git/            <-- boundary
	//     unify.toml       <-- should be found
	//     sub/             <-- start dir

	repoRoot := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(repoRoot, ".git"), 0o755))
	configPath := filepath.Join(repoRoot, "unify.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("output = \"dist\"\n"), 0o644))

	sub := filepath.Join(repoRoot, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	got, err := DiscoverRepoConfig(sub)
	require.NoError(t, err)
	assertSamePath(t, configPath, got)
}

func TestDiscoverRepoConfig_ClosestWins(t *testing.T) {
	t.Parallel()

	// Layout:
	//   parent/
	//     unify.toml       <-- further
	//     child/
	//       unify.toml     <-- closer, should win

	parent := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(parent, "unify.toml"), []byte("output = \"a\"\n"), 0o644))

	child := filepath.Join(parent, "child")
	require.NoError(t, os.Mkdir(child, 0o755))
	childConfig := filepath.Join(child, "unify.toml")
	require.NoError(t, os.WriteFile(childConfig, []byte("output = \"b\"\n"), 0o644))

	got, err := DiscoverRepoConfig(child)
	require.NoError(t, err)
	assertSamePath(t, childConfig, got)
}

func TestDiscoverRepoConfig_DeepNesting(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	configPath := filepath.Join(root, "unify.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("output = \"dist\"\n"), 0o644))

	current := root
	for i := range 5 {
		current = filepath.Join(current, "level"+string(rune('0'+i)))
		require.NoError(t, os.Mkdir(current, 0o755))
	}

	got, err := DiscoverRepoConfig(current)
	require.NoError(t, err)
	assertSamePath(t, configPath, got)
}

func TestDiscoverRepoConfig_FoundTwoLevelsUp(t *testing.T) {
	t.Parallel()

	grandparent := t.TempDir()
	configPath := filepath.Join(grandparent, "unify.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("output = \"dist\"\n"), 0o644))

	parent := filepath.Join(grandparent, "parent")
	require.NoError(t, os.Mkdir(parent, 0o755))

	child := filepath.Join(parent, "child")
	require.NoError(t, os.Mkdir(child, 0o755))

	got, err := DiscoverRepoConfig(child)
	require.NoError(t, err)
	assertSamePath(t, configPath, got, "unify.toml exactly two levels up must be found")
}

func TestDiscoverRepoConfig_MaxDepthPreventsRunaway(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	current := root
	for i := 0; i < maxSearchDepth+5; i++ {
		next := filepath.Join(current, "level")
		require.NoError(t, os.Mkdir(next, 0o755))
		current = next
	}

	got, err := DiscoverRepoConfig(current)
	require.NoError(t, err, "max depth must not produce an error")
	assert.Empty(t, got, "no unify.toml found within maxSearchDepth must return empty string")
}

func TestDiscoverRepoConfig_MaxDepthFindsConfigJustAtLimit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	configPath := filepath.Join(root, "unify.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("output = \"dist\"\n"), 0o644))

	current := root
	for i := 0; i < maxSearchDepth-1; i++ {
		next := filepath.Join(current, "level")
		require.NoError(t, os.Mkdir(next, 0o755))
		current = next
	}

	got, err := DiscoverRepoConfig(current)
	require.NoError(t, err)
	assertSamePath(t, configPath, got,
		"unify.toml exactly maxSearchDepth-1 levels above startDir must be found")
}

func TestDiscoverRepoConfig_SymlinkResolution(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}

	// Layout:
	//   real/
	//     unify.toml       <-- will be found
	//     sub/             <-- real subdir
	//   link/              <-- symlink → real/sub

	real := t.TempDir()
	configPath := filepath.Join(real, "unify.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("output = \"dist\"\n"), 0o644))

	sub := filepath.Join(real, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	linkBase := t.TempDir()
	link := filepath.Join(linkBase, "link")
	require.NoError(t, os.Symlink(sub, link))

	got, err := DiscoverRepoConfig(link)
	require.NoError(t, err)
	resolvedConfig, err := filepath.EvalSymlinks(configPath)
	require.NoError(t, err)
	assert.Equal(t, resolvedConfig, got,
		"symlink resolution must yield the canonical unify.toml path")
}

func TestDiscoverRepoConfig_NonExistentStartDir(t *testing.T) {
	t.Parallel()

	got, err := DiscoverRepoConfig(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscoverRepoConfig_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setup     func(t *testing.T) string // returns start dir
		wantFound bool
	}{
		{
			name: "empty tree",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			wantFound: false,
		},
		{
			name: "config in start dir",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.WriteFile(filepath.Join(dir, "unify.toml"), []byte(""), 0o644))
				return dir
			},
			wantFound: true,
		},
		{
			name: "dotfile variant in start dir",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.WriteFile(filepath.Join(dir, ".unify.toml"), []byte(""), 0o644))
				return dir
			},
			wantFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := tt.setup(t)
			got, err := DiscoverRepoConfig(dir)
			require.NoError(t, err)
			if tt.wantFound {
				assert.NotEmpty(t, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}
