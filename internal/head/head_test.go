package head

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeHeads_SingleFragmentIsIdentity(t *testing.T) {
	t.Parallel()

	frag := Fragment{Tier: TierPage, HTML: `<title>Home</title><meta charset="utf-8">`}
	out, err := MergeHeads([]Fragment{frag})
	require.NoError(t, err)
	assert.Contains(t, out, "<title>Home</title>")
	assert.Contains(t, out, `charset="utf-8"`)
}

func TestMergeHeads_TitleLastWins(t *testing.T) {
	t.Parallel()

	// Scenario 2 from spec.md §8: page-tier title wins.
	fragments := []Fragment{
		{Tier: TierLayout, HTML: `<title>Site</title>`},
		{Tier: TierPage, HTML: `<title>Post</title>`},
	}
	out, err := MergeHeads(fragments)
	require.NoError(t, err)

	titleCount := 0
	for i := 0; i+len("<title>") <= len(out); i++ {
		if out[i:i+len("<title>")] == "<title>" {
			titleCount++
		}
	}
	assert.Equal(t, 1, titleCount)
	assert.Contains(t, out, "<title>Post</title>")
	assert.NotContains(t, out, "Site")
}

func TestMergeHeads_LinkCanonicalAtMostOne(t *testing.T) {
	t.Parallel()

	fragments := []Fragment{
		{Tier: TierLayout, HTML: `<link rel="canonical" href="/a">`},
		{Tier: TierPage, HTML: `<link rel="canonical" href="/b">`},
	}
	out, err := MergeHeads(fragments)
	require.NoError(t, err)
	assert.Contains(t, out, `href="/a"`)
	assert.NotContains(t, out, `href="/b"`)
}

func TestMergeHeads_LinkScriptFirstWins(t *testing.T) {
	t.Parallel()

	fragments := []Fragment{
		{Tier: TierLayout, HTML: `<script src="/layout.js"></script>`},
		{Tier: TierPage, HTML: `<script src="/layout.js"></script>`},
	}
	out, err := MergeHeads(fragments)
	require.NoError(t, err)

	count := 0
	for i := 0; i+len("/layout.js") <= len(out); i++ {
		if out[i:i+len("/layout.js")] == "/layout.js" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMergeHeads_AllowDuplicatePreserved(t *testing.T) {
	t.Parallel()

	fragments := []Fragment{
		{Tier: TierLayout, HTML: `<meta name="viewport" content="a">`},
		{Tier: TierPage, HTML: `<meta name="viewport" content="b" data-allow-duplicate>`},
	}
	out, err := MergeHeads(fragments)
	require.NoError(t, err)
	assert.Contains(t, out, `content="a"`)
	assert.Contains(t, out, `content="b"`)
}

func TestMergeHeads_UnkeyedMetaKeptInTierOrder(t *testing.T) {
	t.Parallel()

	fragments := []Fragment{
		{Tier: TierLayout, HTML: `<meta content="first">`},
		{Tier: TierPage, HTML: `<meta content="second">`},
	}
	out, err := MergeHeads(fragments)
	require.NoError(t, err)

	firstIdx := indexOf(out, `content="first"`)
	secondIdx := indexOf(out, `content="second"`)
	require.NotEqual(t, -1, firstIdx)
	require.NotEqual(t, -1, secondIdx)
	assert.Less(t, firstIdx, secondIdx)
}

func TestExtractHead_StripsComments(t *testing.T) {
	t.Parallel()

	els, err := ExtractHead(`<!-- note --><title>T</title>`, TierPage)
	require.NoError(t, err)
	for _, el := range els {
		assert.NotContains(t, el.Raw, "note")
	}
}

func TestInjectHead_CreatesHeadIfMissing(t *testing.T) {
	t.Parallel()

	out, err := InjectHead(`<html><body>hi</body></html>`, `<title>X</title>`)
	require.NoError(t, err)
	assert.Contains(t, out, "<title>X</title>")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
