package wiki

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageFrontMatter(t *testing.T) {
	raw := []byte("title: Getting Started\ntags: go, wiki, Go\nauthor: sam\n\n# Hello\n\nbody text\n")
	page, err := parsePage("docs/getting-started", raw)
	require.NoError(t, err)

	assert.Equal(t, "Getting Started", page.Title)
	assert.Equal(t, []string{"go", "wiki", "Go"}, page.Tags)
	assert.Equal(t, "sam", page.Meta["author"])
	assert.Equal(t, "# Hello\n\nbody text", page.Body)
}

func TestParsePageWithoutHeader(t *testing.T) {
	raw := []byte("just a body line\n\nand another paragraph\n")
	page, err := parsePage("scratch", raw)
	require.NoError(t, err)

	assert.Empty(t, page.Title)
	assert.Empty(t, page.Tags)
	assert.Equal(t, "just a body line\n\nand another paragraph", page.Body)
}

func TestParsePageMissingOptionalFields(t *testing.T) {
	raw := []byte("title: Bare\n\ncontent\n")
	page, err := parsePage("bare", raw)
	require.NoError(t, err)

	assert.Equal(t, "Bare", page.Title)
	assert.Empty(t, page.Tags)
	assert.Empty(t, page.Meta)
}

func TestSerializeRoundTrip(t *testing.T) {
	page := &Page{
		URL:   "guides/setup",
		Title: "Setup Guide",
		Tags:  []string{"guide", "setup"},
		Body:  "Step one.\n\nStep two.",
		Meta:  map[string]string{"author": "sam"},
	}

	parsed, err := parsePage(page.URL, page.serialize())
	require.NoError(t, err)

	assert.Equal(t, page.Title, parsed.Title)
	assert.Equal(t, page.Tags, parsed.Tags)
	assert.Equal(t, page.Body, parsed.Body)
	assert.Equal(t, page.Meta, parsed.Meta)
}

func TestRoundTripKeepsTitlesVerbatim(t *testing.T) {
	// Values that scalar-typed parsers mangle must come back unchanged.
	titles := []string{"3.10", "007", "[WIP] Notes", "yes", "2024-01-02", "Go: The Language"}
	for _, title := range titles {
		page := &Page{URL: "t", Title: title, Body: "body"}
		parsed, err := parsePage(page.URL, page.serialize())
		require.NoError(t, err)
		assert.Equal(t, title, parsed.Title, "title %q", title)
		assert.Equal(t, "body", parsed.Body, "title %q", title)
	}
}

func TestDisplayTitleDerivedFromURL(t *testing.T) {
	page := NewBarePage("docs/getting_started-now")
	assert.Equal(t, "Getting Started Now", page.DisplayTitle())

	page.Title = "Explicit"
	assert.Equal(t, "Explicit", page.DisplayTitle())
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitTags(" a, b ,c,,a "))
	assert.Empty(t, SplitTags("  ,  "))
}

func TestHasTag(t *testing.T) {
	page := &Page{Tags: []string{"Go", "wiki"}}

	assert.True(t, page.HasTag("Go", false))
	assert.False(t, page.HasTag("go", false))
	assert.True(t, page.HasTag("go", true))
	assert.False(t, page.HasTag("rust", true))
}
