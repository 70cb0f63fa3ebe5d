package wiki

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func savePage(t *testing.T, store *Store, url, title string, tags []string, body string) *Page {
	t.Helper()
	page, err := store.GetBare(url)
	require.NoError(t, err)
	page.Title = title
	page.Tags = tags
	page.Body = body
	require.NoError(t, store.Save(page))
	return page
}

func TestSaveGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "docs/intro", "Introduction", []string{"docs", "start"}, "Welcome to the wiki.")

	got, err := store.Get("docs/intro")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "docs/intro", got.URL)
	assert.Equal(t, "Introduction", got.Title)
	assert.Equal(t, []string{"docs", "start"}, got.Tags)
	assert.Equal(t, "Welcome to the wiki.", got.Body)
}

func TestGetAbsentPage(t *testing.T) {
	store := newTestStore(t)

	page, err := store.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, page)

	_, err = store.GetOrFail("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "note", "First", nil, "v1")
	savePage(t, store, "note", "Second", nil, "v2")

	got, err := store.GetOrFail("note")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Title)
	assert.Equal(t, "v2", got.Body)
}

func TestNormalizeURL(t *testing.T) {
	url, err := NormalizeURL("/Docs//Intro/")
	require.NoError(t, err)
	assert.Equal(t, "docs/intro", url)

	for _, bad := range []string{"", "   ", "../etc/passwd", "a/../b", "spaces here", "semi;colon"} {
		_, err := NormalizeURL(bad)
		assert.ErrorIs(t, err, ErrInvalidURL, "url %q", bad)
	}
}

func TestMove(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "old-name", "Kept Title", []string{"keep"}, "kept body")

	require.NoError(t, store.Move("old-name", "new-name"))

	gone, err := store.Get("old-name")
	require.NoError(t, err)
	assert.Nil(t, gone)

	moved, err := store.GetOrFail("new-name")
	require.NoError(t, err)
	assert.Equal(t, "Kept Title", moved.Title)
	assert.Equal(t, []string{"keep"}, moved.Tags)
	assert.Equal(t, "kept body", moved.Body)
}

func TestMoveConflictLeavesBothUntouched(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "src", "Source", nil, "source body")
	savePage(t, store, "dst", "Destination", nil, "destination body")

	err := store.Move("src", "dst")
	assert.ErrorIs(t, err, ErrMoveConflict)

	src, err := store.GetOrFail("src")
	require.NoError(t, err)
	assert.Equal(t, "source body", src.Body)

	dst, err := store.GetOrFail("dst")
	require.NoError(t, err)
	assert.Equal(t, "destination body", dst.Body)
}

func TestMoveAbsentSource(t *testing.T) {
	store := newTestStore(t)
	assert.ErrorIs(t, store.Move("nope", "anywhere"), ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "doomed", "Doomed", nil, "bye")

	require.NoError(t, store.Delete("doomed"))

	page, err := store.Get("doomed")
	require.NoError(t, err)
	assert.Nil(t, page)

	// Erroring policy: a second delete fails with ErrNotFound.
	assert.ErrorIs(t, store.Delete("doomed"), ErrNotFound)
}

func TestIndexDeterministicOrder(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "zebra", "Z", nil, "z")
	savePage(t, store, "alpha", "A", nil, "a")
	savePage(t, store, "docs/mid", "M", nil, "m")

	pages, err := store.Index()
	require.NoError(t, err)

	urls := []string{}
	for _, p := range pages {
		urls = append(urls, p.URL)
	}
	assert.Equal(t, []string{"alpha", "docs/mid", "zebra"}, urls)

	// Stable across repeated calls.
	again, err := store.Index()
	require.NoError(t, err)
	againURLs := []string{}
	for _, p := range again {
		againURLs = append(againURLs, p.URL)
	}
	assert.Equal(t, urls, againURLs)
}

func TestIndexIgnoresForeignFiles(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "real", "Real", nil, "real")
	require.NoError(t, os.WriteFile(filepath.Join(store.root, "stray.txt"), []byte("not a page"), 0o644))

	pages, err := store.Index()
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "real", pages[0].URL)
}

func TestTagsIndex(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "a", "A", []string{"go", "wiki"}, "")
	savePage(t, store, "b", "B", []string{"go"}, "")

	index, err := store.Tags()
	require.NoError(t, err)
	require.Len(t, index["go"], 2)
	require.Len(t, index["wiki"], 1)
	assert.Equal(t, "a", index["wiki"][0].URL)

	tagged, err := store.IndexByTag("go")
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	none, err := store.IndexByTag("GO") // exact match only
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "cooking", "Pasta Recipes", nil, "Boil water first.")
	savePage(t, store, "travel", "Rome Guide", nil, "Eat pasta in Rome.")

	both, err := store.Search("pasta", true)
	require.NoError(t, err)
	assert.Len(t, both, 2)

	title, err := store.Search("Pasta", false)
	require.NoError(t, err)
	require.Len(t, title, 1)
	assert.Equal(t, "cooking", title[0].URL)
}

func TestSearchByTagsAnyMatchIgnoreCase(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "one", "One", []string{"X"}, "")
	savePage(t, store, "two", "Two", []string{"z"}, "")

	results, err := store.SearchByTags([]string{"x", "y"}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "one", results[0].URL)

	exact, err := store.SearchByTags([]string{"x", "y"}, false)
	require.NoError(t, err)
	assert.Empty(t, exact)
}

func TestSearchByTitle(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "one", "Alpha Guide", nil, "")
	savePage(t, store, "two", "Beta Notes", nil, "")

	results, err := store.SearchByTitle([]string{"alpha", "gamma"}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "one", results[0].URL)
}

func TestSearchByBody(t *testing.T) {
	store := newTestStore(t)
	savePage(t, store, "one", "Needle", nil, "nothing here")
	savePage(t, store, "two", "Plain", nil, "the needle is in this body")

	results, err := store.SearchByBody("Needle", true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "two", results[0].URL)
}
