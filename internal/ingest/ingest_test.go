package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FunkyDruid/contextrie/internal/source"
	"github.com/FunkyDruid/contextrie/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSourceID_Stable(t *testing.T) {
	a := SourceID("/repo/docs/auth.md")
	assert.Equal(t, a, SourceID("/repo/docs/auth.md"))
	assert.NotEqual(t, a, SourceID("/repo/docs/login.md"))
	assert.Len(t, a, 36)
}

func TestIngest_Variants(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.md", "Users sign in with a password.")
	writeFile(t, dir, "routes.csv", "path,method\n/login,POST\n")
	writeFile(t, dir, "flags.yaml", "sso: true\n")
	writeFile(t, dir, "logo.png", "\x89PNG\x00\x00")

	sources, err := New(PlaceholderMetadata{}).Ingest(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, sources, 3)

	byName := map[string]source.Source{}
	for _, s := range sources {
		byName[filepath.Base(s.Path)] = s
	}

	auth := byName["auth.md"]
	assert.Equal(t, SourceID(filepath.Join(dir, "auth.md")), auth.ID)
	assert.Equal(t, "Title: auth.md", auth.Title)
	assert.Len(t, auth.Keypoints, 3)
	assert.Equal(t, source.Document{Text: "Users sign in with a password."}, auth.Content)

	assert.Equal(t, source.List{Items: []string{"path | method", "/login | POST"}}, byName["routes.csv"].Content)
	assert.Equal(t, source.KindCollection, byName["flags.yaml"].Type())

	// Lexical walk order is kept.
	assert.Equal(t, "auth.md", filepath.Base(sources[0].Path))
	assert.Equal(t, "routes.csv", filepath.Base(sources[2].Path))
}

func TestIngest_StableIDsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "one")

	in := New(PlaceholderMetadata{})
	first, err := in.Ingest(context.Background(), dir)
	require.NoError(t, err)
	writeFile(t, dir, "a.md", "changed")
	second, err := in.Ingest(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestIngest_DuplicatePathRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.md", "x")

	_, err := New(PlaceholderMetadata{}).Ingest(context.Background(), path, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate source")
}

func TestIngest_MetadataErrorFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "x")

	meta := new(MockMetadataGenerator)
	meta.On("Generate", mock.Anything, "x", filepath.Join(dir, "a.md")).Return(nil, errors.New("model down"))

	_, err := New(meta).Ingest(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model down")
}

func TestIngest_ParseErrorFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", "{")

	_, err := New(PlaceholderMetadata{}).Ingest(context.Background(), dir)
	assert.ErrorContains(t, err, "ingest: parse")
}

func TestIngest_CacheReuse(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "same content")
	st := newTestStore(t)

	meta := new(MockMetadataGenerator)
	meta.On("Generate", mock.Anything, "same content", mock.Anything).
		Return(&Metadata{Title: "Generated", Description: "d", Keypoints: []string{"k"}}, nil).Once()

	in := New(meta, WithCache(st))
	first, err := in.Ingest(context.Background(), dir)
	require.NoError(t, err)
	second, err := in.Ingest(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "Generated", first[0].Title)
	assert.Equal(t, first, second)
	meta.AssertNumberOfCalls(t, "Generate", 1)
}

func TestIngest_CacheIdenticalFilesKeepOwnMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha.txt", "shared body")
	writeFile(t, dir, "beta.txt", "shared body")
	st := newTestStore(t)

	in := New(PlaceholderMetadata{}, WithCache(st))
	for range 2 {
		sources, err := in.Ingest(context.Background(), dir)
		require.NoError(t, err)
		require.Len(t, sources, 2)
		assert.Equal(t, "Title: alpha.txt", sources[0].Title)
		assert.Equal(t, "Title: beta.txt", sources[1].Title)
	}
}

func TestIngest_CacheIgnoresOtherGenerator(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "body")
	st := newTestStore(t)

	_, err := New(PlaceholderMetadata{}, WithCache(st)).Ingest(context.Background(), dir)
	require.NoError(t, err)

	meta := new(MockMetadataGenerator)
	meta.On("Generate", mock.Anything, "body", mock.Anything).Return(&Metadata{Title: "Fresh"}, nil).Once()

	sources, err := New(meta, WithCache(st)).Ingest(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", sources[0].Title)
	meta.AssertExpectations(t)
}

func TestIngest_CacheFailuresAreNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "body")

	cache := new(MockCache)
	cache.On("GetMetadata", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("locked"))
	cache.On("PutMetadata", mock.Anything, mock.MatchedBy(func(e store.CachedMetadata) bool {
		return e.Generator == "placeholder" && len(e.Hash) == 64
	})).Return(errors.New("disk full"))

	sources, err := New(PlaceholderMetadata{}, WithCache(cache)).Ingest(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	cache.AssertExpectations(t)
}

func TestIngest_ConcurrencyLimit(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		writeFile(t, dir, n+".md", n)
	}

	var inflight, peak atomic.Int32
	meta := new(MockMetadataGenerator)
	meta.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			inflight.Add(-1)
		}).
		Return(&Metadata{Title: "t"}, nil)

	sources, err := New(meta, WithConcurrency(2)).Ingest(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, sources, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestIngester_File(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "one.txt", "hello")
	bin := writeFile(t, dir, "bin.dat", "\x00\x01")

	in := New(PlaceholderMetadata{})
	src, err := in.File(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, src.Path)

	_, err = in.File(context.Background(), bin)
	assert.ErrorIs(t, err, ErrUnsupported)
}
