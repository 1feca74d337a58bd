package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FunkyDruid/contextrie/internal/llm"
	"github.com/FunkyDruid/contextrie/internal/store"
)

// MockMetadataGenerator is a mock for MetadataGenerator.
type MockMetadataGenerator struct {
	mock.Mock
}

func (m *MockMetadataGenerator) Generate(ctx context.Context, content, path string) (*Metadata, error) {
	args := m.Called(ctx, content, path)
	if v := args.Get(0); v != nil {
		return v.(*Metadata), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockGenerator is a mock for llm.Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*llm.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCache is a mock for MetadataCache.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetMetadata(ctx context.Context, hash, path string) (*store.CachedMetadata, error) {
	args := m.Called(ctx, hash, path)
	if v := args.Get(0); v != nil {
		return v.(*store.CachedMetadata), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCache) PutMetadata(ctx context.Context, entry store.CachedMetadata) error {
	return m.Called(ctx, entry).Error(0)
}

// writeFile writes content under dir, creating parents, and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
