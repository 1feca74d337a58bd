// Package ingest loads files into sources and generates their shallow
// metadata, caching it by content hash.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FunkyDruid/contextrie/internal/source"
	"github.com/FunkyDruid/contextrie/internal/store"
)

// MetadataCache is the part of store.Store the ingester uses.
type MetadataCache interface {
	GetMetadata(ctx context.Context, hash, path string) (*store.CachedMetadata, error)
	PutMetadata(ctx context.Context, entry store.CachedMetadata) error
}

var _ MetadataCache = (store.Store)(nil)

// Ingester turns files into sources.
type Ingester struct {
	meta        MetadataGenerator
	cache       MetadataCache
	concurrency int
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithCache reuses metadata for content that was ingested before.
func WithCache(c MetadataCache) Option {
	return func(in *Ingester) { in.cache = c }
}

// WithConcurrency caps parallel metadata generation. 0 means no limit.
func WithConcurrency(n int) Option {
	return func(in *Ingester) { in.concurrency = max(0, n) }
}

// New returns an Ingester that describes content with meta.
func New(meta MetadataGenerator, opts ...Option) *Ingester {
	in := &Ingester{meta: meta}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// SourceID is the stable id of the file at absPath.
func SourceID(absPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+absPath)).String()
}

// Ingest loads every file under paths. Sources come back in file order.
// Files no loader can read are skipped with a warning; a path resolving to
// the same file twice is an error.
func (in *Ingester) Ingest(ctx context.Context, paths ...string) ([]source.Source, error) {
	files, err := Collect(paths)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(files))
	ids := make([]string, len(files))
	for i, f := range files {
		id := SourceID(f)
		if prev, ok := seen[id]; ok {
			return nil, eris.Errorf("ingest: duplicate source %s (%s)", id, prev)
		}
		seen[id] = f
		ids[i] = id
	}

	slots := make([]*source.Source, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	if in.concurrency > 0 {
		g.SetLimit(in.concurrency)
	}

	for i, f := range files {
		g.Go(func() error {
			src, err := in.load(gCtx, ids[i], f)
			if errors.Is(err, ErrUnsupported) {
				zap.L().Warn("ingest: skipping unsupported file", zap.String("path", f), zap.Error(err))
				return nil
			}
			if err != nil {
				return err
			}
			slots[i] = &src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]source.Source, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	zap.L().Info("ingest: loaded sources",
		zap.Int("files", len(files)),
		zap.Int("sources", len(out)),
	)
	return out, nil
}

// File ingests a single file.
func (in *Ingester) File(ctx context.Context, path string) (source.Source, error) {
	sources, err := in.Ingest(ctx, path)
	if err != nil {
		return source.Source{}, err
	}
	if len(sources) == 0 {
		return source.Source{}, eris.Wrapf(ErrUnsupported, "ingest: %s", path)
	}
	return sources[0], nil
}

func (in *Ingester) load(ctx context.Context, id, path string) (source.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return source.Source{}, eris.Wrapf(err, "ingest: read %s", path)
	}
	content, err := Parse(path, raw)
	if err != nil {
		return source.Source{}, eris.Wrapf(err, "ingest: parse %s", path)
	}

	src := source.Source{ID: id, Path: path, Content: content}
	md, err := in.metadata(ctx, contentHash(raw), path, source.Text(src))
	if err != nil {
		return source.Source{}, err
	}

	src.Title = md.Title
	src.Description = md.Description
	src.Keypoints = md.Keypoints
	return src, nil
}

func (in *Ingester) metadata(ctx context.Context, hash, path, text string) (*Metadata, error) {
	name := generatorName(in.meta)
	log := zap.L().With(zap.String("path", path), zap.String("hash", hash))

	if in.cache != nil {
		entry, err := in.cache.GetMetadata(ctx, hash, path)
		switch {
		case err != nil:
			log.Warn("ingest: metadata cache lookup failed", zap.Error(err))
		case entry != nil && entry.Generator == name:
			log.Debug("ingest: metadata cache hit")
			return &Metadata{
				Title:       entry.Metadata.Title,
				Description: entry.Metadata.Description,
				Keypoints:   entry.Metadata.Keypoints,
			}, nil
		}
	}

	md, err := in.meta.Generate(ctx, text, path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: generate metadata %s", path)
	}

	if in.cache != nil {
		err := in.cache.PutMetadata(ctx, store.CachedMetadata{
			Hash:      hash,
			Path:      path,
			Generator: name,
			Metadata: store.Metadata{
				Title:       md.Title,
				Description: md.Description,
				Keypoints:   md.Keypoints,
			},
		})
		if err != nil {
			log.Warn("ingest: metadata cache write failed", zap.Error(err))
		}
	}
	return md, nil
}

func contentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
