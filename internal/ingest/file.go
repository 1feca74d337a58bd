package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/FunkyDruid/contextrie/internal/source"
)

// SourcesFile is the file name ingest output is written to.
const SourcesFile = "sources.json"

// WriteSources writes sources as indented JSON, creating parent directories.
func WriteSources(path string, sources []source.Source) error {
	if sources == nil {
		sources = []source.Source{}
	}
	data, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return eris.Wrap(err, "ingest: marshal sources")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "ingest: create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "ingest: write %s", path)
	}
	return nil
}

// ReadSources reads a file written by WriteSources and checks ids are unique.
func ReadSources(path string) ([]source.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	var sources []source.Source
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, eris.Wrapf(err, "ingest: decode %s", path)
	}
	if err := source.CheckUnique(sources); err != nil {
		return nil, err
	}
	return sources, nil
}
