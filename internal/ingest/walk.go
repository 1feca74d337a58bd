package ingest

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Collect expands paths into the regular files to ingest, as absolute
// paths. Directories are walked in lexical order; hidden files and
// directories below a given path are skipped.
func Collect(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, eris.New("ingest: no paths given")
	}

	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: resolve %s", p)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: stat %s", p)
		}
		if !info.IsDir() {
			files = append(files, abs)
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != abs && hidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: walk %s", p)
		}
	}
	return files, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
