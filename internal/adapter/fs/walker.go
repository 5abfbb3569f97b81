package fs

import (
	iofs "io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"kwsearch/internal/port"
)

type Walker struct {
	includes []string
	excludes []string
}

var _ port.FileWalker = (*Walker)(nil)

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Walk returns matching regular files under root sorted by path. Patterns
// are matched against slash-separated paths relative to root; a directory
// is pruned when "<dir>/" matches an exclude.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []port.FileInfo
	err = filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			if rel != "." && matchAny(w.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		case !d.Type().IsRegular():
			return nil
		case !matchAny(w.includes, rel) || matchAny(w.excludes, rel):
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, port.FileInfo{
			Path:    path,
			ModTime: info.ModTime().Unix(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// Expand resolves pattern to the files it names. A pattern without glob
// metacharacters is returned as is, whether or not the file exists.
func Expand(pattern string, excludes []string) ([]string, error) {
	base, rel := doublestar.SplitPattern(filepath.ToSlash(pattern))
	if rel == "" || !hasMeta(rel) {
		return []string{pattern}, nil
	}
	if !doublestar.ValidatePattern(rel) {
		return nil, doublestar.ErrBadPattern
	}

	infos, err := NewWalker([]string{rel}, excludes).Walk(filepath.FromSlash(base))
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(infos))
	for i, info := range infos {
		paths[i] = info.Path
	}
	return paths, nil
}

func hasMeta(p string) bool {
	for _, c := range p {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
