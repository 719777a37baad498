package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"pdfrag/internal/port"
)

// Finder resolves an ingest target into PDF files. A target is a single
// file, a directory (searched recursively) or a doublestar glob.
type Finder struct {
	includes []string
	excludes []string
}

func NewFinder(includes, excludes []string) *Finder {
	if len(includes) == 0 {
		includes = []string{"**/*.pdf", "**/*.PDF"}
	}
	return &Finder{
		includes: includes,
		excludes: excludes,
	}
}

func (f *Finder) Find(target string) ([]port.FileInfo, error) {
	info, err := os.Stat(target)
	switch {
	case err == nil && info.IsDir():
		return f.walk(target)
	case err == nil:
		abs, err := filepath.Abs(target)
		if err != nil {
			return nil, err
		}
		return []port.FileInfo{toFileInfo(abs, info)}, nil
	case os.IsNotExist(err) && isGlob(target):
		return f.glob(target)
	default:
		return nil, fmt.Errorf("failed to stat %s: %w", target, err)
	}
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func (f *Finder) glob(pattern string) ([]port.FileInfo, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []port.FileInfo
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() || f.shouldExclude(filepath.ToSlash(m)) {
			continue
		}
		abs, err := filepath.Abs(m)
		if err != nil {
			return nil, err
		}
		files = append(files, toFileInfo(abs, info))
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (f *Finder) walk(root string) ([]port.FileInfo, error) {
	var files []port.FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && f.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if f.shouldInclude(relPath) && !f.shouldExclude(relPath) {
			files = append(files, toFileInfo(path, info))
		}
		return nil
	})

	return files, err
}

func toFileInfo(path string, info os.FileInfo) port.FileInfo {
	return port.FileInfo{
		Path:    path,
		ModTime: info.ModTime().Unix(),
		Size:    info.Size(),
	}
}

func (f *Finder) shouldInclude(path string) bool {
	for _, pattern := range f.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (f *Finder) shouldExclude(path string) bool {
	for _, pattern := range f.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
