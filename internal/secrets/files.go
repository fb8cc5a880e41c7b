package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/privatwolke/opencce/internal/utils"
)

// ResolvedFile is an input file and the container directory it is filed under.
type ResolvedFile struct {
	Path      string
	Directory string
}

// ResolveFiles expands user-provided paths, directories and globs.
//
// Literal paths are passed through even when they do not exist, so the
// caller can report them per item. Directories are walked recursively and
// keep their hierarchy below the directory's own name. Glob matches ("**"
// supported) are filed at the container root. Patterns that match nothing
// are returned in unmatched.
func ResolveFiles(patterns []string, baseDir string) (files []ResolvedFile, unmatched []string, err error) {
	seen := make(map[string]bool)

	add := func(f ResolvedFile) {
		if !seen[f.Path] {
			seen[f.Path] = true
			files = append(files, f)
		}
	}

	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, baseDir)
		if err != nil {
			return nil, nil, err
		}
		if len(resolved) == 0 {
			unmatched = append(unmatched, pattern)
			continue
		}
		for _, f := range resolved {
			add(f)
		}
	}

	return files, unmatched, nil
}

func resolvePattern(pattern string, baseDir string) ([]ResolvedFile, error) {
	absPattern := pattern
	if !filepath.IsAbs(pattern) {
		absPattern = filepath.Join(baseDir, pattern)
	}

	info, err := os.Stat(absPattern)
	if err == nil && info.IsDir() {
		return findFilesInDir(absPattern)
	}

	if err != nil && strings.ContainsAny(pattern, "*?[{") {
		return expandGlob(absPattern, pattern)
	}

	return []ResolvedFile{{Path: absPattern}}, nil
}

func expandGlob(absPattern, pattern string) ([]ResolvedFile, error) {
	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	var files []ResolvedFile
	for _, m := range matches {
		if utils.IsRegularFile(m) {
			files = append(files, ResolvedFile{Path: m})
		}
	}
	return files, nil
}

func findFilesInDir(dir string) ([]ResolvedFile, error) {
	var files []ResolvedFile
	root := filepath.Base(dir)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, filepath.Dir(path))
		if err != nil {
			return err
		}
		directory := root
		if rel != "." {
			directory = root + "/" + filepath.ToSlash(rel)
		}
		files = append(files, ResolvedFile{Path: path, Directory: directory})
		return nil
	})

	return files, err
}
