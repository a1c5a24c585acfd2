// Package filex holds small filesystem helpers shared by the server's log
// and backup directories.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// EnsureDir creates dir (and parents) if needed and returns its absolute
// path. Relative paths are resolved against the working directory.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// ListByModTime returns the regular files in dir matching pattern, oldest
// first. Files with equal modification times are ordered by name.
func ListByModTime(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}

	type entry struct {
		path string
		info os.FileInfo
	}
	entries := make([]entry, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", m, err)
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		entries = append(entries, entry{path: m, info: fi})
	}

	sort.Slice(entries, func(i, j int) bool {
		ti, tj := entries[i].info.ModTime(), entries[j].info.ModTime()
		if ti.Equal(tj) {
			return entries[i].path < entries[j].path
		}
		return ti.Before(tj)
	})

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.path
	}
	return paths, nil
}
