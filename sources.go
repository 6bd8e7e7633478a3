package buildinfo

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// SourceList walks the tree under root and returns every file the keep
// function accepts, in walk order. Hidden directories (".git" and
// friends) are skipped. A nil keep returns every file.
func SourceList(root string, keep func(path string) bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if keep == nil || keep(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
