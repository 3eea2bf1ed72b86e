package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// RemoveFileNoError removes path, ignoring a missing file and any other failure.
func RemoveFileNoError(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		goutils.UncheckedError(err)
	}
}

// SafeJoinDir joins name onto dir and fails unless the result lies strictly inside dir.
func SafeJoinDir(dir, name string) (string, error) {
	joined := filepath.Join(dir, name)
	rel, err := filepath.Rel(filepath.Clean(dir), joined)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return joined, errors.Errorf("unsafe path join: %q with %q", dir, name)
	}
	return joined, nil
}

// HasParentComponent reports whether an archive entry name contains a ".." element. Both slash
// styles count as separators.
func HasParentComponent(name string) bool {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '/' || r == '\\' || r == os.PathSeparator
	})
	for _, part := range parts {
		if part == ".." {
			return true
		}
	}
	return false
}
