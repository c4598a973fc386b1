package pathutil

import (
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizeForLookup returns a canonical form of path suitable as a map key.
// Symlinks are resolved when the path exists, and case is folded on
// case-insensitive platforms.
func NormalizeForLookup(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	canonical, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		canonical = absPath
	}
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		return strings.ToLower(canonical), nil
	}
	return canonical, nil
}

// Same reports whether two paths refer to the same location.
func Same(a, b string) (bool, error) {
	na, err := NormalizeForLookup(a)
	if err != nil {
		return false, err
	}
	nb, err := NormalizeForLookup(b)
	if err != nil {
		return false, err
	}
	return na == nb, nil
}

// Within reports whether path is root or lies beneath it.
func Within(root, path string) bool {
	nr, err := NormalizeForLookup(root)
	if err != nil {
		return false
	}
	np, err := NormalizeForLookup(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(nr, np)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
