package filesystem

import (
	"fmt"
	"os"

	"speech-clipper/domain/clip"
)

// Checker implements clip.FileChecker using the os package
type Checker struct{}

// NewChecker creates a new filesystem checker
func NewChecker() *Checker {
	return &Checker{}
}

// IsRegularFile returns true if path exists and is a regular file.
// Symlinks are followed.
func (c *Checker) IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// EnsureDir creates dir and any missing parents. An existing directory is not an error.
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Ensure Checker implements clip.FileChecker
var _ clip.FileChecker = (*Checker)(nil)
