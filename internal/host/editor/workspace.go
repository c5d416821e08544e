package editor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yndnr/linkport/internal/core/domain"
)

// Workspace confines navigation to files below a root directory.
type Workspace struct {
	root string
}

// NewWorkspace returns a workspace rooted at dir, which must be a directory.
func NewWorkspace(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve maps a slash-separated relative path to an existing regular file
// inside the workspace. Paths that are absolute or escape the root are refused.
func (w *Workspace) Resolve(rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", domain.ErrFileNotFound.WithDetails(rel + " is outside the workspace")
	}

	abs := filepath.Join(w.root, local)
	info, err := os.Stat(abs)
	if err != nil {
		return "", domain.ErrFileNotFound.WithDetails(rel).WithCause(err)
	}
	if !info.Mode().IsRegular() {
		return "", domain.ErrFileNotFound.WithDetails(rel + " is not a regular file")
	}
	return abs, nil
}

// LineCount returns the number of lines in the file at abs. A final line
// without a trailing newline still counts.
func LineCount(abs string) (int, error) {
	f, err := os.Open(abs)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	lines := 0
	for {
		line, err := r.ReadSlice('\n')
		if len(line) > 0 {
			lines++
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			// Long line: keep reading the same line without counting again.
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = r.ReadSlice('\n')
			}
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return 0, err
		}
	}
}
