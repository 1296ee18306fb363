// Package sink writes transferred item bytes to a local directory.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrExists is returned when the destination file already exists.
// Existing files are never overwritten.
var ErrExists = errors.New("destination already exists")

// ErrInvalidName is returned for names that are empty or resolve outside the
// sink directory.
var ErrInvalidName = errors.New("invalid file name")

// WriteError describes a failed local write.
type WriteError struct {
	Name string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("write %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Sink writes files under a single local directory.
type Sink struct {
	dir string
}

// New returns a sink rooted at dir. The directory is not created until
// Ensure is called.
func New(dir string) *Sink {
	return &Sink{dir: dir}
}

// Dir returns the sink's root directory.
func (s *Sink) Dir() string {
	return s.dir
}

// Ensure creates the root directory (and parents) if it does not exist.
func (s *Sink) Ensure() error {
	if strings.TrimSpace(s.dir) == "" {
		return fmt.Errorf("output directory is empty")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

// Resolve returns the local path for name. The name is used verbatim; it is
// only rejected when it is empty or would escape the root directory.
func (s *Sink) Resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", &WriteError{Name: name, Err: ErrInvalidName}
	}
	full := filepath.Join(s.dir, name)
	rel, err := filepath.Rel(s.dir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &WriteError{Name: name, Err: ErrInvalidName}
	}
	return full, nil
}

// Write copies r into a new file called name and returns its path and the
// number of bytes written.
//
// The file is created exclusively: a name that already exists fails with
// ErrExists. On any failure the partially written file is removed, so a
// failed write never leaves a file behind.
func (s *Sink) Write(ctx context.Context, name string, r io.Reader) (string, int64, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return "", 0, err
	}
	if err := ctx.Err(); err != nil {
		return path, 0, &WriteError{Name: name, Path: path, Err: err}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			err = ErrExists
		}
		return path, 0, &WriteError{Name: name, Path: path, Err: err}
	}

	n, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(path)
		return path, n, &WriteError{Name: name, Path: path, Err: copyErr}
	}
	return path, n, nil
}

// ctxReader stops a copy once its context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
