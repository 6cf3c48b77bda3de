// Package sink provides the destination for received files.
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrExists reports that a file of the requested name is already present.
// Received files never overwrite existing ones.
var ErrExists = errors.New("file already exists")

// Sink stores received files keyed by filename. Create opens a new file
// for writing and fails with ErrExists if the name is already taken.
type Sink interface {
	Create(name string) (io.WriteCloser, error)
}

// Dir is a Sink backed by a local directory.
type Dir struct {
	Path string
}

// Create opens name inside the directory for exclusive creation. The name
// is reduced to its base component first, so a server-supplied path cannot
// escape the directory.
func (d Dir) Create(name string) (io.WriteCloser, error) {
	name = filepath.Base(name)
	f, err := os.OpenFile(filepath.Join(d.Path, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%q: %w", name, ErrExists)
		}
		return nil, err
	}
	return f, nil
}
