// Package workdir manages the scratch directory scoped to one document:
// chunk_NNNN files hold original fragment bodies, output_chunk_NNNN files
// hold transformed bodies. The directory location is deterministic per
// output target so a resumed run finds the artifacts of the previous one.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Dir is the scratch directory for one document.
type Dir struct {
	path string
}

// ForTarget opens (creating if needed) the scratch directory tied to an
// output target. A stdout target has no stable path to derive from, so it
// gets a one-shot temp directory instead, named with a fresh session ID.
func ForTarget(target string) (*Dir, error) {
	var path string
	if target == "" || target == "-" {
		path = filepath.Join(os.TempDir(), "reflow-"+uuid.New().String())
	} else {
		path = target + ".reflow-work"
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the scratch directory location.
func (d *Dir) Path() string {
	return d.path
}

// WriteArtifact stores one fragment body under name.
func (d *Dir) WriteArtifact(name, text string) error {
	if err := os.WriteFile(filepath.Join(d.path, name), []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// ReadArtifact loads a fragment body. ok is false when the artifact does
// not exist; other read failures are returned as errors.
func (d *Dir) ReadArtifact(name string) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(d.path, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), true, nil
}

// HasArtifact reports whether name exists in the scratch directory.
func (d *Dir) HasArtifact(name string) bool {
	_, err := os.Stat(filepath.Join(d.path, name))
	return err == nil
}

// Remove deletes the scratch directory and everything in it. Called on
// clean completion; an interrupted run keeps it for resume.
func (d *Dir) Remove() error {
	return os.RemoveAll(d.path)
}
