package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultPointerFile = "DEFAULT"

// Registry manages the artifacts in a single directory and the pointer
// naming which one serves predictions by default.
type Registry struct {
	dir string
}

func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Dir returns the directory this registry manages.
func (r *Registry) Dir() string {
	return r.dir
}

// List returns the artifact filenames in the registry, most recently
// trained last.
func (r *Registry) List() ([]string, error) {
	return listArtifacts(r.dir)
}

// Promote marks the named artifact as the default. The pointer update is
// a temp file plus rename, so there is exactly one default at all times
// and a crash mid-promote leaves the previous default in place.
func (r *Registry) Promote(name string) error {
	path := filepath.Join(r.dir, name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("promoting %s, %w", name, err)
	}

	tmp, err := os.CreateTemp(r.dir, ".default-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(name + "\n"); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(r.dir, defaultPointerFile))
}

// Default loads the promoted bundle. Falls back to the most recently
// trained artifact when nothing has been promoted yet.
func (r *Registry) Default() (*Bundle, error) {
	buf, err := os.ReadFile(filepath.Join(r.dir, defaultPointerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return LoadLatest(r.dir)
		}
		return nil, err
	}
	name := strings.TrimSpace(string(buf))
	if name == "" {
		return nil, ErrNoDefaultArtifact
	}
	return Load(filepath.Join(r.dir, name))
}
