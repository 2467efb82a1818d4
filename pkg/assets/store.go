// Package assets reads bundled viewer assets: models and environments.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// ErrNotFound is wrapped by ReadAsset when an asset does not exist.
var ErrNotFound = errors.New("asset not found")

// Store is a read-only asset store. Paths are slash separated and
// relative to the store root.
type Store struct {
	fsys fs.FS
}

// New returns a store over fsys.
func New(fsys fs.FS) *Store {
	return &Store{fsys: fsys}
}

// Dir returns a store rooted at a directory on disk.
func Dir(dir string) *Store {
	return New(os.DirFS(dir))
}

func clean(name string) string {
	return path.Clean(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/"))
}

// ReadAsset returns the contents of name.
func (s *Store) ReadAsset(name string) ([]byte, error) {
	p := clean(name)
	if !fs.ValidPath(p) {
		return nil, fmt.Errorf("asset %q: %w", name, ErrNotFound)
	}
	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("asset %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("asset %q: %w", name, err)
	}
	return data, nil
}

// Exists reports whether name is a regular file in the store.
func (s *Store) Exists(name string) bool {
	p := clean(name)
	if !fs.ValidPath(p) {
		return false
	}
	info, err := fs.Stat(s.fsys, p)
	return err == nil && info.Mode().IsRegular()
}

// Models lists the .glb files under models/, sorted.
func (s *Store) Models() ([]string, error) {
	matches, err := fs.Glob(s.fsys, "models/*.glb")
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return matches, nil
}

// Environments lists the directories under envs/ that hold both an IBL
// and a skybox.
func (s *Store) Environments() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, "envs")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list environments: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ibl, sky := EnvironmentPaths(e.Name())
		if s.Exists(ibl) && s.Exists(sky) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// EnvironmentPaths returns the IBL and skybox KTX paths of an environment.
func EnvironmentPaths(name string) (ibl, skybox string) {
	dir := path.Join("envs", name)
	return path.Join(dir, name+"_ibl.ktx"), path.Join(dir, name+"_skybox.ktx")
}
