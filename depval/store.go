/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package depval

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/fsnotify/fsnotify"
	"goarrg.com/asset"
	"goarrg.com/debug"
)

/*
Store loads files from a directory and invalidates registered Validations when
the files change on disk. File names are slash separated and relative to the
directory given to NewStore.
*/
type Store struct {
	root    string
	fs      *asset.FileSystem
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup

	table dependencyTable

	mtx         sync.Mutex
	watchedDirs map[string]struct{}
}

func NewStore(dir string) (*Store, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to resolve asset dir: %q", dir)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create file watcher")
	}

	s := &Store{
		root:        root,
		fs:          asset.DirFS(root),
		watcher:     watcher,
		watchedDirs: map[string]struct{}{},
	}
	s.wg.Add(1)
	go s.watch()
	return s, nil
}

func (s *Store) watch() {
	defer s.wg.Done()
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			switch {
			case event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Remove == fsnotify.Remove ||
				event.Op&fsnotify.Rename == fsnotify.Rename:
				s.onEvent(event.Name)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			instance.logger.WPrintf("File watcher error: %v", err)
		}
	}
}

func (s *Store) onEvent(path string) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return
	}
	name := cleanName(filepath.ToSlash(rel))
	if n := s.table.fire(name); n > 0 {
		instance.logger.VPrintf("File %q changed, invalidated %d dependencies", name, n)
	}
}

func (s *Store) osPath(filename string) string {
	return filepath.Join(s.root, filepath.FromSlash(cleanName(filename)))
}

// LoadFileAsBlock returns a copy of the file's contents.
func (s *Store) LoadFileAsBlock(filename string) ([]byte, error) {
	f, err := s.fs.Open(cleanName(filename))
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to open %q", filename)
	}
	a := f.(*asset.File)
	defer a.Close()

	if a.Size() == 0 {
		return []byte{}, nil
	}
	return bytes.Clone(unsafe.Slice((*byte)(unsafe.Pointer(a.Uintptr())), a.Size())), nil
}

func (s *Store) DependentFileState(filename string) FileState {
	state := FileState{Filename: cleanName(filename)}
	info, err := os.Stat(s.osPath(filename))
	if err != nil {
		state.Status = FileStatusDoesNotExist
		return state
	}
	state.ModTime = info.ModTime()
	state.Size = info.Size()
	return state
}

/*
RegisterFileDependency invalidates v the next time filename is written,
created, removed or renamed.
*/
func (s *Store) RegisterFileDependency(v *Validation, filename string) error {
	dir := filepath.Dir(s.osPath(filename))

	s.mtx.Lock()
	if _, ok := s.watchedDirs[dir]; !ok {
		if err := s.watcher.Add(dir); err != nil {
			s.mtx.Unlock()
			return debug.ErrorWrapf(err, "Failed to watch %q", dir)
		}
		s.watchedDirs[dir] = struct{}{}
	}
	s.mtx.Unlock()

	s.table.register(v, cleanName(filename))
	return nil
}

// Close stops watching for changes, registered Validations will no longer be invalidated.
func (s *Store) Close() error {
	err := s.watcher.Close()
	s.wg.Wait()
	if err != nil {
		return debug.ErrorWrapf(err, "Failed to close file watcher")
	}
	return nil
}
