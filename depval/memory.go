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
	"io/fs"
	"sync"
	"time"

	"goarrg.com/debug"
)

type memoryFile struct {
	data    []byte
	modTime time.Time
}

/*
MemoryStore keeps files in memory, changes made through WriteFile and Remove
invalidate registered Validations before returning.
*/
type MemoryStore struct {
	table dependencyTable

	mtx   sync.Mutex
	files map[string]memoryFile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: map[string]memoryFile{}}
}

func (s *MemoryStore) WriteFile(filename string, data []byte) {
	name := cleanName(filename)
	s.mtx.Lock()
	s.files[name] = memoryFile{data: bytes.Clone(data), modTime: time.Now()}
	s.mtx.Unlock()
	s.table.fire(name)
}

func (s *MemoryStore) Remove(filename string) {
	name := cleanName(filename)
	s.mtx.Lock()
	delete(s.files, name)
	s.mtx.Unlock()
	s.table.fire(name)
}

func (s *MemoryStore) LoadFileAsBlock(filename string) ([]byte, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	f, ok := s.files[cleanName(filename)]
	if !ok {
		return nil, debug.ErrorWrapf(fs.ErrNotExist, "Failed to open %q", filename)
	}
	return bytes.Clone(f.data), nil
}

func (s *MemoryStore) DependentFileState(filename string) FileState {
	name := cleanName(filename)
	state := FileState{Filename: name}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	f, ok := s.files[name]
	if !ok {
		state.Status = FileStatusDoesNotExist
		return state
	}
	state.ModTime = f.modTime
	state.Size = int64(len(f.data))
	return state
}

func (s *MemoryStore) RegisterFileDependency(v *Validation, filename string) error {
	s.table.register(v, cleanName(filename))
	return nil
}
