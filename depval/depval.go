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

/*
Package depval tracks whether assets loaded from files are still up to date.

A Validation starts with a validation index of 0, any change to a file it was
registered against increments the index. Assets keep their Validation and
compare the index against 0 to decide if they need to be reloaded.
*/
package depval

import (
	"bytes"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"goarrg.com/debug"
)

var instance = struct {
	logger *debug.Logger
}{
	logger: debug.NewLogger("rootsig", "depval"),
}

func SetLogLevel(l uint32) {
	instance.logger.SetLevel(l)
}

type Validation struct {
	index atomic.Uint32

	mtx        sync.Mutex
	dependents []*Validation
}

func New() *Validation {
	return &Validation{}
}

// ValidationIndex returns the number of changes observed since creation, nonzero means stale.
func (v *Validation) ValidationIndex() uint32 {
	return v.index.Load()
}

// OnChange marks v and everything depending on v as stale.
func (v *Validation) OnChange() {
	v.index.Add(1)

	v.mtx.Lock()
	dependents := v.dependents
	v.mtx.Unlock()

	for _, d := range dependents {
		d.OnChange()
	}
}

/*
RegisterDependency makes v stale whenever dependency changes.
Cycles are not detected and will recurse forever on change.
*/
func (v *Validation) RegisterDependency(dependency *Validation) {
	dependency.mtx.Lock()
	dependency.dependents = append(dependency.dependents, v)
	dependency.mtx.Unlock()
}

type FileStatus uint32

const (
	FileStatusNormal FileStatus = iota
	FileStatusDoesNotExist
)

func (s FileStatus) String() string {
	switch s {
	case FileStatusNormal:
		return "Normal"
	case FileStatusDoesNotExist:
		return "DoesNotExist"
	}
	return fmt.Sprintf("FileStatus(%d)", uint32(s))
}

// FileState is a snapshot of a file taken when it was loaded.
type FileState struct {
	Filename string
	ModTime  time.Time
	Size     int64
	Status   FileStatus
}

func (s FileState) MarshalJSON() ([]byte, error) {
	buff := bytes.Buffer{}
	buff.WriteString("{")

	buff.WriteString(fmt.Sprintf("\"filename\": %q,", s.Filename))
	buff.WriteString(fmt.Sprintf("\"modTime\": %q,", s.ModTime.UTC().Format(time.RFC3339Nano)))
	buff.WriteString(fmt.Sprintf("\"size\": %d,", s.Size))
	buff.WriteString(fmt.Sprintf("\"status\": %q", s.Status.String()))

	buff.WriteString("}")
	return buff.Bytes(), nil
}

// Changed reports if other describes a different version of the same file.
func (s FileState) Changed(other FileState) bool {
	return s.Status != other.Status || s.Size != other.Size || !s.ModTime.Equal(other.ModTime)
}

func cleanName(filename string) string {
	return path.Clean(filename)
}

// dependencyTable maps file names to the validations registered against them.
type dependencyTable struct {
	mtx          sync.Mutex
	dependencies map[string][]*Validation
}

func (t *dependencyTable) register(v *Validation, filename string) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.dependencies == nil {
		t.dependencies = map[string][]*Validation{}
	}
	t.dependencies[filename] = append(t.dependencies[filename], v)
}

// fire invalidates and forgets every validation registered against filename.
func (t *dependencyTable) fire(filename string) int {
	t.mtx.Lock()
	validations := t.dependencies[filename]
	delete(t.dependencies, filename)
	t.mtx.Unlock()

	for _, v := range validations {
		v.OnChange()
	}
	return len(validations)
}
