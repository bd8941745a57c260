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

package rootsig

import (
	"bytes"
	"errors"
	"fmt"

	"goarrg.com/rhi/rootsig/depval"
	"goarrg.com/rhi/rootsig/internal/document"
)

const rootSignatureElement = "RootSignature"

/*
RootSignature is the compiled form of a root signature file. It is never
modified after creation so it can be shared between goroutines, a changed file
produces a new RootSignature.
*/
type RootSignature struct {
	filename           string
	descriptorSets     []DescriptorSetSignature
	dependentFileState depval.FileState
	depVal             *depval.Validation
}

/*
NewRootSignature loads and compiles filename. The file is registered with
files before it is read so DependencyValidation reports any change made after
the load.
*/
func NewRootSignature(files FileSubstrate, filename string) (*RootSignature, error) {
	sig, _, err := loadRootSignature(files, filename)
	return sig, err
}

// loadRootSignature also returns the registered validation when compiling fails, it is nil if registering failed.
func loadRootSignature(files FileSubstrate, filename string) (*RootSignature, *depval.Validation, error) {
	depVal := depval.New()
	if err := files.RegisterFileDependency(depVal, filename); err != nil {
		return nil, nil, ErrorLoadFailure{Filename: filename, Err: err}
	}

	sig := RootSignature{
		filename:           filename,
		dependentFileState: files.DependentFileState(filename),
		depVal:             depVal,
	}
	block, err := files.LoadFileAsBlock(filename)
	if err != nil {
		return nil, depVal, ErrorLoadFailure{Filename: filename, Err: err}
	}
	if len(block) == 0 {
		return nil, depVal, ErrorLoadFailure{Filename: filename}
	}

	sig.descriptorSets, err = compileDescriptorSets(filename, block)
	if err != nil {
		return nil, depVal, err
	}

	logRootSignature(filename, &sig)
	return &sig, depVal, nil
}

/*
CompileRootSignature compiles an in memory root signature, name is only used
in errors. The result's DependencyValidation never changes.
*/
func CompileRootSignature(name string, data []byte) (*RootSignature, error) {
	if len(data) == 0 {
		return nil, ErrorLoadFailure{Filename: name}
	}
	sets, err := compileDescriptorSets(name, bytes.Clone(data))
	if err != nil {
		return nil, err
	}
	return &RootSignature{
		filename:           name,
		descriptorSets:     sets,
		dependentFileState: depval.FileState{Filename: name, Size: int64(len(data))},
		depVal:             depval.New(),
	}, nil
}

func compileDescriptorSets(filename string, block []byte) ([]DescriptorSetSignature, error) {
	doc, err := document.Parse(block)
	if err != nil {
		var docErr *document.Error
		if errors.As(err, &docErr) {
			return nil, ErrorSyntax{Filename: filename, Line: docErr.Line, Column: docErr.Column, Message: docErr.Message}
		}
		return nil, ErrorSyntax{Filename: filename, Message: err.Error()}
	}

	// each top level element is either the root signature or a descriptor set
	var descSets []DescriptorSetSignature
	var rootSig []string

	for _, e := range doc.Elements {
		if e.Name == rootSignatureElement {
			for _, a := range e.Attributes {
				if a.Name == "Set" && a.Value != "" {
					rootSig = append(rootSig, a.Value)
				}
			}
			continue
		}

		set := DescriptorSetSignature{Name: e.Name}
		for _, a := range e.Attributes {
			set.Bindings, err = appendBindings(set.Bindings, a.Name)
			if err != nil {
				return nil, ErrorSyntax{Filename: filename, Line: a.Line, Column: a.Column, Message: err.Error()}
			}
		}
		descSets = append(descSets, set)
	}

	// reorder the declared sets into the order the root signature references them
	result := make([]DescriptorSetSignature, 0, len(rootSig))
	for _, name := range rootSig {
		i := indexOfSet(descSets, name)
		if i < 0 {
			return nil, ErrorReference{Filename: filename, Name: name}
		}
		result = append(result, descSets[i].clone())
	}
	return result, nil
}

func indexOfSet(sets []DescriptorSetSignature, name string) int {
	for i := range sets {
		if sets[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *RootSignature) Filename() string {
	return s.filename
}

func (s *RootSignature) NumDescriptorSets() int {
	return len(s.descriptorSets)
}

// DescriptorSet returns a copy of the set at index.
func (s *RootSignature) DescriptorSet(index int) DescriptorSetSignature {
	if index < 0 || index >= len(s.descriptorSets) {
		abort("Trying to get descriptor set %d while root signature has %d", index, len(s.descriptorSets))
	}
	return s.descriptorSets[index].clone()
}

// DescriptorSets returns a copy of all sets in binding order.
func (s *RootSignature) DescriptorSets() []DescriptorSetSignature {
	sets := make([]DescriptorSetSignature, len(s.descriptorSets))
	for i := range s.descriptorSets {
		sets[i] = s.descriptorSets[i].clone()
	}
	return sets
}

func (s *RootSignature) DependentFileState() depval.FileState {
	return s.dependentFileState
}

func (s *RootSignature) DependencyValidation() *depval.Validation {
	return s.depVal
}

// ID identifies the root signature's contents, equal IDs produce equal layouts.
func (s *RootSignature) ID() string {
	ids := make([]any, 0, len(s.descriptorSets))
	for i := range s.descriptorSets {
		ids = append(ids, s.descriptorSets[i].id())
	}
	return genID(ids...)
}

func (s *RootSignature) MarshalJSON() ([]byte, error) {
	buff := bytes.Buffer{}
	buff.WriteString("{")

	buff.WriteString(fmt.Sprintf("\"filename\": %q,", s.filename))
	buff.WriteString(fmt.Sprintf("\"id\": %q,", s.ID()))
	buff.WriteString(fmt.Sprintf("\"fileState\": %s,", jsonString(s.dependentFileState)))
	buff.WriteString(fmt.Sprintf("\"validationIndex\": %d,", s.depVal.ValidationIndex()))

	buff.WriteString("\"descriptorSets\": [")
	if len(s.descriptorSets) > 0 {
		for _, set := range s.descriptorSets {
			buff.WriteString(fmt.Sprintf("%s,", jsonString(set)))
		}
		buff.Truncate(buff.Len() - 1)
	}
	buff.WriteString("]")

	buff.WriteString("}")
	return buff.Bytes(), nil
}
