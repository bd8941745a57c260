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
	"goarrg.com/rhi/rootsig/depval"
)

// DescriptorSetLayoutHandle is a native descriptor set layout such as a VkDescriptorSetLayout.
type DescriptorSetLayoutHandle uintptr

// PipelineLayoutHandle is a native pipeline layout such as a VkPipelineLayout.
type PipelineLayoutHandle uintptr

/*
Unique is an exclusively owned native handle, the function releasing it is
attached at creation time and called once by Destroy.
*/
type Unique[H comparable] struct {
	handle  H
	release func(H)
}

var _ Destroyer = (*Unique[PipelineLayoutHandle])(nil)

func NewUnique[H comparable](handle H, release func(H)) Unique[H] {
	return Unique[H]{handle: handle, release: release}
}

func (u *Unique[H]) Get() H {
	return u.handle
}

func (u *Unique[H]) Destroy() {
	if u == nil {
		return
	}
	if u.release != nil {
		u.release(u.handle)
		u.release = nil
	}
	var zero H
	u.handle = zero
}

/*
ObjectFactory creates native objects, implementations wrap the GPU API's device.
Both calls are synchronous, errors are returned to the caller of RebuildLayout.
*/
type ObjectFactory interface {
	CreateDescriptorSetLayout(name string, bindings []DescriptorSetLayoutBinding) (Unique[DescriptorSetLayoutHandle], error)
	CreatePipelineLayout(name string, descriptorSetLayouts []DescriptorSetLayoutHandle) (Unique[PipelineLayoutHandle], error)
}

/*
FileSubstrate loads root signature files and reports when they change,
depval.Store and depval.MemoryStore implement it.
*/
type FileSubstrate interface {
	LoadFileAsBlock(filename string) ([]byte, error)
	DependentFileState(filename string) depval.FileState
	RegisterFileDependency(v *depval.Validation, filename string) error
}

var (
	_ FileSubstrate = (*depval.Store)(nil)
	_ FileSubstrate = (*depval.MemoryStore)(nil)
)
