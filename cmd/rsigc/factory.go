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

package main

import (
	"goarrg.com/debug"
	"goarrg.com/rhi/rootsig"
)

// recordingFactory hands out placeholder handles, nothing is created on a device.
type recordingFactory struct {
	next uintptr
	live int
}

func (f *recordingFactory) handle() uintptr {
	f.next++
	f.live++
	return f.next
}

func (f *recordingFactory) release() {
	f.live--
}

func (f *recordingFactory) CreateDescriptorSetLayout(name string, bindings []rootsig.DescriptorSetLayoutBinding) (rootsig.Unique[rootsig.DescriptorSetLayoutHandle], error) {
	h := rootsig.DescriptorSetLayoutHandle(f.handle())
	debug.VPrintf("Created descriptor set layout %q with %d bindings: 0x%X", name, len(bindings), uintptr(h))
	return rootsig.NewUnique(h, func(rootsig.DescriptorSetLayoutHandle) { f.release() }), nil
}

func (f *recordingFactory) CreatePipelineLayout(name string, descriptorSetLayouts []rootsig.DescriptorSetLayoutHandle) (rootsig.Unique[rootsig.PipelineLayoutHandle], error) {
	h := rootsig.PipelineLayoutHandle(f.handle())
	debug.VPrintf("Created pipeline layout %q with %d descriptor set layouts: 0x%X", name, len(descriptorSetLayouts), uintptr(h))
	return rootsig.NewUnique(h, func(rootsig.PipelineLayoutHandle) { f.release() }), nil
}
