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
	"fmt"
	"sync"
	"sync/atomic"

	"goarrg.com/debug"
	"goarrg.com/rhi/rootsig/depval"
	"goarrg.com/rhi/rootsig/internal/util"
)

/*
PipelineLayout owns the native descriptor set layouts and pipeline layout built
from a root signature file and rebuilds them when the file changes.

ShareRootSignature may be called from any goroutine. Everything else, including
RebuildLayout, must be called from the goroutine that owns native object
creation. Handles returned by DescriptorSetLayout and Underlying are only valid
until the next rebuild.
*/
type PipelineLayout struct {
	noCopy util.NoCopy

	files  FileSubstrate
	config Config

	rootSignatureLock    sync.Mutex
	rootSignature        *RootSignature
	pendingLayoutRebuild atomic.Bool

	// the last failed load, retried once its validation changes
	failedLoad    *depval.Validation
	failedLoadErr error

	id                   string
	descriptorSetLayouts []descriptorSetLayout
	pipelineLayout       PipelineLayoutHandle
	built                bool
	owned                ownedHandles
}

// NewPipelineLayout loads rootSignatureCfg from files and builds the native layouts.
func NewPipelineLayout(factory ObjectFactory, files FileSubstrate, rootSignatureCfg string) (*PipelineLayout, error) {
	return NewPipelineLayoutWithConfig(factory, files, Config{RootSignature: rootSignatureCfg})
}

func NewPipelineLayoutWithConfig(factory ObjectFactory, files FileSubstrate, config Config) (*PipelineLayout, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	instance.logger.VPrintf("Pipeline layout config: %s", prettyString(&config))

	l := &PipelineLayout{
		files:  files,
		config: config,
	}
	l.noCopy.Init()
	l.pendingLayoutRebuild.Store(true)

	if err := l.RebuildLayout(factory); err != nil {
		l.noCopy.Close()
		return nil, err
	}
	return l, nil
}

/*
ShareRootSignature returns the current root signature, reloading it first if
none is loaded or the file changed since it was loaded. A reload marks the
native layouts for rebuild. If the reload fails the previous root signature is
kept and the error is returned, the same error is returned without loading
again until the file changes.
*/
func (l *PipelineLayout) ShareRootSignature() (*RootSignature, error) {
	l.noCopy.Check()

	l.rootSignatureLock.Lock()
	defer l.rootSignatureLock.Unlock()

	if l.rootSignature == nil || l.rootSignature.depVal.ValidationIndex() != 0 {
		if l.failedLoad != nil && l.failedLoad.ValidationIndex() == 0 {
			return nil, l.failedLoadErr
		}
		sig, depVal, err := loadRootSignature(l.files, l.config.RootSignature)
		if err != nil {
			l.failedLoad = depVal
			l.failedLoadErr = err
			return nil, err
		}
		l.failedLoad = nil
		l.failedLoadErr = nil
		l.rootSignature = sig
		l.pendingLayoutRebuild.Store(true)
	}
	return l.rootSignature, nil
}

func (l *PipelineLayout) rootSignatureStale() bool {
	l.rootSignatureLock.Lock()
	defer l.rootSignatureLock.Unlock()
	return l.rootSignature == nil || l.rootSignature.depVal.ValidationIndex() != 0
}

// RebuildPending reports if the next RebuildLayout will recreate the native layouts.
func (l *PipelineLayout) RebuildPending() bool {
	l.noCopy.Check()
	return !l.built || l.pendingLayoutRebuild.Load() || l.rootSignatureStale()
}

/*
RebuildLayout recreates the native layouts if the root signature changed,
otherwise it does nothing. If creating any native object fails, every native
object is destroyed and the error is returned, the next call tries again.
*/
func (l *PipelineLayout) RebuildLayout(factory ObjectFactory) error {
	l.noCopy.Check()

	if l.built && !l.pendingLayoutRebuild.Load() && !l.rootSignatureStale() {
		return nil
	}

	rootSig, err := l.ShareRootSignature()
	if err != nil {
		return err
	}

	sets := make([]descriptorSetLayout, 0, len(rootSig.descriptorSets))
	for i := range rootSig.descriptorSets {
		set, err := newDescriptorSetLayout(&rootSig.descriptorSets[i], l.config.SlotAssignment)
		if err != nil {
			return err
		}
		sets = append(sets, set)
	}

	l.releaseLayouts()
	instance.logger.IPrintf("Rebuilding pipeline layout %q with %d descriptor sets", rootSig.filename, len(sets))

	for i := range sets {
		if err := l.owned.createDescriptorSetLayout(factory, &sets[i]); err != nil {
			l.owned.release()
			return err
		}
	}
	handle, err := l.owned.createPipelineLayout(factory, rootSig.filename, sets)
	if err != nil {
		l.owned.release()
		return err
	}

	l.id = rootSig.ID()
	l.descriptorSetLayouts = sets
	l.pipelineLayout = handle
	l.built = true

	// a reload on another goroutine while building leaves the rebuild pending
	l.rootSignatureLock.Lock()
	if l.rootSignature == rootSig {
		l.pendingLayoutRebuild.Store(false)
	}
	l.rootSignatureLock.Unlock()

	return nil
}

func (l *PipelineLayout) releaseLayouts() {
	l.owned.release()
	l.id = ""
	l.descriptorSetLayouts = nil
	l.pipelineLayout = 0
	l.built = false
}

func (l *PipelineLayout) NumDescriptorSetLayouts() int {
	l.noCopy.Check()
	return len(l.descriptorSetLayouts)
}

func (l *PipelineLayout) DescriptorSetLayout(index int) DescriptorSetLayoutHandle {
	l.noCopy.Check()
	if index < 0 || index >= len(l.descriptorSetLayouts) {
		abort("Trying to get descriptor set layout %d while layout has %d", index, len(l.descriptorSetLayouts))
	}
	return l.descriptorSetLayouts[index].handle
}

// DescriptorSetLayoutBindings returns the bindings the layout at index was created with.
func (l *PipelineLayout) DescriptorSetLayoutBindings(index int) []DescriptorSetLayoutBinding {
	l.noCopy.Check()
	if index < 0 || index >= len(l.descriptorSetLayouts) {
		abort("Trying to get descriptor set layout %d while layout has %d", index, len(l.descriptorSetLayouts))
	}
	bindings := make([]DescriptorSetLayoutBinding, len(l.descriptorSetLayouts[index].bindings))
	copy(bindings, l.descriptorSetLayouts[index].bindings)
	return bindings
}

// Underlying returns the native pipeline layout, 0 if the last rebuild failed.
func (l *PipelineLayout) Underlying() PipelineLayoutHandle {
	l.noCopy.Check()
	return l.pipelineLayout
}

// Validate checks that numDescriptorSets sets can be bound with this layout.
func (l *PipelineLayout) Validate(numDescriptorSets int) error {
	l.noCopy.Check()
	if !l.built {
		return debug.Errorf("Pipeline layout %q has no native objects", l.config.RootSignature)
	}
	if numDescriptorSets != len(l.descriptorSetLayouts) {
		return debug.Errorf("DescriptorSet count mismatch between given sets and pipeline layout: expecting %d sets given %d sets",
			len(l.descriptorSetLayouts), numDescriptorSets)
	}
	return nil
}

// Destroy releases all native objects, l must not be used afterwards.
func (l *PipelineLayout) Destroy() {
	if l == nil {
		return
	}
	l.noCopy.Check()
	l.releaseLayouts()

	l.rootSignatureLock.Lock()
	l.rootSignature = nil
	l.failedLoad = nil
	l.failedLoadErr = nil
	l.rootSignatureLock.Unlock()

	l.noCopy.Close()
}

func (l *PipelineLayout) MarshalJSON() ([]byte, error) {
	buff := bytes.Buffer{}
	buff.WriteString("{")

	buff.WriteString(fmt.Sprintf("\"id\": %q,", l.id))
	buff.WriteString(fmt.Sprintf("\"name\": %q,", l.config.RootSignature))
	buff.WriteString(fmt.Sprintf("\"pipelineLayout\": %q,", toHex(l.pipelineLayout)))
	buff.WriteString(fmt.Sprintf("\"rebuildPending\": %t,", l.pendingLayoutRebuild.Load()))
	buff.WriteString(fmt.Sprintf("\"owned\": %s,", jsonString(&l.owned)))

	buff.WriteString("\"descriptorSetLayouts\": [")
	if len(l.descriptorSetLayouts) > 0 {
		for i := range l.descriptorSetLayouts {
			buff.WriteString(fmt.Sprintf("%s,", jsonString(&l.descriptorSetLayouts[i])))
		}
		buff.Truncate(buff.Len() - 1)
	}
	buff.WriteString("]")

	buff.WriteString("}")
	return buff.Bytes(), nil
}
