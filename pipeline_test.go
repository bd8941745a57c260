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
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const testRootSignature = `
RootSignature { Set="Global" Set="Material" }

Material { t0..1 s0 }
Global { b0 }
`

func newTestLayout(t *testing.T, src string) (*PipelineLayout, *fakeFactory, *countingStore) {
	t.Helper()
	store := newCountingStore()
	store.WriteFile("main.rsig", []byte(src))
	factory := newFakeFactory()

	layout, err := NewPipelineLayout(factory, store, "main.rsig")
	require.NoError(t, err)
	t.Cleanup(layout.Destroy)
	return layout, factory, store
}

func TestPipelineLayoutBuild(t *testing.T) {
	layout, factory, store := newTestLayout(t, testRootSignature)

	assert.Equal(t, 1, store.numLoads())
	assert.Equal(t, 2, factory.setLayoutCalls)
	assert.Equal(t, 1, factory.pipelineLayoutCalls)
	assert.Equal(t, 3, factory.numLive())
	assert.Equal(t, 3, layout.owned.len())
	assert.False(t, layout.RebuildPending())

	sig, err := layout.ShareRootSignature()
	require.NoError(t, err)
	require.Equal(t, sig.NumDescriptorSets(), layout.NumDescriptorSetLayouts())
	assert.NotZero(t, layout.Underlying())

	global := layout.DescriptorSetLayout(0)
	material := layout.DescriptorSetLayout(1)
	assert.Equal(t, []DescriptorSetLayoutHandle{global, material}, factory.pipelineSetLayouts[layout.Underlying()])

	assert.Equal(t, []DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: ShaderStageAll},
	}, factory.setLayoutBindings[global])
	assert.Equal(t, []DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: DescriptorTypeCombinedImageSampler, DescriptorCount: 1, StageFlags: ShaderStageAll},
		{Binding: 1, DescriptorType: DescriptorTypeCombinedImageSampler, DescriptorCount: 1, StageFlags: ShaderStageAll},
		{Binding: 2, DescriptorType: DescriptorTypeSampler, DescriptorCount: 1, StageFlags: ShaderStageAll},
	}, factory.setLayoutBindings[material])
	assert.Equal(t, factory.setLayoutBindings[material], layout.DescriptorSetLayoutBindings(1))

	assert.NoError(t, layout.Validate(2))
	assert.Error(t, layout.Validate(1))
}

func TestPipelineLayoutDescriptorTypeMapping(t *testing.T) {
	tests := []struct {
		binding BindingType
		native  DescriptorType
		mapped  bool
	}{
		{BindingTypeSampler, DescriptorTypeSampler, true},
		{BindingTypeResource, DescriptorTypeCombinedImageSampler, true},
		{BindingTypeSamplerAndResource, DescriptorTypeCombinedImageSampler, true},
		{BindingTypeConstantBuffer, DescriptorTypeUniformBuffer, true},
		{BindingTypeInputAttachment, DescriptorTypeInputAttachment, true},
		{BindingTypeUnorderedAccess, DescriptorTypeSampler, false},
		{BindingTypeUnknown, DescriptorTypeSampler, false},
	}
	for _, test := range tests {
		native, mapped := asDescriptorType(test.binding)
		assert.Equal(t, test.native, native, test.binding.String())
		assert.Equal(t, test.mapped, mapped, test.binding.String())
	}

	layout, factory, _ := newTestLayout(t, `RootSignature { Set="A" } A { u0 x1 b2 }`)
	assert.Equal(t, []DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: DescriptorTypeSampler, DescriptorCount: 1, StageFlags: ShaderStageAll},
		{Binding: 1, DescriptorType: DescriptorTypeSampler, DescriptorCount: 1, StageFlags: ShaderStageAll},
		{Binding: 2, DescriptorType: DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: ShaderStageAll},
	}, factory.setLayoutBindings[layout.DescriptorSetLayout(0)])
}

func TestPipelineLayoutRebuildIsIdempotent(t *testing.T) {
	layout, factory, store := newTestLayout(t, testRootSignature)
	handle := layout.Underlying()

	for range 3 {
		require.NoError(t, layout.RebuildLayout(factory))
	}
	_, err := layout.ShareRootSignature()
	require.NoError(t, err)

	assert.Equal(t, 1, store.numLoads())
	assert.Equal(t, 2, factory.setLayoutCalls)
	assert.Equal(t, 1, factory.pipelineLayoutCalls)
	assert.Equal(t, handle, layout.Underlying())
}

func TestPipelineLayoutRebuildAfterChange(t *testing.T) {
	layout, factory, store := newTestLayout(t, testRootSignature)
	oldHandle := layout.Underlying()
	oldSig, err := layout.ShareRootSignature()
	require.NoError(t, err)

	store.WriteFile("main.rsig", []byte(`RootSignature { Set="Only" } Only { b0..3 }`))
	assert.True(t, layout.RebuildPending())

	// stale handles are still served until the rebuild
	assert.Equal(t, oldHandle, layout.Underlying())
	assert.Equal(t, 2, layout.NumDescriptorSetLayouts())

	require.NoError(t, layout.RebuildLayout(factory))
	assert.False(t, layout.RebuildPending())
	assert.Equal(t, 2, store.numLoads())

	sig, err := layout.ShareRootSignature()
	require.NoError(t, err)
	assert.NotSame(t, oldSig, sig)
	assert.Equal(t, 1, sig.NumDescriptorSets())
	assert.Equal(t, 1, layout.NumDescriptorSetLayouts())
	assert.NotEqual(t, oldHandle, layout.Underlying())
	assert.Len(t, factory.setLayoutBindings[layout.DescriptorSetLayout(0)], 4)

	// the old set layouts and pipeline layout were released
	assert.Equal(t, 2, factory.numLive())
	assert.Equal(t, []string{"pipeline:main.rsig", "set:Material", "set:Global"}, factory.destroyed)
}

func TestPipelineLayoutShareReloadsOnce(t *testing.T) {
	layout, factory, store := newTestLayout(t, testRootSignature)
	store.WriteFile("main.rsig", []byte(`RootSignature { Set="Global" } Global { b0 }`))

	const n = 32
	sigs := make([]*RootSignature, n)
	g := errgroup.Group{}
	for i := range n {
		g.Go(func() error {
			sig, err := layout.ShareRootSignature()
			sigs[i] = sig
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 2, store.numLoads())
	for _, sig := range sigs {
		assert.Same(t, sigs[0], sig)
	}
	assert.Equal(t, 1, sigs[0].NumDescriptorSets())
	assert.True(t, layout.RebuildPending())

	require.NoError(t, layout.RebuildLayout(factory))
	require.NoError(t, layout.RebuildLayout(factory))
	assert.Equal(t, 2, store.numLoads())
	assert.Equal(t, 2, factory.pipelineLayoutCalls)
	assert.Equal(t, 1, layout.NumDescriptorSetLayouts())
}

func TestPipelineLayoutReloadFailureKeepsSignature(t *testing.T) {
	layout, factory, store := newTestLayout(t, testRootSignature)
	oldSig, err := layout.ShareRootSignature()
	require.NoError(t, err)
	oldHandle := layout.Underlying()

	store.WriteFile("main.rsig", []byte(`RootSignature { Set="Missing" }`))

	_, err = layout.ShareRootSignature()
	assert.True(t, errors.Is(err, ErrorReference{}), "%v", err)

	err = layout.RebuildLayout(factory)
	assert.True(t, errors.Is(err, ErrorReference{}), "%v", err)

	// nothing was released or created
	assert.Equal(t, oldHandle, layout.Underlying())
	assert.Equal(t, 3, factory.numLive())
	assert.Equal(t, 1, factory.pipelineLayoutCalls)
	assert.True(t, layout.RebuildPending())

	layout.rootSignatureLock.Lock()
	assert.Same(t, oldSig, layout.rootSignature)
	layout.rootSignatureLock.Unlock()

	store.Remove("main.rsig")
	_, err = layout.ShareRootSignature()
	assert.True(t, errors.Is(err, ErrorLoadFailure{}), "%v", err)

	store.WriteFile("main.rsig", []byte(`RootSignature { Set="A" } A { t0 }`))
	require.NoError(t, layout.RebuildLayout(factory))
	assert.False(t, layout.RebuildPending())
	assert.Equal(t, 1, layout.NumDescriptorSetLayouts())
	assert.Equal(t, 2, factory.numLive())
}

func TestPipelineLayoutReloadFailureWaitsForChange(t *testing.T) {
	layout, factory, store := newTestLayout(t, testRootSignature)
	assert.Equal(t, 1, store.numRegistrations())

	store.WriteFile("main.rsig", []byte(`RootSignature { Set="Missing" }`))
	for range 100 {
		err := layout.RebuildLayout(factory)
		assert.True(t, errors.Is(err, ErrorReference{}), "%v", err)
		assert.True(t, layout.RebuildPending())
		_, err = layout.ShareRootSignature()
		assert.True(t, errors.Is(err, ErrorReference{}), "%v", err)
	}
	assert.Equal(t, 2, store.numLoads())
	assert.Equal(t, 2, store.numRegistrations())

	store.WriteFile("main.rsig", []byte(`RootSignature { Set="Other" }`))
	for range 10 {
		err := layout.RebuildLayout(factory)
		assert.True(t, errors.Is(err, ErrorReference{}), "%v", err)
	}
	assert.Equal(t, 3, store.numLoads())
	assert.Equal(t, 3, store.numRegistrations())

	store.WriteFile("main.rsig", []byte(`RootSignature { Set="A" } A { t0 }`))
	require.NoError(t, layout.RebuildLayout(factory))
	require.NoError(t, layout.RebuildLayout(factory))
	assert.Equal(t, 4, store.numLoads())
	assert.Equal(t, 4, store.numRegistrations())
	assert.Equal(t, 1, layout.NumDescriptorSetLayouts())
	assert.False(t, layout.RebuildPending())
}

func TestPipelineLayoutFactoryFailure(t *testing.T) {
	layout, factory, store := newTestLayout(t, testRootSignature)

	store.WriteFile("main.rsig", []byte(`RootSignature { Set="A" Set="B" Set="C" } A { t0 } B { b0 } C { s0 }`))
	factory.failSetLayoutAt = factory.setLayoutCalls + 2

	err := layout.RebuildLayout(factory)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrorNativeCreation{}))
	assert.True(t, errors.Is(err, errFactory))

	assert.Equal(t, 0, factory.numLive())
	assert.Equal(t, 0, layout.owned.len())
	assert.Zero(t, layout.Underlying())
	assert.Equal(t, 0, layout.NumDescriptorSetLayouts())
	assert.True(t, layout.RebuildPending())
	assert.Error(t, layout.Validate(0))
	assert.Panics(t, func() { layout.DescriptorSetLayout(0) })

	factory.failSetLayoutAt = 0
	require.NoError(t, layout.RebuildLayout(factory))
	assert.Equal(t, 3, layout.NumDescriptorSetLayouts())
	assert.Equal(t, 4, factory.numLive())
	assert.False(t, layout.RebuildPending())
}

func TestPipelineLayoutPipelineFailure(t *testing.T) {
	store := newCountingStore()
	store.WriteFile("main.rsig", []byte(testRootSignature))
	factory := newFakeFactory()
	factory.failPipelineLayout = true

	layout, err := NewPipelineLayout(factory, store, "main.rsig")
	require.Error(t, err)
	assert.Nil(t, layout)
	assert.True(t, errors.Is(err, ErrorNativeCreation{}))
	assert.Equal(t, 2, factory.setLayoutCalls)
	assert.Equal(t, 0, factory.numLive())
	assert.Equal(t, []string{"set:Material", "set:Global"}, factory.destroyed)
}

func TestPipelineLayoutReloadDuringRebuild(t *testing.T) {
	layout, factory, store := newTestLayout(t, testRootSignature)
	store.WriteFile("main.rsig", []byte(`RootSignature { Set="A" } A { t0 }`))

	factory.onCreatePipelineLayout = func() {
		factory.onCreatePipelineLayout = nil
		store.WriteFile("main.rsig", []byte(`RootSignature { Set="A" Set="A" } A { t0 }`))
		_, err := layout.ShareRootSignature()
		assert.NoError(t, err)
	}

	require.NoError(t, layout.RebuildLayout(factory))
	assert.Equal(t, 1, layout.NumDescriptorSetLayouts())
	assert.True(t, layout.RebuildPending())

	require.NoError(t, layout.RebuildLayout(factory))
	assert.Equal(t, 2, layout.NumDescriptorSetLayouts())
	assert.False(t, layout.RebuildPending())
}

func TestPipelineLayoutLoadFailure(t *testing.T) {
	factory := newFakeFactory()
	_, err := NewPipelineLayout(factory, newCountingStore(), "missing.rsig")
	assert.True(t, errors.Is(err, ErrorLoadFailure{}), "%v", err)
	assert.Equal(t, 0, factory.setLayoutCalls)

	_, err = NewPipelineLayout(factory, newCountingStore(), "")
	assert.Error(t, err)
}

func TestPipelineLayoutDeclaredSlots(t *testing.T) {
	store := newCountingStore()
	store.WriteFile("main.rsig", []byte(`RootSignature { Set="A" } A { t3 t7 b1 }`))
	factory := newFakeFactory()

	layout, err := NewPipelineLayoutWithConfig(factory, store, Config{
		RootSignature:  "main.rsig",
		SlotAssignment: SlotAssignmentDeclared,
	})
	require.NoError(t, err)
	defer layout.Destroy()

	bindings := layout.DescriptorSetLayoutBindings(0)
	require.Len(t, bindings, 3)
	assert.Equal(t, []uint32{3, 7, 1}, []uint32{bindings[0].Binding, bindings[1].Binding, bindings[2].Binding})

	store.WriteFile("main.rsig", []byte(`RootSignature { Set="A" } A { b0 t0 }`))
	err = layout.RebuildLayout(factory)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrorSlotConflict{}))

	var conflict ErrorSlotConflict
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "A", conflict.Set)
	assert.Equal(t, uint32(0), conflict.Slot)

	// the previous layout is still usable
	assert.Equal(t, 1, layout.NumDescriptorSetLayouts())
	assert.Equal(t, 2, factory.numLive())
	assert.True(t, layout.RebuildPending())
}

func TestPipelineLayoutPositionalSlots(t *testing.T) {
	layout, _, _ := newTestLayout(t, `RootSignature { Set="A" } A { t3 t7 b0 t0 }`)
	bindings := layout.DescriptorSetLayoutBindings(0)
	require.Len(t, bindings, 4)
	for i, b := range bindings {
		assert.Equal(t, uint32(i), b.Binding)
	}
}

func TestPipelineLayoutEmptySignature(t *testing.T) {
	layout, factory, _ := newTestLayout(t, `RootSignature { } Unused { t0 }`)
	assert.Equal(t, 0, layout.NumDescriptorSetLayouts())
	assert.NotZero(t, layout.Underlying())
	assert.Equal(t, 0, factory.setLayoutCalls)
	assert.Equal(t, 1, factory.pipelineLayoutCalls)
}

func TestPipelineLayoutOutOfRange(t *testing.T) {
	layout, _, _ := newTestLayout(t, testRootSignature)
	assert.Panics(t, func() { layout.DescriptorSetLayout(2) })
	assert.Panics(t, func() { layout.DescriptorSetLayout(-1) })
	assert.Panics(t, func() { layout.DescriptorSetLayoutBindings(5) })
	assert.NotPanics(t, func() { layout.DescriptorSetLayout(1) })
}

func TestPipelineLayoutDestroy(t *testing.T) {
	store := newCountingStore()
	store.WriteFile("main.rsig", []byte(testRootSignature))
	factory := newFakeFactory()

	layout, err := NewPipelineLayout(factory, store, "main.rsig")
	require.NoError(t, err)

	layout.Destroy()
	assert.Equal(t, 0, factory.numLive())
	assert.Equal(t, []string{"pipeline:main.rsig", "set:Material", "set:Global"}, factory.destroyed)

	assert.Panics(t, func() { layout.Underlying() })
	assert.NotPanics(t, func() {
		var l *PipelineLayout
		l.Destroy()
	})
}

func TestPipelineLayoutJSON(t *testing.T) {
	layout, _, _ := newTestLayout(t, testRootSignature)

	j, err := json.Marshal(layout)
	require.NoError(t, err)

	var decoded struct {
		Name                 string   `json:"name"`
		RebuildPending       bool     `json:"rebuildPending"`
		Owned                []string `json:"owned"`
		DescriptorSetLayouts []struct {
			Name     string            `json:"name"`
			Bindings []json.RawMessage `json:"bindings"`
		} `json:"descriptorSetLayouts"`
	}
	require.NoError(t, json.Unmarshal(j, &decoded))
	assert.Equal(t, "main.rsig", decoded.Name)
	assert.False(t, decoded.RebuildPending)
	assert.Len(t, decoded.Owned, 3)
	require.Len(t, decoded.DescriptorSetLayouts, 2)
	assert.Equal(t, "Global", decoded.DescriptorSetLayouts[0].Name)
	assert.Len(t, decoded.DescriptorSetLayouts[1].Bindings, 3)
}
