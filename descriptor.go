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
	"strings"
)

// DescriptorType values match VkDescriptorType.
type DescriptorType uint32

const (
	DescriptorTypeSampler              DescriptorType = 0
	DescriptorTypeCombinedImageSampler DescriptorType = 1
	DescriptorTypeSampledImage         DescriptorType = 2
	DescriptorTypeStorageImage         DescriptorType = 3
	DescriptorTypeUniformTexelBuffer   DescriptorType = 4
	DescriptorTypeStorageTexelBuffer   DescriptorType = 5
	DescriptorTypeUniformBuffer        DescriptorType = 6
	DescriptorTypeStorageBuffer        DescriptorType = 7
	DescriptorTypeInputAttachment      DescriptorType = 10
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorTypeUniformBuffer:
		return "UniformBuffer"
	case DescriptorTypeUniformTexelBuffer:
		return "UniformTexelBuffer"

	case DescriptorTypeStorageBuffer:
		return "StorageBuffer"
	case DescriptorTypeStorageTexelBuffer:
		return "StorageTexelBuffer"

	case DescriptorTypeStorageImage:
		return "StorageImage"

	case DescriptorTypeCombinedImageSampler:
		return "CombinedImageSampler"

	case DescriptorTypeSampledImage:
		return "SampledImage"
	case DescriptorTypeSampler:
		return "Sampler"

	case DescriptorTypeInputAttachment:
		return "InputAttachment"

	default:
		abort("Unknown DescriptorType: %d", t)
	}

	return ""
}

// ShaderStage values match VkShaderStageFlagBits.
type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageFragment ShaderStage = 0x00000010
	ShaderStageGraphics ShaderStage = 0x0000001F
	ShaderStageCompute  ShaderStage = 0x00000020
	ShaderStageAll      ShaderStage = 0x7FFFFFFF
)

func (s ShaderStage) String() string {
	if s == ShaderStageAll {
		return "All"
	}

	str := ""

	if hasBits(s, ShaderStageVertex) {
		str += "Vertex|"
	}
	if hasBits(s, ShaderStageFragment) {
		str += "Fragment|"
	}
	if hasBits(s, ShaderStageCompute) {
		str += "Compute|"
	}

	return strings.TrimSuffix(str, "|")
}

/*
DescriptorSetLayoutBinding mirrors VkDescriptorSetLayoutBinding.
ImmutableSamplers is always nil for layouts built from a root signature.
*/
type DescriptorSetLayoutBinding struct {
	Binding           uint32
	DescriptorType    DescriptorType
	DescriptorCount   uint32
	StageFlags        ShaderStage
	ImmutableSamplers []uintptr
}

func (b DescriptorSetLayoutBinding) MarshalJSON() ([]byte, error) {
	buff := bytes.Buffer{}
	buff.WriteString("{")

	buff.WriteString(fmt.Sprintf("\"binding\": %d,", b.Binding))
	buff.WriteString(fmt.Sprintf("\"shaderStage\": %q,", b.StageFlags.String()))
	buff.WriteString(fmt.Sprintf("\"descriptorType\": %q,", b.DescriptorType.String()))
	buff.WriteString(fmt.Sprintf("\"descriptorCount\": %d", b.DescriptorCount))

	buff.WriteString("}")
	return buff.Bytes(), nil
}

/*
asDescriptorType maps a binding type to the native descriptor type.
UnorderedAccess and Unknown have no mapping and fall back to Sampler, the
second result reports when that happened.
*/
func asDescriptorType(t BindingType) (DescriptorType, bool) {
	switch t {
	case BindingTypeSampler:
		return DescriptorTypeSampler, true
	case BindingTypeResource:
		return DescriptorTypeCombinedImageSampler, true
	case BindingTypeSamplerAndResource:
		return DescriptorTypeCombinedImageSampler, true
	case BindingTypeConstantBuffer:
		return DescriptorTypeUniformBuffer, true
	case BindingTypeInputAttachment:
		return DescriptorTypeInputAttachment, true
	case BindingTypeUnorderedAccess:
		fallthrough
	default:
		return DescriptorTypeSampler, false
	}
}

type descriptorSetLayout struct {
	id       string
	name     string
	handle   DescriptorSetLayoutHandle
	bindings []DescriptorSetLayoutBinding
}

func newDescriptorSetLayout(set *DescriptorSetSignature, slots SlotAssignment) (descriptorSetLayout, error) {
	layout := descriptorSetLayout{
		name:     set.Name,
		bindings: make([]DescriptorSetLayoutBinding, 0, len(set.Bindings)),
	}

	var used map[uint32]struct{}
	if slots == SlotAssignmentDeclared {
		used = make(map[uint32]struct{}, len(set.Bindings))
	}

	ids := make([]any, 0, len(set.Bindings))
	for i, src := range set.Bindings {
		slot := uint32(i)
		if slots == SlotAssignmentDeclared {
			slot = src.DeclaredIndex
			if _, ok := used[slot]; ok {
				return layout, ErrorSlotConflict{Set: set.Name, Slot: slot}
			}
			used[slot] = struct{}{}
		}

		descriptorType, ok := asDescriptorType(src.Type)
		if !ok {
			logFallbackDescriptorType(set.Name, slot, src.Type, descriptorType)
		}

		binding := DescriptorSetLayoutBinding{
			Binding:         slot,
			DescriptorType:  descriptorType,
			DescriptorCount: 1,
			StageFlags:      ShaderStageAll,
		}
		layout.bindings = append(layout.bindings, binding)
		ids = append(ids, fmt.Sprintf("%d:%s:%s:%d", binding.Binding,
			toHex(binding.StageFlags), toHex(binding.DescriptorType), binding.DescriptorCount))
	}

	if len(ids) > 0 {
		layout.id = genID(ids...)
	} else {
		layout.id = "[null]"
	}
	return layout, nil
}

func (s *descriptorSetLayout) MarshalJSON() ([]byte, error) {
	buff := bytes.Buffer{}
	buff.WriteString("{")

	buff.WriteString(fmt.Sprintf("\"id\": %q,", s.id))
	buff.WriteString(fmt.Sprintf("\"name\": %q,", s.name))
	buff.WriteString(fmt.Sprintf("\"handle\": %q,", toHex(s.handle)))

	buff.WriteString("\"bindings\": [")
	if len(s.bindings) > 0 {
		for _, binding := range s.bindings {
			buff.WriteString(fmt.Sprintf("%s,", jsonString(binding)))
		}
		buff.Truncate(buff.Len() - 1)
	}
	buff.WriteString("]")

	buff.WriteString("}")
	return buff.Bytes(), nil
}
