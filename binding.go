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
	"math"
	"slices"
	"strings"

	"goarrg.com/debug"
)

// MaxBindingsPerRange limits how many bindings a single range attribute may expand to.
const MaxBindingsPerRange = 1 << 16

type BindingType uint32

const (
	BindingTypeSampler BindingType = iota
	BindingTypeResource
	BindingTypeSamplerAndResource
	BindingTypeConstantBuffer
	BindingTypeUnorderedAccess
	BindingTypeInputAttachment
	BindingTypeUnknown
)

func (t BindingType) String() string {
	switch t {
	case BindingTypeSampler:
		return "Sampler"
	case BindingTypeResource:
		return "Resource"
	case BindingTypeSamplerAndResource:
		return "SamplerAndResource"
	case BindingTypeConstantBuffer:
		return "ConstantBuffer"
	case BindingTypeUnorderedAccess:
		return "UnorderedAccess"
	case BindingTypeInputAttachment:
		return "InputAttachment"
	default:
		return "Unknown"
	}
}

func (t BindingType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// asBindingType converts an HLSL register class to a BindingType.
func asBindingType(c byte) BindingType {
	switch c {
	case 'b':
		return BindingTypeConstantBuffer
	case 's':
		return BindingTypeSampler
	case 't':
		return BindingTypeResource
	case 'u':
		return BindingTypeUnorderedAccess
	default:
		return BindingTypeUnknown
	}
}

type DescriptorBinding struct {
	Type BindingType
	// DeclaredIndex is the register index as written in the file, it does not
	// select the native binding slot unless SlotAssignmentDeclared is used.
	DeclaredIndex uint32
}

func (b DescriptorBinding) MarshalJSON() ([]byte, error) {
	buff := bytes.Buffer{}
	buff.WriteString("{")

	buff.WriteString(fmt.Sprintf("\"type\": %q,", b.Type.String()))
	buff.WriteString(fmt.Sprintf("\"declaredIndex\": %d", b.DeclaredIndex))

	buff.WriteString("}")
	return buff.Bytes(), nil
}

type DescriptorSetSignature struct {
	Name     string
	Bindings []DescriptorBinding
}

func (s DescriptorSetSignature) clone() DescriptorSetSignature {
	return DescriptorSetSignature{
		Name:     s.Name,
		Bindings: slices.Clone(s.Bindings),
	}
}

func (s DescriptorSetSignature) id() string {
	sb := strings.Builder{}
	for _, b := range s.Bindings {
		sb.WriteString(fmt.Sprintf("%s:%d,", b.Type.String(), b.DeclaredIndex))
	}
	return fmt.Sprintf("%s[%s]", s.Name, strings.TrimSuffix(sb.String(), ","))
}

func (s DescriptorSetSignature) MarshalJSON() ([]byte, error) {
	buff := bytes.Buffer{}
	buff.WriteString("{")

	buff.WriteString(fmt.Sprintf("\"name\": %q,", s.Name))

	buff.WriteString("\"bindings\": [")
	if len(s.Bindings) > 0 {
		for _, b := range s.Bindings {
			buff.WriteString(fmt.Sprintf("%s,", jsonString(b)))
		}
		buff.Truncate(buff.Len() - 1)
	}
	buff.WriteString("]")

	buff.WriteString("}")
	return buff.Bytes(), nil
}

/*
parseUint reads a base 10 unsigned integer prefix of s and returns it along
with the unparsed remainder. Like strtoul a missing number reads as 0 and
overflow saturates.
*/
func parseUint(s string) (uint64, string) {
	var v uint64
	i := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if v <= math.MaxUint32 {
			v = v*10 + uint64(s[i]-'0')
		}
	}
	return min(v, math.MaxUint32), s[i:]
}

/*
appendBindings expands a binding attribute such as "t11..20" or "b3" and appends
the result to bindings in ascending index order.
*/
func appendBindings(bindings []DescriptorBinding, attribute string) ([]DescriptorBinding, error) {
	if attribute == "" {
		return bindings, nil
	}

	t := asBindingType(attribute[0])
	start, rest := parseUint(attribute[1:])
	end := start
	if strings.HasPrefix(rest, "..") {
		end, _ = parseUint(rest[2:])
	}

	if end < start {
		return bindings, nil
	}
	if end-start >= MaxBindingsPerRange {
		return bindings, debug.Errorf("Binding range %q expands to %d bindings, max is %d",
			attribute, end-start+1, MaxBindingsPerRange)
	}

	bindings = slices.Grow(bindings, int(end-start+1))
	for i := start; i <= end; i++ {
		bindings = append(bindings, DescriptorBinding{Type: t, DeclaredIndex: uint32(i)})
	}
	return bindings, nil
}
