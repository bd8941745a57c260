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

	"goarrg.com/rhi/rootsig/internal/container"
)

// ownedHandles destroys native objects in the reverse order they were created.
type ownedHandles struct {
	destroyers container.Stack[Destroyer]
	names      container.Stack[string]
}

func (o *ownedHandles) MarshalJSON() ([]byte, error) {
	buff := bytes.Buffer{}
	buff.WriteString("[")

	names := o.names.Data()
	if len(names) > 0 {
		for _, n := range names {
			buff.WriteString(fmt.Sprintf("%q,", n))
		}
		buff.Truncate(buff.Len() - 1)
	}

	buff.WriteString("]")
	return buff.Bytes(), nil
}

func (o *ownedHandles) len() int {
	return o.destroyers.Len()
}

func (o *ownedHandles) push(name string, d Destroyer) {
	o.destroyers.Push(d)
	o.names.Push(name)
}

func (o *ownedHandles) release() {
	for !o.destroyers.Empty() {
		name := o.names.Pop()
		instance.logger.VPrintf("Destroying %s", name)
		o.destroyers.Pop().Destroy()
	}
}

/*
createDescriptorSetLayout creates the native layout for set and takes ownership
of it, on error nothing is owned.
*/
func (o *ownedHandles) createDescriptorSetLayout(factory ObjectFactory, set *descriptorSetLayout) error {
	u, err := factory.CreateDescriptorSetLayout(set.name, set.bindings)
	if err != nil {
		return ErrorNativeCreation{Object: fmt.Sprintf("descriptor set layout %q %s", set.name, set.id), Err: err}
	}
	set.handle = u.Get()
	o.push(fmt.Sprintf("descriptor set layout %q %s", set.name, toHex(set.handle)), &u)
	return nil
}

func (o *ownedHandles) createPipelineLayout(factory ObjectFactory, name string, sets []descriptorSetLayout) (PipelineLayoutHandle, error) {
	handles := make([]DescriptorSetLayoutHandle, 0, len(sets))
	for _, s := range sets {
		handles = append(handles, s.handle)
	}
	u, err := factory.CreatePipelineLayout(name, handles)
	if err != nil {
		return 0, ErrorNativeCreation{Object: fmt.Sprintf("pipeline layout %q", name), Err: err}
	}
	handle := u.Get()
	o.push(fmt.Sprintf("pipeline layout %q %s", name, toHex(handle)), &u)
	return handle, nil
}
