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

func abort(fmt string, args ...any) {
	instance.logger.EPrintf(fmt, args...)
	instance.platform.Abort()
}

func logFallbackDescriptorType(set string, slot uint32, t BindingType, d DescriptorType) {
	instance.logger.WPrintf("Descriptor set %q binding [%d]: %s has no native descriptor type, falling back to %s",
		set, slot, t.String(), d.String())
}

func logRootSignature(filename string, sig *RootSignature) {
	instance.logger.IPrintf("Loaded root signature %q with %d descriptor sets", filename, len(sig.descriptorSets))
	instance.logger.VPrintf("Root signature %q: %s", filename, sig.ID())
}
