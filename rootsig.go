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
Package rootsig compiles root signature files into descriptor set layouts and a
pipeline layout, and keeps them in sync with the file on disk.

A root signature file lists descriptor sets and the order they are bound in:

	RootSignature { Set="Global" Set="Material" }

	Material { t0..7 s0 }
	Global { b0 b1 t8 }

Binding attributes are HLSL style register names, the first character is the
register class and the remainder is either an index or an inclusive range.
*/
package rootsig

import (
	"goarrg.com"
	"goarrg.com/debug"
	"goarrg.com/rhi/rootsig/depval"
	"goarrg.com/rhi/rootsig/internal/util"
)

type Destroyer interface {
	Destroy()
}

type platform struct{}

func (platform) Abort()                           { panic("Fatal Error") }
func (platform) AbortPopup(f string, args ...any) { panic("Fatal Error") }

var instance = struct {
	platform goarrg.PlatformInterface
	logger   *debug.Logger
}{
	platform: platform{},
	logger:   debug.NewLogger("rootsig"),
}

/*
Init replaces the platform used to abort on programming errors, by default
aborting panics.
*/
func Init(platform goarrg.PlatformInterface) {
	instance.platform = platform
	util.Init(platform)
}

// SetLogLevel sets the log level of this package and of depval.
func SetLogLevel(l uint32) {
	instance.logger.SetLevel(l)
	depval.SetLogLevel(l)
}
