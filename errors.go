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

import "fmt"

// ErrorLoadFailure is returned when a root signature file is missing, unreadable or empty.
type ErrorLoadFailure struct {
	Filename string
	Err      error
}

func (ErrorLoadFailure) Is(target error) bool {
	_, ok := target.(ErrorLoadFailure)
	return ok
}

func (e ErrorLoadFailure) Unwrap() error {
	return e.Err
}

func (e ErrorLoadFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Failure while attempting to load root signature (%s): %v", e.Filename, e.Err)
	}
	return fmt.Sprintf("Failure while attempting to load root signature (%s)", e.Filename)
}

// ErrorReference is returned when RootSignature references a descriptor set that was never declared.
type ErrorReference struct {
	Filename string
	Name     string
}

func (ErrorReference) Is(target error) bool {
	_, ok := target.(ErrorReference)
	return ok
}

func (e ErrorReference) Error() string {
	return fmt.Sprintf("Could not find descriptor set referenced by root signature (%s) in %q", e.Name, e.Filename)
}

// ErrorSyntax is returned for malformed root signature files.
type ErrorSyntax struct {
	Filename     string
	Line, Column int
	Message      string
}

func (ErrorSyntax) Is(target error) bool {
	_, ok := target.(ErrorSyntax)
	return ok
}

func (e ErrorSyntax) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Filename, e.Message)
}

// ErrorSlotConflict is returned by SlotAssignmentDeclared when a set declares the same index twice.
type ErrorSlotConflict struct {
	Set  string
	Slot uint32
}

func (ErrorSlotConflict) Is(target error) bool {
	_, ok := target.(ErrorSlotConflict)
	return ok
}

func (e ErrorSlotConflict) Error() string {
	return fmt.Sprintf("Descriptor set %q declares binding [%d] more than once", e.Set, e.Slot)
}

// ErrorNativeCreation wraps an error returned by the ObjectFactory.
type ErrorNativeCreation struct {
	Object string
	Err    error
}

func (ErrorNativeCreation) Is(target error) bool {
	_, ok := target.(ErrorNativeCreation)
	return ok
}

func (e ErrorNativeCreation) Unwrap() error {
	return e.Err
}

func (e ErrorNativeCreation) Error() string {
	return fmt.Sprintf("Failed to create %s: %v", e.Object, e.Err)
}
