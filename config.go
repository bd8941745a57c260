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
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"goarrg.com/debug"
	"gopkg.in/yaml.v3"
)

/*
SlotAssignment selects how native binding slots are assigned within a set.

SlotAssignmentPositional uses the binding's position in the set, so "t3 t7"
produces slots 0 and 1. SlotAssignmentDeclared uses the register index as
written, so "t3 t7" produces slots 3 and 7, and "b0 t0" is rejected.
*/
type SlotAssignment uint32

const (
	SlotAssignmentPositional SlotAssignment = iota
	SlotAssignmentDeclared
)

func (s SlotAssignment) String() string {
	switch s {
	case SlotAssignmentPositional:
		return "positional"
	case SlotAssignmentDeclared:
		return "declared"
	}
	return fmt.Sprintf("SlotAssignment(%d)", uint32(s))
}

func (s *SlotAssignment) UnmarshalText(data []byte) error {
	switch string(data) {
	case "positional", "":
		*s = SlotAssignmentPositional
	case "declared":
		*s = SlotAssignmentDeclared
	default:
		return debug.Errorf("Invalid slot assignment: %q", data)
	}
	return nil
}

func (s *SlotAssignment) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return debug.Errorf("Invalid slot assignment at line %d: expecting a string", value.Line)
	}
	return s.UnmarshalText([]byte(value.Value))
}

func (s SlotAssignment) MarshalText() ([]byte, error) {
	switch s {
	case SlotAssignmentPositional, SlotAssignmentDeclared:
		return []byte(s.String()), nil
	}
	return nil, debug.Errorf("Invalid slot assignment: %d", s)
}

type Config struct {
	// RootSignature is the file name passed to the FileSubstrate.
	RootSignature  string         `toml:"root_signature" yaml:"root_signature"`
	SlotAssignment SlotAssignment `toml:"slot_assignment" yaml:"slot_assignment"`
}

/*
LoadConfig reads a config file, files ending in .yaml or .yml are read as YAML
and everything else as TOML. Unknown keys are an error.
*/
func LoadConfig(filename string) (Config, error) {
	var c Config

	f, err := os.Open(filename)
	if err != nil {
		return c, debug.ErrorWrapf(err, "Failed to open config: %q", filename)
	}
	defer f.Close()

	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		d := yaml.NewDecoder(f)
		d.KnownFields(true)
		err = d.Decode(&c)
	default:
		err = toml.NewDecoder(f).DisallowUnknownFields().Decode(&c)
	}
	if err != nil {
		return c, debug.ErrorWrapf(err, "Failed to decode config: %q", filename)
	}
	return c, nil
}

func (c *Config) MarshalJSON() ([]byte, error) {
	buff := bytes.Buffer{}
	buff.WriteString("{")

	buff.WriteString(fmt.Sprintf("\"RootSignature\": %q,", c.RootSignature))
	buff.WriteString(fmt.Sprintf("\"SlotAssignment\": %q", c.SlotAssignment.String()))

	buff.WriteString("}")
	return buff.Bytes(), nil
}

func (c *Config) validate() error {
	if c.RootSignature == "" {
		return debug.Errorf("Config.RootSignature must not be empty")
	}
	switch c.SlotAssignment {
	case SlotAssignmentPositional, SlotAssignmentDeclared:
	default:
		return debug.Errorf("Config.SlotAssignment is invalid: %d", c.SlotAssignment)
	}
	return nil
}
