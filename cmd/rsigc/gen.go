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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"goarrg.com/debug"
	"goarrg.com/rhi/rootsig"

	"golang.org/x/tools/go/packages"
)

func layoutBindings(layout *rootsig.PipelineLayout) [][]rootsig.DescriptorSetLayoutBinding {
	bindings := make([][]rootsig.DescriptorSetLayoutBinding, layout.NumDescriptorSetLayouts())
	for i := range bindings {
		bindings[i] = layout.DescriptorSetLayoutBindings(i)
	}
	return bindings
}

func genJSON(dir, name string, sig *rootsig.RootSignature, layout *rootsig.PipelineLayout) error {
	m := map[string]any{
		"RootSignature":  sig,
		"PipelineLayout": layout,
	}

	j, err := json.Marshal(m)
	if err != nil {
		return debug.ErrorWrapf(err, "Failed to marshal %q", name)
	}

	jsonFile := filepath.Join(dir, name+".json")
	debug.IPrintf("Writing layout to: %q", jsonFile)
	err = os.WriteFile(jsonFile, j, 0o655)
	if err != nil {
		return debug.ErrorWrapf(err, "Failed to write %q", jsonFile)
	}
	return nil
}

func genGo(dir, name string, sig *rootsig.RootSignature, layout *rootsig.PipelineLayout) error {
	pkg, err := packageName(dir)
	if err != nil {
		return err
	}

	buff := bytes.Buffer{}
	writeGo(&buff, pkg, sig, layoutBindings(layout))

	filename := filepath.Join(dir, "zrsigc_"+name+".go")
	debug.IPrintf("Writing layout to: %q", filename)
	err = os.WriteFile(filename, buff.Bytes(), 0o644)
	if err != nil {
		return debug.ErrorWrapf(err, "Failed to write %q", filename)
	}
	return nil
}

func packageName(dir string) (string, error) {
	p, err := packages.Load(&packages.Config{Mode: packages.NeedName}, dir)
	if err != nil {
		return "", debug.ErrorWrapf(err, "Failed to load package at %q", dir)
	}
	if len(p) == 0 {
		return filepath.Base(dir), nil
	} else if p[0].Name != "" {
		return filepath.Base(p[0].Name), nil
	}
	return filepath.Base(p[0].PkgPath), nil
}

func funcName(filename string) string {
	filename = filepath.ToSlash(filename)
	sb := strings.Builder{}
	sb.Grow(len(filename))
	for _, r := range filename {
		if unicode.IsDigit(r) || unicode.IsLetter(r) {
			sb.WriteRune(r)
		}
		if r == '/' || r == '.' {
			sb.WriteRune('_')
		}
	}
	return "rsigcLoad_" + sb.String()
}

func writeGo(w io.Writer, pkg string, sig *rootsig.RootSignature, bindings [][]rootsig.DescriptorSetLayoutBinding) {
	{
		args := ""
		for _, arg := range os.Args[1:] {
			args += arg + " "
		}
		fmt.Fprintf(w, "// go run goarrg.com/rhi/rootsig/cmd/rsigc %s\n", args)
		fmt.Fprintf(w, "// Code generated by the command above; DO NOT EDIT.\n\n")
	}

	fmt.Fprintf(w, "package %s\n\n", pkg)
	fmt.Fprintf(w, "import(\n")
	fmt.Fprintf(w, "\t\"goarrg.com/rhi/rootsig\"\n")
	fmt.Fprintf(w, ")\n\n")

	type returnValue struct {
		key   string
		value any
	}
	vars := []returnValue{
		{key: "sets", value: sig.DescriptorSets()},
		{key: "bindings", value: bindings},
	}

	fnReturns := ""
	for _, v := range vars {
		fnReturns += fmt.Sprintf("%s %T, ", v.key, v.value)
	}
	fmt.Fprintf(w, "func %s() (%s) {\n", funcName(sig.Filename()), strings.TrimSuffix(fnReturns, ", "))

	for _, v := range vars {
		fmt.Fprintf(w, "\t%s = %#v\n", v.key, v.value)
	}

	fmt.Fprintf(w, "\treturn\n")
	fmt.Fprintf(w, "}\n")
}
