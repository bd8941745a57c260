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
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"goarrg.com/debug"
	"goarrg.com/rhi/rootsig"
	"goarrg.com/rhi/rootsig/depval"
)

var flags flag.FlagSet

type generator uint32

const (
	generatorJSON generator = iota
	generatorGO
)

func (g *generator) UnmarshalText(data []byte) error {
	switch string(data) {
	case "json":
		*g = generatorJSON
	case "go":
		*g = generatorGO
	default:
		return debug.Errorf("Invalid value: %q", data)
	}
	return nil
}

func (g generator) MarshalText() (text []byte, err error) {
	switch g {
	case generatorJSON:
		return ([]byte)("json"), nil
	case generatorGO:
		return ([]byte)("go"), nil
	default:
		return nil, debug.Errorf("Invalid value: %d", g)
	}
}

func main() {
	debug.SetLevel(debug.LogLevelWarn)

	flags.Usage = help
	flags.Init("", flag.ExitOnError)

	v := flags.Bool("v", false, "Verbose - Print high level tasks")
	vv := flags.Bool("vv", false, "Very Verbose - Print everything")

	dir := flags.String("dir", ".", "Sets the directory for the purposes of <file> resolution.")
	outDir := flags.String("out-dir", ".", "Sets the output directory.")
	configFile := flags.String("config", "", "Loads settings from a TOML or YAML file with the keys \"root_signature\" and \"slot_assignment\".\n"+
		"<file> and -slots override the values in the file.")

	slots := rootsig.SlotAssignmentPositional
	flags.TextVar(&slots, "slots", rootsig.SlotAssignmentPositional, "Sets how native binding slots are assigned.\n"+
		"Valid values are \"positional\" and \"declared\".")

	g := generator(0)
	flags.TextVar(&g, "generator", generatorJSON, "Sets the generator to use when outputting the layout.\n"+
		"Valid values are \"json\" and \"go\".")

	watch := flags.Bool("watch", false, "Keep running and regenerate the output whenever <file> changes.")

	err := flags.Parse(os.Args[1:])
	if err != nil {
		panic(err)
	}

	if *v {
		debug.SetLevel(debug.LogLevelInfo)
		rootsig.SetLogLevel(uint32(debug.LogLevelInfo))
	} else if *vv {
		debug.SetLevel(debug.LogLevelVerbose)
		rootsig.SetLogLevel(uint32(debug.LogLevelVerbose))
	}

	config := rootsig.Config{}
	if *configFile != "" {
		config, err = rootsig.LoadConfig(*configFile)
		if err != nil {
			debug.EPrintf("%v", err)
			os.Exit(1)
		}
	}
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "slots" {
			config.SlotAssignment = slots
		}
	})

	args := flags.Args()
	switch {
	case len(args) == 1:
		config.RootSignature = args[0]
	case len(args) > 1:
		debug.EPrintf("rsigc can only compile one file at a time.")
		help()
		os.Exit(2)
	case config.RootSignature == "":
		debug.EPrintf("No input file provided.")
		help()
		os.Exit(2)
	}

	store, err := depval.NewStore(*dir)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	factory := &recordingFactory{}
	debug.IPrintf("Compiling root signature")
	layout, err := rootsig.NewPipelineLayoutWithConfig(factory, store, config)
	if err != nil {
		debug.EPrintf("%v", err)
		os.Exit(1)
	}
	defer layout.Destroy()

	err = os.MkdirAll(*outDir, 0o755)
	if err != nil {
		panic(err)
	}
	outName := filepath.Base(config.RootSignature)

	if err := generate(g, *outDir, outName, layout); err != nil {
		panic(err)
	}
	if !*watch {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	debug.IPrintf("Watching %q", config.RootSignature)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	lastErr := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !layout.RebuildPending() {
			continue
		}
		if err := layout.RebuildLayout(factory); err != nil {
			// the error repeats every tick until the file changes
			if err.Error() != lastErr {
				lastErr = err.Error()
				debug.EPrintf("%v", err)
			}
			continue
		}
		lastErr = ""
		if err := generate(g, *outDir, outName, layout); err != nil {
			debug.EPrintf("%v", err)
		}
	}
}

func help() {
	fmt.Fprintf(os.Stderr, "rsigc is a cli wrapper over rootsig.NewPipelineLayout to compile root signatures offline.\n"+
		"\nNo GPU device is created, native handles in the output are placeholders assigned in creation order.\n"+
		"The output lists the descriptor sets in binding order and the bindings each descriptor set layout was created with.\n"+
		"\n")
	args := ""
	flags.VisitAll(func(f *flag.Flag) {
		n, u := flag.UnquoteUsage(f)
		if f.DefValue != "" {
			u += "\n\nDefaults to \"" + f.DefValue + "\"."
		}
		args += "\t-" + f.Name + " " + n + "\n\t\t" + strings.ReplaceAll(strings.TrimSpace(u), "\n", "\n\t\t") + "\n"
	})
	fmt.Fprintf(os.Stderr, "Usage:\n\t%s [arguments] <file>\n\nArguments:\n%s", filepath.Base(os.Args[0]), args)
}

func generate(g generator, dir, name string, layout *rootsig.PipelineLayout) error {
	sig, err := layout.ShareRootSignature()
	if err != nil {
		return err
	}
	switch g {
	case generatorJSON:
		return genJSON(dir, name, sig, layout)
	case generatorGO:
		return genGo(dir, name, sig, layout)
	}
	return debug.Errorf("Invalid generator: %d", g)
}
