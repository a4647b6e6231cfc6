//go:build ignore

// generate_testdata.go creates standard hierarchy datasets for benchmarking
// and manual testing of the viewer.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	testdata/benchmark/small.jsonl   (~100 nodes, shallow forest)
//	testdata/benchmark/medium.jsonl  (~1000 nodes, balanced tree)
//	testdata/benchmark/deep.jsonl    (2000 nodes, one long chain)
//	testdata/benchmark/wide.jsonl    (5000 nodes, one level)
//	testdata/benchmark/huge.jsonl    (20000 nodes, shuffled forest)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/foldtree/pkg/model"
	"github.com/vanderheijden86/foldtree/pkg/testutil"
)

type datasetSpec struct {
	name  string
	desc  string
	build func(g *testutil.Generator) []model.Node
}

var datasets = []datasetSpec{
	{"small", "shallow forest", func(g *testutil.Generator) []model.Node { return g.Forest(100) }},
	{"medium", "balanced tree, depth 4, breadth 5", func(g *testutil.Generator) []model.Node { return g.Tree(4, 5) }},
	{"deep", "single chain", func(g *testutil.Generator) []model.Node { return g.Chain(2000) }},
	{"wide", "single level", func(g *testutil.Generator) []model.Node { return g.Wide(5000) }},
	{"huge", "shuffled forest", func(g *testutil.Generator) []model.Node { return g.Forest(20000) }},
}

func main() {
	outputDir := "testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for i, ds := range datasets {
		fmt.Printf("Generating %s dataset (%s)...\n", ds.name, ds.desc)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:      int64(1000 + i), // Reproducible per dataset
			IDPrefix:  "B",
			KindMix:   []model.Kind{model.KindFile, model.KindNote},
			WithNotes: true,
		})
		nodes := ds.build(gen)
		jsonl := testutil.ToJSONL(nodes)

		outputPath := filepath.Join(outputDir, ds.name+".jsonl")
		if err := os.WriteFile(outputPath, []byte(jsonl), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}

		fmt.Printf("  Written %s (%d bytes, %d nodes)\n", outputPath, len(jsonl), len(nodes))
	}

	fmt.Println("\nDone! Test datasets created in", outputDir)
}
