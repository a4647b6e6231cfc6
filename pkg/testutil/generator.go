// Package testutil provides hierarchy fixture generators and assertions.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/foldtree/pkg/model"
)

// GeneratorConfig controls node generation.
type GeneratorConfig struct {
	Seed      int64        // Random seed for determinism (0 = use current time)
	IDPrefix  string       // Prefix for node IDs (default: "N")
	KindMix   []model.Kind // Kinds given to leaves (nil = file)
	WithNotes bool         // Attach a short markdown note to every node
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		IDPrefix: "N",
		KindMix:  []model.Kind{model.KindFile},
	}
}

// Generator creates hierarchies with various shapes.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
	seq int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "N"
	}
	if len(cfg.KindMix) == 0 {
		cfg.KindMix = []model.Kind{model.KindFile}
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func (g *Generator) node(parent string, rank int) model.Node {
	id := fmt.Sprintf("%s%d", g.cfg.IDPrefix, g.seq)
	g.seq++
	n := model.Node{
		Key:    id,
		Parent: parent,
		Order:  rank,
		Title:  "Node " + id,
		Kind:   g.cfg.KindMix[g.rng.Intn(len(g.cfg.KindMix))],
	}
	if g.cfg.WithNotes {
		n.Notes = fmt.Sprintf("Notes for **%s**", id)
	}
	return n
}

// markBranches sets KindFolder on every node that has children.
func markBranches(nodes []model.Node) []model.Node {
	parents := make(map[string]bool)
	for _, n := range nodes {
		parents[n.Parent] = true
	}
	for i := range nodes {
		if parents[nodes[i].Key] {
			nodes[i].Kind = model.KindFolder
		}
	}
	return nodes
}

// Chain nests depth nodes, each the only child of the previous.
func (g *Generator) Chain(depth int) []model.Node {
	nodes := make([]model.Node, 0, depth)
	parent := ""
	for i := 0; i < depth; i++ {
		n := g.node(parent, 0)
		nodes = append(nodes, n)
		parent = n.Key
	}
	return markBranches(nodes)
}

// Wide returns width top-level leaves.
func (g *Generator) Wide(width int) []model.Node {
	nodes := make([]model.Node, 0, width)
	for i := 0; i < width; i++ {
		nodes = append(nodes, g.node("", i))
	}
	return nodes
}

// Tree returns a complete tree: breadth top-level nodes, each with breadth
// children, depth levels deep.
func (g *Generator) Tree(depth, breadth int) []model.Node {
	var nodes []model.Node
	var grow func(parent string, level int)
	grow = func(parent string, level int) {
		if level >= depth {
			return
		}
		for i := 0; i < breadth; i++ {
			n := g.node(parent, i)
			nodes = append(nodes, n)
			grow(n.Key, level+1)
		}
	}
	grow("", 0)
	return markBranches(nodes)
}

// Forest returns size nodes where each picks a random earlier node, or the
// root, as parent. Ranks are shuffled and the input order is randomized so
// builders cannot rely on parents appearing first.
func (g *Generator) Forest(size int) []model.Node {
	nodes := make([]model.Node, 0, size)
	children := make(map[string]int)
	for i := 0; i < size; i++ {
		parent := ""
		if i > 0 && g.rng.Intn(4) != 0 {
			parent = nodes[g.rng.Intn(i)].Key
		}
		nodes = append(nodes, g.node(parent, children[parent]*10+g.rng.Intn(10)))
		children[parent]++
	}
	g.rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
	return markBranches(nodes)
}

// Cycle returns size nodes whose parents form a loop, plus one valid
// top-level node. Only the top-level node is reachable.
func (g *Generator) Cycle(size int) []model.Node {
	nodes := []model.Node{g.node("", 0)}
	start := g.seq
	for i := 0; i < size; i++ {
		parent := fmt.Sprintf("%s%d", g.cfg.IDPrefix, start+(i+size-1)%size)
		nodes = append(nodes, g.node(parent, 0))
	}
	return nodes
}

// ToJSONL converts nodes to JSONL format (one JSON object per line).
func ToJSONL(nodes []model.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		data, err := json.Marshal(n)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// QuickChain returns a chain from a default generator.
func QuickChain(depth int) []model.Node { return NewDefault().Chain(depth) }

// QuickWide returns top-level leaves from a default generator.
func QuickWide(width int) []model.Node { return NewDefault().Wide(width) }

// QuickTree returns a complete tree from a default generator.
func QuickTree(depth, breadth int) []model.Node { return NewDefault().Tree(depth, breadth) }

// QuickForest returns a random forest from a default generator.
func QuickForest(size int) []model.Node { return NewDefault().Forest(size) }
