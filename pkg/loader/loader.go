// Package loader reads hierarchy nodes from JSONL, JSON and YAML files.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/foldtree/pkg/metrics"
	"github.com/vanderheijden86/foldtree/pkg/model"
)

// DataEnvVar names a data file or directory used when no path is given.
const DataEnvVar = "FOLD_DATA"

// PreferredNames is the lookup order for data files inside a directory.
var PreferredNames = []string{
	"hierarchy.jsonl", "nodes.jsonl",
	"hierarchy.json", "nodes.json",
	"hierarchy.yaml", "nodes.yaml", "hierarchy.yml", "nodes.yml",
}

// ErrUnknownFormat is returned for files whose extension is not supported.
var ErrUnknownFormat = errors.New("unknown data format")

// Format is a supported file encoding.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// ResolvePath turns a user-supplied path into a data file. An empty path
// falls back to $FOLD_DATA and then the working directory; a directory is
// searched with FindDataPath.
func ResolvePath(path string) (string, error) {
	if path == "" {
		path = os.Getenv(DataEnvVar)
	}
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		path = wd
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat data path: %w", err)
	}
	if info.IsDir() {
		return FindDataPath(path)
	}
	return path, nil
}

// FindDataPath locates a hierarchy file in dir. Preferred names win; after
// that the first non-empty supported file in directory order is used.
// Backup files are skipped.
func FindDataPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read data directory: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if _, err := DetectFormat(name); err != nil {
			continue
		}
		if strings.Contains(name, ".backup") || strings.Contains(name, ".orig") || strings.HasPrefix(name, ".") {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no hierarchy file found in %s", dir)
	}

	nonEmpty := func(name string) bool {
		info, err := os.Stat(filepath.Join(dir, name))
		return err == nil && info.Size() > 0
	}
	for _, preferred := range PreferredNames {
		for _, name := range candidates {
			if name == preferred && nonEmpty(name) {
				return filepath.Join(dir, name), nil
			}
		}
	}
	for _, name := range candidates {
		if nonEmpty(name) {
			return filepath.Join(dir, name), nil
		}
	}
	return filepath.Join(dir, candidates[0]), nil
}

// DefaultMaxBufferSize is the longest JSONL line accepted (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ParseOptions configures parsing.
type ParseOptions struct {
	// WarningHandler receives warnings about skipped input. When nil,
	// warnings go to stderr unless FOLD_ROBOT=1.
	WarningHandler func(string)

	// BufferSize caps JSONL line length; longer lines are skipped.
	// 0 means DefaultMaxBufferSize.
	BufferSize int

	// NodeFilter drops nodes for which it returns false.
	NodeFilter func(*model.Node) bool
}

func (o ParseOptions) warn() func(string) {
	if o.WarningHandler != nil {
		return o.WarningHandler
	}
	if os.Getenv("FOLD_ROBOT") == "1" {
		return func(string) {}
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

// LoadFile reads nodes from path using default options.
func LoadFile(path string) ([]model.Node, error) {
	return LoadFileWithOptions(path, ParseOptions{})
}

// LoadFileWithOptions reads nodes from path, choosing the parser by extension.
func LoadFileWithOptions(path string, opts ParseOptions) ([]model.Node, error) {
	defer metrics.Timer(metrics.DataLoad)()

	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no hierarchy found at %s", path)
		}
		return nil, fmt.Errorf("failed to open hierarchy file: %w", err)
	}
	defer f.Close()

	nodes, err := Parse(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nodes, nil
}

// LoadFiles reads several files concurrently and concatenates their nodes
// in argument order. The first failure cancels the rest.
func LoadFiles(ctx context.Context, paths []string, opts ParseOptions) ([]model.Node, error) {
	results := make([][]model.Node, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			nodes, err := LoadFileWithOptions(path, opts)
			if err != nil {
				return err
			}
			results[i] = nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Node
	for _, nodes := range results {
		all = append(all, nodes...)
	}
	return all, nil
}

// Parse decodes nodes from r in the given format.
func Parse(r io.Reader, format Format, opts ParseOptions) ([]model.Node, error) {
	switch format {
	case FormatJSONL:
		return ParseJSONL(r, opts)
	case FormatJSON, FormatYAML:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("error reading hierarchy: %w", err)
		}
		data = stripBOM(data)
		var nodes []model.Node
		if format == FormatJSON {
			nodes, err = decodeJSONDocument(data)
		} else {
			nodes, err = decodeYAMLDocument(data)
		}
		if err != nil {
			return nil, err
		}
		return keepValid(nodes, opts, "entry"), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// document is the object form of a JSON or YAML file: {"nodes": [...]}.
type document struct {
	Nodes []model.Node `json:"nodes" yaml:"nodes"`
}

func decodeJSONDocument(data []byte) ([]model.Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var nodes []model.Node
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, fmt.Errorf("invalid JSON hierarchy: %w", err)
		}
		return nodes, nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON hierarchy: %w", err)
	}
	return doc.Nodes, nil
}

func decodeYAMLDocument(data []byte) ([]model.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid YAML hierarchy: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}
	body := root.Content[0]
	if body.Kind == yaml.SequenceNode {
		var nodes []model.Node
		if err := body.Decode(&nodes); err != nil {
			return nil, fmt.Errorf("invalid YAML hierarchy: %w", err)
		}
		return nodes, nil
	}
	var doc document
	if err := body.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid YAML hierarchy: %w", err)
	}
	return doc.Nodes, nil
}

func keepValid(nodes []model.Node, opts ParseOptions, unit string) []model.Node {
	warn := opts.warn()
	out := nodes[:0]
	for i := range nodes {
		n := &nodes[i]
		n.Kind = model.Kind(strings.ToLower(strings.TrimSpace(string(n.Kind))))
		if err := n.Validate(); err != nil {
			warn(fmt.Sprintf("skipping invalid node at %s %d: %v", unit, i+1, err))
			continue
		}
		if opts.NodeFilter != nil && !opts.NodeFilter(n) {
			continue
		}
		out = append(out, *n)
	}
	return out
}

// ParseJSONL decodes one node per line. Malformed, invalid and overlong
// lines are skipped with a warning.
func ParseJSONL(r io.Reader, opts ParseOptions) ([]model.Node, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)
	warn := opts.warn()

	var nodes []model.Node
	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading hierarchy stream at line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var n model.Node
		if err := json.Unmarshal(line, &n); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		n.Kind = model.Kind(strings.ToLower(strings.TrimSpace(string(n.Kind))))
		if err := n.Validate(); err != nil {
			warn(fmt.Sprintf("skipping invalid node on line %d: %v", lineNum, err))
			continue
		}
		if opts.NodeFilter != nil && !opts.NodeFilter(&n) {
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
}
