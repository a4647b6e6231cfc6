package datasource

import (
	"fmt"
	"os"

	"github.com/vanderheijden86/foldtree/pkg/loader"
	"github.com/vanderheijden86/foldtree/pkg/model"
)

// Load reads nodes from path. A directory is searched for the freshest valid
// source; a file is read according to its type.
func Load(path string) ([]model.Node, DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, DataSource{}, fmt.Errorf("cannot stat %s: %w", path, err)
	}

	if info.IsDir() {
		sources, err := DiscoverSources(path, true)
		if err != nil {
			return nil, DataSource{}, err
		}
		best, err := SelectBestSource(sources)
		if err != nil {
			// Fall back to the loader's name-based lookup.
			file, ferr := loader.FindDataPath(path)
			if ferr != nil {
				return nil, DataSource{}, err
			}
			return Load(file)
		}
		nodes, err := LoadFromSource(best)
		return nodes, best, err
	}

	src, err := Detect(path)
	if err != nil {
		return nil, DataSource{}, err
	}
	nodes, err := LoadFromSource(src)
	if err != nil {
		return nil, src, err
	}
	src.Valid, src.NodeCount = true, len(nodes)
	return nodes, src, nil
}

// LoadFromSource reads nodes from a known source.
func LoadFromSource(source DataSource) ([]model.Node, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadNodes()

	case SourceTypeFile:
		return loader.LoadFile(source.Path)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}
