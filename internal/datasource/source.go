// Package datasource finds, validates and reads hierarchy sources. A source
// is either a SQLite database or a file the loader understands.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/foldtree/pkg/loader"
)

// SourceType identifies the kind of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database with a nodes table
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeFile is a JSONL, JSON or YAML file
	SourceTypeFile SourceType = "file"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityFile   = 50
)

// DataSource is one candidate source of nodes.
type DataSource struct {
	Type     SourceType `json:"type"`
	Path     string     `json:"path"`
	Priority int        `json:"priority"`
	ModTime  time.Time  `json:"mod_time"`
	Size     int64      `json:"size"`
	// Valid and ValidationError are set by ValidateSource.
	Valid           bool   `json:"valid"`
	ValidationError string `json:"validation_error,omitempty"`
	NodeCount       int    `json:"node_count"`
}

func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, nodes=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.NodeCount, status)
}

// IsSQLitePath reports whether path looks like a SQLite database.
func IsSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// Detect describes the source at path without reading its contents.
func Detect(path string) (DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("cannot stat source: %w", err)
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("source %s is a directory", path)
	}
	src := DataSource{
		Path:    path,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}
	if IsSQLitePath(path) {
		src.Type, src.Priority = SourceTypeSQLite, PrioritySQLite
		return src, nil
	}
	if _, err := loader.DetectFormat(path); err != nil {
		return DataSource{}, err
	}
	src.Type, src.Priority = SourceTypeFile, PriorityFile
	return src, nil
}

// DiscoverSources lists every source in dir, freshest first. Sources with
// equal modification times are ordered by priority.
func DiscoverSources(dir string, validate bool) ([]DataSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || strings.Contains(e.Name(), ".backup") {
			continue
		}
		src, err := Detect(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if validate {
			_ = ValidateSource(&src)
		}
		sources = append(sources, src)
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
	return sources, nil
}

// ValidateSource loads the source and records whether it produced nodes.
func ValidateSource(src *DataSource) error {
	nodes, err := LoadFromSource(*src)
	if err != nil {
		src.Valid = false
		src.ValidationError = err.Error()
		return err
	}
	src.NodeCount = len(nodes)
	if len(nodes) == 0 {
		src.Valid = false
		src.ValidationError = "no nodes"
		return fmt.Errorf("source %s has no nodes", src.Path)
	}
	src.Valid = true
	src.ValidationError = ""
	return nil
}

// SelectBestSource returns the first valid source. DiscoverSources already
// orders them by freshness and priority.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return DataSource{}, fmt.Errorf("no valid sources among %d candidates", len(sources))
}
