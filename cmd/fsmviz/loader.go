package main

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

//go:embed definitions/*.yaml
var builtinDefinitions embed.FS

// embedLoader resolves bare definition names to the YAML files under definitions/.
type embedLoader struct {
	fsys fs.FS
}

func newEmbedLoader() embedLoader {
	return embedLoader{fsys: builtinDefinitions}
}

func (l embedLoader) LoadByName(name string) ([]byte, error) {
	data, err := fs.ReadFile(l.fsys, path.Join("definitions", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("no built-in definition %q: %w", name, err)
	}

	return data, nil
}

func (l embedLoader) ListAvailable() []string {
	matches, err := fs.Glob(l.fsys, "definitions/*.yaml")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, strings.TrimSuffix(path.Base(match), ".yaml"))
	}

	return names
}
