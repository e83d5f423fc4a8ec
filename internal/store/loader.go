// File: internal/store/loader.go
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

// LoadScriptFile parses one YAML test script from disk.
func LoadScriptFile(path string) (*schemas.TestScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}

	var script schemas.TestScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parsing script %s: %w", path, err)
	}
	if script.Name == "" {
		base := filepath.Base(path)
		script.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	if err := validateScript(&script); err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	return &script, nil
}

// LoadScriptDir parses every .yaml/.yml script in a directory, sorted by
// file name so suite order is deterministic.
func LoadScriptDir(dir string) ([]schemas.TestScript, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading script directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no test scripts found in %s", dir)
	}

	scripts := make([]schemas.TestScript, 0, len(paths))
	for _, path := range paths {
		script, err := LoadScriptFile(path)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, *script)
	}
	return scripts, nil
}

func validateScript(script *schemas.TestScript) error {
	if len(script.Steps) == 0 {
		return fmt.Errorf("script has no steps")
	}
	for i, step := range script.Steps {
		if step.Action == "" {
			return fmt.Errorf("step %d has no action", i+1)
		}
		if step.Expected == "" {
			return fmt.Errorf("step %d has no expected outcome", i+1)
		}
		if step.Number == 0 {
			script.Steps[i].Number = i + 1
		}
	}
	return nil
}
