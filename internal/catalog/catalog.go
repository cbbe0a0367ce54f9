// Package catalog loads the declarative test catalog.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/infraprobe/internal/domain"
)

var ErrNotFound = errors.New("config file not found")

// Load reads and validates a catalog file.
func Load(path string) (*domain.Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog document. Test types are not checked here; an
// unknown type is reported as a failing result when the test runs.
func Parse(b []byte) (*domain.Catalog, error) {
	var c domain.Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func validate(c *domain.Catalog) error {
	for i, s := range c.TestSuites {
		if s.Name == "" {
			return fmt.Errorf("test_suites[%d]: name is required", i)
		}
		seen := make(map[string]struct{}, len(s.Tests))
		for j, t := range s.Tests {
			if t.Name == "" {
				return fmt.Errorf("suite %q tests[%d]: name is required", s.Name, j)
			}
			if _, dup := seen[t.Name]; dup {
				return fmt.Errorf("suite %q: duplicate test name %q", s.Name, t.Name)
			}
			seen[t.Name] = struct{}{}
		}
	}
	return nil
}
