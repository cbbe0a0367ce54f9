package domain

import (
	"fmt"
	"strconv"
)

// TestSpec is one declared test. Fields not modelled here (endpoints,
// cluster_id, dsn_env, ...) are kept in Params.
type TestSpec struct {
	Name     string         `yaml:"name"`
	Type     string         `yaml:"type"`
	Target   string         `yaml:"target"`
	Expected any            `yaml:"expected,omitempty"`
	Skip     bool           `yaml:"skip,omitempty"`
	Params   map[string]any `yaml:",inline"`
}

type TestSuite struct {
	Name  string     `yaml:"name"`
	Tests []TestSpec `yaml:"tests"`
}

// Naming holds resource naming templates. {project} and {environment} are
// substituted at probe time.
type Naming struct {
	Project       string `yaml:"project,omitempty"`
	VPCName       string `yaml:"vpc_name,omitempty"`
	ECSCluster    string `yaml:"ecs_cluster,omitempty"`
	AuroraCluster string `yaml:"aurora_cluster,omitempty"`
}

type Catalog struct {
	Naming     Naming      `yaml:"naming,omitempty"`
	TestSuites []TestSuite `yaml:"test_suites"`
}

// TotalTests counts every declared test across suites.
func (c *Catalog) TotalTests() int {
	n := 0
	for _, s := range c.TestSuites {
		n += len(s.Tests)
	}
	return n
}

// AsMap flattens the spec back into its declared shape, for embedding in
// result details.
func (t TestSpec) AsMap() map[string]any {
	m := make(map[string]any, len(t.Params)+5)
	for k, v := range t.Params {
		m[k] = v
	}
	m["name"] = t.Name
	m["type"] = t.Type
	m["target"] = t.Target
	if t.Expected != nil {
		m["expected"] = t.Expected
	}
	if t.Skip {
		m["skip"] = true
	}
	return m
}

// Param returns a string parameter or "" when absent.
func (t TestSpec) Param(key string) string {
	v, ok := t.Params[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ParamStrings returns a list parameter. A scalar is treated as a
// single-element list.
func (t TestSpec) ParamStrings(key string) []string {
	return toStrings(t.Params[key])
}

// ExpectedStrings interprets Expected as a list of strings.
func (t TestSpec) ExpectedStrings() []string {
	return toStrings(t.Expected)
}

// ExpectedInts interprets Expected as a list of integers, skipping entries
// that are not numeric.
func (t TestSpec) ExpectedInts() []int {
	var out []int
	for _, s := range toStrings(t.Expected) {
		if n, err := strconv.Atoi(s); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func toStrings(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if e == nil {
				continue
			}
			out = append(out, fmt.Sprint(e))
		}
		return out
	case bool:
		// "expected: true" style flags carry no list semantics
		return nil
	default:
		return []string{fmt.Sprint(x)}
	}
}
