// Package library loads the function-name metadata the compiler and
// decompiler use to translate between a function token's (table_index,
// function_index) pair and a human-readable tag name. The binary format
// treats this purely as an interface; this package is one
// concrete, YAML-backed implementation of it.
package library

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parameter describes one argument slot of a Function. The parameter list's
// length is the required argument count when the function's name is used as
// a tag; the names and types themselves are documentation.
type Parameter struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
}

// Function names one (table_index, function_index) pair.
type Function struct {
	Name       string      `yaml:"name"`
	Index      uint8       `yaml:"index"`
	Parameters []Parameter `yaml:"parameters,omitempty"`
}

// Table is one function table: all functions sharing a table_index.
type Table struct {
	Index     uint8      `yaml:"index"`
	Functions []Function `yaml:"functions"`
}

// Library is the root of the YAML document: a named set of function
// tables, resolved bidirectionally by name and by (table, function) index.
type Library struct {
	Name   string  `yaml:"name"`
	Tables []Table `yaml:"tables"`

	byName  map[string]resolved
	byIndex map[[2]uint8]resolved
}

type resolved struct {
	tableIndex    uint8
	functionIndex uint8
	paramCount    int
	name          string
}

// Parse decodes a Library from YAML and builds its lookup indexes.
func Parse(data []byte) (*Library, error) {
	var l Library
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("library: parsing yaml: %w", err)
	}
	l.index()
	return &l, nil
}

func (l *Library) index() {
	l.byName = make(map[string]resolved)
	l.byIndex = make(map[[2]uint8]resolved)
	for _, t := range l.Tables {
		for _, f := range t.Functions {
			r := resolved{
				tableIndex:    t.Index,
				functionIndex: f.Index,
				paramCount:    len(f.Parameters),
				name:          f.Name,
			}
			l.byName[f.Name] = r
			l.byIndex[[2]uint8{t.Index, f.Index}] = r
		}
	}
}

// Resolve looks up a tag name (case-sensitive) and returns its table and
// function index plus the declared parameter count, which the compiler
// uses as the tag's required argument arity.
func (l *Library) Resolve(name string) (tableIndex, functionIndex uint8, paramCount int, ok bool) {
	r, ok := l.byName[name]
	if !ok {
		return 0, 0, 0, false
	}
	return r.tableIndex, r.functionIndex, r.paramCount, true
}

// ResolveByIndex looks up the tag name for a (table_index, function_index)
// pair, for the decompiler.
func (l *Library) ResolveByIndex(tableIndex, functionIndex uint8) (name string, ok bool) {
	r, ok := l.byIndex[[2]uint8{tableIndex, functionIndex}]
	if !ok {
		return "", false
	}
	return r.name, true
}
