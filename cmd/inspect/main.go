// Package main implements the metadata inspection tool. It loads the same
// configuration the server uses, validates every entity definition and
// prints the derived query surface, so definition mistakes show up before
// a deploy instead of as runtime validation errors.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"queryforge/internal/config"
	"queryforge/internal/metadata"
)

type fieldSurface struct {
	Kind string `json:"kind,omitempty"`

	// Operators empty means unrestricted.
	Operators []string `json:"operators,omitempty"`
	Sortable  bool     `json:"sortable"`
}

type entitySurface struct {
	Entity     string                  `json:"entity"`
	Table      string                  `json:"table"`
	PrimaryKey string                  `json:"primaryKey"`
	Fields     map[string]fieldSurface `json:"fields"`
	Relations  []string                `json:"relations,omitempty"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	registry := metadata.NewRegistry()
	failed := false
	for _, def := range cfg.Entities {
		if err := registry.Register(def); err != nil {
			fmt.Fprintf(os.Stderr, "entity %q: %v\n", def.Name, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}

	surfaces := make([]entitySurface, 0, len(cfg.Entities))
	for _, def := range registry.List() {
		surfaces = append(surfaces, surface(def))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(surfaces); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}

// surface flattens a definition and its derived schema into the shape the
// tool prints.
func surface(def metadata.EntityDef) entitySurface {
	out := entitySurface{
		Entity:     def.Name,
		Table:      def.Table,
		PrimaryKey: def.PrimaryKey,
		Fields:     make(map[string]fieldSurface, len(def.Columns)),
	}

	schema := def.Schema()
	for _, col := range def.Columns {
		fs := fieldSurface{Kind: string(col.Kind)}
		if schema != nil {
			if rule, ok := schema.FieldRule(col.Name); ok {
				for _, op := range rule.Operators {
					fs.Operators = append(fs.Operators, string(op))
				}
			}
			if rule, ok := schema.SortRule(col.Name); ok {
				fs.Sortable = rule.AllowsSorting()
			}
		}
		out.Fields[col.Name] = fs
	}

	for _, rel := range def.Relations {
		out.Relations = append(out.Relations, fmt.Sprintf("%s (%s %s)", rel.Name, rel.Kind, rel.Target))
	}
	sort.Strings(out.Relations)

	return out
}
