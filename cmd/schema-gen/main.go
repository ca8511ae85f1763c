// Schema Generator
//
// Generates JSON Schema files for the catalog feed and the planning API from
// the Go types, which are the source of truth for clients.
//
// Usage:
//
//	go run ./cmd/schema-gen -out ./schemas
//
// Output:
//
//	schemas/catalog.json
//	schemas/plan.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/kosarica/coupon-planner/internal/feed"
	"github.com/kosarica/coupon-planner/internal/handlers"
	"github.com/kosarica/coupon-planner/internal/optimizer"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

var groups = []SchemaGroup{
	{
		Name: "catalog",
		Types: []any{
			feed.Snapshot{},
			feed.ItemDTO{},
			feed.CouponDTO{},
			feed.ScopeDTO{},
			feed.DiscountDTO{},
			feed.TierDTO{},
		},
		Output: "catalog.json",
	},
	{
		Name: "plan",
		Types: []any{
			// Request types
			handlers.PlanRequest{},
			handlers.PlanOptions{},
			optimizer.Config{},
			// Response types
			handlers.PlanResponse{},
			handlers.ErrorResponse{},
			handlers.RunsResponse{},
			optimizer.Result{},
			optimizer.RankedPlan{},
			optimizer.GroupBreakdown{},
		},
		Output: "plan.json",
	},
}

func main() {
	outputDir := flag.String("out", "./schemas", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, group := range groups {
		schema := generateGroupSchema(group)
		outputPath := filepath.Join(*outputDir, group.Output)

		if err := writeSchema(schema, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", group.Output, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", outputPath)
	}
}

// generateGroupSchema creates a combined schema with all types in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{}

	definitions := make(map[string]any)
	for _, t := range group.Types {
		schema := reflector.Reflect(t)
		for name, def := range schema.Definitions {
			definitions[name] = def
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://github.com/kosarica/coupon-planner/schemas/%s.json", group.Name),
		"title":       fmt.Sprintf("%s Types", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for %s types generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

// writeSchema writes a schema to a JSON file
func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
