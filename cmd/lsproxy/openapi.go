package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// writeOpenAPISchema writes a minimal OpenAPI 3.0 document describing the
// route table to path and returns. It does not start the server.
func writeOpenAPISchema(path string) error {
	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "lsproxy",
			"version": "1.0.0",
		},
		"paths": map[string]any{
			"/workspace/list-files": map[string]any{
				"get": map[string]any{"summary": "enumerate workspace files"},
			},
			"/workspace/read-source-code": map[string]any{
				"post": map[string]any{"summary": "read file text or a range slice"},
			},
			"/symbol/definitions-in-file": map[string]any{
				"get": map[string]any{"summary": "symbols declared in a file"},
			},
			"/symbol/find-definition": map[string]any{
				"post": map[string]any{"summary": "resolve an identifier to its definitions"},
			},
			"/symbol/find-references": map[string]any{
				"post": map[string]any{"summary": "resolve an identifier to its references"},
			},
			"/symbol/find-referenced-symbols": map[string]any{
				"post": map[string]any{"summary": "classify every call made in a symbol's body"},
			},
			"/symbol/find-referenced-definitions": map[string]any{
				"post": map[string]any{"summary": "workspace-scoped referenced-symbol classification"},
			},
			"/symbol/file-subgraph": map[string]any{
				"get": map[string]any{"summary": "per-file declared-symbol reference graph"},
			},
			"/symbol/call-hierarchy": map[string]any{
				"post": map[string]any{"summary": "incoming/outgoing calls for a symbol"},
			},
			"/symbol/rename": map[string]any{
				"post": map[string]any{"summary": "compute a workspace edit for a rename"},
			},
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal openapi schema: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: schema output, not sensitive
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
