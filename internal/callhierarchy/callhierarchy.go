// Package callhierarchy implements the manual, tree-sitter-based call
// hierarchy (C8 §4.8.3). The orchestrator serves every call-hierarchy
// request through it; no call hierarchy is requested from a language server.
package callhierarchy

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
)

// Grammar is the per-language contract the manual call-hierarchy fallback
// needs: a tree-sitter language plus the queries and heuristics that differ
// across languages.
type Grammar interface {
	Language() *sitter.Language

	// FunctionDefinitionQuery matches every function/method-like
	// declaration node, capturing its name under @name.
	FunctionDefinitionQuery() string

	// FunctionCallQuery matches every call-expression node, capturing the
	// callee name under @name.
	FunctionCallQuery() string

	// KindOf classifies a matched function-definition node heuristically
	// (e.g. presence of a "self"/"this" parameter implies a method).
	KindOf(node *sitter.Node, source []byte) lspDomain.SymbolKind
}

// registry maps a SupportedLanguage to its Grammar. Populated by each
// grammar's init function via Register.
var registry = map[lspDomain.SupportedLanguage]Grammar{}

// Register installs a Grammar for lang, overwriting any previous entry.
func Register(lang lspDomain.SupportedLanguage, g Grammar) {
	registry[lang] = g
}

// For returns the Grammar registered for lang, if any.
func For(lang lspDomain.SupportedLanguage) (Grammar, bool) {
	g, ok := registry[lang]
	return g, ok
}

// Definition is a parsed function/method declaration: its name, kind, and
// the line/column range of the whole declaration node within the parsed
// source.
type Definition struct {
	Name  string
	Kind  lspDomain.SymbolKind
	Range lspDomain.Range
	Node  *sitter.Node
}

// Call is a call-expression site: the callee name and its position.
type Call struct {
	Name string
	Pos  lspDomain.Position
}

// Parse runs grammar over source and returns the syntax tree; its root is
// tree.RootNode(). Callers are responsible for calling tree.Close().
func Parse(ctx context.Context, g Grammar, source []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(g.Language())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return tree, nil
}

// Definitions runs the function-definition query against root and returns
// every match as a Definition.
func Definitions(g Grammar, root *sitter.Node, source []byte) ([]Definition, error) {
	query, err := sitter.NewQuery([]byte(g.FunctionDefinitionQuery()), g.Language())
	if err != nil {
		return nil, fmt.Errorf("compile function-definition query: %w", err)
	}
	defer query.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(query, root)

	var defs []Definition
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		var name string
		var defNode *sitter.Node
		for _, cap := range match.Captures {
			capName := query.CaptureNameForId(cap.Index)
			switch capName {
			case "name":
				name = cap.Node.Content(source)
			case "definition":
				defNode = cap.Node
			}
		}
		if defNode == nil {
			continue
		}
		defs = append(defs, Definition{
			Name:  name,
			Kind:  g.KindOf(defNode, source),
			Range: nodeRange(defNode),
			Node:  defNode,
		})
	}
	return defs, nil
}

// Calls runs the function-call query against root and returns every call
// site.
func Calls(g Grammar, root *sitter.Node, source []byte) ([]Call, error) {
	query, err := sitter.NewQuery([]byte(g.FunctionCallQuery()), g.Language())
	if err != nil {
		return nil, fmt.Errorf("compile function-call query: %w", err)
	}
	defer query.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(query, root)

	var calls []Call
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		for _, cap := range match.Captures {
			if query.CaptureNameForId(cap.Index) == "name" {
				calls = append(calls, Call{
					Name: cap.Node.Content(source),
					Pos:  nodeRange(cap.Node).Start,
				})
			}
		}
	}
	return calls, nil
}

// EnclosingDefinition returns the innermost Definition whose range contains
// pos, breaking ties by smallest line span, per §4.8.3.
func EnclosingDefinition(defs []Definition, pos lspDomain.Position) (Definition, bool) {
	var best Definition
	found := false
	for _, d := range defs {
		if !d.Range.Contains(pos) {
			continue
		}
		if !found || d.Range.Lines() < best.Range.Lines() {
			best = d
			found = true
		}
	}
	return best, found
}

func nodeRange(n *sitter.Node) lspDomain.Range {
	start := n.StartPoint()
	end := n.EndPoint()
	return lspDomain.Range{
		Start: lspDomain.Position{Line: int(start.Row), Character: int(start.Column)},
		End:   lspDomain.Position{Line: int(end.Row), Character: int(end.Column)},
	}
}
