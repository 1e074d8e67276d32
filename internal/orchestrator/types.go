package orchestrator

import lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"

// ReferencedSymbols is the §4.8.1 classification of every call made inside
// a symbol's body, keyed by the callee's use site.
type ReferencedSymbols struct {
	WorkspaceSymbols []ReferenceWithDefinitions `json:"workspace_symbols"`
	ExternalSymbols  []lspDomain.Identifier     `json:"external_symbols"`
	NotFound         []lspDomain.Identifier     `json:"not_found"`
}

// ReferenceWithDefinitions pairs a use site with the workspace symbol(s) its
// definition(s) resolve to.
type ReferenceWithDefinitions struct {
	Reference   lspDomain.Identifier `json:"reference"`
	Definitions []lspDomain.Symbol   `json:"definitions"`
}

// FileSubgraph is the §4.8.2 per-file declared-symbol graph: parallel
// arrays indexed by position in Symbols.
type FileSubgraph struct {
	Symbols            []lspDomain.Symbol     `json:"symbols"`
	ReferencingSymbols [][]lspDomain.Symbol   `json:"referencing_symbols"`
	ReferencedSymbols  [][]lspDomain.Symbol   `json:"referenced_symbols"`
}

// CallHierarchyItem names one call-site resolved as part of a call
// hierarchy query: its callee/caller name and where it was found.
type CallHierarchyItem struct {
	Name string            `json:"name"`
	Kind lspDomain.SymbolKind `json:"kind"`
	Path string            `json:"path"`
	Line int               `json:"line"`
}

// CallHierarchyResult is the §4.8.3 manual call-hierarchy response.
type CallHierarchyResult struct {
	Target   CallHierarchyItem    `json:"target"`
	Incoming []CallHierarchyItem  `json:"incoming_calls"`
	Outgoing []CallHierarchyItem  `json:"outgoing_calls"`
}
