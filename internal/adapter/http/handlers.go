package http

import (
	"net/http"

	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
	"github.com/orbitcode/lsproxy/internal/orchestrator"
)

type handlers struct {
	orch *orchestrator.Orchestrator
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /workspace/list-files
func (h *handlers) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.orch.ListFiles(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

type readSourceCodeRequest struct {
	Path  string           `json:"path"`
	Range *lspDomain.Range `json:"range,omitempty"`
}

// POST /workspace/read-source-code
func (h *handlers) readSourceCode(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[readSourceCodeRequest](w, r, maxRequestBody)
	if !ok {
		return
	}
	if !requireField(w, req.Path, "path") {
		return
	}

	text, err := h.orch.ReadSourceCode(r.Context(), req.Path, req.Range)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"source_code": text})
}

// GET /symbol/definitions-in-file?file_path=
func (h *handlers) definitionsInFile(w http.ResponseWriter, r *http.Request) {
	path := queryParam(r, "file_path")
	if !requireField(w, path, "file_path") {
		return
	}

	symbols, err := h.orch.DefinitionsInFile(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbols": symbols})
}

type findDefinitionRequest struct {
	Position lspDomain.FilePosition `json:"position"`
}

// POST /symbol/find-definition
func (h *handlers) findDefinition(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[findDefinitionRequest](w, r, maxRequestBody)
	if !ok {
		return
	}
	if !requireField(w, req.Position.Path, "position.path") {
		return
	}

	defs, err := h.orch.FindDefinition(r.Context(), req.Position)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(defs) == 0 {
		writeError(w, http.StatusBadRequest, "no results")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"definitions": defs})
}

type findReferencesRequest struct {
	IdentifierPosition lspDomain.FilePosition `json:"identifier_position"`
}

// POST /symbol/find-references
func (h *handlers) findReferences(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[findReferencesRequest](w, r, maxRequestBody)
	if !ok {
		return
	}
	if !requireField(w, req.IdentifierPosition.Path, "identifier_position.path") {
		return
	}

	refs, err := h.orch.FindReferences(r.Context(), req.IdentifierPosition)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"references": refs})
}

type referencedSymbolsRequest struct {
	IdentifierPosition lspDomain.FilePosition `json:"identifier_position"`
}

// POST /symbol/find-referenced-symbols
func (h *handlers) findReferencedSymbols(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[referencedSymbolsRequest](w, r, maxRequestBody)
	if !ok {
		return
	}
	if !requireField(w, req.IdentifierPosition.Path, "identifier_position.path") {
		return
	}

	result, err := h.orch.ReferencedSymbols(r.Context(), req.IdentifierPosition)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// POST /symbol/find-referenced-definitions
func (h *handlers) findReferencedDefinitions(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[referencedSymbolsRequest](w, r, maxRequestBody)
	if !ok {
		return
	}
	if !requireField(w, req.IdentifierPosition.Path, "identifier_position.path") {
		return
	}

	defs, err := h.orch.ReferencedDefinitions(r.Context(), req.IdentifierPosition)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspace_symbols": defs})
}

// GET /symbol/file-subgraph?file_path=
func (h *handlers) fileSubgraph(w http.ResponseWriter, r *http.Request) {
	path := queryParam(r, "file_path")
	if !requireField(w, path, "file_path") {
		return
	}

	graph, err := h.orch.FileSubgraph(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

type callHierarchyRequest struct {
	IdentifierPosition lspDomain.FilePosition `json:"identifier_position"`
	UseManualHierarchy bool                   `json:"use_manual_hierarchy"`
}

// POST /symbol/call-hierarchy
func (h *handlers) callHierarchy(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[callHierarchyRequest](w, r, maxRequestBody)
	if !ok {
		return
	}
	if !requireField(w, req.IdentifierPosition.Path, "identifier_position.path") {
		return
	}

	result, err := h.orch.CallHierarchy(r.Context(), req.IdentifierPosition)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type renameRequest struct {
	Position lspDomain.FilePosition `json:"position"`
	NewName  string                 `json:"new_name"`
}

// POST /symbol/rename
func (h *handlers) rename(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[renameRequest](w, r, maxRequestBody)
	if !ok {
		return
	}
	if !requireField(w, req.Position.Path, "position.path") {
		return
	}
	if !requireField(w, req.NewName, "new_name") {
		return
	}

	edit, err := h.orch.Rename(r.Context(), req.Position, req.NewName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(edit)
}
