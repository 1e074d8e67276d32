// Package orchestrator implements C8: the cross-cutting algorithms that
// combine LSP results (C5, via the Manager) with AST structural queries
// (C6) into the higher-level answers the HTTP API serves — symbol
// subgraphs, referenced-symbol classification, and the manual call
// hierarchy fallback.
package orchestrator

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/orbitcode/lsproxy/internal/astquery"
	"github.com/orbitcode/lsproxy/internal/callhierarchy"
	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
	"github.com/orbitcode/lsproxy/internal/manager"
	"github.com/orbitcode/lsproxy/internal/mount"
)

// Orchestrator answers cross-cutting code-intelligence queries over the
// mounted workspace. It holds no root of its own: every method resolves the
// workspace root from mount.FromContext, so callers never have to thread a
// root value through the request path, and tests can scope a root to a
// single call via mount.WithOverride instead of mutating shared state.
type Orchestrator struct {
	mgr *manager.Manager
	ast *astquery.Client
}

// New builds an Orchestrator routing LSP operations through mgr and
// structural queries through ast.
func New(mgr *manager.Manager, ast *astquery.Client) *Orchestrator {
	return &Orchestrator{mgr: mgr, ast: ast}
}

// ListFiles returns every workspace file, as workspace-relative paths.
func (o *Orchestrator) ListFiles(ctx context.Context) ([]string, error) {
	root := mount.FromContext(ctx)
	abs, err := o.mgr.Documents().ListFiles()
	if err != nil {
		return nil, lspDomain.NewInternalError("list files: %v", err)
	}
	rel := make([]string, len(abs))
	for i, a := range abs {
		rel[i] = toRel(root, a)
	}
	return rel, nil
}

// ReadSourceCode returns the text of relPath, optionally sliced by rng.
func (o *Orchestrator) ReadSourceCode(ctx context.Context, relPath string, rng *lspDomain.Range) (string, error) {
	abs := toAbs(mount.FromContext(ctx), relPath)
	text, err := o.mgr.Documents().Read(abs, rng)
	if err != nil {
		return "", lspDomain.NewFileNotFound(relPath)
	}
	return text, nil
}

// DefinitionsInFile returns every declared symbol in relPath via C6,
// converted to workspace-relative Symbols.
func (o *Orchestrator) DefinitionsInFile(ctx context.Context, relPath string) ([]lspDomain.Symbol, error) {
	matches, err := o.ast.FileSymbols(ctx, toAbs(mount.FromContext(ctx), relPath))
	if err != nil {
		return nil, lspDomain.NewInternalError("file symbols: %v", err)
	}
	symbols := make([]lspDomain.Symbol, 0, len(matches))
	for _, m := range matches {
		m.File = relPath
		symbols = append(symbols, m.ToSymbol())
	}
	return symbols, nil
}

// FindDefinition resolves go-to-definition at a position, returning
// workspace-relative FileRanges for in-workspace results (out-of-workspace
// results keep their absolute path, letting callers classify them as
// external).
func (o *Orchestrator) FindDefinition(ctx context.Context, pos lspDomain.FilePosition) ([]lspDomain.FileRange, error) {
	root := mount.FromContext(ctx)
	abs := toAbs(root, pos.Path)
	client, err := o.mgr.ClientFor(abs)
	if err != nil {
		return nil, err
	}

	locs, err := client.Definition(ctx, absToURI(abs), pos.Position)
	if err != nil {
		return nil, lspDomain.NewInternalError("definition: %v", err)
	}
	return locationsToFileRanges(root, locs), nil
}

// FindReferences resolves find-references at a position.
func (o *Orchestrator) FindReferences(ctx context.Context, pos lspDomain.FilePosition) ([]lspDomain.FileRange, error) {
	root := mount.FromContext(ctx)
	abs := toAbs(root, pos.Path)
	client, err := o.mgr.ClientFor(abs)
	if err != nil {
		return nil, err
	}

	locs, err := client.References(ctx, absToURI(abs), pos.Position)
	if err != nil {
		return nil, lspDomain.NewInternalError("references: %v", err)
	}
	return locationsToFileRanges(root, locs), nil
}

// Rename requests a workspace edit renaming the symbol at pos. The edit is
// returned verbatim as a workspace-edit JSON value; this proxy never writes
// to disk.
func (o *Orchestrator) Rename(ctx context.Context, pos lspDomain.FilePosition, newName string) ([]byte, error) {
	abs := toAbs(mount.FromContext(ctx), pos.Path)
	client, err := o.mgr.ClientFor(abs)
	if err != nil {
		return nil, err
	}
	edit, err := client.Rename(ctx, absToURI(abs), pos.Position, newName)
	if err != nil {
		return nil, lspDomain.NewInternalError("rename: %v", err)
	}
	return edit, nil
}

func locationsToFileRanges(root string, locs []lspDomain.Location) []lspDomain.FileRange {
	out := make([]lspDomain.FileRange, 0, len(locs))
	for _, l := range locs {
		abs := uriToAbs(l.URI)
		path := abs
		if isInWorkspace(root, abs) {
			path = toRel(root, abs)
		}
		out = append(out, lspDomain.FileRange{Path: path, Range: l.Range})
	}
	return out
}

// --- 4.8.1 Referenced-Symbol Classification ---

// ReferencedSymbols implements §4.8.1: every call made inside the symbol
// enclosing pos (the callee names identifierUses finds) is resolved to a
// definition and classified as workspace/external/not_found. Identifiers
// that are read without being called are not classified.
func (o *Orchestrator) ReferencedSymbols(ctx context.Context, pos lspDomain.FilePosition) (ReferencedSymbols, error) {
	abs := toAbs(mount.FromContext(ctx), pos.Path)

	enclosing, err := o.enclosingBody(ctx, abs, pos.Position)
	if err != nil {
		return ReferencedSymbols{}, err
	}

	uses, err := o.identifierUses(ctx, abs, enclosing)
	if err != nil {
		return ReferencedSymbols{}, err
	}

	files, err := o.mgr.Documents().ListFiles()
	if err != nil {
		return ReferencedSymbols{}, lspDomain.NewInternalError("list files: %v", err)
	}
	inWorkspace := make(map[string]struct{}, len(files))
	for _, f := range files {
		inWorkspace[f] = struct{}{}
	}

	client, err := o.mgr.ClientFor(abs)
	if err != nil {
		return ReferencedSymbols{}, err
	}

	var result ReferencedSymbols
	for _, use := range uses {
		locs, err := client.Definition(ctx, absToURI(abs), use.Range.Range.Start)
		if err != nil || len(locs) == 0 {
			result.NotFound = append(result.NotFound, use)
			continue
		}

		var inWs, outWs bool
		var defs []lspDomain.Symbol
		for _, l := range locs {
			defAbs := uriToAbs(l.URI)
			if _, ok := inWorkspace[defAbs]; !ok {
				outWs = true
				continue
			}
			inWs = true
			sym, found := o.symbolAtLocation(ctx, defAbs, l.Range.Start)
			if found {
				defs = append(defs, sym)
			}
		}

		switch {
		case inWs && len(defs) > 0:
			result.WorkspaceSymbols = append(result.WorkspaceSymbols, ReferenceWithDefinitions{Reference: use, Definitions: defs})
		case inWs && len(defs) == 0:
			result.NotFound = append(result.NotFound, use)
		case outWs:
			result.ExternalSymbols = append(result.ExternalSymbols, use)
		default:
			result.NotFound = append(result.NotFound, use)
		}
	}

	sortReferences(result.WorkspaceSymbols)
	sortIdentifiers(result.ExternalSymbols)
	sortIdentifiers(result.NotFound)
	return result, nil
}

// ReferencedDefinitions is §4.8.1 restricted to workspace results.
func (o *Orchestrator) ReferencedDefinitions(ctx context.Context, pos lspDomain.FilePosition) ([]ReferenceWithDefinitions, error) {
	full, err := o.ReferencedSymbols(ctx, pos)
	if err != nil {
		return nil, err
	}
	return full.WorkspaceSymbols, nil
}

// enclosingBody finds the FileRange of the symbol whose body contains pos,
// via C6's file-symbol list.
func (o *Orchestrator) enclosingBody(ctx context.Context, abs string, pos lspDomain.Position) (lspDomain.Range, error) {
	relPath := toRel(mount.FromContext(ctx), abs)
	matches, err := o.ast.FileSymbols(ctx, abs)
	if err != nil {
		return lspDomain.Range{}, lspDomain.NewInternalError("file symbols: %v", err)
	}

	best := lspDomain.Range{}
	found := false
	for _, m := range matches {
		m.File = relPath
		sym := m.ToSymbol()
		if !sym.Range.Range.Contains(pos) {
			continue
		}
		if !found || sym.Range.Range.Lines() < best.Lines() {
			best = sym.Range.Range
			found = true
		}
	}
	if !found {
		return lspDomain.Range{}, lspDomain.NewInternalError("no enclosing symbol at %s:%d:%d", relPath, pos.Line, pos.Character)
	}
	return best, nil
}

// identifierUses returns the callee name of every call expression inside
// body, found with the same tree-sitter call query the manual call-hierarchy
// fallback uses (`astquery` only surfaces declarations and imports, not bare
// name references). Identifiers that are not the callee of a call, such as a
// plain variable read, are not returned.
func (o *Orchestrator) identifierUses(ctx context.Context, abs string, body lspDomain.Range) ([]lspDomain.Identifier, error) {
	relPath := toRel(mount.FromContext(ctx), abs)
	lang, ok := lspDomain.LanguageForExtension(filepath.Ext(abs))
	if !ok {
		return nil, lspDomain.NewUnsupportedFileType(relPath)
	}
	grammar, ok := callhierarchy.For(lang)
	if !ok {
		return nil, lspDomain.NewInternalError("no call-hierarchy grammar registered for %s", lang)
	}

	source, err := o.mgr.Documents().Read(abs, nil)
	if err != nil {
		return nil, lspDomain.NewFileNotFound(relPath)
	}

	tree, err := callhierarchy.Parse(ctx, grammar, []byte(source))
	if err != nil {
		return nil, lspDomain.NewInternalError("parse %s: %v", relPath, err)
	}
	defer tree.Close()

	calls, err := callhierarchy.Calls(grammar, tree.RootNode(), []byte(source))
	if err != nil {
		return nil, lspDomain.NewInternalError("call query: %v", err)
	}

	var uses []lspDomain.Identifier
	for _, c := range calls {
		if !body.Contains(c.Pos) {
			continue
		}
		uses = append(uses, lspDomain.Identifier{
			Name: c.Name,
			Range: lspDomain.FileRange{
				Path:  relPath,
				Range: lspDomain.Range{Start: c.Pos, End: c.Pos},
			},
		})
	}
	return uses, nil
}

// symbolAtLocation resolves a definition location back to the Symbol it
// names, by re-running file_symbols on the defining file and matching
// identifier position, per §4.8.1 step 3.
func (o *Orchestrator) symbolAtLocation(ctx context.Context, abs string, pos lspDomain.Position) (lspDomain.Symbol, bool) {
	relPath := toRel(mount.FromContext(ctx), abs)
	matches, err := o.ast.FileSymbols(ctx, abs)
	if err != nil {
		return lspDomain.Symbol{}, false
	}
	for _, m := range matches {
		m.File = relPath
		sym := m.ToSymbol()
		if sym.IdentifierPosition.Position == pos {
			return sym, true
		}
	}
	return lspDomain.Symbol{}, false
}

func sortReferences(refs []ReferenceWithDefinitions) {
	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i].Reference.Range, refs[j].Reference.Range
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Range.Start.Line < b.Range.Start.Line
	})
}

func sortIdentifiers(ids []lspDomain.Identifier) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i].Range, ids[j].Range
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Range.Start.Line < b.Range.Start.Line
	})
}

// --- 4.8.2 File Symbol Subgraph ---

// FileSubgraph implements §4.8.2: a file's declared symbols plus, for each,
// the symbols that reference it and the symbols it references.
func (o *Orchestrator) FileSubgraph(ctx context.Context, relPath string) (FileSubgraph, error) {
	abs := toAbs(mount.FromContext(ctx), relPath)

	symbols, err := o.DefinitionsInFile(ctx, relPath)
	if err != nil {
		return FileSubgraph{}, err
	}

	client, err := o.mgr.ClientFor(abs)
	if err != nil {
		return FileSubgraph{}, err
	}

	imports, err := o.ast.FileImports(ctx, abs)
	if err != nil {
		return FileSubgraph{}, lspDomain.NewInternalError("file imports: %v", err)
	}
	importRefs, err := o.ast.ReferencesTo(ctx, abs, imports)
	if err != nil {
		return FileSubgraph{}, lspDomain.NewInternalError("references to imports: %v", err)
	}

	referencing := make([][]lspDomain.Symbol, len(symbols))
	referenced := make([][]lspDomain.Symbol, len(symbols))

	for i, sym := range symbols {
		locs, err := client.References(ctx, absToURI(abs), sym.IdentifierPosition.Position)
		if err != nil {
			continue
		}
		for _, l := range locs {
			refAbs := uriToAbs(l.URI)
			enclosers := o.symbolsEnclosing(ctx, refAbs, l.Range.Start)
			for _, enc := range enclosers {
				if enc.Name == sym.Name && enc.IdentifierPosition == sym.IdentifierPosition {
					continue
				}
				referencing[i] = append(referencing[i], enc)
			}
		}

		for _, ref := range importRefs {
			usePos := ref.ToIdentifier().Range.Range.Start
			if !sym.Range.Range.Contains(usePos) {
				continue
			}
			locs, err := client.Definition(ctx, absToURI(abs), usePos)
			if err != nil {
				continue
			}
			for _, l := range locs {
				defAbs := uriToAbs(l.URI)
				if sym2, ok := o.symbolAtLocation(ctx, defAbs, l.Range.Start); ok {
					referenced[i] = append(referenced[i], sym2)
				}
			}
		}
	}

	return FileSubgraph{Symbols: symbols, ReferencingSymbols: referencing, ReferencedSymbols: referenced}, nil
}

// symbolsEnclosing returns every symbol in absPath whose range contains pos.
func (o *Orchestrator) symbolsEnclosing(ctx context.Context, absPath string, pos lspDomain.Position) []lspDomain.Symbol {
	relPath := toRel(mount.FromContext(ctx), absPath)
	matches, err := o.ast.FileSymbols(ctx, absPath)
	if err != nil {
		return nil
	}
	var out []lspDomain.Symbol
	for _, m := range matches {
		m.File = relPath
		sym := m.ToSymbol()
		if sym.Range.Range.Contains(pos) {
			out = append(out, sym)
		}
	}
	return out
}

// --- 4.8.3 Call-Hierarchy Fallback ---

// CallHierarchy implements §4.8.3's manual mode: parse the target file with
// tree-sitter, find the definition enclosing pos, then enumerate incoming
// calls (across same-language workspace files) and outgoing calls (within
// the target's own body). Each outgoing call is reported by its callee name
// and the line of the call site; the callee is not resolved through LSP.
func (o *Orchestrator) CallHierarchy(ctx context.Context, pos lspDomain.FilePosition) (CallHierarchyResult, error) {
	root := mount.FromContext(ctx)
	abs := toAbs(root, pos.Path)
	lang, ok := lspDomain.LanguageForExtension(filepath.Ext(abs))
	if !ok {
		return CallHierarchyResult{}, lspDomain.NewUnsupportedFileType(pos.Path)
	}
	grammar, ok := callhierarchy.For(lang)
	if !ok {
		return CallHierarchyResult{}, lspDomain.NewInternalError("no call-hierarchy grammar registered for %s", lang)
	}

	source, err := o.mgr.Documents().Read(abs, nil)
	if err != nil {
		return CallHierarchyResult{}, lspDomain.NewFileNotFound(pos.Path)
	}
	tree, err := callhierarchy.Parse(ctx, grammar, []byte(source))
	if err != nil {
		return CallHierarchyResult{}, lspDomain.NewInternalError("parse: %v", err)
	}
	defer tree.Close()

	defs, err := callhierarchy.Definitions(grammar, tree.RootNode(), []byte(source))
	if err != nil {
		return CallHierarchyResult{}, lspDomain.NewInternalError("definitions: %v", err)
	}
	target, ok := callhierarchy.EnclosingDefinition(defs, pos.Position)
	if !ok {
		return CallHierarchyResult{}, lspDomain.NewInternalError("no enclosing definition at %s:%d:%d", pos.Path, pos.Position.Line, pos.Position.Character)
	}

	result := CallHierarchyResult{
		Target: CallHierarchyItem{Name: target.Name, Kind: target.Kind, Path: pos.Path, Line: target.Range.Start.Line},
	}

	// Outgoing: every call inside the target's own body.
	calls, err := callhierarchy.Calls(grammar, tree.RootNode(), []byte(source))
	if err == nil {
		for _, c := range calls {
			if !target.Range.Contains(c.Pos) {
				continue
			}
			result.Outgoing = append(result.Outgoing, CallHierarchyItem{Name: c.Name, Path: pos.Path, Line: c.Pos.Line})
		}
	}

	// Incoming: scan every same-language workspace file for calls whose
	// name matches the target, reporting the enclosing function as caller.
	files, err := o.mgr.Documents().ListFiles()
	if err != nil {
		return result, nil
	}
	for _, f := range files {
		fileLang, ok := lspDomain.LanguageForExtension(filepath.Ext(f))
		if !ok || fileLang != lang {
			continue
		}
		fSource, err := o.mgr.Documents().Read(f, nil)
		if err != nil {
			continue
		}
		fTree, err := callhierarchy.Parse(ctx, grammar, []byte(fSource))
		if err != nil {
			continue
		}
		fDefs, _ := callhierarchy.Definitions(grammar, fTree.RootNode(), []byte(fSource))
		fCalls, _ := callhierarchy.Calls(grammar, fTree.RootNode(), []byte(fSource))
		for _, c := range fCalls {
			if c.Name != target.Name {
				continue
			}
			relF := toRel(root, f)
			if caller, ok := callhierarchy.EnclosingDefinition(fDefs, c.Pos); ok {
				result.Incoming = append(result.Incoming, CallHierarchyItem{Name: caller.Name, Kind: caller.Kind, Path: relF, Line: caller.Range.Start.Line})
			}
		}
		fTree.Close()
	}

	return result, nil
}
