package orchestrator

import (
	"path/filepath"
	"strings"
)

// toAbs resolves a workspace-relative path (as carried on every public API
// boundary, per the data model's path invariant) to an absolute path under
// root.
func toAbs(root, relPath string) string {
	return filepath.Join(root, filepath.FromSlash(relPath))
}

// toRel converts an absolute path back to workspace-relative, forward-slash
// form. Paths outside root are returned unchanged (callers use this to
// detect "outside the workspace").
func toRel(root, absPath string) string {
	rel, err := filepath.Rel(root, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return absPath
	}
	return filepath.ToSlash(rel)
}

// uriToAbs strips a file:// scheme from an LSP URI, leaving an absolute
// path.
func uriToAbs(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// absToURI builds the file:// URI LSP clients expect from an absolute path.
func absToURI(abs string) string {
	return "file://" + abs
}

// isInWorkspace reports whether abs resolves to a path inside root.
func isInWorkspace(root, abs string) bool {
	rel, err := filepath.Rel(root, abs)
	return err == nil && !strings.HasPrefix(rel, "..")
}
