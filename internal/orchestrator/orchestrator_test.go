package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orbitcode/lsproxy/internal/astquery"
	"github.com/orbitcode/lsproxy/internal/config"
	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
	"github.com/orbitcode/lsproxy/internal/manager"
	"github.com/orbitcode/lsproxy/internal/mount"
	"github.com/orbitcode/lsproxy/internal/workspace"
)

const calculatorSource = `def add(a, b):
    return a + b

def compute(a, b):
    return add(a, b)
`

const callerSource = `from calculator import add

def main():
    return add(1, 2)
`

// newTestOrchestrator builds an Orchestrator plus a context carrying its
// root as a mount override, so each test gets an isolated mount point
// instead of mutating the process-wide mount cell.
func newTestOrchestrator(t *testing.T) (*Orchestrator, string, context.Context) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "calculator.py"), []byte(calculatorSource), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "caller.py"), []byte(callerSource), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	docs, err := workspace.New(root, nil, nil, 2*time.Second, config.Cache{MaxCostBytes: 1 << 20})
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	t.Cleanup(docs.Close)

	mgr := manager.New(root, config.LSP{}, docs)
	ast := astquery.New(config.AST{})
	ctx := mount.WithOverride(context.Background(), root)
	return New(mgr, ast), root, ctx
}

func TestCallHierarchyFindsIncomingCalls(t *testing.T) {
	orch, _, ctx := newTestOrchestrator(t)

	result, err := orch.CallHierarchy(ctx, lspDomain.FilePosition{
		Path:     "calculator.py",
		Position: lspDomain.Position{Line: 0, Character: 4}, // inside "add"
	})
	if err != nil {
		t.Fatalf("CallHierarchy: %v", err)
	}

	if result.Target.Name != "add" {
		t.Fatalf("expected target add, got %+v", result.Target)
	}

	foundIncoming := false
	for _, in := range result.Incoming {
		if in.Name == "compute" || in.Name == "main" {
			foundIncoming = true
		}
	}
	if !foundIncoming {
		t.Fatalf("expected add's callers (compute, main) among incoming calls, got %+v", result.Incoming)
	}
}

func TestCallHierarchyOutgoingFromCompute(t *testing.T) {
	orch, _, ctx := newTestOrchestrator(t)

	result, err := orch.CallHierarchy(ctx, lspDomain.FilePosition{
		Path:     "calculator.py",
		Position: lspDomain.Position{Line: 3, Character: 4}, // inside "compute"
	})
	if err != nil {
		t.Fatalf("CallHierarchy: %v", err)
	}
	if result.Target.Name != "compute" {
		t.Fatalf("expected target compute, got %+v", result.Target)
	}
	if len(result.Outgoing) != 1 || result.Outgoing[0].Name != "add" {
		t.Fatalf("expected one outgoing call to add, got %+v", result.Outgoing)
	}
}

func TestCallHierarchyUnsupportedFileType(t *testing.T) {
	orch, root, ctx := newTestOrchestrator(t)
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := orch.CallHierarchy(ctx, lspDomain.FilePosition{Path: "notes.txt"})
	mErr, ok := err.(*lspDomain.ManagerError)
	if !ok || mErr.Kind != lspDomain.ErrUnsupportedFileType {
		t.Fatalf("expected UnsupportedFileType, got %v", err)
	}
}

func TestListFilesReturnsWorkspaceRelativePaths(t *testing.T) {
	orch, _, ctx := newTestOrchestrator(t)

	files, err := orch.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}

	want := map[string]bool{"calculator.py": true, "caller.py": true}
	for _, f := range files {
		if !want[f] {
			t.Errorf("unexpected file %q in listing", f)
		}
		delete(want, f)
	}
	if len(want) != 0 {
		t.Fatalf("missing files from listing: %+v", want)
	}
}
