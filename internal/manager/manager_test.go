package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orbitcode/lsproxy/internal/config"
	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
	"github.com/orbitcode/lsproxy/internal/workspace"
)

func newTestDocs(t *testing.T) (string, *workspace.Documents) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "main.py"), []byte("print('hi')\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.xyz"), []byte("not code\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	docs, err := workspace.New(root, nil, nil, 2*time.Second, config.Cache{MaxCostBytes: 1 << 20})
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	t.Cleanup(docs.Close)
	return root, docs
}

func TestClientForFileNotFound(t *testing.T) {
	root, docs := newTestDocs(t)
	m := New(root, config.LSP{}, docs)

	_, err := m.ClientFor(filepath.Join(root, "missing.py"))
	var mErr *lspDomain.ManagerError
	if !errors.As(err, &mErr) || mErr.Kind != lspDomain.ErrFileNotFound {
		t.Fatalf("expected FileNotFound, got %v", err)
	}
}

func TestClientForUnsupportedFileType(t *testing.T) {
	root, docs := newTestDocs(t)
	m := New(root, config.LSP{}, docs)

	_, err := m.ClientFor(filepath.Join(root, "notes.xyz"))
	var mErr *lspDomain.ManagerError
	if !errors.As(err, &mErr) || mErr.Kind != lspDomain.ErrUnsupportedFileType {
		t.Fatalf("expected UnsupportedFileType, got %v", err)
	}
}

func TestClientForLspClientNotFound(t *testing.T) {
	root, docs := newTestDocs(t)
	m := New(root, config.LSP{}, docs)

	// No Start() call: no clients were ever registered, so a recognized
	// Python file falls through to the "server never started" case.
	_, err := m.ClientFor(filepath.Join(root, "main.py"))
	var mErr *lspDomain.ManagerError
	if !errors.As(err, &mErr) || mErr.Kind != lspDomain.ErrLspClientNotFound {
		t.Fatalf("expected LspClientNotFound, got %v", err)
	}
}

func TestStatusEmptyBeforeStart(t *testing.T) {
	root, docs := newTestDocs(t)
	m := New(root, config.LSP{}, docs)

	if got := m.Status(); len(got) != 0 {
		t.Fatalf("expected no running servers, got %+v", got)
	}
}

// TestStartNewlyDetectedHandlesMissingServerGracefully exercises the path
// watchForNewLanguages drives on every workspace-watcher event: re-detect,
// then start anything new. With no language server binaries on the test
// host every start attempt fails and is skipped, same as Start itself.
func TestStartNewlyDetectedHandlesMissingServerGracefully(t *testing.T) {
	root, docs := newTestDocs(t)
	m := New(root, config.LSP{}, docs)

	m.startNewlyDetected(context.Background())

	if got := m.Status(); len(got) != 0 {
		t.Fatalf("expected no running servers without installed language servers, got %+v", got)
	}
}
