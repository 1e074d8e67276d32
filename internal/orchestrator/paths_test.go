package orchestrator

import "testing"

func TestToAbsAndToRelRoundTrip(t *testing.T) {
	root := "/workspace"
	abs := toAbs(root, "pkg/calc.py")
	if abs != "/workspace/pkg/calc.py" {
		t.Fatalf("unexpected abs path: %q", abs)
	}
	if rel := toRel(root, abs); rel != "pkg/calc.py" {
		t.Fatalf("unexpected rel path: %q", rel)
	}
}

func TestToRelOutsideWorkspaceReturnsUnchanged(t *testing.T) {
	root := "/workspace"
	abs := "/usr/lib/python3/socket.py"
	if got := toRel(root, abs); got != abs {
		t.Fatalf("expected unchanged path for outside-workspace input, got %q", got)
	}
}

func TestURIRoundTrip(t *testing.T) {
	abs := "/workspace/calc.py"
	uri := absToURI(abs)
	if uri != "file:///workspace/calc.py" {
		t.Fatalf("unexpected uri: %q", uri)
	}
	if got := uriToAbs(uri); got != abs {
		t.Fatalf("expected round-trip back to %q, got %q", abs, got)
	}
}

func TestIsInWorkspace(t *testing.T) {
	root := "/workspace"
	if !isInWorkspace(root, "/workspace/pkg/calc.py") {
		t.Fatal("expected path under root to be in workspace")
	}
	if isInWorkspace(root, "/usr/lib/python3/socket.py") {
		t.Fatal("expected path outside root to not be in workspace")
	}
}
