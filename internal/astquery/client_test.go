package astquery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orbitcode/lsproxy/internal/config"
)

// writeFakeSG writes an executable shell script standing in for the "sg"
// binary: it prints scanJSON for a "scan" invocation and runJSON for a
// "run" invocation, ignoring all other arguments.
func writeFakeSG(t *testing.T, scanJSON, runJSON string) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "sg")
	body := "#!/bin/sh\n" +
		"case \"$1\" in\n" +
		"  scan) cat <<'SCANEOF'\n" + scanJSON + "\nSCANEOF\n" +
		"  ;;\n" +
		"  run) cat <<'RUNEOF'\n" + runJSON + "\nRUNEOF\n" +
		"  ;;\n" +
		"esac\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil { //nolint:gosec // test fixture
		t.Fatalf("write fake sg: %v", err)
	}
	return script
}

func testClient(t *testing.T, scanJSON, runJSON string) *Client {
	t.Helper()
	bin := writeFakeSG(t, scanJSON, runJSON)
	return New(config.AST{
		BinaryPath: bin,
		ConfigPath: "unused.yml",
		Timeout:    5 * time.Second,
	})
}

const sampleScan = `[
  {"text":"add","range":{"byteOffset":{"start":0,"end":3},"start":{"line":1,"column":1},"end":{"line":1,"column":4}},"file":"calc.py","lines":"def add(a, b):","charCount":{"leading":0,"trailing":0},"language":"Python","metaVariables":{"multi":{"secondary":[]}},"ruleId":"function","labels":[]},
  {"text":"import math","range":{"byteOffset":{"start":20,"end":31},"start":{"line":3,"column":1},"end":{"line":3,"column":12}},"file":"calc.py","lines":"import math","charCount":{"leading":0,"trailing":0},"language":"Python","metaVariables":{"multi":{"secondary":[]}},"ruleId":"import","labels":[]}
]`

const sampleRun = `[
  {"text":"math","range":{"byteOffset":{"start":50,"end":54},"start":{"line":5,"column":8},"end":{"line":5,"column":12}},"file":"calc.py","lines":"    return math.sqrt(a)","charCount":{"leading":0,"trailing":0},"language":"Python"}
]`

func TestFileSymbolsExcludesImports(t *testing.T) {
	c := testClient(t, sampleScan, sampleRun)
	symbols, err := c.FileSymbols(context.Background(), "calc.py")
	if err != nil {
		t.Fatalf("FileSymbols: %v", err)
	}
	if len(symbols) != 1 || symbols[0].Text != "add" {
		t.Fatalf("expected only the function rule match, got %+v", symbols)
	}
}

func TestFileImportsOnlyImports(t *testing.T) {
	c := testClient(t, sampleScan, sampleRun)
	imports, err := c.FileImports(context.Background(), "calc.py")
	if err != nil {
		t.Fatalf("FileImports: %v", err)
	}
	if len(imports) != 1 || imports[0].RuleID != "import" {
		t.Fatalf("expected only the import rule match, got %+v", imports)
	}
}

func TestReferencesToDropsImportSite(t *testing.T) {
	// The search also reports the import statement itself (byte offset 20,
	// the same as the scan's import match); only the usage may remain.
	runWithImportSite := `[
  {"text":"import math","range":{"byteOffset":{"start":20,"end":31},"start":{"line":3,"column":1},"end":{"line":3,"column":12}},"file":"calc.py","lines":"import math","charCount":{"leading":0,"trailing":0},"language":"Python"},
  {"text":"math","range":{"byteOffset":{"start":50,"end":54},"start":{"line":5,"column":8},"end":{"line":5,"column":12}},"file":"calc.py","lines":"    return math.sqrt(a)","charCount":{"leading":0,"trailing":0},"language":"Python"}
]`
	c := testClient(t, sampleScan, runWithImportSite)
	imports, err := c.FileImports(context.Background(), "calc.py")
	if err != nil {
		t.Fatalf("FileImports: %v", err)
	}

	refs, err := c.ReferencesTo(context.Background(), "calc.py", imports)
	if err != nil {
		t.Fatalf("ReferencesTo: %v", err)
	}
	if len(refs) != 1 || refs[0].Text != "math" {
		t.Fatalf("expected one usage of math, got %+v", refs)
	}
}

func TestReferencesToDedupsIdenticalImportText(t *testing.T) {
	scan := `[
	  {"text":"import math","range":{"byteOffset":{"start":0,"end":11},"start":{"line":1,"column":1},"end":{"line":1,"column":12}},"file":"a.py","lines":"import math","charCount":{"leading":0,"trailing":0},"language":"Python","metaVariables":{"multi":{"secondary":[]}},"ruleId":"import","labels":[]},
	  {"text":"import math","range":{"byteOffset":{"start":12,"end":23},"start":{"line":2,"column":1},"end":{"line":2,"column":12}},"file":"a.py","lines":"import math","charCount":{"leading":0,"trailing":0},"language":"Python","metaVariables":{"multi":{"secondary":[]}},"ruleId":"import","labels":[]}
	]`
	c := testClient(t, scan, sampleRun)
	imports, err := c.FileImports(context.Background(), "a.py")
	if err != nil {
		t.Fatalf("FileImports: %v", err)
	}
	if len(imports) != 2 {
		t.Fatalf("expected two import matches from scan, got %d", len(imports))
	}

	refs, err := c.ReferencesTo(context.Background(), "a.py", imports)
	if err != nil {
		t.Fatalf("ReferencesTo: %v", err)
	}
	// Both imports share text "import math"; the second search is skipped by
	// the dedup, so we only get the single usage the fake "run" reports once.
	if len(refs) != 1 {
		t.Fatalf("expected dedup to search only once, got %d refs", len(refs))
	}
}
