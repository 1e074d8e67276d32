package astquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"

	"github.com/orbitcode/lsproxy/internal/config"
)

// Client shells out to the configured ast-grep ("sg") binary to extract
// symbols, imports, and reference sites by structural pattern rather than
// by language server.
type Client struct {
	binaryPath string
	configPath string
	cfg        config.AST
}

// New builds a Client from the AST section of the loaded configuration.
func New(cfg config.AST) *Client {
	return &Client{
		binaryPath: cfg.BinaryPath,
		configPath: cfg.ConfigPath,
		cfg:        cfg,
	}
}

// FileSymbols returns every non-import rule match in path, sorted by
// starting line.
func (c *Client) FileSymbols(ctx context.Context, path string) ([]RuleMatch, error) {
	matches, err := c.scan(ctx, path)
	if err != nil {
		return nil, err
	}
	out := matches[:0]
	for _, m := range matches {
		if m.RuleID != importRuleID {
			out = append(out, m)
		}
	}
	return out, nil
}

// FileImports returns every import rule match in path, sorted by starting
// line.
func (c *Client) FileImports(ctx context.Context, path string) ([]RuleMatch, error) {
	matches, err := c.scan(ctx, path)
	if err != nil {
		return nil, err
	}
	out := matches[:0]
	for _, m := range matches {
		if m.RuleID == importRuleID {
			out = append(out, m)
		}
	}
	return out, nil
}

// scan runs `sg scan --config <rules> --json <path>` and sorts the result
// by range.start.line, matching ast-grep's own reporting order for rule
// matches that may span multiple rule definitions.
func (c *Client) scan(ctx context.Context, path string) ([]RuleMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binaryPath, "scan", "--config", c.configPath, "--json", path) //nolint:gosec // G204: binary/config are operator-configured, path is workspace-indexed
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("sg scan %s: %w: %s", path, err, stderr.String())
	}

	var matches []RuleMatch
	if err := json.Unmarshal(stdout.Bytes(), &matches); err != nil {
		return nil, fmt.Errorf("parse sg scan output for %s: %w", path, err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Range.Start.Line < matches[j].Range.Start.Line
	})
	return matches, nil
}

// search runs `sg run <path> --pattern <pattern> --json`.
func (c *Client) search(ctx context.Context, path, pattern string) ([]PatternMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binaryPath, "run", path, "--pattern", pattern, "--json") //nolint:gosec // G204: binary is operator-configured, path/pattern are derived from the workspace index
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("sg run %s: %w: %s", path, err, stderr.String())
	}

	var matches []PatternMatch
	if err := json.Unmarshal(stdout.Bytes(), &matches); err != nil {
		return nil, fmt.Errorf("parse sg run output for %s: %w", path, err)
	}
	return matches, nil
}

// ReferencesTo finds reference sites for a set of import matches: for each
// distinct import text it pattern-searches the file, then drops any match
// whose byte offset coincides with the import statement itself, leaving
// only actual usages. Results are sorted by (line, column).
func (c *Client) ReferencesTo(ctx context.Context, path string, imports []RuleMatch) ([]PatternMatch, error) {
	seen := make(map[string]struct{}, len(imports))
	importSites := make(map[int]struct{}, len(imports))
	for _, imp := range imports {
		importSites[imp.Range.ByteOffset.Start] = struct{}{}
	}

	var refs []PatternMatch
	for _, imp := range imports {
		if _, dup := seen[imp.Text]; dup {
			continue
		}
		seen[imp.Text] = struct{}{}

		matches, err := c.search(ctx, path, imp.Text)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, isImportSite := importSites[m.Range.ByteOffset.Start]; isImportSite {
				continue
			}
			refs = append(refs, m)
		}
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Range.Start.Line != refs[j].Range.Start.Line {
			return refs[i].Range.Start.Line < refs[j].Range.Start.Line
		}
		return refs[i].Range.Start.Column < refs[j].Range.Start.Column
	})
	return refs, nil
}
