package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/orbitcode/lsproxy/internal/config"
	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
)

// WorkspaceReader is the narrow view of C4 Workspace Documents a client
// needs to implement its DidOpen policy and setup_workspace hooks.
type WorkspaceReader interface {
	ListFiles() ([]string, error)
	Read(path string) (string, error)
}

// Client manages a single language server child process and exposes the
// typed C5 operations (definition, references, rename, didOpen) over it.
// One Client exists per detected SupportedLanguage, for the lifetime of the
// process.
type Client struct {
	profile   lspDomain.LanguageProfile
	lspCfg    config.LSP
	root      string // resolved workspace folder for this client (root or a root-marker subdir)
	workspace WorkspaceReader

	cmd       *exec.Cmd
	transport *Transport
	codec     Codec
	pending   *PendingRegistry

	mu     sync.Mutex
	status lspDomain.ServerStatus
}

// NewClient constructs a Client for language, not yet started.
func NewClient(profile lspDomain.LanguageProfile, lspCfg config.LSP, root string, workspace WorkspaceReader) *Client {
	return &Client{
		profile:   profile,
		lspCfg:    lspCfg,
		root:      root,
		workspace: workspace,
		pending:   NewPendingRegistry(),
		status:    lspDomain.ServerStatusStopped,
	}
}

// Language returns the language this client manages.
func (c *Client) Language() lspDomain.SupportedLanguage { return c.profile.Language }

// Status returns the current server status.
func (c *Client) Status() lspDomain.ServerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// PID returns the process ID of the language server, or 0 if not running.
func (c *Client) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Pid
	}
	return 0
}

// Start spawns the language server process and runs initialize →
// initialized → setup_workspace. Start holds the client's mutex for its
// whole run; the Manager only registers the client for routing after Start
// returns, so no routed request reaches it earlier.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == lspDomain.ServerStatusReady || c.status == lspDomain.ServerStatusStarting {
		return nil
	}
	c.status = lspDomain.ServerStatusStarting

	if len(c.profile.Command) == 0 {
		c.status = lspDomain.ServerStatusFailed
		return lspDomain.NewInternalError("no command configured for language %s", c.profile.Language)
	}
	if _, err := exec.LookPath(c.profile.Command[0]); err != nil {
		c.status = lspDomain.ServerStatusFailed
		return lspDomain.NewInternalError("language server binary not found: %s", c.profile.Command[0])
	}

	cmd := exec.CommandContext(ctx, c.profile.Command[0], c.profile.Command[1:]...) //nolint:gosec // command from trusted profile
	cmd.Dir = c.root
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		c.status = lspDomain.ServerStatusFailed
		return lspDomain.NewInternalError("stdin pipe: %v", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.status = lspDomain.ServerStatusFailed
		return lspDomain.NewInternalError("stdout pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		c.status = lspDomain.ServerStatusFailed
		return lspDomain.NewInternalError("start process: %v", err)
	}

	c.cmd = cmd
	c.transport = NewTransport(stdioPipe{stdin: stdin, stdout: stdout})
	go c.transport.Run()
	go c.dispatch()

	startCtx, cancel := context.WithTimeout(ctx, c.lspCfg.StartTimeout)
	defer cancel()

	if err := c.initialize(startCtx); err != nil {
		c.status = lspDomain.ServerStatusFailed
		_ = cmd.Process.Kill()
		return lspDomain.NewInternalError("initialize %s: %v", c.profile.Language, err)
	}

	if err := c.setupWorkspace(startCtx); err != nil {
		c.status = lspDomain.ServerStatusFailed
		_ = cmd.Process.Kill()
		return lspDomain.NewInternalError("setup_workspace %s: %v", c.profile.Language, err)
	}

	c.status = lspDomain.ServerStatusReady
	return nil
}

// Stop performs a graceful LSP shutdown (shutdown + exit) with timeout,
// killing the process if it does not exit in time.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == lspDomain.ServerStatusStopped {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, c.lspCfg.ShutdownTimeout)
	defer cancel()

	if c.transport != nil {
		if _, err := c.request(shutdownCtx, "shutdown", nil); err != nil {
			// Best effort; still attempt exit + kill below.
			_ = err
		}
		if data, err := c.codec.MakeNotification("exit", nil); err == nil {
			_ = c.transport.Send(data)
		}
		_ = c.transport.Close()
	}

	if c.cmd != nil && c.cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- c.cmd.Wait() }()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			_ = c.cmd.Process.Kill()
		}
	}

	c.status = lspDomain.ServerStatusStopped
	c.transport = nil
	c.cmd = nil
	return nil
}

// Definition returns go-to-definition locations for a position. A null
// result is normalized to an empty slice.
func (c *Client) Definition(ctx context.Context, uri string, pos lspDomain.Position) ([]lspDomain.Location, error) {
	result, err := c.request(ctx, "textDocument/definition", textDocumentPositionParams(uri, pos))
	if err != nil {
		if isKeyError(err) {
			return nil, nil
		}
		return nil, err
	}
	return parseLocations(result)
}

// References returns all reference locations for a position. The LSP
// request always sets includeDeclaration=true to normalize server
// behavior across implementations.
func (c *Client) References(ctx context.Context, uri string, pos lspDomain.Position) ([]lspDomain.Location, error) {
	params := map[string]any{
		"textDocument": map[string]string{"uri": uri},
		"position":     map[string]int{"line": pos.Line, "character": pos.Character},
		"context":      map[string]bool{"includeDeclaration": true},
	}
	result, err := c.request(ctx, "textDocument/references", params)
	if err != nil {
		if isKeyError(err) {
			return nil, nil
		}
		return nil, err
	}
	return parseLocations(result)
}

// Rename requests a workspace edit renaming the symbol at pos to newName.
func (c *Client) Rename(ctx context.Context, uri string, pos lspDomain.Position, newName string) (json.RawMessage, error) {
	params := map[string]any{
		"textDocument": map[string]string{"uri": uri},
		"position":     map[string]int{"line": pos.Line, "character": pos.Character},
		"newName":      newName,
	}
	result, err := c.request(ctx, "textDocument/rename", params)
	if err != nil {
		if isKeyError(err) {
			return json.RawMessage(`{"changes":{}}`), nil
		}
		return nil, err
	}
	if result == nil || string(result) == "null" {
		return json.RawMessage(`{"changes":{}}`), nil
	}
	return result, nil
}

// DidOpen sends a textDocument/didOpen notification for a file.
func (c *Client) DidOpen(uri, languageID, content string) error {
	params := map[string]any{
		"textDocument": map[string]any{
			"uri":        uri,
			"languageId": languageID,
			"version":    1,
			"text":       content,
		},
	}
	data, err := c.codec.MakeNotification("textDocument/didOpen", params)
	if err != nil {
		return err
	}
	return c.transport.Send(data)
}

// --- internal ---

func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"processId": os.Getpid(),
		"rootUri":   "file://" + c.root,
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"definition": map[string]any{},
				"references": map[string]any{},
				"rename":     map[string]any{},
				"documentSymbol": map[string]any{
					"hierarchicalDocumentSymbolSupport": true,
				},
				// Diagnostics are not requested; disabling them keeps
				// servers focused on the synchronous queries this
				// proxy issues rather than continuous background analysis.
				"publishDiagnostics": nil,
			},
		},
	}
	if c.profile.InitOpts != nil {
		params["initializationOptions"] = c.profile.InitOpts
	}

	if _, err := c.request(ctx, "initialize", params); err != nil {
		return fmt.Errorf("initialize request: %w", err)
	}

	data, err := c.codec.MakeNotification("initialized", map[string]any{})
	if err != nil {
		return err
	}
	return c.transport.Send(data)
}

// setupWorkspace runs the language-specific post-initialization hook.
func (c *Client) setupWorkspace(ctx context.Context) error {
	switch c.profile.Language {
	case lspDomain.LanguageRust:
		data, err := c.codec.MakeNotification("rust-analyzer/reloadWorkspace", nil)
		if err != nil {
			return err
		}
		return c.transport.Send(data)

	case lspDomain.LanguageJava:
		ready := c.pending.RegisterNotification("language/status", "ServiceReady")
		readyCtx, cancel := context.WithTimeout(ctx, c.lspCfg.JavaReadyTimeout)
		defer cancel()
		select {
		case <-ready:
			return nil
		case <-readyCtx.Done():
			return fmt.Errorf("timed out waiting for jdtls ServiceReady after %s", c.lspCfg.JavaReadyTimeout)
		}
	}

	if c.profile.DidOpenPolicy == lspDomain.DidOpenEager {
		return c.openAllFiles()
	}
	return nil
}

// openAllFiles implements the eager DidOpen policy: every file the
// workspace index reports as belonging to this client's language is opened
// up front, rather than lazily on first access. Paths from ListFiles are
// absolute, matching the C4 contract.
func (c *Client) openAllFiles() error {
	files, err := c.workspace.ListFiles()
	if err != nil {
		return fmt.Errorf("list files for eager didOpen: %w", err)
	}
	for _, path := range files {
		if !matchesLanguage(c.profile, path) {
			continue
		}
		content, err := c.workspace.Read(path)
		if err != nil {
			continue
		}
		_ = c.DidOpen("file://"+path, string(c.profile.Language), content)
	}
	return nil
}

func matchesLanguage(profile lspDomain.LanguageProfile, path string) bool {
	ext := filepath.Ext(path)
	lang, ok := lspDomain.LanguageForExtension(ext)
	return ok && lang == profile.Language
}

// request sends a JSON-RPC request and waits for its response, detaching the
// pending entry on cancellation, closure, or delivery.
func (c *Client) request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.lspCfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.lspCfg.RequestTimeout)
		defer cancel()
	}

	id, data, err := c.codec.MakeRequest(method, params)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	ch := c.pending.RegisterRequest(id)
	if err := c.transport.Send(data); err != nil {
		c.pending.CancelRequest(id)
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("connection closed awaiting %s", method)
		}
		if msg.Error != nil {
			return nil, msg.Error
		}
		return msg.Result, nil
	case <-ctx.Done():
		c.pending.CancelRequest(id)
		return nil, ctx.Err()
	case <-c.transport.Done():
		return nil, fmt.Errorf("transport closed awaiting %s: %w", method, c.transport.Err())
	}
}

// dispatch reads decoded frames off the transport and routes them: responses
// complete their pending request, notifications are matched against
// registered wait-sets. On transport closure every outstanding waiter is
// failed so no caller blocks forever.
func (c *Client) dispatch() {
	for msg := range c.transport.Incoming() {
		switch {
		case msg.IsResponse():
			c.pending.CompleteRequest(*msg.ID, msg)
		case msg.IsNotification():
			c.pending.MatchNotification(msg.Method, msg.Params)
		}
	}
	if err := c.transport.Err(); err != nil {
		c.pending.FailAll(err)
	}
}

func textDocumentPositionParams(uri string, pos lspDomain.Position) map[string]any {
	return map[string]any{
		"textDocument": map[string]string{"uri": uri},
		"position":     map[string]int{"line": pos.Line, "character": pos.Character},
	}
}

// isKeyError reports whether err is a JSON-RPC error whose message begins
// with "KeyError", a quirk some servers surface for missing index entries
// that the manager normalizes to an empty result rather than a failure.
func isKeyError(err error) bool {
	rpcErr, ok := err.(*JSONRPCError)
	if !ok {
		return false
	}
	return strings.HasPrefix(rpcErr.Message, "KeyError")
}

// parseLocations normalizes GotoDefinitionResponse, which may be a single
// Location, an array of Location, or (rarely) an array of LocationLink.
func parseLocations(raw json.RawMessage) ([]lspDomain.Location, error) {
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}

	var locs []lspDomain.Location
	if err := json.Unmarshal(raw, &locs); err == nil {
		return dedupLocations(locs), nil
	}

	var loc lspDomain.Location
	if err := json.Unmarshal(raw, &loc); err == nil {
		return []lspDomain.Location{loc}, nil
	}

	var links []struct {
		TargetURI   string          `json:"targetUri"`
		TargetRange lspDomain.Range `json:"targetRange"`
	}
	if err := json.Unmarshal(raw, &links); err == nil {
		out := make([]lspDomain.Location, 0, len(links))
		for _, l := range links {
			out = append(out, lspDomain.Location{URI: l.TargetURI, Range: l.TargetRange})
		}
		return dedupLocations(out), nil
	}

	return nil, fmt.Errorf("unexpected definition result format")
}

// dedupLocations removes duplicates keyed by (uri, start, end), which can
// arise from servers reporting both a definition and declaration link.
func dedupLocations(locs []lspDomain.Location) []lspDomain.Location {
	seen := make(map[string]struct{}, len(locs))
	out := make([]lspDomain.Location, 0, len(locs))
	for _, l := range locs {
		key := fmt.Sprintf("%s:%d:%d:%d:%d", l.URI, l.Range.Start.Line, l.Range.Start.Character, l.Range.End.Line, l.Range.End.Character)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
