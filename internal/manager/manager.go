// Package manager implements C7, the supervisor that detects which
// languages are present in the mounted workspace, starts one LSP Client per
// detected language, and routes a file path to its owning client.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	lspAdapter "github.com/orbitcode/lsproxy/internal/adapter/lsp"
	"github.com/orbitcode/lsproxy/internal/config"
	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
	"github.com/orbitcode/lsproxy/internal/workspace"
)

// docsAdapter narrows *workspace.Documents to the lsp.WorkspaceReader
// interface a Client needs, always reading whole files.
type docsAdapter struct {
	docs *workspace.Documents
}

func (a docsAdapter) ListFiles() ([]string, error) { return a.docs.ListFiles() }
func (a docsAdapter) Read(path string) (string, error) {
	return a.docs.Read(path, nil)
}

// Manager owns one lspAdapter.Client per language detected in the
// workspace, for the process lifetime.
type Manager struct {
	root   string
	lspCfg config.LSP
	docs   *workspace.Documents

	mu      sync.RWMutex
	clients map[lspDomain.SupportedLanguage]*lspAdapter.Client

	stopOnce sync.Once
	done     chan struct{}
}

// New constructs a Manager bound to root and its workspace index. No
// language servers are started until Start is called.
func New(root string, lspCfg config.LSP, docs *workspace.Documents) *Manager {
	return &Manager{
		root:    root,
		lspCfg:  lspCfg,
		docs:    docs,
		clients: make(map[lspDomain.SupportedLanguage]*lspAdapter.Client),
		done:    make(chan struct{}),
	}
}

// Start detects every language present in the workspace index (by
// extension) and starts one client per language concurrently, best-effort:
// a language whose server fails to start is logged and skipped rather than
// aborting startup for the rest. Once startup completes, a background loop
// subscribes to the workspace's watcher broadcast and starts a server for
// any language whose first file only appears after startup.
func (m *Manager) Start(ctx context.Context) error {
	languages, err := m.detectLanguages()
	if err != nil {
		return fmt.Errorf("detect languages: %w", err)
	}

	var g errgroup.Group
	for _, lang := range languages {
		lang := lang
		profile, ok := lspDomain.DefaultProfiles[lang]
		if !ok {
			continue
		}

		g.Go(func() error {
			client := lspAdapter.NewClient(profile, m.lspCfg, m.root, docsAdapter{m.docs})
			if err := client.Start(ctx); err != nil {
				slog.Warn("manager: language server failed to start", "language", lang, "error", err)
				return nil
			}

			m.mu.Lock()
			m.clients[lang] = client
			m.mu.Unlock()
			slog.Info("manager: language server ready", "language", lang, "pid", client.PID())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	go m.watchForNewLanguages(ctx)
	return nil
}

// watchForNewLanguages drains the workspace's watcher broadcast (§5 "Shared
// resources": bounded, lossy, must be drained promptly) and re-detects
// languages after every batch of filesystem changes, starting a server for
// any language that had no files at Start but does now.
func (m *Manager) watchForNewLanguages(ctx context.Context) {
	events := m.docs.Subscribe()
	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			m.startNewlyDetected(ctx)
		}
	}
}

// startNewlyDetected starts a client for any detected language not already
// running. Called by watchForNewLanguages on every watcher event.
func (m *Manager) startNewlyDetected(ctx context.Context) {
	languages, err := m.detectLanguages()
	if err != nil {
		slog.Warn("manager: detect languages after workspace change failed", "error", err)
		return
	}

	for _, lang := range languages {
		m.mu.RLock()
		_, running := m.clients[lang]
		m.mu.RUnlock()
		if running {
			continue
		}

		profile, ok := lspDomain.DefaultProfiles[lang]
		if !ok {
			continue
		}

		client := lspAdapter.NewClient(profile, m.lspCfg, m.root, docsAdapter{m.docs})
		if err := client.Start(ctx); err != nil {
			slog.Warn("manager: language server failed to start after workspace change", "language", lang, "error", err)
			continue
		}

		m.mu.Lock()
		m.clients[lang] = client
		m.mu.Unlock()
		slog.Info("manager: language server started for newly detected language", "language", lang, "pid", client.PID())
	}
}

// Stop gracefully shuts down every running client and the watch loop.
func (m *Manager) Stop(ctx context.Context) {
	m.stopOnce.Do(func() { close(m.done) })

	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[lspDomain.SupportedLanguage]*lspAdapter.Client)
	m.mu.Unlock()

	for lang, client := range clients {
		if err := client.Stop(ctx); err != nil {
			slog.Warn("manager: language server shutdown error", "language", lang, "error", err)
		}
	}
}

// Status reports every running client, sorted by language.
func (m *Manager) Status() []lspDomain.ServerInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]lspDomain.ServerInfo, 0, len(m.clients))
	for _, client := range m.clients {
		profile := lspDomain.DefaultProfiles[client.Language()]
		infos = append(infos, lspDomain.ServerInfo{
			Language: client.Language(),
			Status:   client.Status(),
			Command:  fmt.Sprint(profile.Command),
			PID:      client.PID(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Language < infos[j].Language })
	return infos
}

// ClientFor returns the running client that owns path, validating the path
// against the workspace index first: FileNotFound if absent from the
// index, UnsupportedFileType if its extension maps to no language,
// LspClientNotFound if the language was detected but its server never
// started.
func (m *Manager) ClientFor(path string) (*lspAdapter.Client, error) {
	files, err := m.docs.ListFiles()
	if err != nil {
		return nil, lspDomain.NewInternalError("list files: %v", err)
	}

	found := false
	for _, f := range files {
		if f == path {
			found = true
			break
		}
	}
	if !found {
		return nil, lspDomain.NewFileNotFound(path)
	}

	lang, ok := lspDomain.LanguageForExtension(filepath.Ext(path))
	if !ok {
		return nil, lspDomain.NewUnsupportedFileType(path)
	}

	m.mu.RLock()
	client, ok := m.clients[lang]
	m.mu.RUnlock()
	if !ok {
		return nil, lspDomain.NewLspClientNotFound(lang)
	}
	return client, nil
}

// Documents exposes the workspace index, for components (the orchestrator,
// the AST query engine) that need to list or read files directly.
func (m *Manager) Documents() *workspace.Documents { return m.docs }

// detectLanguages returns every SupportedLanguage with at least one file in
// the workspace index.
func (m *Manager) detectLanguages() ([]lspDomain.SupportedLanguage, error) {
	files, err := m.docs.ListFiles()
	if err != nil {
		return nil, err
	}

	present := make(map[lspDomain.SupportedLanguage]struct{})
	for _, f := range files {
		if lang, ok := lspDomain.LanguageForExtension(filepath.Ext(f)); ok {
			present[lang] = struct{}{}
		}
	}

	out := make([]lspDomain.SupportedLanguage, 0, len(present))
	for lang := range present {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
