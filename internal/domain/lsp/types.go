// Package lsp defines domain types for Language Server Protocol and
// AST-based code intelligence. These types are transport-independent and
// are shared across the adapter, manager, orchestrator, and HTTP handler
// layers.
package lsp

import "fmt"

// Position in a text document (0-based line and character, UTF-16 code units).
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Less reports whether p sorts before o in (line, character) order.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Character < o.Character
}

// Range in a text document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether p lies within [Start, End] inclusive.
func (r Range) Contains(p Position) bool {
	return !p.Less(r.Start) && !r.End.Less(p)
}

// ContainsRange reports whether r fully contains o.
func (r Range) ContainsRange(o Range) bool {
	return r.Contains(o.Start) && r.Contains(o.End)
}

// Lines returns the number of lines the range spans (inclusive).
func (r Range) Lines() int {
	return r.End.Line - r.Start.Line + 1
}

// Location links a URI to a range, the wire shape used by LSP responses.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// FileRange is a Range paired with a workspace-relative path. Paths are
// never absolute; boundary conversions happen against the configured
// mount directory.
type FileRange struct {
	Path  string `json:"path"`
	Range Range  `json:"range"`
}

// FilePosition is a Position paired with a workspace-relative path.
type FilePosition struct {
	Path     string   `json:"path"`
	Position Position `json:"position"`
}

// SymbolKind mirrors a subset of the LSP SymbolKind enumeration, extended
// with the heuristic classifications produced by the tree-sitter fallback.
type SymbolKind string

const (
	KindFile      SymbolKind = "file"
	KindClass     SymbolKind = "class"
	KindMethod    SymbolKind = "method"
	KindFunction  SymbolKind = "function"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
	KindInterface SymbolKind = "interface"
	KindStruct    SymbolKind = "struct"
	KindModule    SymbolKind = "module"
	KindUnknown   SymbolKind = "unknown"
)

// Symbol is a declared definition site. IdentifierPosition points at the
// symbol's defining identifier; Range spans its full declaration body.
// Symbol is immutable once constructed: IdentifierPosition.Path must equal
// Range.Path.
type Symbol struct {
	Name               string       `json:"name"`
	Kind               SymbolKind   `json:"kind"`
	IdentifierPosition FilePosition `json:"identifier_position"`
	Range              FileRange    `json:"range"`
}

// Identifier is a use site, not a definition.
type Identifier struct {
	Name  string      `json:"name"`
	Range FileRange   `json:"range"`
	Kind  *SymbolKind `json:"kind,omitempty"`
}

// SupportedLanguage is the closed set of languages the manager detects and
// routes requests to. A file's language is derived solely from extension.
type SupportedLanguage string

const (
	LanguagePython               SupportedLanguage = "python"
	LanguageTypeScriptJavaScript SupportedLanguage = "typescript_javascript"
	LanguageRust                 SupportedLanguage = "rust"
	LanguageCCpp                 SupportedLanguage = "c_cpp"
	LanguageJava                 SupportedLanguage = "java"
	LanguageGo                   SupportedLanguage = "go"
	LanguagePHP                  SupportedLanguage = "php"
	LanguageRuby                 SupportedLanguage = "ruby"
)

// AllLanguages enumerates every SupportedLanguage the manager may detect.
var AllLanguages = []SupportedLanguage{
	LanguagePython,
	LanguageTypeScriptJavaScript,
	LanguageRust,
	LanguageCCpp,
	LanguageJava,
	LanguageGo,
	LanguagePHP,
	LanguageRuby,
}

// extensionLanguage maps a file extension (including the leading dot) to
// the language partition it belongs to. A file matches exactly one
// language: the first entry found here.
var extensionLanguage = map[string]SupportedLanguage{
	".py":    LanguagePython,
	".ts":    LanguageTypeScriptJavaScript,
	".tsx":   LanguageTypeScriptJavaScript,
	".js":    LanguageTypeScriptJavaScript,
	".jsx":   LanguageTypeScriptJavaScript,
	".mjs":   LanguageTypeScriptJavaScript,
	".rs":    LanguageRust,
	".c":     LanguageCCpp,
	".h":     LanguageCCpp,
	".cc":    LanguageCCpp,
	".cpp":   LanguageCCpp,
	".cxx":   LanguageCCpp,
	".hpp":   LanguageCCpp,
	".java":  LanguageJava,
	".go":    LanguageGo,
	".php":   LanguagePHP,
	".rb":    LanguageRuby,
}

// LanguageForExtension returns the language owning ext (including the
// leading dot), and whether a match was found.
func LanguageForExtension(ext string) (SupportedLanguage, bool) {
	lang, ok := extensionLanguage[ext]
	return lang, ok
}

// LspRequestId is a monotone identifier, unique per client instance.
type LspRequestId uint64

// ServerStatus represents the lifecycle state of a language server.
type ServerStatus string

const (
	ServerStatusStopped  ServerStatus = "stopped"
	ServerStatusStarting ServerStatus = "starting"
	ServerStatusReady    ServerStatus = "ready"
	ServerStatusFailed   ServerStatus = "failed"
)

// ServerInfo describes a running language server instance, surfaced for
// diagnostics/health endpoints.
type ServerInfo struct {
	Language SupportedLanguage `json:"language"`
	Status   ServerStatus      `json:"status"`
	Command  string            `json:"command"`
	PID      int               `json:"pid,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// ManagerErrorKind is the closed error taxonomy surfaced at the HTTP boundary.
type ManagerErrorKind string

const (
	ErrFileNotFound        ManagerErrorKind = "file_not_found"
	ErrUnsupportedFileType ManagerErrorKind = "unsupported_file_type"
	ErrLspClientNotFound   ManagerErrorKind = "lsp_client_not_found"
	ErrInternal            ManagerErrorKind = "internal_error"
)

// ManagerError is the error type returned by every manager/orchestrator
// operation. It carries enough context to be mapped to an HTTP status at
// the boundary without re-inspecting the error chain.
type ManagerError struct {
	Kind ManagerErrorKind
	Path string
	Lang SupportedLanguage
	Msg  string
}

func (e *ManagerError) Error() string {
	switch e.Kind {
	case ErrFileNotFound:
		return fmt.Sprintf("file not found: %s", e.Path)
	case ErrUnsupportedFileType:
		return fmt.Sprintf("unsupported file type: %s", e.Path)
	case ErrLspClientNotFound:
		return fmt.Sprintf("lsp client not found for language: %s", e.Lang)
	default:
		return fmt.Sprintf("internal error: %s", e.Msg)
	}
}

// NewFileNotFound builds a ManagerError for a path absent from the workspace index.
func NewFileNotFound(path string) *ManagerError {
	return &ManagerError{Kind: ErrFileNotFound, Path: path}
}

// NewUnsupportedFileType builds a ManagerError for a path whose extension maps to no language.
func NewUnsupportedFileType(path string) *ManagerError {
	return &ManagerError{Kind: ErrUnsupportedFileType, Path: path}
}

// NewLspClientNotFound builds a ManagerError for a detected-but-unregistered language client.
func NewLspClientNotFound(lang SupportedLanguage) *ManagerError {
	return &ManagerError{Kind: ErrLspClientNotFound, Lang: lang}
}

// NewInternalError builds a ManagerError wrapping a transport, parse, or subprocess failure.
func NewInternalError(format string, args ...any) *ManagerError {
	return &ManagerError{Kind: ErrInternal, Msg: fmt.Sprintf(format, args...)}
}
