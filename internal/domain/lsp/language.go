package lsp

// DidOpenPolicy controls whether a client must synthesize textDocument/didOpen
// notifications for workspace files: eagerly at startup, lazily on first
// access, or never.
type DidOpenPolicy string

const (
	DidOpenEager DidOpenPolicy = "eager"
	DidOpenLazy  DidOpenPolicy = "lazy"
	DidOpenNone  DidOpenPolicy = "none"
)

// LanguageProfile captures everything that differs between LSP client
// variants: the child command and arguments, the file globs it owns, the
// root-marker filenames used to discover workspace folders, its didOpen
// policy, and any initializationOptions the server expects.
type LanguageProfile struct {
	Language        SupportedLanguage
	Command         []string
	IncludeGlobs    []string
	ExcludeGlobs    []string
	RootMarkers     []string
	DidOpenPolicy   DidOpenPolicy
	InitOpts        map[string]any
}

// DefaultProfiles maps each SupportedLanguage to its default client profile.
// All servers communicate via stdio.
var DefaultProfiles = map[SupportedLanguage]LanguageProfile{
	LanguagePython: {
		Language:      LanguagePython,
		Command:       []string{"pyright-langserver", "--stdio"},
		IncludeGlobs:  []string{"**/*.py"},
		RootMarkers:   []string{"pyproject.toml", "setup.py", "requirements.txt"},
		DidOpenPolicy: DidOpenLazy,
	},
	LanguageTypeScriptJavaScript: {
		Language:      LanguageTypeScriptJavaScript,
		Command:       []string{"typescript-language-server", "--stdio"},
		IncludeGlobs:  []string{"**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx", "**/*.mjs"},
		RootMarkers:   []string{"package.json", "tsconfig.json"},
		DidOpenPolicy: DidOpenEager,
	},
	LanguageRust: {
		Language:      LanguageRust,
		Command:       []string{"rust-analyzer"},
		IncludeGlobs:  []string{"**/*.rs"},
		RootMarkers:   []string{"Cargo.toml"},
		DidOpenPolicy: DidOpenLazy,
	},
	LanguageCCpp: {
		Language:      LanguageCCpp,
		Command:       []string{"clangd"},
		IncludeGlobs:  []string{"**/*.c", "**/*.h", "**/*.cc", "**/*.cpp", "**/*.cxx", "**/*.hpp"},
		RootMarkers:   []string{"compile_commands.json", "CMakeLists.txt"},
		DidOpenPolicy: DidOpenLazy,
	},
	LanguageJava: {
		Language:      LanguageJava,
		Command:       []string{"jdtls"},
		IncludeGlobs:  []string{"**/*.java"},
		RootMarkers:   []string{"pom.xml", "build.gradle", "build.gradle.kts"},
		DidOpenPolicy: DidOpenLazy,
	},
	LanguageGo: {
		Language:      LanguageGo,
		Command:       []string{"gopls", "serve"},
		IncludeGlobs:  []string{"**/*.go"},
		RootMarkers:   []string{"go.mod"},
		DidOpenPolicy: DidOpenLazy,
	},
	LanguagePHP: {
		Language:      LanguagePHP,
		Command:       []string{"phpactor", "language-server"},
		IncludeGlobs:  []string{"**/*.php"},
		RootMarkers:   []string{"composer.json"},
		DidOpenPolicy: DidOpenLazy,
	},
	LanguageRuby: {
		Language:      LanguageRuby,
		Command:       []string{"solargraph", "stdio"},
		IncludeGlobs:  []string{"**/*.rb"},
		RootMarkers:   []string{"Gemfile"},
		DidOpenPolicy: DidOpenLazy,
	},
}
