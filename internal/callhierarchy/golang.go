package callhierarchy

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
)

func init() {
	Register(lspDomain.LanguageGo, goGrammar{})
}

type goGrammar struct{}

func (goGrammar) Language() *sitter.Language { return golang.GetLanguage() }

func (goGrammar) FunctionCallQuery() string {
	return `
(call_expression
  function: (identifier) @name) @call

(call_expression
  function: (selector_expression
    field: (field_identifier) @name)) @call
`
}

func (goGrammar) FunctionDefinitionQuery() string {
	return `
(function_declaration
  name: (identifier) @name) @definition

(method_declaration
  name: (field_identifier) @name) @definition
`
}

func (goGrammar) KindOf(node *sitter.Node, _ []byte) lspDomain.SymbolKind {
	if node.Type() == "method_declaration" {
		return lspDomain.KindMethod
	}
	return lspDomain.KindFunction
}
