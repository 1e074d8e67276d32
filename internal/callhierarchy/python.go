package callhierarchy

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
)

func init() {
	Register(lspDomain.LanguagePython, pythonGrammar{})
}

type pythonGrammar struct{}

func (pythonGrammar) Language() *sitter.Language { return python.GetLanguage() }

func (pythonGrammar) FunctionCallQuery() string {
	return `
(call
  function: (identifier) @name) @call

(call
  function: (attribute
    attribute: (identifier) @name)) @call
`
}

func (pythonGrammar) FunctionDefinitionQuery() string {
	return `
(function_definition
  name: (identifier) @name) @definition

(class_definition
  name: (identifier) @name
  body: (block
    (function_definition
      name: (identifier) @name) @definition))
`
}

// KindOf implements the original tool's heuristic: a class_definition node
// is a class; a function_definition whose body text mentions "self" is a
// method; everything else is a plain function.
func (pythonGrammar) KindOf(node *sitter.Node, source []byte) lspDomain.SymbolKind {
	switch node.Type() {
	case "class_definition":
		return lspDomain.KindClass
	default:
		if strings.Contains(node.Content(source), "self") {
			return lspDomain.KindMethod
		}
		return lspDomain.KindFunction
	}
}
