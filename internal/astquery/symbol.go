package astquery

import (
	"path/filepath"

	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
)

// ToSymbol converts a rule match into a domain Symbol. The match's File is
// used as the symbol's path, converted to forward slashes; callers set it to
// the workspace-relative path before converting. The match's
// rule_id doubles as the symbol's kind: ast-grep rule sets name their rules
// after the construct they match (function, class, struct, ...).
//
// Range.Start loses its column: only the last secondary capture's starting
// line is kept, with character fixed at 0, so that range always spans whole
// lines. This mirrors ast-grep's own rule output, which is imprecise here
// in the same way.
func (m RuleMatch) ToSymbol() lspDomain.Symbol {
	rel := filepath.ToSlash(m.File)

	body, ok := m.BodyRange()
	if !ok {
		body = m.Range
	}

	return lspDomain.Symbol{
		Name: m.Text,
		Kind: lspDomain.SymbolKind(m.RuleID),
		IdentifierPosition: lspDomain.FilePosition{
			Path: rel,
			Position: lspDomain.Position{
				Line:      m.Range.Start.Line,
				Character: m.Range.Start.Column,
			},
		},
		Range: lspDomain.FileRange{
			Path: rel,
			Range: lspDomain.Range{
				Start: lspDomain.Position{
					Line:      body.Start.Line,
					Character: 0,
				},
				End: lspDomain.Position{
					Line:      body.End.Line,
					Character: body.End.Column,
				},
			},
		},
	}
}

// ToIdentifier converts a pattern match (a reference/use site) into a
// domain Identifier. Its path is the match's File, converted to forward
// slashes, as in ToSymbol.
func (m PatternMatch) ToIdentifier() lspDomain.Identifier {
	rel := filepath.ToSlash(m.File)
	return lspDomain.Identifier{
		Name: m.Text,
		Range: lspDomain.FileRange{
			Path: rel,
			Range: lspDomain.Range{
				Start: lspDomain.Position{Line: m.Range.Start.Line, Character: m.Range.Start.Column},
				End:   lspDomain.Position{Line: m.Range.End.Line, Character: m.Range.End.Column},
			},
		},
	}
}
