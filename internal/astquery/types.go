// Package astquery implements C6, the structural-query engine that shells
// out to an external ast-grep binary ("sg") for symbol and import
// extraction where LSP support is absent or insufficient.
package astquery

// ByteOffset is a [start, end) byte span within a file.
type ByteOffset struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// RulePosition is ast-grep's 0-indexed line/column position.
type RulePosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// RuleRange is the range shape ast-grep emits for both rule and pattern matches.
type RuleRange struct {
	ByteOffset ByteOffset   `json:"byteOffset"`
	Start      RulePosition `json:"start"`
	End        RulePosition `json:"end"`
}

// CharCount is ast-grep's leading/trailing whitespace accounting, carried
// through unused by this engine but kept for faithful JSON round-tripping.
type CharCount struct {
	Leading  int `json:"leading"`
	Trailing int `json:"trailing"`
}

// Secondary is one entry of a rule match's secondary meta-variable capture;
// its last element is conventionally the matched symbol's full body range.
type Secondary struct {
	Text  string    `json:"text"`
	Range RuleRange `json:"range"`
}

// MultiVariables holds the "secondary" capture group ast-grep rules use to
// report a symbol's enclosing body alongside its identifier match.
type MultiVariables struct {
	Secondary []Secondary `json:"secondary"`
}

// MetaVariables wraps the multi-capture group of a rule match.
type MetaVariables struct {
	Multi MultiVariables `json:"multi"`
}

// Label is an auxiliary highlighted span a rule match may report.
type Label struct {
	Text  string    `json:"text"`
	Range RuleRange `json:"range"`
}

// RuleMatch is one match from `sg scan --config <rules> --json <file>`.
type RuleMatch struct {
	Text          string        `json:"text"`
	Range         RuleRange     `json:"range"`
	File          string        `json:"file"`
	Lines         string        `json:"lines"`
	CharCount     CharCount     `json:"charCount"`
	Language      string        `json:"language"`
	MetaVariables MetaVariables `json:"metaVariables"`
	RuleID        string        `json:"ruleId"`
	Labels        []Label       `json:"labels"`
}

// BodyRange returns the match's secondary-capture body range: the last
// secondary capture is conventionally the symbol's full declaration span.
// ok is false if the rule produced no secondary captures.
func (m RuleMatch) BodyRange() (RuleRange, bool) {
	n := len(m.MetaVariables.Multi.Secondary)
	if n == 0 {
		return RuleRange{}, false
	}
	return m.MetaVariables.Multi.Secondary[n-1].Range, true
}

// PatternMatch is one match from `sg run <file> --pattern <p> --json`.
type PatternMatch struct {
	Text      string    `json:"text"`
	Range     RuleRange `json:"range"`
	File      string    `json:"file"`
	Lines     string    `json:"lines"`
	CharCount CharCount `json:"charCount"`
	Language  string    `json:"language"`
}

// importRuleID is the rule_id ast-grep's sgconfig.yml rule set uses to tag
// import/use statements, distinguishing them from ordinary declarations.
const importRuleID = "import"
