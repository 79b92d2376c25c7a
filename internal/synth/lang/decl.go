package lang

import (
	"regexp"
	"strings"
)

// DeclKind identifies the declaration form that introduced a symbol.
type DeclKind int

const (
	// DeclLet is a "let NAME = ..." binding.
	DeclLet DeclKind = iota
	// DeclConst is a "const NAME = ..." binding.
	DeclConst
	// DeclUncertain is an "uncertain NAME = ..." binding.
	DeclUncertain
	// DeclProcedure is a "procedure NAME(...)" definition.
	DeclProcedure
	// DeclFunction is a "function NAME(...)" definition.
	DeclFunction
	// DeclExperiment is an "experiment NAME { ... }" block.
	DeclExperiment
	// DeclTensor is a "tensor NAME = [[...]]" binding.
	DeclTensor
)

// String returns the keyword that introduces the declaration.
func (k DeclKind) String() string {
	switch k {
	case DeclLet:
		return "let"
	case DeclConst:
		return "const"
	case DeclUncertain:
		return "uncertain"
	case DeclProcedure:
		return "procedure"
	case DeclFunction:
		return "function"
	case DeclExperiment:
		return "experiment"
	case DeclTensor:
		return "tensor"
	default:
		return "unknown"
	}
}

// IsCallable reports whether the declaration introduces something invocable.
func (k DeclKind) IsCallable() bool {
	return k == DeclProcedure || k == DeclFunction
}

// Decl is one declaration found by scanning source text.
// Lines and columns are 0-based byte positions, ready for LSP ranges.
type Decl struct {
	// Name is the declared identifier.
	Name string

	// Kind is the declaration form.
	Kind DeclKind

	// Line is the 0-based line the declaration starts on.
	Line int

	// Col is the 0-based byte column of the name within the line.
	Col int
}

// declPattern matches a declaration head at the start of a line (after
// indentation). This is a line scan, not a parse: declarations inside
// strings or comments are still matched. Known limitation of the tier.
var declPattern = regexp.MustCompile(`^\s*(let|const|uncertain|procedure|function|experiment|tensor)\s+([A-Za-z_][A-Za-z0-9_]*)`)

var declKinds = map[string]DeclKind{
	"let":        DeclLet,
	"const":      DeclConst,
	"uncertain":  DeclUncertain,
	"procedure":  DeclProcedure,
	"function":   DeclFunction,
	"experiment": DeclExperiment,
	"tensor":     DeclTensor,
}

// ScanDecls scans source text for declarations, in line order.
func ScanDecls(text string) []Decl {
	var decls []Decl
	for i, line := range strings.Split(text, "\n") {
		d, ok := scanDeclLine(line)
		if !ok {
			continue
		}
		d.Line = i
		decls = append(decls, d)
	}
	return decls
}

// scanDeclLine matches a single line against the declaration pattern.
func scanDeclLine(line string) (Decl, bool) {
	m := declPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return Decl{}, false
	}
	keyword := line[m[2]:m[3]]
	kind, ok := declKinds[keyword]
	if !ok {
		return Decl{}, false
	}
	return Decl{
		Name: line[m[4]:m[5]],
		Kind: kind,
		Col:  m[4],
	}, true
}

// FindDecl returns the first declaration of name in text.
// Resolution is single-document and first-match only.
func FindDecl(text, name string) (Decl, bool) {
	for _, d := range ScanDecls(text) {
		if d.Name == name {
			return d, true
		}
	}
	return Decl{}, false
}

// IsBlockHeader reports whether the line opens a procedure, function, or
// experiment body. Used to find insertion points for extracted code.
func IsBlockHeader(line string) bool {
	d, ok := scanDeclLine(line)
	return ok && (d.Kind == DeclProcedure || d.Kind == DeclFunction || d.Kind == DeclExperiment)
}
