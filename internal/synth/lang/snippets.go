package lang

// Snippet is a context-conditioned completion template. Insert uses LSP
// snippet placeholders ($1, $2, ${1:default}).
type Snippet struct {
	// Label is the completion label shown to the user.
	Label string

	// Insert is the snippet body.
	Insert string

	// Detail is a short type-like description.
	Detail string

	// Doc describes what the snippet expands to.
	Doc string

	// When is the context kind that activates the snippet: one of
	// "general", "keyword", "gate", "tensor", "uncertainty".
	When string
}

// Snippets lists the snippet templates in declaration order. Order is
// preserved in completion results within the snippet tier.
var Snippets = []Snippet{
	{
		Label:  "uncertain declaration",
		Insert: "uncertain ${1:name} = ${2:value} ± ${3:error}",
		Detail: "uncertain binding",
		Doc:    "Declare a value with an explicit uncertainty.",
		When:   "uncertainty",
	},
	{
		Label:  "± separator",
		Insert: "± ${1:error}",
		Detail: "uncertainty",
		Doc:    "Attach an uncertainty to the preceding value.",
		When:   "uncertainty",
	},
	{
		Label:  "apply gate",
		Insert: "apply ${1:H} ${2:q0}",
		Detail: "gate application",
		Doc:    "Apply a gate to one or more qubits.",
		When:   "gate",
	},
	{
		Label:  "measure qubit",
		Insert: "measure ${1:q0} -> ${2:result}",
		Detail: "measurement",
		Doc:    "Measure a qubit into a classical binding.",
		When:   "gate",
	},
	{
		Label:  "tensor literal",
		Insert: "tensor ${1:name} = [[${2:1}, ${3:0}], [${4:0}, ${5:1}]]",
		Detail: "tensor binding",
		Doc:    "Declare a rank-2 tensor from nested lists.",
		When:   "tensor",
	},
	{
		Label:  "procedure",
		Insert: "procedure ${1:name}(${2:args}) {\n\t$0\n}",
		Detail: "procedure definition",
		Doc:    "Define a procedure with a braced body.",
		When:   "keyword",
	},
	{
		Label:  "function",
		Insert: "function ${1:name}(${2:args}) {\n\treturn $0\n}",
		Detail: "function definition",
		Doc:    "Define a function returning a value.",
		When:   "keyword",
	},
	{
		Label:  "experiment",
		Insert: "experiment ${1:name} {\n\t$0\n}",
		Detail: "experiment block",
		Doc:    "Define an experiment entry point.",
		When:   "keyword",
	},
	{
		Label:  "let binding",
		Insert: "let ${1:name} = $0",
		Detail: "binding",
		Doc:    "Bind a value to a name.",
		When:   "general",
	},
}

// SnippetsFor returns the snippets active for a context kind, in table order.
// The "general" snippets activate only for the general kind.
func SnippetsFor(kind string) []Snippet {
	var out []Snippet
	for _, s := range Snippets {
		if s.When == kind {
			out = append(out, s)
		}
	}
	return out
}
