package lang

import "fmt"

// keywordDocs holds hover documentation for keywords, in markdown.
var keywordDocs = map[string]string{
	"let":        "**let** — bind a mutable value to a name.\n\n```synth\nlet counts = sample(d, 100)\n```",
	"const":      "**const** — bind an immutable value to a name.\n\n```synth\nconst PLANCK = 6.62607015\n```",
	"uncertain":  "**uncertain** — bind a value with an explicit uncertainty. The value and its error are separated by `±`.\n\n```synth\nuncertain mass = 5.2 ± 0.3\n```",
	"procedure":  "**procedure** — define a named block with side effects and no return value.\n\n```synth\nprocedure prepare(q) {\n    apply H q\n}\n```",
	"function":   "**function** — define a named block that returns a value.\n\n```synth\nfunction scale(x) {\n    return x * 2\n}\n```",
	"experiment": "**experiment** — define a runnable experiment entry point.\n\n```synth\nexperiment bell {\n    apply H q0\n    apply CNOT q0 q1\n}\n```",
	"apply":      "**apply** — apply a gate to one or more qubits.\n\n```synth\napply CNOT q0 q1\n```",
	"measure":    "**measure** — collapse a qubit and bind the classical outcome.\n\n```synth\nmeasure q0 -> m\n```",
	"tensor":     "**tensor** — declare a tensor from nested list literals.\n\n```synth\ntensor pauli_x = [[0, 1], [1, 0]]\n```",
	"if":         "**if** — conditional execution.",
	"else":       "**else** — alternative branch of an `if`.",
	"for":        "**for** — bounded iteration.",
	"while":      "**while** — conditional iteration.",
	"return":     "**return** — yield a value from a `function`.",
}

// gateDocs holds hover documentation for gates, in markdown.
var gateDocs = map[string]string{
	"H":       "**H** — Hadamard gate. Maps |0⟩ to (|0⟩+|1⟩)/√2.",
	"X":       "**X** — Pauli-X (NOT) gate.",
	"Y":       "**Y** — Pauli-Y gate.",
	"Z":       "**Z** — Pauli-Z (phase flip) gate.",
	"S":       "**S** — phase gate (√Z).",
	"T":       "**T** — π/8 gate (√S).",
	"CNOT":    "**CNOT** — controlled-NOT on a control and a target qubit.",
	"CZ":      "**CZ** — controlled-Z on two qubits.",
	"SWAP":    "**SWAP** — exchange the states of two qubits.",
	"RX":      "**RX** — rotation about the X axis by an angle parameter.",
	"RY":      "**RY** — rotation about the Y axis by an angle parameter.",
	"RZ":      "**RZ** — rotation about the Z axis by an angle parameter.",
	"TOFFOLI": "**TOFFOLI** — doubly-controlled NOT on three qubits.",
}

// DocFor returns hover markdown for a keyword, gate, or builtin name.
func DocFor(word string) (string, bool) {
	if doc, ok := keywordDocs[word]; ok {
		return doc, true
	}
	if doc, ok := gateDocs[word]; ok {
		return doc, true
	}
	if b, ok := builtinMap[word]; ok {
		return fmt.Sprintf("```synth\n%s\n```\n\n%s", b.Signature, b.Doc), true
	}
	return "", false
}
