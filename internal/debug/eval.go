package debug

import (
	"errors"
	"strconv"
	"unicode"
)

// EvalExpr evaluates an expression against a restricted numeric grammar:
// digits, parentheses, + - * /, and whitespace. Anything outside the
// grammar is echoed back verbatim rather than executed; the evaluator
// never runs user input as code. Division by zero yields a descriptive
// string instead of an error.
func EvalExpr(expr string) string {
	if !safeExpr(expr) {
		return expr
	}

	p := &exprParser{input: expr}
	v, err := p.parseExpr()
	if err == nil {
		p.skipSpace()
		if p.pos != len(p.input) {
			err = errTrailingInput
		}
	}
	if err != nil {
		if errors.Is(err, errDivideByZero) {
			return "division by zero"
		}
		return expr
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var (
	errDivideByZero  = errors.New("division by zero")
	errExpectedValue = errors.New("expected a number or parenthesized expression")
	errUnclosedParen = errors.New("missing closing parenthesis")
	errTrailingInput = errors.New("unexpected trailing input")
)

// safeExpr reports whether every rune of expr belongs to the numeric
// grammar's alphabet. A passing charset is necessary but not sufficient;
// the parser still decides whether the expression is well formed.
func safeExpr(expr string) bool {
	seen := false
	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9':
			seen = true
		case r == '(' || r == ')':
		case r == '+' || r == '-' || r == '*' || r == '/':
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return seen
}

// exprParser is a recursive-descent parser for
//
//	expr   = term (("+" | "-") term)*
//	term   = factor (("*" | "/") factor)*
//	factor = ("+" | "-") factor | number | "(" expr ")"
//
// evaluated left to right with the usual precedence.
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			t, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += t
		case '-':
			p.pos++
			t, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= t
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			f, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			v *= f
		case '/':
			p.pos++
			f, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if f == 0 {
				return 0, errDivideByZero
			}
			v /= f
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '+':
		p.pos++
		return p.parseFactor()
	case c == '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, errUnclosedParen
		}
		p.pos++
		return v, nil
	case c >= '0' && c <= '9':
		return p.parseNumber()
	default:
		return 0, errExpectedValue
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, errExpectedValue
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, errExpectedValue
	}
	return v, nil
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}
