// Package formula evaluates the arithmetic damage expressions attached to
// class skills in the catalog, e.g. "a.atk * 2 + a.level - b.def".
//
// Variables: a.* is the attacker, b.* the defender, with fields hp, mhp,
// res, str, agi, int, vit, atk, def and level.
// Operators: + - * / and parentheses.
// Functions: Math.floor, Math.ceil, Math.round, Math.max, Math.min, Math.abs.
package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Stats holds the values a formula may reference.
type Stats struct {
	HP, MaxHP, Resource          int
	Str, Agi, Int, Vit, Atk, Def int
	Level                        int
}

// Eval evaluates formula for attacker a against defender b.
func Eval(formula string, a, b *Stats) (float64, error) {
	if strings.TrimSpace(formula) == "" {
		return 0, fmt.Errorf("formula: empty expression")
	}
	p := &parser{input: formula, a: a, b: b}
	v, err := p.parseExpr()
	if err != nil {
		return 0, fmt.Errorf("formula %q: %w", formula, err)
	}
	p.skipWS()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("formula %q: unexpected chars at pos %d: %q", formula, p.pos, p.input[p.pos:])
	}
	return v, nil
}

// Check reports whether formula parses and evaluates against neutral stats.
func Check(formula string) error {
	one := &Stats{HP: 1, MaxHP: 1, Resource: 1, Str: 1, Agi: 1, Int: 1, Vit: 1, Atk: 1, Def: 1, Level: 1}
	_, err := Eval(formula, one, one)
	return err
}

// ---- Recursive-descent parser ----

type parser struct {
	input string
	pos   int
	a, b  *Stats
}

func (p *parser) skipWS() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipWS()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) expect(ch byte) error {
	if p.peek() != ch {
		return fmt.Errorf("expected %q at pos %d", ch, p.pos)
	}
	p.pos++
	return nil
}

// parseExpr = parseTerm (('+' | '-') parseTerm)*
func (p *parser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return v, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			v += right
		} else {
			v -= right
		}
	}
}

// parseTerm = parseFactor (('*' | '/') parseFactor)*
func (p *parser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return v, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			v *= right
			continue
		}
		if right == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		v /= right
	}
}

// parseFactor = '(' parseExpr ')' | '-' parseFactor | number | variable | Math.fn(args)
func (p *parser) parseFactor() (float64, error) {
	ch := p.peek()
	switch {
	case ch == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		return v, p.expect(')')
	case ch == '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case unicode.IsDigit(rune(ch)) || ch == '.':
		return p.parseNumber()
	case ch == 'a' || ch == 'b':
		return p.parseVariable()
	case ch == 'M':
		return p.parseMathFunc()
	case ch == 0:
		return 0, fmt.Errorf("unexpected end of expression")
	default:
		return 0, fmt.Errorf("unexpected character %q at pos %d", ch, p.pos)
	}
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	hasDot := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '.' && !hasDot {
			hasDot = true
		} else if c < '0' || c > '9' {
			break
		}
		p.pos++
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsLetter(rune(p.input[p.pos])) || p.input[p.pos] == '_') {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *parser) parseVariable() (float64, error) {
	who := p.input[p.pos]
	p.pos++
	if p.pos >= len(p.input) || p.input[p.pos] != '.' {
		return 0, fmt.Errorf("expected '.' after '%c'", who)
	}
	p.pos++
	field := p.ident()
	s := p.a
	if who == 'b' {
		s = p.b
	}
	if s == nil {
		return 0, fmt.Errorf("no stats bound for '%c'", who)
	}
	return statField(s, field)
}

func statField(s *Stats, field string) (float64, error) {
	switch field {
	case "hp":
		return float64(s.HP), nil
	case "mhp":
		return float64(s.MaxHP), nil
	case "res":
		return float64(s.Resource), nil
	case "str":
		return float64(s.Str), nil
	case "agi":
		return float64(s.Agi), nil
	case "int":
		return float64(s.Int), nil
	case "vit":
		return float64(s.Vit), nil
	case "atk":
		return float64(s.Atk), nil
	case "def":
		return float64(s.Def), nil
	case "level":
		return float64(s.Level), nil
	}
	return 0, fmt.Errorf("unknown stat field %q", field)
}

func (p *parser) parseMathFunc() (float64, error) {
	const prefix = "Math."
	if !strings.HasPrefix(p.input[p.pos:], prefix) {
		return 0, fmt.Errorf("expected Math.xxx at pos %d", p.pos)
	}
	p.pos += len(prefix)
	name := p.ident()
	if err := p.expect('('); err != nil {
		return 0, err
	}
	var args []float64
	for p.peek() != ')' {
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		args = append(args, v)
		if p.peek() == ',' {
			p.pos++
		} else if p.peek() != ')' {
			return 0, fmt.Errorf("expected ',' or ')' at pos %d", p.pos)
		}
	}
	p.pos++
	return applyMathFunc(name, args)
}

func applyMathFunc(name string, args []float64) (float64, error) {
	unary := map[string]func(float64) float64{
		"floor": math.Floor,
		"ceil":  math.Ceil,
		"round": math.Round,
		"abs":   math.Abs,
	}
	if fn, ok := unary[name]; ok {
		if len(args) != 1 {
			return 0, fmt.Errorf("Math.%s expects 1 argument", name)
		}
		return fn(args[0]), nil
	}
	switch name {
	case "max", "min":
		if len(args) == 0 {
			return 0, fmt.Errorf("Math.%s expects >=1 argument", name)
		}
		v := args[0]
		for _, a := range args[1:] {
			if (name == "max" && a > v) || (name == "min" && a < v) {
				v = a
			}
		}
		return v, nil
	}
	return 0, fmt.Errorf("unknown Math.%s", name)
}
