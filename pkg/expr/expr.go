// Package expr implements the restricted expression language used by
// scenario scoring formulas and scorecard template placeholders.
//
// The grammar is deliberately small: numeric and string literals, dotted
// identifiers resolved against a caller-supplied context, the four binary
// arithmetic operators, parentheses, equality, and a single inline
// conditional form "A if C else B". Binary operators have no relative
// precedence: they are applied strictly left-to-right as encountered.
// Scenario formulas are written against that contract, so changing it would
// silently change existing scenarios.
package expr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrSyntax reports an expression rejected before evaluation, such as
	// one containing characters outside the allow-list.
	ErrSyntax = errors.New("expression syntax error")
	// ErrValue reports a failure during evaluation: an unknown identifier,
	// an unsupported operator, or a type mismatch.
	ErrValue = errors.New("expression value error")
)

// disallowed matches any character outside the allow-listed set.
var disallowed = regexp.MustCompile(`[^a-zA-Z0-9\s_.,+\-*/()"'\[\]={}]`)

// Eval evaluates expression against ctx and returns the result: a float64,
// string, or bool. Values in ctx may be numbers, strings, or nested
// map[string]any consulted by dotted identifiers (e.g. "USA.influence").
// Eval is a pure function of its inputs.
func Eval(expression string, ctx map[string]any) (any, error) {
	if bad := disallowed.FindString(expression); bad != "" {
		return nil, fmt.Errorf("%w: unsupported character %q in expression", ErrSyntax, bad)
	}

	tokens, err := tokenize(expression)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}

	p := &parser{tokens: tokens, ctx: ctx}
	result, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("%w: unexpected token %q", ErrValue, p.peek().text)
	}
	return result, nil
}

// EvalNumber evaluates expression and requires a numeric result.
func EvalNumber(expression string, ctx map[string]any) (float64, error) {
	v, err := Eval(expression, ctx)
	if err != nil {
		return 0, err
	}
	n, ok := toNumber(v)
	if !ok {
		return 0, fmt.Errorf("%w: expression %q did not produce a number", ErrValue, expression)
	}
	return n, nil
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenString
	tokenIdent
	tokenOperator
	tokenLParen
	tokenRParen
	tokenIf
	tokenElse
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0

	for i < len(runes) {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "("})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")"})
			i++
		case r == '+' || r == '-' || r == '*' || r == '/':
			tokens = append(tokens, token{kind: tokenOperator, text: string(r)})
			i++
		case r == '=':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenOperator, text: "=="})
				i += 2
			} else {
				return nil, fmt.Errorf("%w: single '=' is not an operator", ErrValue)
			}
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("%w: unterminated string literal", ErrSyntax)
			}
			tokens = append(tokens, token{kind: tokenString, text: string(runes[i+1 : j])})
			i = j + 1
		case r >= '0' && r <= '9':
			j := i
			for j < len(runes) && (runes[j] >= '0' && runes[j] <= '9' || runes[j] == '.') {
				j++
			}
			text := string(runes[i:j])
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed number %q", ErrSyntax, text)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, num: num})
			i = j
		case isIdentStart(r):
			j := i
			for j < len(runes) && (isIdentPart(runes[j]) || runes[j] == '.') {
				j++
			}
			text := string(runes[i:j])
			switch text {
			case "if":
				tokens = append(tokens, token{kind: tokenIf, text: text})
			case "else":
				tokens = append(tokens, token{kind: tokenElse, text: text})
			default:
				tokens = append(tokens, token{kind: tokenIdent, text: text})
			}
			i = j
		default:
			return nil, fmt.Errorf("%w: unsupported token %q", ErrValue, string(r))
		}
	}
	return tokens, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

type parser struct {
	tokens []token
	pos    int
	ctx    map[string]any
}

func (p *parser) atEnd() bool   { return p.pos >= len(p.tokens) }
func (p *parser) peek() token   { return p.tokens[p.pos] }
func (p *parser) advance() token { t := p.tokens[p.pos]; p.pos++; return t }

// parseExpression handles the conditional form on top of the binary chain:
// "A if C else B" evaluates C and picks one branch.
func (p *parser) parseExpression() (any, error) {
	value, err := p.parseBinaryChain()
	if err != nil {
		return nil, err
	}

	if !p.atEnd() && p.peek().kind == tokenIf {
		p.advance()
		cond, err := p.parseBinaryChain()
		if err != nil {
			return nil, err
		}
		if p.atEnd() || p.peek().kind != tokenElse {
			return nil, fmt.Errorf("%w: conditional expression missing 'else'", ErrSyntax)
		}
		p.advance()
		alternative, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if isTruthy(cond) {
			return value, nil
		}
		return alternative, nil
	}

	return value, nil
}

// parseBinaryChain applies binary operators strictly left-to-right with no
// precedence: "1 + 2 * 2" is ((1+2)*2) = 6.
func (p *parser) parseBinaryChain() (any, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	for !p.atEnd() && p.peek().kind == tokenOperator {
		op := p.advance().text
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		left, err = applyOperator(op, left, right)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseOperand() (any, error) {
	if p.atEnd() {
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	}

	t := p.advance()
	switch t.kind {
	case tokenNumber:
		return t.num, nil
	case tokenString:
		return t.text, nil
	case tokenIdent:
		return p.resolveIdent(t.text)
	case tokenOperator:
		// Unary minus on a numeric operand
		if t.text == "-" {
			operand, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			n, ok := toNumber(operand)
			if !ok {
				return nil, fmt.Errorf("%w: unary '-' requires a number", ErrValue)
			}
			return -n, nil
		}
		return nil, fmt.Errorf("%w: unexpected operator %q", ErrValue, t.text)
	case tokenLParen:
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.atEnd() || p.peek().kind != tokenRParen {
			return nil, fmt.Errorf("%w: missing closing parenthesis", ErrSyntax)
		}
		p.advance()
		return value, nil
	default:
		return nil, fmt.Errorf("%w: unexpected token %q", ErrValue, t.text)
	}
}

// resolveIdent looks up a dotted identifier against the context. A dotted
// path resolves one level into a nested mapping per segment.
func (p *parser) resolveIdent(name string) (any, error) {
	parts := strings.Split(name, ".")
	value, ok := p.ctx[parts[0]]
	if !ok {
		return nil, fmt.Errorf("%w: unknown identifier %q", ErrValue, parts[0])
	}

	for _, part := range parts[1:] {
		nested, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a mapping, cannot resolve %q", ErrValue, name, part)
		}
		value, ok = nested[part]
		if !ok {
			return nil, fmt.Errorf("%w: unknown identifier %q", ErrValue, name)
		}
	}
	return value, nil
}

func applyOperator(op string, left, right any) (any, error) {
	if op == "==" {
		return equals(left, right), nil
	}

	// String concatenation keeps template conditionals useful
	if ls, lok := left.(string); lok {
		if rs, rok := right.(string); rok && op == "+" {
			return ls + rs, nil
		}
	}

	ln, lok := toNumber(left)
	rn, rok := toNumber(right)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: operator %q requires numeric operands", ErrValue, op)
	}

	switch op {
	case "+":
		return ln + rn, nil
	case "-":
		return ln - rn, nil
	case "*":
		return ln * rn, nil
	case "/":
		if rn == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrValue)
		}
		return ln / rn, nil
	default:
		return nil, fmt.Errorf("%w: unsupported operator %q", ErrValue, op)
	}
}

func equals(left, right any) bool {
	if ln, ok := toNumber(left); ok {
		if rn, ok := toNumber(right); ok {
			return ln == rn
		}
		return false
	}
	return left == right
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	default:
		if n, ok := toNumber(v); ok {
			return n != 0
		}
		return v != nil
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
