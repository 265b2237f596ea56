package alarmexpr

import (
	"strconv"
	"strings"

	"github.com/wardenhq/warden/internal/model"
)

var functionNames = map[string]bool{
	"MAX": true, "MIN": true, "AVG": true, "COUNT": true, "SUM": true,
}

type parser struct {
	toks []token
	pos  int
	orig string
}

// Parse compiles an alarm expression string into a boolean tree per
// spec.md §4.1. The returned tree's leaves carry normalized operators,
// functions, dimensions, period/periods and a canonical_string.
func Parse(expr string) (*Node, error) {
	stripped := stripWhitespace(expr)
	toks, err := lex(stripped)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, orig: stripped}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, &InvalidExpression{Expression: stripped, Reason: "unexpected trailing input"}
	}
	return node, nil
}

func stripWhitespace(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.cur().kind != k {
		return token{}, &InvalidExpression{Expression: p.orig, Reason: "expected " + what}
	}
	return p.advance(), nil
}

// parseExpr == or_expr
func (p *parser) parseExpr() (*Node, error) {
	start := p.pos
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []*Node{left}
	for p.cur().kind == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return binNode(OpOr, renderCanonical(p.toks[start:p.pos]), children...), nil
}

func (p *parser) parseAnd() (*Node, error) {
	start := p.pos
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	children := []*Node{left}
	for p.cur().kind == tokAnd {
		p.advance()
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return binNode(OpAnd, renderCanonical(p.toks[start:p.pos]), children...), nil
}

func (p *parser) parseAtom() (*Node, error) {
	if p.cur().kind == tokLParen {
		start := p.pos
		p.advance()
		node, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "closing paren"); err != nil {
			return nil, err
		}
		// Parenthesized sub-expressions keep their own canonical text
		// (including the parens) rather than inheriting the inner
		// node's span, since the outer text is what the caller wrote.
		node = &Node{Leaf: node.Leaf, Op: node.Op, Children: node.Children,
			canonical: renderCanonical(p.toks[start:p.pos])}
		return node, nil
	}
	return p.parseSub()
}

// parseSub == func '(' metric [',' period] ')' relop threshold ['times' periods]
func (p *parser) parseSub() (*Node, error) {
	start := p.pos
	fnTok, err := p.expect(tokIdent, "aggregate function")
	if err != nil {
		return nil, err
	}
	fn := strings.ToUpper(fnTok.text)
	if !functionNames[fn] {
		return nil, &InvalidExpression{Expression: p.orig, Reason: "unknown function " + fnTok.text}
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	metricTok, err := p.expect(tokIdent, "metric name")
	if err != nil {
		return nil, err
	}
	metric := strings.ToLower(metricTok.text)

	dims := map[string]string{}
	if p.cur().kind == tokLBrace {
		p.advance()
		for {
			kTok, err := p.expect(tokIdent, "dimension key")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokEquals, "'='"); err != nil {
				return nil, err
			}
			vTok, err := p.expect(tokIdent, "dimension value")
			if err != nil {
				return nil, err
			}
			dims[kTok.text] = vTok.text
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tokRBrace, "'}'"); err != nil {
			return nil, err
		}
	}

	period := 60
	if p.cur().kind == tokComma {
		p.advance()
		periodTok, err := p.expect(tokNumber, "period")
		if err != nil {
			return nil, err
		}
		period, err = strconv.Atoi(periodTok.text)
		if err != nil {
			return nil, &InvalidExpression{Expression: p.orig, Reason: "period must be an integer"}
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}

	relTok, err := p.expect(tokRelop, "relational operator")
	if err != nil {
		return nil, err
	}
	op := normalizeRelop(relTok.text)

	thresholdTok, err := p.expect(tokNumber, "threshold")
	if err != nil {
		return nil, err
	}
	threshold, err := strconv.ParseFloat(thresholdTok.text, 64)
	if err != nil {
		return nil, &InvalidExpression{Expression: p.orig, Reason: "threshold must be numeric"}
	}

	periods := 1
	if p.cur().kind == tokTimes {
		p.advance()
		periodsTok, err := p.expect(tokNumber, "periods")
		if err != nil {
			return nil, err
		}
		periods, err = strconv.Atoi(periodsTok.text)
		if err != nil || periods < 1 {
			return nil, &InvalidExpression{Expression: p.orig, Reason: "periods must be a positive integer"}
		}
	}

	end := p.pos
	canonical := renderCanonical(p.toks[start:end])

	desc := model.SubAlarmDescriptor{
		Function:        fn,
		MetricName:      metric,
		Dimensions:      dims,
		Operator:        op,
		Threshold:       threshold,
		Period:          period,
		Periods:         periods,
		CanonicalString: canonical,
	}
	return leafNode(desc), nil
}

func normalizeRelop(s string) string {
	switch s {
	case "<":
		return "LT"
	case "<=":
		return "LTE"
	case ">":
		return "GT"
	case ">=":
		return "GTE"
	}
	return strings.ToUpper(s)
}

// renderCanonical reconstructs a leaf's token span into text equal to the
// corresponding substring of the whitespace-stripped input: the tokenizer
// already discarded no characters here, so joining token texts directly
// reproduces it without reintroducing separators the grammar didn't have.
func renderCanonical(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.text)
	}
	return b.String()
}
