package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// Prefix marks an address as a formula rather than a channel
const Prefix = "f://"

// Parser parses formula strings into an AST
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
}

// NewParser creates a new parser for the given input
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to populate curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances the parser to the next token
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// Parse parses a formula string into an expression tree. A leading "f://"
// prefix is stripped.
func Parse(input string) (Expr, error) {
	input = strings.TrimPrefix(input, Prefix)
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("empty formula")
	}

	p := NewParser(input)
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.curToken.Type != TokenEOF {
		return nil, fmt.Errorf("unexpected token %q at position %d", p.curToken.Literal, p.curToken.Pos)
	}

	return expr, nil
}

// parseExpression parses additive expressions: term (('+' | '-') term)*
func (p *Parser) parseExpression() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.curToken.Type == TokenPlus || p.curToken.Type == TokenMinus {
		op := p.curToken.Type
		p.nextToken()

		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}

	return left, nil
}

// parseTerm parses multiplicative expressions: factor (('*' | '/' | '%') factor)*
func (p *Parser) parseTerm() (Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}

	for p.curToken.Type == TokenMultiply || p.curToken.Type == TokenDivide || p.curToken.Type == TokenMod {
		op := p.curToken.Type
		p.nextToken()

		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}

	return left, nil
}

// parsePower parses exponentiation, which is right-associative: 2^3^2 = 2^9
func (p *Parser) parsePower() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	if p.curToken.Type == TokenPower {
		p.nextToken()

		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}

		return &BinaryExpr{Left: left, Op: TokenPower, Right: right}, nil
	}

	return left, nil
}

// parseUnary parses unary plus and minus: -{A}
func (p *Parser) parseUnary() (Expr, error) {
	if p.curToken.Type == TokenPlus || p.curToken.Type == TokenMinus {
		op := p.curToken.Type
		p.nextToken()

		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return &UnaryExpr{Op: op, Expr: expr}, nil
	}

	return p.parsePrimary()
}

// parsePrimary parses numbers, placeholders, function calls, and
// parenthesized expressions
func (p *Parser) parsePrimary() (Expr, error) {
	switch p.curToken.Type {
	case TokenNumber:
		val, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at position %d", p.curToken.Literal, p.curToken.Pos)
		}
		p.nextToken()
		return &NumberLiteral{Value: val}, nil

	case TokenPlaceholder:
		name := p.curToken.Literal
		if name == "" {
			return nil, fmt.Errorf("empty reference at position %d", p.curToken.Pos)
		}
		p.nextToken()
		return &PlaceholderRef{Name: name}, nil

	case TokenIdentifier:
		return p.parseFunctionCall()

	case TokenLeftParen:
		p.nextToken()

		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		if p.curToken.Type != TokenRightParen {
			return nil, fmt.Errorf("expected ')' at position %d, got %q", p.curToken.Pos, p.curToken.Literal)
		}
		p.nextToken()

		return &ParenExpr{Expr: expr}, nil

	case TokenEOF:
		return nil, fmt.Errorf("unexpected end of formula")

	default:
		return nil, fmt.Errorf("unexpected token %q at position %d", p.curToken.Literal, p.curToken.Pos)
	}
}

// parseFunctionCall parses name '(' args ')'
func (p *Parser) parseFunctionCall() (Expr, error) {
	name := p.curToken.Literal
	p.nextToken()

	if p.curToken.Type != TokenLeftParen {
		return nil, fmt.Errorf("expected '(' after %q at position %d", name, p.curToken.Pos)
	}
	p.nextToken()

	var args []Expr
	if p.curToken.Type != TokenRightParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.curToken.Type != TokenComma {
				break
			}
			p.nextToken()
		}
	}

	if p.curToken.Type != TokenRightParen {
		return nil, fmt.Errorf("expected ')' at position %d, got %q", p.curToken.Pos, p.curToken.Literal)
	}
	p.nextToken()

	if _, ok := functions[name]; !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("function %q takes 1 argument, got %d", name, len(args))
	}

	return &FunctionCall{Name: name, Args: args}, nil
}
