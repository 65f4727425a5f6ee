package formula

import "sort"

// TokenType represents the type of token in a formula
type TokenType int

const (
	// Literals
	TokenNumber      TokenType = iota // 123, 45.67
	TokenPlaceholder                  // {A}, a reference to another curve
	TokenIdentifier                   // function name

	// Operators
	TokenPlus     // +
	TokenMinus    // -
	TokenMultiply // *
	TokenDivide   // /
	TokenPower    // ^
	TokenMod      // %

	// Delimiters
	TokenLeftParen  // (
	TokenRightParen // )
	TokenComma      // ,

	// Special
	TokenEOF
	TokenIllegal
)

// Token represents a single token in the formula
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // Position in input string
}

// Expr represents a formula expression node
type Expr interface {
	expr()
}

// NumberLiteral represents a numeric literal
type NumberLiteral struct {
	Value float64
}

func (n *NumberLiteral) expr() {}

// PlaceholderRef references another curve by name: {A}
type PlaceholderRef struct {
	Name string
}

func (p *PlaceholderRef) expr() {}

// UnaryExpr represents a unary operation: -{A}
type UnaryExpr struct {
	Op   TokenType // + or -
	Expr Expr
}

func (u *UnaryExpr) expr() {}

// BinaryExpr represents a binary operation: {A} + {B}
type BinaryExpr struct {
	Left  Expr
	Op    TokenType
	Right Expr
}

func (b *BinaryExpr) expr() {}

// FunctionCall applies a named function: log({A})
type FunctionCall struct {
	Name string
	Args []Expr
}

func (f *FunctionCall) expr() {}

// ParenExpr represents a parenthesized expression
type ParenExpr struct {
	Expr Expr
}

func (p *ParenExpr) expr() {}

// Placeholders returns the distinct placeholder names an expression
// references, sorted.
func Placeholders(e Expr) []string {
	set := make(map[string]bool)
	collectPlaceholders(e, set)
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func collectPlaceholders(e Expr, set map[string]bool) {
	switch ex := e.(type) {
	case *PlaceholderRef:
		set[ex.Name] = true
	case *UnaryExpr:
		collectPlaceholders(ex.Expr, set)
	case *BinaryExpr:
		collectPlaceholders(ex.Left, set)
		collectPlaceholders(ex.Right, set)
	case *FunctionCall:
		for _, arg := range ex.Args {
			collectPlaceholders(arg, set)
		}
	case *ParenExpr:
		collectPlaceholders(ex.Expr, set)
	}
}
