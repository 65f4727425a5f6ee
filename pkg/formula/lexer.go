package formula

// Lexer tokenizes formula strings
type Lexer struct {
	input   string
	pos     int  // current position
	readPos int  // next read position
	ch      byte // current character
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar advances to the next character
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespace()

	tok.Pos = l.pos

	switch l.ch {
	case '(':
		tok = Token{Type: TokenLeftParen, Literal: string(l.ch), Pos: l.pos}
	case ')':
		tok = Token{Type: TokenRightParen, Literal: string(l.ch), Pos: l.pos}
	case ',':
		tok = Token{Type: TokenComma, Literal: string(l.ch), Pos: l.pos}
	case '+':
		tok = Token{Type: TokenPlus, Literal: string(l.ch), Pos: l.pos}
	case '-':
		tok = Token{Type: TokenMinus, Literal: string(l.ch), Pos: l.pos}
	case '*':
		tok = Token{Type: TokenMultiply, Literal: string(l.ch), Pos: l.pos}
	case '/':
		tok = Token{Type: TokenDivide, Literal: string(l.ch), Pos: l.pos}
	case '^':
		tok = Token{Type: TokenPower, Literal: string(l.ch), Pos: l.pos}
	case '%':
		tok = Token{Type: TokenMod, Literal: string(l.ch), Pos: l.pos}
	case '{':
		name, ok := l.readPlaceholder()
		if !ok {
			tok = Token{Type: TokenIllegal, Literal: name, Pos: tok.Pos}
		} else {
			tok = Token{Type: TokenPlaceholder, Literal: name, Pos: tok.Pos}
		}
	case 0:
		tok = Token{Type: TokenEOF, Literal: "", Pos: l.pos}
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = TokenIdentifier
			return tok
		} else if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
			tok.Type = TokenNumber
			tok.Literal = l.readNumber()
			return tok
		}
		tok = Token{Type: TokenIllegal, Literal: string(l.ch), Pos: l.pos}
	}

	l.readChar()
	return tok
}

// skipWhitespace skips whitespace
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readPlaceholder reads a {name} reference. ok is false when the closing
// brace is missing.
func (l *Lexer) readPlaceholder() (string, bool) {
	pos := l.pos + 1 // skip opening brace
	for {
		l.readChar()
		if l.ch == '}' {
			return l.input[pos:l.pos], true
		}
		if l.ch == 0 {
			return l.input[pos:l.pos], false
		}
	}
}

// readIdentifier reads a function name
func (l *Lexer) readIdentifier() string {
	pos := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

// readNumber reads a number (integer or float with scientific notation)
func (l *Lexer) readNumber() string {
	pos := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	// Handle decimal point
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Handle scientific notation (e or E)
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[pos:l.pos]
}

// isLetter checks if character is a letter
func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// isDigit checks if character is a digit
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
