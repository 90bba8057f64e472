package sql

import "strings"

// Token is one lexical element of a SQL string. Start and End are byte
// offsets into the input so callers can splice rewritten text precisely.
type Token struct {
	Type  TokenType
	Value string
	Start int
	End   int
}

type TokenType int

const (
	Identifier TokenType = iota
	QuotedIdentifier
	String
	Number
	From
	Symbol
	EOF
)

func (token Token) String() string {
	switch token.Type {
	case Identifier:
		return "Identifier(" + token.Value + ")"
	case QuotedIdentifier:
		return "QuotedIdentifier(" + token.Value + ")"
	case String:
		return "String(" + token.Value + ")"
	case Number:
		return "Number(" + token.Value + ")"
	case From:
		return "From"
	case Symbol:
		return "Symbol(" + token.Value + ")"
	case EOF:
		return "EOF"
	default:
		return "Unknown(" + token.Value + ")"
	}
}

type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

// Tokens scans the whole input. The EOF token is not included.
func Tokens(sqlText string) []Token {
	lexer := NewLexer(sqlText)

	var tokens []Token
	for {
		token := lexer.NextToken()
		if token.Type == EOF {
			return tokens
		}
		tokens = append(tokens, token)
	}
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

func (lexer *Lexer) NextToken() Token {
	lexer.skipWhitespace()

	start := lexer.position

	switch {
	case lexer.ch == 0:
		return Token{Type: EOF, Start: start, End: start}
	case lexer.ch == '\'':
		value := lexer.readString()
		return Token{Type: String, Value: value, Start: start, End: lexer.position}
	case lexer.ch == '"':
		value := lexer.readQuotedIdentifier()
		return Token{Type: QuotedIdentifier, Value: value, Start: start, End: lexer.position}
	case isDigit(lexer.ch):
		value := lexer.readNumber()
		return Token{Type: Number, Value: value, Start: start, End: lexer.position}
	case isIdentifierChar(lexer.ch):
		value := lexer.readIdentifier()
		tokenType := Identifier
		if strings.EqualFold(value, "FROM") {
			tokenType = From
		}
		return Token{Type: tokenType, Value: value, Start: start, End: lexer.position}
	default:
		ch := lexer.ch
		lexer.readChar()
		return Token{Type: Symbol, Value: string(ch), Start: start, End: lexer.position}
	}
}

func (lexer *Lexer) skipWhitespace() {
	for lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' {
		lexer.readChar()
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isIdentifierChar(lexer.ch) || isDigit(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readString scans a single-quoted literal, unescaping doubled quotes.
func (lexer *Lexer) readString() string {
	lexer.readChar() // skip opening quote

	var value []byte
	for lexer.ch != 0 {
		if lexer.ch == '\'' {
			if lexer.peekChar() == '\'' {
				value = append(value, '\'')
				lexer.readChar()
				lexer.readChar()
				continue
			}
			lexer.readChar() // skip closing quote
			break
		}
		value = append(value, lexer.ch)
		lexer.readChar()
	}

	return string(value)
}

// readQuotedIdentifier scans a double-quoted identifier, unescaping doubled
// quotes, and returns the bare name.
func (lexer *Lexer) readQuotedIdentifier() string {
	lexer.readChar() // skip opening quote

	var value []byte
	for lexer.ch != 0 {
		if lexer.ch == '"' {
			if lexer.peekChar() == '"' {
				value = append(value, '"')
				lexer.readChar()
				lexer.readChar()
				continue
			}
			lexer.readChar() // skip closing quote
			break
		}
		value = append(value, lexer.ch)
		lexer.readChar()
	}

	return string(value)
}

func (lexer *Lexer) readNumber() string {
	position := lexer.position
	for isDigit(lexer.ch) || lexer.ch == '.' {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func isIdentifierChar(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
