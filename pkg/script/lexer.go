// Package script tokenizes and shallowly parses the script region of a
// component file: enough structure to find statements, declarations, imports
// and call expressions with exact byte spans, without type information.
package script

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/walteh/sfc-typer/pkg/position"
)

var (
	// LexerRules defines the stateful lexer for script and expression text.
	// Template literals push a state so `${ ... }` bodies are lexed as code
	// and their braces are balanced.
	LexerRules = lexer.Rules{
		"Root": {
			{Name: "Whitespace", Pattern: `[ \t\r\n\f\v\x{a0}\x{feff}]+`},
			{Name: "LineComment", Pattern: `//[^\n]*`},
			{Name: "BlockComment", Pattern: `(?s)/\*.*?\*/`},
			{Name: "TemplateOpen", Pattern: "`", Action: lexer.Push("Template")},
			{Name: "String", Pattern: `"(?:\\.|[^"\\\n])*"|'(?:\\.|[^'\\\n])*'`},
			{Name: "Number", Pattern: `0[xXbBoO][0-9a-fA-F_]+n?|(?:\d[\d_]*(?:\.[\d_]*)?|\.\d[\d_]*)(?:[eE][+-]?\d+)?n?`},
			{Name: "Ident", Pattern: `[\p{L}\p{Nl}_$][\p{L}\p{Nl}\p{Mn}\p{Mc}\p{Nd}\p{Pc}_$]*`},
			{Name: "Punct", Pattern: `\.\.\.|===|!==|\*\*=|<<=|&&=|\|\|=|\?\?=|\?\.|=>|==|!=|<=|>=|&&|\|\||\?\?|\+\+|--|\+=|-=|\*=|/=|%=|&=|\|=|\^=|\*\*|<<|[{}()\[\];,<>+\-*/%&|^!~?:=.@#]`},
			{Name: "Char", Pattern: `(?s).`},
		},
		"Template": {
			{Name: "TemplateClose", Pattern: "`", Action: lexer.Pop()},
			{Name: "TemplateExprOpen", Pattern: `\$\{`, Action: lexer.Push("TemplateExpr")},
			{Name: "TemplateText", Pattern: `(?:\\[\s\S]|\$[^{` + "`" + `]|[^\\` + "`" + `$])+`},
			{Name: "TemplateChar", Pattern: `(?s).`},
		},
		"TemplateExpr": {
			{Name: "TemplateExprClose", Pattern: `\}`, Action: lexer.Pop()},
			{Name: "ExprBraceOpen", Pattern: `\{`, Action: lexer.Push("Brace")},
			lexer.Include("Root"),
		},
		"Brace": {
			{Name: "NestedBraceClose", Pattern: `\}`, Action: lexer.Pop()},
			{Name: "NestedBraceOpen", Pattern: `\{`, Action: lexer.Push("Brace")},
			lexer.Include("Root"),
		},
	}

	// ScriptLexer is the stateful lexer for script text
	ScriptLexer = lexer.MustStateful(LexerRules)

	symbolNames = func() map[lexer.TokenType]string {
		out := map[lexer.TokenType]string{}
		for name, typ := range ScriptLexer.Symbols() {
			out[typ] = name
		}
		return out
	}()
)

// Tokenize lexes src[span] and returns the significant tokens with offsets
// relative to src. Comments and whitespace are dropped; NewlineBefore records
// whether a line break preceded a token. Regular expression literals are
// recognized where an operand is expected and re-lexing resumes after them.
func Tokenize(src string, span position.Span) []Token {
	span = position.NewSpan(clampOffset(span.Start, src), clampOffset(span.End, src))
	var out []Token
	base := span.Start
	newline := false
	for base < span.End {
		raw := lexRaw(src[base:span.End], base)
		restart := -1
		for _, t := range raw {
			switch t.Kind {
			case kindWhitespace, kindComment:
				if strings.ContainsAny(t.Text, "\n\r") {
					newline = true
				}
				continue
			}
			if t.Kind == Punct && (t.Text == "/" || t.Text == "/=") && regexAllowed(out) {
				if end, ok := scanRegex(src[:span.End], t.Span.Start); ok {
					out = append(out, Token{Kind: Regex, Text: src[t.Span.Start:end], Span: position.NewSpan(t.Span.Start, end), NewlineBefore: newline})
					newline = false
					restart = end
					break
				}
			}
			t.NewlineBefore = newline
			newline = false
			out = append(out, t)
		}
		if restart < 0 {
			break
		}
		base = restart
	}
	return out
}

const (
	kindWhitespace Kind = -1
	kindComment    Kind = -2
)

func lexRaw(text string, base int) []Token {
	lex, err := ScriptLexer.LexString("", text)
	if err != nil {
		return []Token{{Kind: Other, Text: text, Span: position.NewSpan(base, base+len(text))}}
	}
	var out []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			// unlexable tail becomes one opaque token
			off := 0
			if len(out) > 0 {
				off = out[len(out)-1].Span.End - base
			}
			out = append(out, Token{Kind: Other, Text: text[off:], Span: position.NewSpan(base+off, base+len(text))})
			return out
		}
		if tok.EOF() {
			return out
		}
		start := base + tok.Pos.Offset
		out = append(out, Token{
			Kind: kindForSymbol(symbolNames[tok.Type]),
			Text: tok.Value,
			Span: position.NewSpan(start, start+len(tok.Value)),
		})
	}
}

func kindForSymbol(name string) Kind {
	switch name {
	case "Whitespace":
		return kindWhitespace
	case "LineComment", "BlockComment":
		return kindComment
	case "String":
		return String
	case "Number":
		return Number
	case "Ident":
		return Ident
	case "TemplateOpen":
		return TemplateOpen
	case "TemplateClose":
		return TemplateClose
	case "TemplateText", "TemplateChar":
		return TemplateText
	case "TemplateExprOpen":
		return TemplateExprOpen
	case "TemplateExprClose":
		return TemplateExprClose
	case "Punct", "ExprBraceOpen", "NestedBraceOpen", "NestedBraceClose":
		return Punct
	}
	return Other
}

var regexPrefixKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true, "new": true,
	"delete": true, "void": true, "throw": true, "case": true, "do": true, "else": true,
	"yield": true, "await": true,
}

func regexAllowed(prev []Token) bool {
	if len(prev) == 0 {
		return true
	}
	p := prev[len(prev)-1]
	switch p.Kind {
	case Punct:
		switch p.Text {
		case ")", "]", "}", "++", "--":
			return false
		}
		return true
	case Ident:
		return regexPrefixKeywords[p.Text]
	case TemplateExprOpen:
		return true
	}
	return false
}

func scanRegex(src string, start int) (int, bool) {
	i := start + 1
	if i >= len(src) || src[i] == '/' || src[i] == '*' {
		return 0, false
	}
	inClass := false
	for ; i < len(src); i++ {
		switch c := src[i]; {
		case c == '\n' || c == '\r':
			return 0, false
		case c == '\\':
			i++
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			i++
			for i < len(src) && isIdentByte(src[i]) {
				i++
			}
			return i, true
		}
	}
	return 0, false
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func clampOffset(off int, src string) int {
	if off < 0 {
		return 0
	}
	if off > len(src) {
		return len(src)
	}
	return off
}
