package css_parser

import (
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/evanw/postcss/internal/css_lexer"
	"github.com/evanw/postcss/internal/logger"
	"github.com/evanw/postcss/pkg/css_ast"
)

// The parser consumes the token array and builds the node tree, attaching
// raw byte spans to every node so that an unmodified tree prints back to the
// original input exactly. It is recursive descent with one token of
// lookahead, except that an at-rule body's shape is decided by scanning the
// tokens past its open brace (lookaheadBodyShape). Errors are never recovered internally: the first syntax error
// aborts the walk and parsing fails as a whole.

func nullString(s string) null.String {
	return null.StringFrom(s)
}

type Options struct {
	// From is the input file identifier recorded on every node's source.
	From string
}

type parser struct {
	log     logger.Log
	source  logger.Source
	tokens  []css_lexer.Token
	index   int
	options Options
	root    *css_ast.Root
	fatal   bool
}

func Parse(log logger.Log, source logger.Source, options Options) *css_ast.Root {
	tokens := css_lexer.Tokenize(log, source)
	p := parser{
		log:     log,
		source:  source,
		tokens:  tokens,
		options: options,
		root:    css_ast.NewRoot(),
	}
	p.root.Source = css_ast.Source{
		File:  options.From,
		Start: css_ast.Position{Line: 1, Column: 1},
		End:   p.lastBytePosition(),
	}
	p.parseRulesBody(p.root, nil)
	return p.root
}

func (p *parser) current() css_lexer.Token {
	return p.tokens[p.index]
}

func (p *parser) advance() {
	if p.index+1 < len(p.tokens) {
		p.index++
	}
}

func (p *parser) raw(tok css_lexer.Token) string {
	return tok.Raw(p.source.Contents)
}

// rawSpan returns the input bytes covered by tokens[start:end].
func (p *parser) rawSpan(start int, end int) string {
	if start >= end {
		return ""
	}
	from := p.tokens[start].Range.Loc.Start
	to := p.tokens[end-1].Range.End()
	return p.source.Contents[from:to]
}

// cleanSpan builds the cleaned form of tokens[start:end]: comment tokens are
// dropped, everything else is kept, and the outer whitespace is trimmed.
func (p *parser) cleanSpan(start int, end int) string {
	sb := strings.Builder{}
	for i := start; i < end; i++ {
		if p.tokens[i].Kind != css_lexer.TComment {
			sb.WriteString(p.raw(p.tokens[i]))
		}
	}
	return strings.TrimSpace(sb.String())
}

func tokenPosition(tok css_lexer.Token) css_ast.Position {
	return css_ast.Position{Line: int(tok.Line), Column: int(tok.Column)}
}

// endPosition returns the position of the token's final byte.
func (p *parser) endPosition(tok css_lexer.Token) css_ast.Position {
	raw := p.raw(tok)
	line := int(tok.Line)
	column := int(tok.Column)
	for i := 0; i < len(raw)-1; i++ {
		switch raw[i] {
		case '\n':
			line++
			column = 1
		case '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				column++
			} else {
				line++
				column = 1
			}
		default:
			column++
		}
	}
	return css_ast.Position{Line: line, Column: column}
}

func (p *parser) lastBytePosition() css_ast.Position {
	if len(p.tokens) < 2 {
		return css_ast.Position{Line: 1, Column: 1}
	}
	return p.endPosition(p.tokens[len(p.tokens)-2])
}

// error records a syntax error and aborts the walk by jumping to the
// end-of-file sentinel.
func (p *parser) error(pos css_ast.Position, text string) {
	p.log.AddError(&p.source, pos.Line, pos.Column, text)
	p.fatal = true
	p.index = len(p.tokens) - 1
}

func (p *parser) warn(pos css_ast.Position, text string) {
	p.log.AddWarning(&p.source, pos.Line, pos.Column, text)
	p.root.AddWarning(text, pos)
}

func (p *parser) appendChild(c css_ast.Container, child css_ast.Node) {
	if err := c.Append(child); err != nil {
		// The parser only produces children that fit the container shape it
		// itself decided.
		panic("Internal error: " + err.Error())
	}
}

// parseRulesBody parses the children of the root or of a rule-shaped
// at-rule. owner is nil for the root; otherwise the body runs until the
// matching close brace, which is consumed here.
func (p *parser) parseRulesBody(c css_ast.Container, owner *css_ast.AtRule) {
	before := strings.Builder{}

	for !p.fatal {
		tok := p.current()
		switch tok.Kind {
		case css_lexer.TWhitespace:
			before.WriteString(p.raw(tok))
			p.advance()

		case css_lexer.TSemicolon:
			// A stray semicolon produces no node. Its bytes stay in the
			// pending "before" so the input survives a round trip.
			p.warn(tokenPosition(tok), "Extra semicolon")
			before.WriteString(p.raw(tok))
			p.advance()

		case css_lexer.TComment:
			p.appendChild(c, p.parseComment(before.String()))
			before.Reset()

		case css_lexer.TCloseBrace:
			if owner == nil {
				p.error(tokenPosition(tok), "Unexpected }")
				return
			}
			p.setAfter(c, before.String())
			owner.Source.End = tokenPosition(tok)
			p.advance()
			return

		case css_lexer.TEndOfFile:
			if owner != nil {
				p.error(owner.Source.Start, "Unclosed block")
				return
			}
			p.setAfter(c, before.String())
			return

		case css_lexer.TAtWord:
			p.parseAtRule(c, before.String())
			before.Reset()

		default:
			p.parseRule(c, before.String())
			before.Reset()
		}
	}
}

// parseDeclsBody parses the children of a rule or of a declaration-shaped
// at-rule, up to and including the close brace. ownerStart locates the
// container for "Unclosed block" errors; the returned position is that of
// the close brace, or the zero Position if the body was aborted.
func (p *parser) parseDeclsBody(c css_ast.Container, ownerStart css_ast.Position) css_ast.Position {
	before := strings.Builder{}

	for !p.fatal {
		tok := p.current()
		switch tok.Kind {
		case css_lexer.TWhitespace:
			before.WriteString(p.raw(tok))
			p.advance()

		case css_lexer.TSemicolon:
			p.warn(tokenPosition(tok), "Extra semicolon")
			before.WriteString(p.raw(tok))
			p.advance()

		case css_lexer.TComment:
			p.appendChild(c, p.parseComment(before.String()))
			before.Reset()

		case css_lexer.TCloseBrace:
			p.setAfter(c, before.String())
			p.advance()
			return tokenPosition(tok)

		case css_lexer.TEndOfFile:
			p.error(ownerStart, "Unclosed block")
			return css_ast.Position{}

		default:
			p.parseDecl(c, before.String())
			before.Reset()
		}
	}
	return css_ast.Position{}
}

func (p *parser) setAfter(c css_ast.Container, after string) {
	switch t := c.(type) {
	case *css_ast.Root:
		t.After = nullString(after)
	case *css_ast.Rule:
		t.After = nullString(after)
	case *css_ast.AtRule:
		t.After = nullString(after)
	}
}

func (p *parser) setSemicolon(c css_ast.Container, semicolon bool) {
	switch t := c.(type) {
	case *css_ast.Root:
		t.Semicolon = semicolon
	case *css_ast.Rule:
		t.Semicolon = semicolon
	case *css_ast.AtRule:
		t.Semicolon = semicolon
	}
}

func (p *parser) parseComment(before string) *css_ast.Comment {
	tok := p.current()
	raw := p.raw(tok)
	interior := raw
	if strings.HasPrefix(interior, "/*") {
		interior = interior[2:]
	}
	if strings.HasSuffix(interior, "*/") {
		interior = interior[:len(interior)-2]
	}
	text := strings.TrimSpace(interior)

	comment := css_ast.NewComment(text)
	comment.Before = nullString(before)
	comment.TextRaw = &css_ast.Raw{Raw: interior, Value: text}
	comment.Source = css_ast.Source{
		File:  p.options.From,
		Start: tokenPosition(tok),
		End:   p.endPosition(tok),
	}
	p.advance()
	return comment
}

// parseRule reads a selector up to the open brace, then the declaration
// body.
func (p *parser) parseRule(c css_ast.Container, before string) {
	start := p.index
	startTok := p.current()

	for {
		tok := p.current()
		if tok.Kind == css_lexer.TOpenBrace {
			break
		}
		if tok.Kind == css_lexer.TSemicolon || tok.Kind == css_lexer.TCloseBrace ||
			tok.Kind == css_lexer.TEndOfFile {
			p.error(tokenPosition(startTok), "Unknown word")
			return
		}
		p.advance()
	}

	selRaw := p.rawSpan(start, p.index)
	selector := p.cleanSpan(start, p.index)

	rule := css_ast.NewRule(selector)
	rule.Before = nullString(before)
	rule.SelectorRaw = &css_ast.Raw{Raw: selRaw, Value: selector}
	rule.Source = css_ast.Source{File: p.options.From, Start: tokenPosition(startTok)}

	p.advance() // "{"
	end := p.parseDeclsBody(rule, rule.Source.Start)
	rule.Source.End = end
	if !p.fatal {
		p.appendChild(c, rule)
	}
}

// parseDecl reads one "prop: value" declaration. The bytes from the end of
// the property through the colon and the whitespace after it become the
// declaration's Between; the remaining value bytes, including interior
// comments and trailing whitespace, become the raw value record.
func (p *parser) parseDecl(c css_ast.Container, before string) {
	startTok := p.current()
	propStart := p.index
	parens := 0

	for {
		tok := p.current()
		if tok.Kind == css_lexer.TColon && parens == 0 {
			break
		}
		switch tok.Kind {
		case css_lexer.TOpenParen:
			parens++
		case css_lexer.TCloseParen:
			parens--
		case css_lexer.TSemicolon, css_lexer.TOpenBrace, css_lexer.TCloseBrace, css_lexer.TEndOfFile:
			p.error(tokenPosition(startTok), "Unknown word")
			return
		}
		p.advance()
	}

	// Trailing whitespace and comments before the colon belong to Between,
	// not to the property.
	propEnd := p.index
	for propEnd > propStart {
		kind := p.tokens[propEnd-1].Kind
		if kind != css_lexer.TWhitespace && kind != css_lexer.TComment {
			break
		}
		propEnd--
	}
	prop := p.cleanSpan(propStart, propEnd)
	between := strings.Builder{}
	between.WriteString(p.rawSpan(propEnd, p.index))
	between.WriteString(p.raw(p.current())) // ":"
	p.advance()
	for p.current().Kind == css_lexer.TWhitespace {
		between.WriteString(p.raw(p.current()))
		p.advance()
	}

	valueStart := p.index
	parens = 0
	for {
		tok := p.current()
		if parens == 0 && (tok.Kind == css_lexer.TSemicolon || tok.Kind == css_lexer.TCloseBrace) {
			break
		}
		if tok.Kind == css_lexer.TEndOfFile {
			break
		}
		switch tok.Kind {
		case css_lexer.TOpenParen:
			parens++
		case css_lexer.TCloseParen:
			parens--
		}
		p.advance()
	}

	// When the declaration is cut off by the closing brace rather than a
	// semicolon, the trailing whitespace is not part of the value: it is
	// handed back to the outer loop so it ends up in the container's After.
	// A semicolon-terminated value keeps it so the bytes before the ";"
	// survive a round trip.
	if p.current().Kind != css_lexer.TSemicolon {
		for p.index > valueStart && p.tokens[p.index-1].Kind == css_lexer.TWhitespace {
			p.index--
		}
	}

	valueRaw := p.rawSpan(valueStart, p.index)
	value := p.cleanSpan(valueStart, p.index)
	if value == "" {
		p.error(tokenPosition(startTok), "Missing declaration value")
		return
	}

	decl := css_ast.NewDecl(prop, value)
	decl.Before = nullString(before)
	decl.Between = nullString(between.String())
	decl.ValueRaw = &css_ast.Raw{Raw: valueRaw, Value: value}
	decl.Source = css_ast.Source{
		File:  p.options.From,
		Start: tokenPosition(startTok),
		End:   p.endPosition(p.tokens[p.index-1]),
	}
	p.appendChild(c, decl)

	if p.current().Kind == css_lexer.TSemicolon {
		decl.Source.End = tokenPosition(p.current())
		p.advance()
		p.setSemicolon(c, true)
	} else {
		p.setSemicolon(c, false)
	}
}

// parseAtRule reads "@name params" and then, depending on the next token,
// either finishes a childless at-rule or parses a body whose shape is
// decided by looking ahead for a colon before the first semicolon, brace,
// or close brace.
func (p *parser) parseAtRule(c css_ast.Container, before string) {
	startTok := p.current()
	name := strings.TrimPrefix(p.raw(startTok), "@")
	p.advance()

	afterName := strings.Builder{}
	for p.current().Kind == css_lexer.TWhitespace {
		afterName.WriteString(p.raw(p.current()))
		p.advance()
	}

	paramsStart := p.index
	for {
		tok := p.current()
		if tok.Kind == css_lexer.TSemicolon || tok.Kind == css_lexer.TOpenBrace ||
			tok.Kind == css_lexer.TCloseBrace || tok.Kind == css_lexer.TEndOfFile {
			break
		}
		p.advance()
	}

	paramsRaw := p.rawSpan(paramsStart, p.index)
	params := p.cleanSpan(paramsStart, p.index)

	atRule := css_ast.NewAtRule(name, params)
	atRule.Before = nullString(before)
	atRule.AfterName = nullString(afterName.String())
	atRule.ParamsRaw = &css_ast.Raw{Raw: paramsRaw, Value: params}
	atRule.Source = css_ast.Source{File: p.options.From, Start: tokenPosition(startTok)}

	switch p.current().Kind {
	case css_lexer.TSemicolon:
		atRule.Source.End = tokenPosition(p.current())
		p.advance()
		p.appendChild(c, atRule)
		p.setSemicolon(c, true)

	case css_lexer.TCloseBrace, css_lexer.TEndOfFile:
		// Childless at-rule cut off by the end of its container. The
		// container's semicolon flag stays false so no ";" is invented.
		atRule.Source.End = p.endPosition(p.tokens[p.index-1])
		p.appendChild(c, atRule)
		p.setSemicolon(c, false)

	case css_lexer.TOpenBrace:
		atRule.SetShape(p.lookaheadBodyShape())
		p.advance() // "{"
		if atRule.Shape() == css_ast.ShapeDecls {
			end := p.parseDeclsBody(atRule, atRule.Source.Start)
			atRule.Source.End = end
		} else {
			p.parseRulesBody(atRule, atRule)
		}
		if !p.fatal {
			p.appendChild(c, atRule)
		}
	}
}

// lookaheadBodyShape peeks past the open brace: a colon outside parentheses
// before any semicolon, open brace, or close brace means the body holds
// declarations; anything else means it holds rules.
func (p *parser) lookaheadBodyShape() css_ast.Shape {
	parens := 0
	for i := p.index + 1; i < len(p.tokens); i++ {
		switch p.tokens[i].Kind {
		case css_lexer.TOpenParen:
			parens++
		case css_lexer.TCloseParen:
			parens--
		case css_lexer.TColon:
			if parens == 0 {
				return css_ast.ShapeDecls
			}
		case css_lexer.TSemicolon, css_lexer.TOpenBrace, css_lexer.TCloseBrace, css_lexer.TEndOfFile:
			return css_ast.ShapeRules
		}
	}
	return css_ast.ShapeRules
}
