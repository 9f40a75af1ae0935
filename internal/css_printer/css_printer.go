package css_printer

import (
	"gopkg.in/guregu/null.v3"

	"github.com/evanw/postcss/internal/sourcemap"
	"github.com/evanw/postcss/pkg/css_ast"
)

// The printer walks the tree depth-first and reconstructs CSS text. For any
// attribute whose cleaned value still matches its raw record the original
// bytes are emitted, so an unmodified tree reproduces its input exactly.
// Synthesized nodes have their whitespace derived from siblings so edits
// blend into the surrounding style.

type Options struct {
	// To names the output file in the generated map.
	To string

	// From names the single source when there is no upstream map.
	From string

	SourceMap bool

	// Upstream, when present, is composed into the generated map: every
	// input position is resolved through it before being emitted.
	Upstream *sourcemap.UpstreamMap
}

type PrintResult struct {
	CSS []byte

	// Map is nil unless Options.SourceMap was set.
	Map *sourcemap.SourceMap
}

type printer struct {
	options  Options
	css      []byte
	offset   sourcemap.LineColumnOffset
	mappings []sourcemap.Mapping
}

func Print(root *css_ast.Root, options Options) PrintResult {
	p := printer{options: options}
	p.printChildren(root, true)
	p.print(root.After.ValueOrZero())

	result := PrintResult{CSS: p.css}
	if options.SourceMap {
		result.Map = p.buildMap()
	}
	return result
}

func (p *printer) print(text string) {
	p.css = append(p.css, text...)
	p.offset.AdvanceString(text)
}

// addMapping records that the current output position renders the node that
// starts at src. With an upstream map the position is resolved through it
// first; positions the upstream map does not cover are skipped.
func (p *printer) addMapping(src css_ast.Source) {
	if !p.options.SourceMap {
		return
	}
	mapping := sourcemap.Mapping{
		GeneratedLine:   int32(p.offset.Lines),
		GeneratedColumn: int32(p.offset.Columns),
	}
	if up := p.options.Upstream; up != nil {
		index, line, column, ok := up.Resolve(src.Start.Line, src.Start.Column-1)
		if !ok {
			return
		}
		mapping.SourceIndex = index
		mapping.OriginalLine = int32(line - 1)
		mapping.OriginalColumn = int32(column)
	} else {
		mapping.OriginalLine = int32(src.Start.Line - 1)
		mapping.OriginalColumn = int32(src.Start.Column - 1)
	}
	p.mappings = append(p.mappings, mapping)
}

func (p *printer) buildMap() *sourcemap.SourceMap {
	sm := &sourcemap.SourceMap{
		File:     p.options.To,
		Mappings: p.mappings,
	}
	if up := p.options.Upstream; up != nil {
		sm.Sources = up.Sources
		sm.SourcesContent = up.SourcesContent
	} else {
		from := p.options.From
		if from == "" {
			from = "<stdin>"
		}
		sm.Sources = []string{from}
	}
	return sm
}

func containerFields(c css_ast.Container) (after null.String, semicolon bool) {
	switch t := c.(type) {
	case *css_ast.Root:
		return t.After, t.Semicolon
	case *css_ast.Rule:
		return t.After, t.Semicolon
	case *css_ast.AtRule:
		return t.After, t.Semicolon
	}
	return null.String{}, false
}

// needsSemicolon reports whether the child is terminated by ";" inside its
// container: declarations and childless at-rules are, bodies are not.
func needsSemicolon(n css_ast.Node) bool {
	switch t := n.(type) {
	case *css_ast.Decl:
		return true
	case *css_ast.AtRule:
		return t.Shape() == css_ast.ShapeNone
	}
	return false
}

func (p *printer) printChildren(c css_ast.Container, isRoot bool) {
	children := c.Children()
	_, semicolon := containerFields(c)
	for i, child := range children {
		p.printBefore(child, children, i, isRoot)
		p.addMapping(child.Pos())
		p.printNode(child)
		if needsSemicolon(child) && (i+1 < len(children) || semicolon) {
			p.print(";")
		}
	}
}

func (p *printer) printNode(n css_ast.Node) {
	switch t := n.(type) {
	case *css_ast.Rule:
		if raw := t.SelectorRaw; raw != nil && raw.Value == t.Selector {
			p.print(raw.Raw)
			p.print("{")
		} else {
			p.print(t.Selector)
			p.print(" {")
		}
		p.printBody(t)

	case *css_ast.AtRule:
		p.print("@")
		p.print(t.Name)
		rawParams := t.ParamsRaw != nil && t.ParamsRaw.Value == t.Params
		if rawParams {
			p.print(p.afterName(t))
			p.print(t.ParamsRaw.Raw)
		} else if t.Params != "" {
			p.print(p.afterName(t))
			p.print(t.Params)
		}
		if t.Shape() == css_ast.ShapeNone {
			// The trailing ";" belongs to the parent's child loop.
			return
		}
		if rawParams {
			p.print("{")
		} else {
			p.print(" {")
		}
		p.printBody(t)

	case *css_ast.Decl:
		p.print(t.Prop)
		if t.Between.Valid {
			p.print(t.Between.String)
		} else {
			p.print(": ")
		}
		if raw := t.ValueRaw; raw != nil && raw.Value == t.Value {
			p.print(raw.Raw)
		} else {
			p.print(t.Value)
		}

	case *css_ast.Comment:
		p.print("/*")
		if raw := t.TextRaw; raw != nil && raw.Value == t.Text {
			p.print(raw.Raw)
		} else {
			p.print(t.Text)
		}
		p.print("*/")
	}
}

func (p *printer) printBody(c css_ast.Container) {
	p.printChildren(c, false)
	after, _ := containerFields(c)
	if after.Valid {
		p.print(after.String)
	} else if c.Len() > 0 {
		p.print("\n")
	}
	p.print("}")
}

func (p *printer) afterName(a *css_ast.AtRule) string {
	if a.AfterName.Valid {
		return a.AfterName.String
	}
	if a.Params != "" {
		return " "
	}
	return ""
}

func nodeBefore(n css_ast.Node) null.String {
	switch t := n.(type) {
	case *css_ast.Rule:
		return t.Before
	case *css_ast.AtRule:
		return t.Before
	case *css_ast.Decl:
		return t.Before
	case *css_ast.Comment:
		return t.Before
	}
	return null.String{}
}

// printBefore emits the whitespace in front of a node. A node that never had
// its Before assigned inherits one: from the nearest preceding sibling of
// the same kind, else the nearest following one, else a default that depends
// on nesting depth.
func (p *printer) printBefore(n css_ast.Node, siblings []css_ast.Node, index int, isRoot bool) {
	if b := nodeBefore(n); b.Valid {
		p.print(b.String)
		return
	}
	kind := css_ast.KindName(n)
	for j := index - 1; j >= 0; j-- {
		if css_ast.KindName(siblings[j]) == kind {
			if b := nodeBefore(siblings[j]); b.Valid {
				p.print(b.String)
				return
			}
		}
	}
	for j := index + 1; j < len(siblings); j++ {
		if css_ast.KindName(siblings[j]) == kind {
			if b := nodeBefore(siblings[j]); b.Valid {
				p.print(b.String)
				return
			}
		}
	}
	if isRoot {
		if index > 0 {
			p.print("\n")
		}
		return
	}
	p.print("\n    ")
}
