package css_parser

import (
	"testing"

	"github.com/evanw/postcss/internal/logger"
	"github.com/evanw/postcss/internal/test"
	"github.com/evanw/postcss/pkg/css_ast"
)

func parseForTest(t *testing.T, contents string) *css_ast.Root {
	t.Helper()
	log := logger.NewDeferLog()
	root := Parse(log, test.SourceForTest(contents), Options{})
	for _, msg := range log.Done() {
		if msg.Kind == logger.Error {
			t.Fatalf("unexpected error: %s", msg.String())
		}
	}
	return root
}

func parseError(contents string, from string) string {
	log := logger.NewDeferLog()
	source := logger.Source{PrettyPath: from, Contents: contents}
	Parse(log, source, Options{From: from})
	for _, msg := range log.Done() {
		if msg.Kind == logger.Error {
			return msg.String()
		}
	}
	return ""
}

func TestRuleFields(t *testing.T) {
	root := parseForTest(t, "a { color: black }")
	test.AssertEqual(t, root.Len(), 1)

	rule := root.First().(*css_ast.Rule)
	test.AssertEqual(t, rule.Selector, "a")
	test.AssertEqual(t, rule.SelectorRaw.Raw, "a ")
	test.AssertEqual(t, rule.Before.String, "")
	test.AssertEqual(t, rule.After.String, " ")
	test.AssertEqual(t, rule.Semicolon, false)
	test.AssertEqual(t, rule.Source.Start.Line, 1)
	test.AssertEqual(t, rule.Source.Start.Column, 1)
	test.AssertEqual(t, rule.Source.End.Column, 18)

	decl := rule.First().(*css_ast.Decl)
	test.AssertEqual(t, decl.Prop, "color")
	test.AssertEqual(t, decl.Between.String, ": ")
	test.AssertEqual(t, decl.Value, "black")
	test.AssertEqual(t, decl.ValueRaw.Raw, "black")
	test.AssertEqual(t, decl.Before.String, " ")
}

func TestSelectorCleaning(t *testing.T) {
	root := parseForTest(t, "a /**/ b {}")
	rule := root.First().(*css_ast.Rule)
	test.AssertEqual(t, rule.Selector, "a  b")
	test.AssertEqual(t, rule.SelectorRaw.Raw, "a /**/ b ")
	test.AssertEqual(t, rule.SelectorRaw.Value, "a  b")
}

func TestDeclarationSemicolons(t *testing.T) {
	root := parseForTest(t, "a{color:black;}")
	rule := root.First().(*css_ast.Rule)
	test.AssertEqual(t, rule.Semicolon, true)
	test.AssertEqual(t, rule.After.String, "")

	decl := rule.First().(*css_ast.Decl)
	test.AssertEqual(t, decl.Between.String, ":")
	test.AssertEqual(t, decl.ValueRaw.Raw, "black")
}

func TestValueComments(t *testing.T) {
	root := parseForTest(t, "a { margin: 0 /* zero */ 1px; }")
	decl := root.FirstRule().First().(*css_ast.Decl)
	test.AssertEqual(t, decl.Value, "0  1px")
	test.AssertEqual(t, decl.ValueRaw.Raw, "0 /* zero */ 1px")
}

func TestParensInValues(t *testing.T) {
	root := parseForTest(t, "a { background: url(a;b) }")
	decl := root.FirstRule().First().(*css_ast.Decl)
	test.AssertEqual(t, decl.Value, "url(a;b)")
}

func TestComments(t *testing.T) {
	root := parseForTest(t, "/* one */ a { /* two */ color: red }")
	comment := root.First().(*css_ast.Comment)
	test.AssertEqual(t, comment.Text, "one")
	test.AssertEqual(t, comment.TextRaw.Raw, " one ")

	rule := root.FirstRule()
	inner := rule.First().(*css_ast.Comment)
	test.AssertEqual(t, inner.Text, "two")
	test.AssertEqual(t, inner.Before.String, " ")
}

func TestAtRuleChildless(t *testing.T) {
	root := parseForTest(t, "@charset \"utf-8\";")
	atRule := root.First().(*css_ast.AtRule)
	test.AssertEqual(t, atRule.Name, "charset")
	test.AssertEqual(t, atRule.AfterName.String, " ")
	test.AssertEqual(t, atRule.Params, "\"utf-8\"")
	test.AssertEqual(t, atRule.Shape(), css_ast.ShapeNone)
	test.AssertEqual(t, root.Semicolon, true)
}

func TestAtRuleDeclShape(t *testing.T) {
	root := parseForTest(t, "@font-face { font-family: A }")
	atRule := root.First().(*css_ast.AtRule)
	test.AssertEqual(t, atRule.Shape(), css_ast.ShapeDecls)
	decl := atRule.First().(*css_ast.Decl)
	test.AssertEqual(t, decl.Prop, "font-family")
}

func TestAtRuleRuleShape(t *testing.T) {
	root := parseForTest(t, "@media screen { a { color: red } }")
	atRule := root.First().(*css_ast.AtRule)
	test.AssertEqual(t, atRule.Shape(), css_ast.ShapeRules)
	test.AssertEqual(t, atRule.Params, "screen")
	test.AssertEqual(t, atRule.ParamsRaw.Raw, "screen ")
	rule := atRule.First().(*css_ast.Rule)
	test.AssertEqual(t, rule.Selector, "a")
}

func TestAtRuleEmptyBody(t *testing.T) {
	root := parseForTest(t, "@media screen {}")
	atRule := root.First().(*css_ast.AtRule)
	test.AssertEqual(t, atRule.Shape(), css_ast.ShapeRules)
	test.AssertEqual(t, atRule.Len(), 0)
}

func TestStraySemicolon(t *testing.T) {
	root := parseForTest(t, "a { ; color: red }")
	rule := root.FirstRule()
	test.AssertEqual(t, rule.Len(), 1)

	// The stray semicolon's bytes survive in the next node's before.
	decl := rule.First().(*css_ast.Decl)
	test.AssertEqual(t, decl.Before.String, " ; ")

	warnings := root.Warnings()
	test.AssertEqual(t, len(warnings), 1)
	test.AssertEqual(t, warnings[0].Text, "Extra semicolon")
	test.AssertEqual(t, warnings[0].Pos.Column, 5)
}

func TestTrailingWhitespace(t *testing.T) {
	root := parseForTest(t, "a{color:black}\n")
	test.AssertEqual(t, root.After.String, "\n")
}

func TestParseErrors(t *testing.T) {
	expectParseError := func(contents string, expected string) {
		t.Helper()
		t.Run(contents, func(t *testing.T) {
			t.Helper()
			test.AssertEqual(t, parseError(contents, "main.css"), expected)
		})
	}

	expectParseError("a {", "main.css:1:1: error: Unclosed block\n> 1 | a {\n    | ^")
	expectParseError("@media screen {", "main.css:1:1: error: Unclosed block\n> 1 | @media screen {\n    | ^")
	expectParseError("a { color: }", "main.css:1:5: error: Missing declaration value\n> 1 | a { color: }\n    |     ^")
	expectParseError("a { color }", "main.css:1:5: error: Unknown word\n> 1 | a { color }\n    |     ^")
	expectParseError("}", "main.css:1:1: error: Unexpected }\n> 1 | }\n    | ^")
}
