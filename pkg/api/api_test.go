package api

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/evanw/postcss/pkg/css_ast"
)

func mustParse(t *testing.T, css string) *css_ast.Root {
	t.Helper()
	root, err := Parse(css, ParseOptions{})
	require.NoError(t, err)
	return root
}

func mustStringify(t *testing.T, root *css_ast.Root) string {
	t.Helper()
	result, err := Stringify(root, StringifyOptions{})
	require.NoError(t, err)
	return result.CSS
}

func TestRoundTrip(t *testing.T) {
	for _, css := range []string{
		"a { }",
		"a::before{color: black}",
		"a{\n  color:black\n}\n",
		"@media screen { a { color: red } }",
		"/* note */\na { color: red; /* why */ }\n",
	} {
		t.Run(css, func(t *testing.T) {
			assert.Equal(t, css, mustStringify(t, mustParse(t, css)))
		})
	}
}

func TestPrependMatchesCompactStyle(t *testing.T) {
	root := mustParse(t, "a::before{color: black}")
	require.NoError(t, root.FirstRule().Prepend(css_ast.NewDecl("content", "\"\"")))
	assert.Equal(t, "a::before{content: \"\";color: black}", mustStringify(t, root))
}

func TestPrependMatchesSpacedStyle(t *testing.T) {
	root := mustParse(t, "a::before {\n  color: black;\n  }")
	require.NoError(t, root.FirstRule().Prepend(css_ast.NewDecl("content", "\"\"")))
	assert.Equal(t, "a::before {\n  content: \"\";\n  color: black;\n  }", mustStringify(t, root))
}

func minify(root *css_ast.Root) (*css_ast.Root, error) {
	root.EachDecl(func(d *css_ast.Decl, _ int) bool {
		d.Before = null.StringFrom("")
		return true
	})
	root.EachRule(func(r *css_ast.Rule, _ int) bool {
		r.Before = null.StringFrom("")
		r.After = null.StringFrom("")
		return true
	})
	root.After = null.StringFrom("")
	return nil, nil
}

func TestMinifyTransformation(t *testing.T) {
	result, err := NewProcessor(Plugin{Name: "minify", Transform: minify}).
		Process("a{\n  color:black\n}\n", ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, "a{color:black}", result.CSS)
}

func TestSelectorCleaningAndReassignment(t *testing.T) {
	root := mustParse(t, "a /**/ b {}")
	assert.Equal(t, "a  b", root.FirstRule().Selector)
	assert.Equal(t, "a /**/ b {}", mustStringify(t, root))

	root.FirstRule().Selector = ".link b"
	assert.Equal(t, ".link b {}", mustStringify(t, root))
}

func TestUnclosedBlockError(t *testing.T) {
	_, err := Parse("a {", ParseOptions{From: "main.css"})
	require.Error(t, err)

	var syntaxErr *Error
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, "main.css", syntaxErr.File)
	assert.Equal(t, 1, syntaxErr.Line)
	assert.Equal(t, 1, syntaxErr.Column)
	assert.Equal(t, "Unclosed block", syntaxErr.Reason)
	assert.Contains(t, err.Error(), "main.css:1:1")
	assert.Contains(t, err.Error(), "Unclosed block")
	assert.Equal(t, "> 1 | a {\n    | ^", syntaxErr.ShowSourceCode())
}

func TestErrorWithoutFile(t *testing.T) {
	_, err := Parse("a {", ParseOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<css input>:1:1")
}

func TestWarnings(t *testing.T) {
	result, err := NewProcessor().Process("a { ; color: red }", ProcessOptions{})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "Extra semicolon", result.Warnings[0].Text)
	assert.Equal(t, 5, result.Warnings[0].Column)
}

func TestPluginErrorIsWrapped(t *testing.T) {
	boom := Plugin{Name: "boom", Transform: func(root *css_ast.Root) (*css_ast.Root, error) {
		return nil, errors.New("exploded")
	}}
	_, err := NewProcessor(boom).Process("a {}", ProcessOptions{})
	require.Error(t, err)

	var pluginErr *Error
	require.True(t, errors.As(err, &pluginErr))
	assert.Equal(t, "boom", pluginErr.Plugin)
	assert.Equal(t, "boom: <css input>: exploded", err.Error())
}

func TestPluginPanicIsWrapped(t *testing.T) {
	angry := Plugin{Name: "angry", Transform: func(root *css_ast.Root) (*css_ast.Root, error) {
		panic("no")
	}}
	_, err := NewProcessor(angry).Process("a {}", ProcessOptions{})
	require.Error(t, err)

	var pluginErr *Error
	require.True(t, errors.As(err, &pluginErr))
	assert.Equal(t, "angry", pluginErr.Plugin)
	assert.Contains(t, pluginErr.Reason, "panic: no")
}

func TestPluginNodeErrorKeepsPosition(t *testing.T) {
	check := Plugin{Name: "check", Transform: func(root *css_ast.Root) (*css_ast.Root, error) {
		var failed error
		root.EachDecl(func(d *css_ast.Decl, _ int) bool {
			failed = d.Error("value is not allowed")
			return false
		})
		return nil, failed
	}}
	_, err := NewProcessor(check).Process("a {\n  color: red\n}", ProcessOptions{From: "in.css"})
	require.Error(t, err)

	var pluginErr *Error
	require.True(t, errors.As(err, &pluginErr))
	assert.Equal(t, "check", pluginErr.Plugin)
	assert.Equal(t, "in.css", pluginErr.File)
	assert.Equal(t, 2, pluginErr.Line)
	assert.Equal(t, 3, pluginErr.Column)
}

func TestPluginReplacementRoot(t *testing.T) {
	replace := Plugin{Name: "replace", Transform: func(root *css_ast.Root) (*css_ast.Root, error) {
		other := css_ast.NewRoot()
		rule := css_ast.NewRule("b")
		if err := other.Append(rule); err != nil {
			return nil, err
		}
		return other, nil
	}}
	result, err := NewProcessor(replace).Process("a {}", ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, "b {}", result.CSS)
}

func TestStructuralMisuseInsidePlugin(t *testing.T) {
	invalid := Plugin{Name: "invalid", Transform: func(root *css_ast.Root) (*css_ast.Root, error) {
		return nil, root.Append(css_ast.NewDecl("color", "red"))
	}}
	_, err := NewProcessor(invalid).Process("a {}", ProcessOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot add declaration to root")
}

func TestSourceMapGeneration(t *testing.T) {
	root := mustParse(t, "a {\n  color: black\n}")
	result, err := Stringify(root, StringifyOptions{To: "out.css", SourceMap: true})
	require.NoError(t, err)
	assert.Contains(t, result.Map, "\"version\": 3")
	assert.Contains(t, result.Map, "\"file\": \"out.css\"")
	assert.Contains(t, result.Map, "\"sources\": [\"<stdin>\"]")
	assert.Contains(t, result.Map, "\"mappings\": \"AAAA;EACE\"")
}

func TestSourceMapDisabled(t *testing.T) {
	root := mustParse(t, "a {}")
	result, err := Stringify(root, StringifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, "", result.Map)
}

const upstreamMap = `{
	"version": 3,
	"file": "mid.css",
	"sources": ["a.scss"],
	"names": [],
	"mappings": "AAIA;EACI"
}`

func TestSourceMapComposition(t *testing.T) {
	// The upstream map sends the intermediate CSS back to a.scss: the rule
	// came from line 5, the declaration from line 6 column 5.
	result, err := NewProcessor(Plugin{Name: "minify", Transform: minify}).
		Process("a {\n  color: black\n}", ProcessOptions{To: "out.css", SourceMap: true, PrevMap: upstreamMap})
	require.NoError(t, err)

	assert.Equal(t, "a{color:black}", result.CSS)
	assert.Contains(t, result.Map, "\"sources\": [\"a.scss\"]")
	assert.Contains(t, result.Map, "\"mappings\": \"AAIA,EACI\"")
}

func TestInlineSourceMap(t *testing.T) {
	root := mustParse(t, "a {}")
	result, err := Stringify(root, StringifyOptions{MapInline: true})
	require.NoError(t, err)
	assert.Equal(t, "", result.Map)
	assert.Contains(t, result.CSS, "\n/*# sourceMappingURL=data:application/json;base64,")
	assert.True(t, strings.HasSuffix(result.CSS, " */"))
}

func TestInlineSourceMapDiscovery(t *testing.T) {
	inline, err := Stringify(mustParse(t, "a {\n  color: black\n}"), StringifyOptions{MapInline: true})
	require.NoError(t, err)

	result, err := NewProcessor().Process(inline.CSS, ProcessOptions{To: "out.css", SourceMap: true})
	require.NoError(t, err)
	assert.Contains(t, result.Map, "\"sources\": [\"<stdin>\"]")
	assert.NotContains(t, result.CSS, "sourceMappingURL")
}

func TestUnknownWordError(t *testing.T) {
	_, err := Parse("a { color }", ParseOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown word")
}

func TestMissingValueError(t *testing.T) {
	_, err := Parse("a { color: }", ParseOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing declaration value")
}
