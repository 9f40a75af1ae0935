package api

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/evanw/postcss/internal/css_parser"
	"github.com/evanw/postcss/internal/css_printer"
	"github.com/evanw/postcss/internal/logger"
	"github.com/evanw/postcss/internal/sourcemap"
	"github.com/evanw/postcss/pkg/css_ast"
)

// Parse turns CSS text into a tree. On failure the returned error is an
// *Error carrying the position and the input for excerpt rendering.
func Parse(css string, options ParseOptions) (*css_ast.Root, error) {
	log := logger.NewDeferLog()
	source := logger.Source{
		PrettyPath: prettyPath(options.From),
		Contents:   css,
	}
	root := css_parser.Parse(log, source, css_parser.Options{From: options.From})
	for _, msg := range log.Done() {
		if msg.Kind == logger.Error {
			return nil, msgToError(msg, options.From, css)
		}
	}
	return root, nil
}

// Stringify reconstructs CSS text from a tree, preferring every node's
// preserved raw bytes where the node is unchanged. When maps are requested
// the result carries the Source Map v3 JSON, composed with PrevMap if one
// was supplied.
func Stringify(root *css_ast.Root, options StringifyOptions) (Result, error) {
	wantMap := options.SourceMap || options.MapInline || options.PrevMap != ""

	printOptions := css_printer.Options{
		To:        options.To,
		From:      options.From,
		SourceMap: wantMap,
	}
	if options.PrevMap != "" {
		upstream, err := sourcemap.ParseUpstream([]byte(options.PrevMap))
		if err != nil {
			return Result{}, err
		}
		printOptions.Upstream = upstream
	}

	printed := css_printer.Print(root, printOptions)
	result := Result{
		CSS:      string(printed.CSS),
		Warnings: convertWarnings(root.Warnings()),
	}
	if wantMap {
		mapJSON := printed.Map.EncodeJSON()
		if options.MapInline {
			encoded := base64.StdEncoding.EncodeToString(mapJSON)
			result.CSS += "\n/*# sourceMappingURL=data:application/json;base64," + encoded + " */"
		} else {
			result.Map = string(mapJSON)
		}
	}
	return result, nil
}

// Process runs the plugin chain: parse, transform, stringify. The pipeline
// is atomic: any syntax error, structural misuse, or plugin failure aborts
// it with no partial output.
func (p *Processor) Process(css string, options ProcessOptions) (Result, error) {
	prevMap := options.PrevMap
	wantMap := options.SourceMap || options.MapInline || prevMap != ""
	if wantMap && prevMap == "" {
		if stripped, embedded, ok := extractInlineMap(css); ok {
			css = stripped
			prevMap = embedded
		}
	}

	root, err := Parse(css, ParseOptions{From: options.From})
	if err != nil {
		return Result{}, err
	}

	for _, plugin := range p.plugins {
		p.logger.WithField("plugin", pluginName(plugin)).Debug("running CSS transformation")
		replacement, err := runPlugin(plugin, root)
		if err != nil {
			return Result{}, p.wrapPluginError(plugin, err, options.From, css)
		}
		if replacement != nil {
			root = replacement
		}
	}

	return Stringify(root, StringifyOptions{
		From:      options.From,
		To:        options.To,
		SourceMap: options.SourceMap,
		MapInline: options.MapInline,
		PrevMap:   prevMap,
	})
}

// runPlugin shields the pipeline from panicking transformations; a panic
// becomes an ordinary plugin error.
func runPlugin(plugin Plugin, root *css_ast.Root) (replacement *css_ast.Root, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return plugin.Transform(root)
}

func (p *Processor) wrapPluginError(plugin Plugin, err error, from string, css string) error {
	if wrapped, ok := err.(*Error); ok {
		if wrapped.Plugin == "" {
			wrapped.Plugin = pluginName(plugin)
		}
		return wrapped
	}
	wrapped := &Error{
		Reason: err.Error(),
		Plugin: pluginName(plugin),
		File:   from,
		Source: css,
	}
	if nodeErr, ok := err.(*css_ast.NodeError); ok {
		wrapped.Reason = nodeErr.Reason
		wrapped.File = nodeErr.Source.File
		wrapped.Line = nodeErr.Source.Start.Line
		wrapped.Column = nodeErr.Source.Start.Column
	}
	return wrapped
}

func pluginName(plugin Plugin) string {
	if plugin.Name != "" {
		return plugin.Name
	}
	return "<anonymous>"
}

func prettyPath(from string) string {
	if from == "" {
		return "<css input>"
	}
	return from
}

func msgToError(msg logger.Msg, from string, css string) *Error {
	err := &Error{
		Reason: msg.Data.Text,
		File:   from,
		Source: css,
	}
	if loc := msg.Data.Location; loc != nil {
		err.Line = loc.Line
		err.Column = loc.Column
	}
	return err
}

func convertWarnings(warnings []css_ast.Warning) []Warning {
	converted := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		converted = append(converted, Warning{Text: w.Text, Line: w.Pos.Line, Column: w.Pos.Column})
	}
	return converted
}

const inlineMapPrefix = "/*# sourceMappingURL=data:application/json;base64,"

// extractInlineMap pulls a trailing base64 source map annotation off the
// input, returning the input without it plus the decoded map JSON.
func extractInlineMap(css string) (stripped string, mapJSON string, ok bool) {
	start := strings.LastIndex(css, inlineMapPrefix)
	if start < 0 {
		return "", "", false
	}
	rest := css[start+len(inlineMapPrefix):]
	end := strings.Index(rest, "*/")
	if end < 0 || strings.TrimSpace(rest[end+2:]) != "" {
		return "", "", false
	}
	encoded := strings.TrimSpace(rest[:end])
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", false
	}
	return strings.TrimRight(css[:start], " \t\n"), string(decoded), true
}

// ShowSourceCode renders the error's surroundings: the preceding line, the
// offending line with a caret at the column, and the following line.
func (e *Error) ShowSourceCode() string {
	if e.Line == 0 || e.Source == "" {
		return ""
	}
	source := logger.Source{PrettyPath: prettyPath(e.File), Contents: e.Source}
	loc := source.LocationForPosition(e.Line, e.Column)
	prev, next, hasPrev, hasNext := logger.ExcerptLines(e.Source, e.Line)
	return logger.RenderExcerptAround(loc, prev, next, hasPrev, hasNext)
}
