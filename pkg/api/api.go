package api

// The public surface of the framework: parse CSS into an editable tree,
// stringify a tree back to CSS (optionally with a source map), and run a
// chain of transformations over a tree. The node types themselves live in
// pkg/css_ast.

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/evanw/postcss/pkg/css_ast"
)

type ParseOptions struct {
	// From is the input file identifier. It is recorded on every node's
	// source and shown in error messages. Empty means the input came from a
	// plain string.
	From string
}

type StringifyOptions struct {
	// From names the source in the generated map when no upstream map is
	// composed.
	From string

	// To names the output file in the generated map.
	To string

	// SourceMap turns on source map generation.
	SourceMap bool

	// MapInline appends the map to the CSS as a base64 data-URI annotation
	// comment instead of returning it separately. Implies SourceMap.
	MapInline bool

	// PrevMap is an upstream Source Map v3 object as JSON text. When set,
	// generated mappings are resolved through it so the final map points at
	// the pre-preprocessor sources. Implies SourceMap.
	PrevMap string
}

type ProcessOptions struct {
	From      string
	To        string
	SourceMap bool
	MapInline bool
	PrevMap   string
}

// Result is the atomic outcome of stringification: either both fields are
// populated (Map only when requested) or the call returned an error.
type Result struct {
	CSS string

	// Map is the source map JSON, empty when maps were off or inlined.
	Map string

	// Warnings collected while parsing.
	Warnings []Warning
}

type Warning struct {
	Text   string
	Line   int
	Column int
}

// Error is a CSS syntax error, a structural misuse, or a wrapped plugin
// failure.
type Error struct {
	Reason string

	// Plugin identifies the transformation that raised the error, when one
	// did.
	Plugin string

	// File is the input file identifier; empty when the input was a plain
	// string.
	File string

	Line   int // 1-based; 0 when the error has no position
	Column int // 1-based

	// Source is the original CSS input, kept for excerpt rendering.
	Source string
}

func (e *Error) Error() string {
	prefix := ""
	if e.Plugin != "" {
		prefix = e.Plugin + ": "
	}
	file := e.File
	if file == "" {
		file = "<css input>"
	}
	if e.Line == 0 {
		return fmt.Sprintf("%s%s: %s", prefix, file, e.Reason)
	}
	return fmt.Sprintf("%s%s:%d:%d: %s", prefix, file, e.Line, e.Column, e.Reason)
}

// Plugin is one transformation in a processor chain. Transform may mutate
// the tree in place and return nil, or return a new root that replaces the
// original. Any error (or panic) is wrapped with the plugin's name.
type Plugin struct {
	Name      string
	Transform func(root *css_ast.Root) (*css_ast.Root, error)
}

// Processor chains plugins over a parse-transform-stringify pipeline.
type Processor struct {
	plugins []Plugin
	logger  logrus.FieldLogger
}

func NewProcessor(plugins ...Plugin) *Processor {
	return &Processor{
		plugins: plugins,
		logger:  logrus.StandardLogger(),
	}
}

// Use appends a plugin to the chain and returns the processor.
func (p *Processor) Use(plugin Plugin) *Processor {
	p.plugins = append(p.plugins, plugin)
	return p
}

// WithLogger replaces the processor's logger.
func (p *Processor) WithLogger(logger logrus.FieldLogger) *Processor {
	p.logger = logger
	return p
}
