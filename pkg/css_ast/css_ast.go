package css_ast

// The tree produced by the parser and edited by transformations. Five node
// variants: Root, Rule, AtRule, Decl, and Comment. Every string-valued
// attribute whose cleaned form can differ from its original bytes carries a
// sibling *Raw record; as long as the cleaned value is untouched the printer
// emits the raw bytes, which makes an unmodified tree print back to the
// original input byte-for-byte.

import (
	"fmt"

	"gopkg.in/guregu/null.v3"
)

// Position is a 1-based line and column in the original input.
type Position struct {
	Line   int
	Column int
}

// Source records where a node came from. File is the identifier given in the
// parse options, empty when the input had no name.
type Source struct {
	File  string
	Start Position
	End   Position
}

// Raw pairs an attribute's original bytes with the cleaned value that was
// derived from them. The printer emits Raw only while Value still equals the
// node's cleaned attribute; assigning a new cleaned value strands the record
// and the new value is printed instead.
type Raw struct {
	Raw   string
	Value string
}

func (r *Raw) clone() *Raw {
	if r == nil {
		return nil
	}
	copied := *r
	return &copied
}

// Node is implemented by Rule, AtRule, Decl, and Comment. The Root is not a
// Node: it can never be a child.
type Node interface {
	// Parent returns the container currently holding this node, or nil when
	// the node is detached. It is maintained by the container operations and
	// cannot be assigned directly.
	Parent() Container

	// Pos returns the node's source record.
	Pos() Source

	// CloneNode returns a detached deep copy with raw records copied
	// verbatim.
	CloneNode() Node

	// RemoveSelf detaches the node from its parent. Parent becomes nil.
	RemoveSelf()

	setParent(Container)
}

// node is the part shared by every non-root variant.
type node struct {
	// Source records the originating file and start/end positions.
	Source Source

	// Before holds the whitespace and comment bytes that preceded the node
	// inside its parent. An invalid Before (never assigned) makes the
	// printer derive one from the node's siblings.
	Before null.String

	parent Container
}

func (n *node) Parent() Container     { return n.parent }
func (n *node) Pos() Source           { return n.Source }
func (n *node) setParent(c Container) { n.parent = c }

// Error builds a positioned error anchored at the node's start, for
// transformations that need to report a problem with a real source location.
func (n *node) Error(reason string) error {
	return &NodeError{Reason: reason, Source: n.Source}
}

// NodeError is the error value produced by Node.Error.
type NodeError struct {
	Reason string
	Source Source
}

func (e *NodeError) Error() string {
	file := e.Source.File
	if file == "" {
		file = "<css input>"
	}
	return fmt.Sprintf("%s:%d:%d: %s", file, e.Source.Start.Line, e.Source.Start.Column, e.Reason)
}

// StructureError reports an attempt to give a container a child kind that its
// shape cannot hold, such as appending a Rule to @font-face.
type StructureError struct {
	Container string
	Child     string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("cannot add %s to %s", e.Child, e.Container)
}

// Warning is a non-fatal diagnostic recorded while parsing.
type Warning struct {
	Text string
	Pos  Position
}

// Root is the top-level container. Its children are the ordered sequence of
// top-level Comment, AtRule, and Rule nodes.
type Root struct {
	container

	// Source spans the whole input.
	Source Source

	warnings []Warning
}

func NewRoot() *Root {
	r := &Root{}
	r.container.init(r, ShapeRules, "root")
	return r
}

func (r *Root) Warnings() []Warning { return r.warnings }

func (r *Root) AddWarning(text string, pos Position) {
	r.warnings = append(r.warnings, Warning{Text: text, Pos: pos})
}

// Clone returns a detached deep copy of the whole tree.
func (r *Root) Clone() *Root {
	copied := NewRoot()
	copied.Source = r.Source
	copied.container.copyFrom(&r.container)
	copied.warnings = append([]Warning(nil), r.warnings...)
	return copied
}

// Rule is a CSS rule: a selector and a body of declarations and comments.
type Rule struct {
	node
	container

	// Selector is the cleaned selector: outer whitespace trimmed, interior
	// comments removed.
	Selector string

	// SelectorRaw preserves the original selector bytes, including interior
	// comments and the whitespace before the opening brace.
	SelectorRaw *Raw
}

func NewRule(selector string) *Rule {
	r := &Rule{Selector: selector}
	r.container.init(r, ShapeDecls, "rule")
	return r
}

func (r *Rule) Clone() *Rule {
	copied := NewRule(r.Selector)
	copied.node = r.node
	copied.parent = nil
	copied.SelectorRaw = r.SelectorRaw.clone()
	copied.container.copyFrom(&r.container)
	return copied
}

func (r *Rule) CloneNode() Node { return r.Clone() }

func (r *Rule) RemoveSelf() { detach(r) }

// AtRule is an at-rule such as @media or @charset. Its container shape is
// fixed lazily: by the parser when it sees the body, or by the first child
// appended to a manually constructed at-rule.
type AtRule struct {
	node
	container

	// Name is the identifier without the leading "@".
	Name string

	// AfterName holds the whitespace between the name and the params.
	AfterName null.String

	// Params is the cleaned at-rule prelude.
	Params string

	// ParamsRaw preserves the original prelude bytes including interior
	// comments and trailing whitespace.
	ParamsRaw *Raw
}

func NewAtRule(name string, params string) *AtRule {
	a := &AtRule{Name: name, Params: params}
	a.container.init(a, ShapeNone, "@"+name)
	return a
}

func (a *AtRule) Clone() *AtRule {
	copied := NewAtRule(a.Name, a.Params)
	copied.node = a.node
	copied.parent = nil
	copied.AfterName = a.AfterName
	copied.ParamsRaw = a.ParamsRaw.clone()
	copied.container.copyFrom(&a.container)
	return copied
}

func (a *AtRule) CloneNode() Node { return a.Clone() }

func (a *AtRule) RemoveSelf() { detach(a) }

// SetShape fixes an undecided at-rule body to the given shape. Once a shape
// is decided it cannot change; later calls are ignored.
func (a *AtRule) SetShape(s Shape) {
	if a.container.shape == ShapeNone && s != ShapeNone {
		a.container.shape = s
	}
}

// Decl is a property/value declaration. It has no children.
type Decl struct {
	node

	Prop string

	// Between holds the bytes from the property name through the colon and
	// any whitespace after it. When unset the printer uses ": ".
	Between null.String

	// Value is the cleaned value: outer whitespace trimmed, interior
	// comments removed.
	Value string

	// ValueRaw preserves the original value bytes including interior
	// comments and trailing whitespace.
	ValueRaw *Raw
}

func NewDecl(prop string, value string) *Decl {
	return &Decl{Prop: prop, Value: value}
}

func (d *Decl) Clone() *Decl {
	copied := *d
	copied.parent = nil
	copied.ValueRaw = d.ValueRaw.clone()
	return &copied
}

func (d *Decl) CloneNode() Node { return d.Clone() }

func (d *Decl) RemoveSelf() { detach(d) }

// Comment is a block comment appearing where a structural node is allowed.
// Comments inside selectors, params, and values are not Comment nodes; they
// live in the adjacent node's raw record.
type Comment struct {
	node

	// Text is the trimmed interior text.
	Text string

	// TextRaw preserves the original interior bytes, untrimmed.
	TextRaw *Raw
}

func NewComment(text string) *Comment {
	return &Comment{Text: text}
}

func (c *Comment) Clone() *Comment {
	copied := *c
	copied.parent = nil
	copied.TextRaw = c.TextRaw.clone()
	return &copied
}

func (c *Comment) CloneNode() Node { return c.Clone() }

func (c *Comment) RemoveSelf() { detach(c) }

func detach(n Node) {
	if p := n.Parent(); p != nil {
		p.Remove(n)
	}
}

// KindName returns a short name for the node's variant, used in structure
// errors.
func KindName(n Node) string {
	switch n.(type) {
	case *Rule:
		return "rule"
	case *AtRule:
		return "at-rule"
	case *Decl:
		return "declaration"
	case *Comment:
		return "comment"
	default:
		return "node"
	}
}
