package css_ast

import "gopkg.in/guregu/null.v3"

// Shape says which child kinds a container holds. An at-rule starts out
// undecided and is fixed by the parser or by the first insertion.
type Shape uint8

const (
	ShapeNone Shape = iota
	ShapeRules
	ShapeDecls
)

// Container is the editing surface shared by Root, Rule, and AtRule.
//
// The iteration methods survive structural mutation of the container being
// iterated: no child is visited twice and none is skipped, even when the
// callback inserts before or removes the current child.
type Container interface {
	Append(children ...Node) error
	Prepend(children ...Node) error
	InsertBefore(index int, children ...Node) error
	InsertAfter(index int, children ...Node) error
	Remove(child Node)
	RemoveAt(index int)
	Index(child Node) int
	Len() int
	Child(index int) Node
	Children() []Node
	First() Node
	Last() Node
	Shape() Shape

	Each(fn func(n Node, index int) bool) bool
	EachDecl(fn func(d *Decl, index int) bool) bool
	EachRule(fn func(r *Rule, index int) bool) bool
	EachAtRule(fn func(a *AtRule, index int) bool) bool
	EachComment(fn func(c *Comment, index int) bool) bool
	Some(pred func(n Node) bool) bool
	Every(pred func(n Node) bool) bool

	containerRef() *container
}

type container struct {
	// After holds the whitespace between the last child and the closing
	// brace, or before end-of-file for the root.
	After null.String

	// Semicolon records whether the last declaration (or childless at-rule)
	// ended with ";" in the source.
	Semicolon bool

	self  Container
	name  string
	shape Shape
	nodes []Node

	// Cursors of the Each calls currently walking this container, adjusted
	// by every structural mutation.
	indexes  map[int]int
	lastEach int
}

func (c *container) init(self Container, shape Shape, name string) {
	c.self = self
	c.shape = shape
	c.name = name
}

func (c *container) containerRef() *container { return c }

func (c *container) Shape() Shape { return c.shape }

func (c *container) Len() int { return len(c.nodes) }

func (c *container) Child(index int) Node { return c.nodes[index] }

// Children returns the underlying child slice. It must be treated as
// read-only; all mutation goes through the container operations.
func (c *container) Children() []Node { return c.nodes }

func (c *container) First() Node {
	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[0]
}

func (c *container) Last() Node {
	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[len(c.nodes)-1]
}

// FirstRule returns the first direct child that is a Rule, or nil.
func (c *container) FirstRule() *Rule {
	for _, n := range c.nodes {
		if r, ok := n.(*Rule); ok {
			return r
		}
	}
	return nil
}

func (c *container) Index(child Node) int {
	for i, n := range c.nodes {
		if n == child {
			return i
		}
	}
	return -1
}

func (c *container) Append(children ...Node) error {
	return c.insert(len(c.nodes), children)
}

func (c *container) Prepend(children ...Node) error {
	return c.insert(0, children)
}

func (c *container) InsertBefore(index int, children ...Node) error {
	return c.insert(index, children)
}

func (c *container) InsertAfter(index int, children ...Node) error {
	return c.insert(index+1, children)
}

func (c *container) Remove(child Node) {
	if i := c.Index(child); i >= 0 {
		c.RemoveAt(i)
	}
}

func (c *container) RemoveAt(index int) {
	child := c.nodes[index]
	child.setParent(nil)
	c.nodes = append(c.nodes[:index], c.nodes[index+1:]...)
	for id, cursor := range c.indexes {
		if cursor >= index {
			c.indexes[id] = cursor - 1
		}
	}
}

func (c *container) insert(at int, children []Node) error {
	if c.self == nil {
		panic("container was not created with a constructor")
	}
	for _, child := range children {
		if c.shape == ShapeNone {
			// First insertion decides the at-rule's shape. A leading comment
			// could open either kind of body; it picks the rule container,
			// matching what the parser does when no declaration is seen.
			if _, ok := child.(*Decl); ok {
				c.shape = ShapeDecls
			} else {
				c.shape = ShapeRules
			}
		}
		if err := c.checkChild(child); err != nil {
			return err
		}
	}

	// Inserting a node that already has a parent moves it: it leaves the old
	// container first. Removal from this same container can shift the
	// insertion point left.
	for _, child := range children {
		if p := child.Parent(); p != nil {
			pc := p.containerRef()
			if i := pc.Index(child); i >= 0 {
				if pc == c && i < at {
					at--
				}
				pc.RemoveAt(i)
			}
		}
	}
	if at < 0 {
		at = 0
	}
	if at > len(c.nodes) {
		at = len(c.nodes)
	}

	c.nodes = append(c.nodes[:at], append(append([]Node(nil), children...), c.nodes[at:]...)...)
	for _, child := range children {
		child.setParent(c.self)
	}
	for id, cursor := range c.indexes {
		if at <= cursor {
			c.indexes[id] = cursor + len(children)
		}
	}
	return nil
}

func (c *container) checkChild(child Node) error {
	switch c.shape {
	case ShapeRules:
		switch child.(type) {
		case *Rule, *AtRule, *Comment:
			return nil
		}
	case ShapeDecls:
		switch child.(type) {
		case *Decl, *Comment:
			return nil
		}
	}
	return &StructureError{Container: c.name, Child: KindName(child)}
}

// Each visits the direct children in order. Its cursor is registered on the
// container and shifted by every insertion and removal, so inserting before
// the current child or removing it keeps the walk consistent. Returning false from the callback
// stops the walk; Each then returns false.
func (c *container) Each(fn func(n Node, index int) bool) bool {
	if c.indexes == nil {
		c.indexes = make(map[int]int)
	}
	c.lastEach++
	id := c.lastEach
	c.indexes[id] = 0
	defer delete(c.indexes, id)

	for c.indexes[id] < len(c.nodes) {
		i := c.indexes[id]
		if !fn(c.nodes[i], i) {
			return false
		}
		c.indexes[id]++
	}
	return true
}

// EachDecl visits every declaration in the subtree, depth-first pre-order.
func (c *container) EachDecl(fn func(d *Decl, index int) bool) bool {
	return c.Each(func(n Node, i int) bool {
		switch t := n.(type) {
		case *Decl:
			return fn(t, i)
		case *Rule:
			return t.EachDecl(fn)
		case *AtRule:
			return t.EachDecl(fn)
		}
		return true
	})
}

// EachRule visits every rule in the subtree, depth-first pre-order.
func (c *container) EachRule(fn func(r *Rule, index int) bool) bool {
	return c.Each(func(n Node, i int) bool {
		switch t := n.(type) {
		case *Rule:
			return fn(t, i)
		case *AtRule:
			return t.EachRule(fn)
		}
		return true
	})
}

// EachAtRule visits every at-rule in the subtree, depth-first pre-order.
func (c *container) EachAtRule(fn func(a *AtRule, index int) bool) bool {
	return c.Each(func(n Node, i int) bool {
		if t, ok := n.(*AtRule); ok {
			if !fn(t, i) {
				return false
			}
			return t.EachAtRule(fn)
		}
		return true
	})
}

// EachComment visits every comment node in the subtree, depth-first
// pre-order.
func (c *container) EachComment(fn func(cm *Comment, index int) bool) bool {
	return c.Each(func(n Node, i int) bool {
		switch t := n.(type) {
		case *Comment:
			return fn(t, i)
		case *Rule:
			return t.EachComment(fn)
		case *AtRule:
			return t.EachComment(fn)
		}
		return true
	})
}

// Some reports whether pred holds for at least one direct child.
func (c *container) Some(pred func(n Node) bool) bool {
	for _, n := range c.nodes {
		if pred(n) {
			return true
		}
	}
	return false
}

// Every reports whether pred holds for all direct children.
func (c *container) Every(pred func(n Node) bool) bool {
	for _, n := range c.nodes {
		if !pred(n) {
			return false
		}
	}
	return true
}

// copyFrom deep-copies another container's children and raw fields into c,
// which must be freshly initialized with the same self/name.
func (c *container) copyFrom(src *container) {
	c.After = src.After
	c.Semicolon = src.Semicolon
	c.shape = src.shape
	for _, n := range src.nodes {
		copied := n.CloneNode()
		copied.setParent(c.self)
		c.nodes = append(c.nodes, copied)
	}
}
