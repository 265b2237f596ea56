// Package alarmexpr implements the alarm expression lexer, parser and the
// pure expression-calculator functions (aggregate/compare/combine) described
// in spec.md §4.1-4.2.
package alarmexpr

import (
	"fmt"

	"github.com/wardenhq/warden/internal/model"
)

// LogicalOp is the boolean-tree inner-node kind.
type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
)

// Node is a tagged variant: either a Leaf sub-alarm descriptor or a BinOp
// combining two or more children under AND/OR.
type Node struct {
	Leaf      *model.SubAlarmDescriptor
	Op        LogicalOp
	Children  []*Node
	canonical string // exact whitespace-stripped source span this node covers
}

func leafNode(d model.SubAlarmDescriptor) *Node {
	return &Node{Leaf: &d, canonical: d.CanonicalString}
}

func binNode(op LogicalOp, canonical string, children ...*Node) *Node {
	return &Node{Op: op, Children: children, canonical: canonical}
}

// CanonicalString returns the exact whitespace-stripped source span this
// node covers, captured at parse time — not reconstructed from children, so
// it round-trips through original operator spellings (lt/LT/</ and/AND/...)
// unchanged.
func (n *Node) CanonicalString() string {
	return n.canonical
}

// Leaves returns every sub-alarm descriptor leaf in the tree, in
// left-to-right (parse) order. This order is the one the Threshold
// Processor relies on for positional leaf matching across update().
func (n *Node) Leaves() []*model.SubAlarmDescriptor {
	var out []*model.SubAlarmDescriptor
	var walk func(*Node)
	walk = func(cur *Node) {
		if cur.Leaf != nil {
			out = append(out, cur.Leaf)
			return
		}
		for _, c := range cur.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// Evaluate folds the tree post-order using the supplied per-canonical-string
// leaf state lookup and the combine() calculator.
func (n *Node) Evaluate(leafState func(canonical string) model.State) model.State {
	if n.Leaf != nil {
		return leafState(n.Leaf.CanonicalString)
	}
	states := make([]model.State, len(n.Children))
	for i, c := range n.Children {
		states[i] = c.Evaluate(leafState)
	}
	return Combine(n.Op, states)
}

// InvalidExpression is returned by Parse on any structural failure.
type InvalidExpression struct {
	Expression string
	Reason     string
}

func (e *InvalidExpression) Error() string {
	return fmt.Sprintf("invalid alarm expression %q: %s", e.Expression, e.Reason)
}
