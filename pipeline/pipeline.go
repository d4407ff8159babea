// Package pipeline renders a saga's step chain as a directed graph and
// exports it in Graphviz DOT format.
package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/okvist/saga/set"
)

// Step describes one node of the rendered chain. Non-compensable steps are
// drawn dashed.
type Step struct {
	Name        string
	Compensable bool
}

// Graph is a saga step chain on top of a gonum directed graph. The chain is
// bracketed by synthetic start and end nodes.
type Graph struct {
	*simple.DirectedGraph
	name  string
	steps []Step
}

// Node is a graph node carrying a DOT ID and DOT attributes.
type Node struct {
	graph.Node
	dotID string
	attrs encoding.Attributes
}

// DOTID returns the node's unique DOT identifier.
func (n *Node) DOTID() string {
	return n.dotID
}

// Attributes returns the node's DOT attributes.
func (n *Node) Attributes() []encoding.Attribute {
	return n.attrs.Attributes()
}

// SetAttribute sets a DOT attribute on the node.
func (n *Node) SetAttribute(attr encoding.Attribute) error {
	return n.attrs.SetAttribute(attr)
}

// New builds the chain graph for the named saga. Step names become DOT IDs;
// duplicates and empty names fall back to a position-qualified ID so every
// node stays addressable.
func New(name string, steps []Step) *Graph {
	g := &Graph{
		DirectedGraph: simple.NewDirectedGraph(),
		name:          name,
		steps:         append([]Step(nil), steps...),
	}

	ids := set.New[string]()
	start := g.addNode(claim(ids, "start", 0))
	_ = start.SetAttribute(encoding.Attribute{Key: "shape", Value: "circle"})

	prev := graph.Node(start)
	for i, s := range steps {
		n := g.addNode(claim(ids, s.Name, i+1))
		_ = n.SetAttribute(encoding.Attribute{Key: "label", Value: s.Name})
		_ = n.SetAttribute(encoding.Attribute{Key: "shape", Value: "box"})
		if !s.Compensable {
			_ = n.SetAttribute(encoding.Attribute{Key: "style", Value: "dashed"})
		}
		g.DirectedGraph.SetEdge(simple.Edge{F: prev, T: n})
		prev = n
	}

	end := g.addNode(claim(ids, "end", len(steps)+1))
	_ = end.SetAttribute(encoding.Attribute{Key: "shape", Value: "doublecircle"})
	g.DirectedGraph.SetEdge(simple.Edge{F: prev, T: end})

	return g
}

// Name returns the saga name the graph was built for.
func (g *Graph) Name() string {
	return g.name
}

// Steps returns a copy of the rendered steps, in chain order.
func (g *Graph) Steps() []Step {
	out := make([]Step, len(g.steps))
	copy(out, g.steps)
	return out
}

// DOT exports the graph in Graphviz DOT format.
func (g *Graph) DOT() (string, error) {
	data, err := dot.Marshal(g, g.name, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export pipeline to dot: %w", err)
	}
	return string(data), nil
}

func (g *Graph) addNode(id string) *Node {
	n := &Node{Node: g.DirectedGraph.NewNode(), dotID: id}
	g.DirectedGraph.AddNode(n)
	return n
}

// claim reserves a unique DOT ID for the node at the given chain position.
func claim(ids *set.Set[string], want string, position int) string {
	id := want
	if id == "" || ids.Contains(id) {
		id = fmt.Sprintf("%s#%d", want, position)
	}
	ids.Insert(id)
	return id
}
