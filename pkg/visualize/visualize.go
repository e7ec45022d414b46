// Package visualize renders the dataflow of a fixpoint program as a diagram.
package visualize

import (
	"fmt"
	"strings"

	"github.com/emicklei/dot"

	"github.com/l7mp/pointsto/pkg/fixpoint"
)

// CollectionKind classifies the collections of a program.
type CollectionKind string

const (
	// Input collections are loaded from the input file.
	Input CollectionKind = "input"
	// Intermediate collections are produced and consumed within a round.
	Intermediate CollectionKind = "intermediate"
	// Relation collections hold a derived relation.
	Relation CollectionKind = "relation"
	// Reverse collections hold a derived relation arranged by its second column.
	Reverse CollectionKind = "reverse"
)

// Graph is the dataflow graph of a program.
type Graph struct {
	ProgramName string
	Collections []CollectionNode
	Stages      []StageNode
}

// CollectionNode is a collection of the program.
type CollectionNode struct {
	Name string
	Kind CollectionKind
	// Of names the relation a reverse collection is flipped from.
	Of string
}

// StageNode is a stage: joins and linear inputs flowing into a target.
type StageNode struct {
	Name   string
	Joins  []JoinEdge
	Linear []string
	Target string
	// Distinct is set when the target is a derived relation.
	Distinct bool
}

// JoinEdge is a join reading two collections.
type JoinEdge struct {
	Name        string
	Left, Right string
}

// Generator renders a graph.
type Generator interface {
	Generate(g *Graph) string
}

// NewGenerator returns the generator of a format.
func NewGenerator(format string) (Generator, error) {
	switch format {
	case "dot":
		return &DotGenerator{}, nil
	case "mermaid":
		return &MermaidGenerator{}, nil
	}
	return nil, fmt.Errorf("unknown graph format %q", format)
}

// BuildGraph constructs the dataflow graph of a program.
func BuildGraph(p *fixpoint.Program) *Graph {
	g := &Graph{
		ProgramName: p.Name(),
		Collections: []CollectionNode{},
		Stages:      make([]StageNode, 0, len(p.Stages())),
	}

	kinds := map[string]CollectionKind{}
	order := []string{}
	add := func(name string, kind CollectionKind) {
		if _, ok := kinds[name]; !ok {
			order = append(order, name)
			kinds[name] = kind
		}
	}

	reverseOf := map[string]string{}
	for _, v := range p.Relations() {
		add(v.Name(), Relation)
		if rev := v.Reverse(); rev != nil {
			add(rev.Name(), Reverse)
			reverseOf[rev.Name()] = v.Name()
		}
	}
	for _, st := range p.Stages() {
		if st.Arrange != nil {
			add(st.Arrange.Name(), Intermediate)
		}
	}

	for _, st := range p.Stages() {
		node := StageNode{
			Name:     st.Name,
			Joins:    make([]JoinEdge, 0, len(st.Joins)),
			Linear:   make([]string, 0, len(st.Linear)),
			Target:   st.Target(),
			Distinct: st.Variable != nil,
		}
		for _, j := range st.Joins {
			// anything not produced by the program is an input
			add(j.Left().Name(), Input)
			add(j.Right().Name(), Input)
			node.Joins = append(node.Joins, JoinEdge{Name: j.Name(), Left: j.Left().Name(), Right: j.Right().Name()})
		}
		for _, c := range st.Linear {
			add(c.Name(), Input)
			node.Linear = append(node.Linear, c.Name())
		}
		g.Stages = append(g.Stages, node)
	}

	for _, name := range order {
		g.Collections = append(g.Collections, CollectionNode{Name: name, Kind: kinds[name], Of: reverseOf[name]})
	}

	return g
}

func stageID(i int) string { return fmt.Sprintf("stage%d", i+1) }

func collectionID(name string) string { return "c:" + name }

// nodeStyle decorates the nodes of the diagram for an output format.
type nodeStyle interface {
	collection(node dot.Node, kind CollectionKind)
	stage(node dot.Node)
}

// graphvizStyle uses Graphviz shape names and styles.
type graphvizStyle struct{}

func (graphvizStyle) collection(node dot.Node, kind CollectionKind) {
	switch kind {
	case Input:
		node.Attr("shape", "ellipse").Attr("style", "filled").Attr("fillcolor", "lightgreen")
	case Intermediate:
		node.Attr("shape", "ellipse").Attr("style", "dashed")
	case Relation:
		node.Attr("shape", "box").
			Attr("style", "filled,rounded").
			Attr("fillcolor", "lightblue").
			Attr("color", "darkblue").
			Attr("penwidth", "2")
	case Reverse:
		node.Attr("shape", "box").Attr("style", "filled,rounded").Attr("fillcolor", "lightcyan")
	}
}

func (graphvizStyle) stage(node dot.Node) { node.Attr("shape", "box") }

// mermaidStyle uses the Mermaid shapes of the dot package and CSS styles.
type mermaidStyle struct{}

func (mermaidStyle) collection(node dot.Node, kind CollectionKind) {
	switch kind {
	case Input:
		node.Attr("shape", dot.MermaidShapeStadium).Attr("style", "fill:#90EE90")
	case Intermediate:
		node.Attr("shape", dot.MermaidShapeRound).Attr("style", "stroke-dasharray:5 5")
	case Relation:
		node.Attr("shape", dot.MermaidShapeSubroutine).
			Attr("style", "fill:#ADD8E6,stroke:#00008B,stroke-width:2px")
	case Reverse:
		node.Attr("shape", dot.MermaidShapeSubroutine).Attr("style", "fill:#E0FFFF")
	}
}

func (mermaidStyle) stage(node dot.Node) { node.Attr("shape", dot.MermaidShapeRhombus) }

// BuildDotGraph creates a Graphviz dot.Graph from the dataflow graph.
func BuildDotGraph(g *Graph) *dot.Graph {
	return buildGraph(g, graphvizStyle{})
}

func buildGraph(g *Graph, style nodeStyle) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "LR")
	graph.Attr("newrank", "true")
	graph.Attr("label", g.ProgramName)
	graph.Attr("labelloc", "t")
	graph.Attr("fontsize", "16")

	collections := make(map[string]dot.Node, len(g.Collections))
	for _, c := range g.Collections {
		node := graph.Node(collectionID(c.Name)).
			Attr("label", c.Name).
			Attr("fontname", "helvetica")
		style.collection(node, c.Kind)
		collections[c.Name] = node
	}

	for _, c := range g.Collections {
		if c.Kind == Reverse && c.Of != "" {
			graph.Edge(collections[c.Of], collections[c.Name]).
				Attr("label", "flip").
				Attr("style", "dashed").
				Attr("color", "blue").
				Attr("fontname", "helvetica").
				Attr("fontsize", "10")
		}
	}

	for i, st := range g.Stages {
		label := st.Name
		if st.Distinct {
			label += " (distinct)"
		}
		node := graph.Node(stageID(i)).
			Attr("label", label).
			Attr("fontname", "helvetica")
		style.stage(node)

		for _, j := range st.Joins {
			name := strings.TrimSuffix(j.Name, "^Δ")
			graph.Edge(collections[j.Left], node).
				Attr("label", name).
				Attr("fontname", "helvetica").
				Attr("fontsize", "10")
			if j.Right != j.Left {
				graph.Edge(collections[j.Right], node).
					Attr("label", name).
					Attr("fontname", "helvetica").
					Attr("fontsize", "10")
			}
		}
		for _, c := range st.Linear {
			graph.Edge(collections[c], node).
				Attr("label", "+").
				Attr("fontname", "helvetica").
				Attr("fontsize", "10")
		}
		graph.Edge(node, collections[st.Target])
	}

	return graph
}
