package plan

import (
	"github.com/agentplane/agentplane/definition"
	"github.com/agentplane/agentplane/tool"
)

// Node is one executable step of a resolved plan. Nodes form a tree: the
// engine interprets a node according to its Kind and recurses into Children,
// ToolAgents or Graph as the kind demands. A node is immutable after
// resolution and never shared across executions; the cache hands out deep
// copies.
type Node struct {
	// ID is the definition identifier this node was resolved from.
	ID string
	// Version is the definition revision captured at resolution time.
	Version int
	// Kind selects the interpretation of this node.
	Kind definition.Kind
	// Definition is the resolved, defaulted definition snapshot.
	Definition *definition.AgentDefinition
	// Catalog holds every tool invocable from this node, local declarations
	// merged over inherited ones.
	Catalog tool.Catalog
	// Children are the resolved sub-agents in declaration order (Sequential,
	// Parallel) or the single loop body (Loop).
	Children []*Node
	// ToolAgents maps agent-tool names to their resolved sub-plans.
	ToolAgents map[string]*Node
	// Graph is set for StateGraph nodes.
	Graph *GraphPlan
	// Remote is set for Delegated nodes.
	Remote *definition.RemoteConfig
}

// GraphPlan is the resolved form of a state graph: node ids bound to resolved
// sub-plans plus the edge list in declaration order.
type GraphPlan struct {
	Start     string
	Nodes     map[string]*Node
	Order     []string // node ids in declaration order
	Edges     []definition.GraphEdge
	StepLimit int
}

// Plan is the executable artifact produced by resolution: the root node plus
// the (id, version) pairs of every definition the tree depends on, used for
// cache revalidation.
type Plan struct {
	Root *Node
	Deps []Dep
}

// Dep records one definition revision a plan was resolved against.
type Dep struct {
	ID      string
	Version int
}

// Clone returns a deep copy of the plan. Tool implementations inside
// catalogs are stateless and shared; everything else is copied.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	return &Plan{
		Root: p.Root.clone(),
		Deps: append([]Dep(nil), p.Deps...),
	}
}

func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		ID:         n.ID,
		Version:    n.Version,
		Kind:       n.Kind,
		Definition: n.Definition.Clone(),
		Catalog:    n.Catalog.Clone(),
		Remote:     n.Remote,
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.clone()
		}
	}
	if len(n.ToolAgents) > 0 {
		c.ToolAgents = make(map[string]*Node, len(n.ToolAgents))
		for name, ta := range n.ToolAgents {
			c.ToolAgents[name] = ta.clone()
		}
	}
	if n.Graph != nil {
		g := &GraphPlan{
			Start:     n.Graph.Start,
			Order:     append([]string(nil), n.Graph.Order...),
			Edges:     append([]definition.GraphEdge(nil), n.Graph.Edges...),
			StepLimit: n.Graph.StepLimit,
			Nodes:     make(map[string]*Node, len(n.Graph.Nodes)),
		}
		for id, gn := range n.Graph.Nodes {
			g.Nodes[id] = gn.clone()
		}
		c.Graph = g
	}
	return c
}
