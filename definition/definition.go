package definition

import (
	"maps"
	"slices"
	"time"
)

// Kind identifies the composition semantics of an agent definition. The set
// is closed: the engine dispatches on it with a total switch.
type Kind string

const (
	// KindDirect is a model-backed agent running a tool-use loop.
	KindDirect Kind = "direct"
	// KindSequential executes sub-agents in declared order, piping outputs.
	KindSequential Kind = "sequential"
	// KindParallel fans sub-agents out concurrently against the same input.
	KindParallel Kind = "parallel"
	// KindLoop executes a single sub-agent repeatedly up to a bound.
	KindLoop Kind = "loop"
	// KindDelegated forwards execution to a remote instance.
	KindDelegated Kind = "delegated"
	// KindStateGraph walks a conditional graph of sub-agents over shared state.
	KindStateGraph Kind = "stategraph"
	// KindTask executes as Direct but validates the final output against
	// declared success criteria.
	KindTask Kind = "task"
)

// ToolKind identifies the transport of a referenced tool.
type ToolKind string

const (
	// ToolKindHTTP is a tool exposed over an HTTP endpoint.
	ToolKindHTTP ToolKind = "http"
	// ToolKindProcess is a tool implemented by a local executable speaking
	// JSON over stdio.
	ToolKindProcess ToolKind = "process"
)

// ToolRef declares a tool available to an agent. The resolver turns
// references into invocable catalog entries.
type ToolRef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Kind        ToolKind       `json:"kind"`
	Endpoint    string         `json:"endpoint,omitempty"` // http tools
	Command     []string       `json:"command,omitempty"`  // process tools
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ModelParams configures the model invocation capability of a Direct or Task
// agent.
type ModelParams struct {
	Provider    string  `json:"provider,omitempty"` // "openai", "anthropic", "mock"
	Name        string  `json:"name,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int64   `json:"max_tokens,omitempty"`
}

// LoopConfig bounds a Loop agent. MaxIterations must be positive. When
// StopMarker is non-empty, an iteration whose output contains the marker
// terminates the loop early; reaching the bound without it is normal
// termination, not an error.
type LoopConfig struct {
	MaxIterations int    `json:"max_iterations"`
	StopMarker    string `json:"stop_marker,omitempty"`
}

// GraphNode binds a graph-local node id to a sub-agent definition.
type GraphNode struct {
	ID    string `json:"id"`
	Agent string `json:"agent"`
}

// Predicate is a condition evaluated over the run's shared state. Path is a
// gjson lookup path; Op is one of eq, neq, gt, lt, exists, contains (empty
// defaults to eq).
type Predicate struct {
	Path  string `json:"path"`
	Op    string `json:"op,omitempty"`
	Value any    `json:"value,omitempty"`
}

// GraphEdge is a directed, optionally conditional transition. Edges are
// evaluated in declaration order; a nil When always matches.
type GraphEdge struct {
	From string     `json:"from"`
	To   string     `json:"to"`
	When *Predicate `json:"when,omitempty"`
}

// GraphConfig describes a conditional state graph. The graph may legally
// contain cycles; StepLimit bounds the total node executions per run
// (default 50 when zero).
type GraphConfig struct {
	Start     string      `json:"start"`
	Nodes     []GraphNode `json:"nodes"`
	Edges     []GraphEdge `json:"edges"`
	StepLimit int         `json:"step_limit,omitempty"`
}

// RemoteConfig describes the endpoint a Delegated agent forwards to.
type RemoteConfig struct {
	Endpoint    string        `json:"endpoint"`
	Streaming   bool          `json:"streaming,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	MaxAttempts int           `json:"max_attempts,omitempty"` // default 3
}

// TaskConfig declares the success criteria of a Task agent: the final output
// must parse as JSON and validate against SuccessSchema (a JSON Schema
// document). MaxRetries bounds re-attempts with an augmented transcript
// (default 2 when zero).
type TaskConfig struct {
	SuccessSchema map[string]any `json:"success_schema"`
	MaxRetries    int            `json:"max_retries,omitempty"`
}

// AgentDefinition is the persisted description of a reusable agent. A
// definition may reference other definitions by identifier (SubAgents,
// AgentTools, graph nodes); the reference graph must be acyclic.
type AgentDefinition struct {
	ID          string `json:"id"`
	Version     int    `json:"version"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description,omitempty"`

	// Direct / Task fields.
	Instruction   string      `json:"instruction,omitempty"`
	Model         ModelParams `json:"model,omitempty"`
	MaxToolRounds int         `json:"max_tool_rounds,omitempty"` // default 10

	// Sub-agent references: ordered children for Sequential/Parallel, the
	// single body for Loop.
	SubAgents []string `json:"sub_agents,omitempty"`
	// Sub-agents exposed to this agent as callable tools.
	AgentTools []string `json:"agent_tools,omitempty"`
	// Declared tools merged into the node's catalog; local names override
	// inherited ones.
	Tools []ToolRef `json:"tools,omitempty"`

	Loop   *LoopConfig   `json:"loop,omitempty"`
	Graph  *GraphConfig  `json:"graph,omitempty"`
	Remote *RemoteConfig `json:"remote,omitempty"`
	Task   *TaskConfig   `json:"task,omitempty"`
}

// References returns every definition identifier this definition points at,
// in declaration order: sub-agents, agent tools, then graph nodes.
func (d *AgentDefinition) References() []string {
	var refs []string
	refs = append(refs, d.SubAgents...)
	refs = append(refs, d.AgentTools...)
	if d.Graph != nil {
		for _, n := range d.Graph.Nodes {
			refs = append(refs, n.Agent)
		}
	}
	return refs
}

// Clone returns a deep copy of the definition so stored records stay
// isolated from in-flight runs.
func (d *AgentDefinition) Clone() *AgentDefinition {
	c := *d
	c.SubAgents = slices.Clone(d.SubAgents)
	c.AgentTools = slices.Clone(d.AgentTools)
	c.Tools = make([]ToolRef, len(d.Tools))
	for i, tr := range d.Tools {
		c.Tools[i] = tr
		c.Tools[i].Command = slices.Clone(tr.Command)
		c.Tools[i].Parameters = cloneMap(tr.Parameters)
	}
	if d.Loop != nil {
		lc := *d.Loop
		c.Loop = &lc
	}
	if d.Graph != nil {
		gc := *d.Graph
		gc.Nodes = slices.Clone(d.Graph.Nodes)
		gc.Edges = make([]GraphEdge, len(d.Graph.Edges))
		for i, e := range d.Graph.Edges {
			gc.Edges[i] = e
			if e.When != nil {
				w := *e.When
				gc.Edges[i].When = &w
			}
		}
		c.Graph = &gc
	}
	if d.Remote != nil {
		rc := *d.Remote
		c.Remote = &rc
	}
	if d.Task != nil {
		tc := *d.Task
		tc.SuccessSchema = cloneMap(d.Task.SuccessSchema)
		c.Task = &tc
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}
