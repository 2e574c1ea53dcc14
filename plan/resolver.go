package plan

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"github.com/agentplane/agentplane/definition"
	"github.com/agentplane/agentplane/logging"
	"github.com/agentplane/agentplane/tool"
)

// DefaultMaxDepth bounds definition nesting during resolution.
const DefaultMaxDepth = 32

// ToolFactory materializes an invocable tool from a declaration. Resolvers
// use it to turn ToolRefs into catalog entries, so embedders can swap in
// custom transports.
type ToolFactory func(ref definition.ToolRef) (tool.Tool, error)

// DefaultToolFactory builds HTTP and process backed tools from references.
func DefaultToolFactory(ref definition.ToolRef) (tool.Tool, error) {
	switch ref.Kind {
	case definition.ToolKindHTTP:
		if ref.Endpoint == "" {
			return nil, fmt.Errorf("http tool %q requires an endpoint", ref.Name)
		}
		return tool.NewHTTPTool(ref.Name, ref.Description, ref.Endpoint, ref.Parameters), nil
	case definition.ToolKindProcess:
		if len(ref.Command) == 0 {
			return nil, fmt.Errorf("process tool %q requires a command", ref.Name)
		}
		return tool.NewProcessTool(ref.Name, ref.Description, ref.Command[0], ref.Parameters, ref.Command[1:]...), nil
	default:
		return nil, fmt.Errorf("unknown tool kind %q for tool %q", ref.Kind, ref.Name)
	}
}

// Options configure a Resolver.
type Options struct {
	// MaxDepth bounds definition nesting; default DefaultMaxDepth.
	MaxDepth int
	// BaseCatalog is inherited by the root node (and thus the whole tree).
	BaseCatalog tool.Catalog
	// ToolFactory turns tool references into catalog entries; default
	// DefaultToolFactory.
	ToolFactory ToolFactory
	// Cache, when set, is consulted before resolution and populated after.
	Cache *Cache
	// Logger receives resolution diagnostics; default no-op.
	Logger logging.Logger
}

// Resolver turns definition identifiers into executable plans. It is safe
// for concurrent use; each Resolve call carries its own traversal state.
type Resolver struct {
	store definition.Store
	opts  Options
}

// NewResolver creates a resolver over the given definition store.
func NewResolver(store definition.Store, optFns ...func(o *Options)) *Resolver {
	opts := Options{
		MaxDepth:    DefaultMaxDepth,
		ToolFactory: DefaultToolFactory,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.ToolFactory == nil {
		opts.ToolFactory = DefaultToolFactory
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Resolver{store: store, opts: opts}
}

// Resolve builds the executable plan rooted at id. Resolution walks
// references depth-first, failing on unknown definitions, cycles, structural
// invalidity or nesting beyond MaxDepth. The returned plan is exclusively
// owned by the caller.
func (r *Resolver) Resolve(ctx context.Context, id string) (*Plan, error) {
	if r.opts.Cache != nil {
		if p, ok := r.opts.Cache.Lookup(ctx, r.store, id); ok {
			r.opts.Logger.Debug("plan.cache.hit", "agent", id)
			return p, nil
		}
	}

	st := &traversal{
		onPath: map[string]bool{},
		seen:   map[string]bool{},
	}
	root, err := r.resolveNode(ctx, id, st, r.opts.BaseCatalog, 0)
	if err != nil {
		return nil, err
	}

	p := &Plan{Root: root, Deps: st.deps}
	if r.opts.Cache != nil {
		r.opts.Cache.Store(id, p)
	}
	r.opts.Logger.Debug("plan.resolved", "agent", id, "deps", len(p.Deps))
	return p, nil
}

// traversal carries per-Resolve state: the active DFS path for cycle
// detection and the accumulated dependency set.
type traversal struct {
	path   []string
	onPath map[string]bool
	seen   map[string]bool
	deps   []Dep
}

func (r *Resolver) resolveNode(ctx context.Context, id string, st *traversal, inherited tool.Catalog, depth int) (*Node, error) {
	if depth >= r.opts.MaxDepth {
		return nil, fmt.Errorf("%w: %q at depth %d", ErrRecursionTooDeep, id, depth)
	}
	if st.onPath[id] {
		i := slices.Index(st.path, id)
		cycle := append(slices.Clone(st.path[i:]), id)
		return nil, &CycleError{Path: cycle}
	}

	def, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", id, err)
	}
	applyDefaults(def)
	if err := validate(def); err != nil {
		return nil, err
	}

	if !st.seen[id] {
		st.seen[id] = true
		st.deps = append(st.deps, Dep{ID: def.ID, Version: def.Version})
	}

	catalog := inherited
	if catalog == nil {
		catalog = tool.Catalog{}
	}
	if len(def.Tools) > 0 {
		local := tool.Catalog{}
		for _, ref := range def.Tools {
			t, err := r.opts.ToolFactory(ref)
			if err != nil {
				return nil, &ValidationError{Agent: id, Field: "tools", Reason: err.Error()}
			}
			local.Add(t)
		}
		catalog = catalog.Merge(local)
	} else {
		catalog = catalog.Clone()
	}

	node := &Node{
		ID:         def.ID,
		Version:    def.Version,
		Kind:       def.Kind,
		Definition: def,
		Catalog:    catalog,
		Remote:     def.Remote,
	}

	st.path = append(st.path, id)
	st.onPath[id] = true
	defer func() {
		st.path = st.path[:len(st.path)-1]
		delete(st.onPath, id)
	}()

	switch def.Kind {
	case definition.KindSequential, definition.KindParallel:
		for _, sub := range def.SubAgents {
			child, err := r.resolveNode(ctx, sub, st, catalog, depth+1)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}

	case definition.KindLoop:
		child, err := r.resolveNode(ctx, def.SubAgents[0], st, catalog, depth+1)
		if err != nil {
			return nil, err
		}
		node.Children = []*Node{child}

	case definition.KindStateGraph:
		g := &GraphPlan{
			Start:     def.Graph.Start,
			Nodes:     make(map[string]*Node, len(def.Graph.Nodes)),
			Edges:     slices.Clone(def.Graph.Edges),
			StepLimit: def.Graph.StepLimit,
		}
		for _, gn := range def.Graph.Nodes {
			child, err := r.resolveNode(ctx, gn.Agent, st, catalog, depth+1)
			if err != nil {
				return nil, err
			}
			g.Nodes[gn.ID] = child
			g.Order = append(g.Order, gn.ID)
		}
		node.Graph = g
	}

	// Agent tools apply to any kind that runs a model loop; the resolved
	// sub-plan is kept beside a catalog entry that defers to the engine.
	if len(def.AgentTools) > 0 {
		node.ToolAgents = make(map[string]*Node, len(def.AgentTools))
		for _, at := range def.AgentTools {
			child, err := r.resolveNode(ctx, at, st, catalog, depth+1)
			if err != nil {
				return nil, err
			}
			node.ToolAgents[at] = child
			node.Catalog.Add(tool.NewAgentTool(at, child.Definition.Description, nil))
		}
	}

	return node, nil
}

func applyDefaults(def *definition.AgentDefinition) {
	if def.MaxToolRounds <= 0 {
		def.MaxToolRounds = 10
	}
	if def.Graph != nil && def.Graph.StepLimit <= 0 {
		def.Graph.StepLimit = 50
	}
	if def.Remote != nil && def.Remote.MaxAttempts <= 0 {
		def.Remote.MaxAttempts = 3
	}
	if def.Task != nil && def.Task.MaxRetries <= 0 {
		def.Task.MaxRetries = 2
	}
}

func validate(def *definition.AgentDefinition) error {
	switch def.Kind {
	case definition.KindDirect:
		// No structural requirements beyond defaults.

	case definition.KindTask:
		if def.Task == nil || len(def.Task.SuccessSchema) == 0 {
			return &ValidationError{Agent: def.ID, Field: "task.success_schema", Reason: "task agents require success criteria"}
		}

	case definition.KindSequential, definition.KindParallel:
		if len(def.SubAgents) == 0 {
			return &ValidationError{Agent: def.ID, Field: "sub_agents", Reason: "at least one sub-agent required"}
		}

	case definition.KindLoop:
		if len(def.SubAgents) != 1 {
			return &ValidationError{Agent: def.ID, Field: "sub_agents", Reason: "loop agents take exactly one sub-agent"}
		}
		if def.Loop == nil || def.Loop.MaxIterations <= 0 {
			return &ValidationError{Agent: def.ID, Field: "loop.max_iterations", Reason: "a positive iteration bound is required"}
		}

	case definition.KindDelegated:
		if def.Remote == nil || def.Remote.Endpoint == "" {
			return &ValidationError{Agent: def.ID, Field: "remote.endpoint", Reason: "delegated agents require an endpoint"}
		}
		u, err := url.Parse(def.Remote.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Agent: def.ID, Field: "remote.endpoint", Reason: "endpoint must be an absolute http(s) URL"}
		}

	case definition.KindStateGraph:
		g := def.Graph
		if g == nil || len(g.Nodes) == 0 {
			return &ValidationError{Agent: def.ID, Field: "graph.nodes", Reason: "state graph agents require at least one node"}
		}
		ids := map[string]bool{}
		for _, n := range g.Nodes {
			if n.ID == "" || n.Agent == "" {
				return &ValidationError{Agent: def.ID, Field: "graph.nodes", Reason: "graph nodes require id and agent"}
			}
			if ids[n.ID] {
				return &ValidationError{Agent: def.ID, Field: "graph.nodes", Reason: fmt.Sprintf("duplicate node id %q", n.ID)}
			}
			ids[n.ID] = true
		}
		if !ids[g.Start] {
			return &ValidationError{Agent: def.ID, Field: "graph.start", Reason: fmt.Sprintf("start node %q not declared", g.Start)}
		}
		for _, e := range g.Edges {
			if !ids[e.From] || !ids[e.To] {
				return &ValidationError{Agent: def.ID, Field: "graph.edges", Reason: fmt.Sprintf("edge %s -> %s references unknown node", e.From, e.To)}
			}
		}

	default:
		return &ValidationError{Agent: def.ID, Field: "kind", Reason: fmt.Sprintf("unknown kind %q", def.Kind)}
	}
	return nil
}
