package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentplane/agentplane/definition"
)

func TestCacheHitReturnsCopy(t *testing.T) {
	store := newStore(t, &definition.AgentDefinition{ID: "a", Kind: definition.KindDirect})
	cache := NewCache()
	r := NewResolver(store, func(o *Options) { o.Cache = cache })

	first, err := r.Resolve(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	second, err := r.Resolve(context.Background(), "a")
	require.NoError(t, err)

	// Distinct node trees: executions never share plan nodes.
	assert.NotSame(t, first.Root, second.Root)
	assert.Equal(t, first.Root.ID, second.Root.ID)
}

func TestCacheInvalidatedByVersionChange(t *testing.T) {
	store := newStore(t,
		&definition.AgentDefinition{ID: "root", Kind: definition.KindSequential, SubAgents: []string{"leaf"}},
		&definition.AgentDefinition{ID: "leaf", Kind: definition.KindDirect},
	)
	cache := NewCache()
	r := NewResolver(store, func(o *Options) { o.Cache = cache })

	_, err := r.Resolve(context.Background(), "root")
	require.NoError(t, err)

	// Updating a dependency anywhere in the tree must miss the cache.
	require.NoError(t, store.Put(&definition.AgentDefinition{ID: "leaf", Kind: definition.KindDirect, Instruction: "v2"}))

	p, err := r.Resolve(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, "v2", p.Root.Children[0].Definition.Instruction)
	assert.Equal(t, 2, p.Root.Children[0].Version)
}

func TestCacheInvalidatedByDeletion(t *testing.T) {
	store := newStore(t, &definition.AgentDefinition{ID: "a", Kind: definition.KindDirect})
	cache := NewCache()
	r := NewResolver(store, func(o *Options) { o.Cache = cache })

	_, err := r.Resolve(context.Background(), "a")
	require.NoError(t, err)

	store.Delete("a")
	_, err = r.Resolve(context.Background(), "a")
	assert.ErrorIs(t, err, definition.ErrNotFound)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheInvalidateDependents(t *testing.T) {
	cache := NewCache()
	cache.Store("root", &Plan{Root: &Node{ID: "root", Definition: &definition.AgentDefinition{ID: "root"}}, Deps: []Dep{{ID: "root", Version: 1}, {ID: "leaf", Version: 1}}})
	cache.Store("other", &Plan{Root: &Node{ID: "other", Definition: &definition.AgentDefinition{ID: "other"}}, Deps: []Dep{{ID: "other", Version: 1}}})

	cache.InvalidateDependents("leaf")
	assert.Equal(t, 1, cache.Len())
}
