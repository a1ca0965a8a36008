package cache

import (
	"context"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/core/ports"
)

const NodeID graft.ID = "adapter.rule_cache"

// manifestPath is where the cache manifest lives, relative to the working
// directory the build runs from.
var manifestPath = filepath.Join(".forge", "cache.json")

func init() {
	graft.Register(graft.Node[ports.RuleCache]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.RuleCache, error) {
			store, err := NewStore(manifestPath)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	})
}
