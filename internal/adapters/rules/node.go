package rules

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/shell"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/scheduler"
)

const NodeID graft.ID = "adapter.rules"

func init() {
	graft.Register(graft.Node[map[domain.RuleKind]scheduler.BeginFunc]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (map[domain.RuleKind]scheduler.BeginFunc, error) {
			runner, err := graft.Dep[ports.CommandRunner](ctx)
			if err != nil {
				return nil, err
			}
			return Registry(runner), nil
		},
	})
}
