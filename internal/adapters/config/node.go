package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

const NodeID graft.ID = "adapter.project"

func init() {
	graft.Register(graft.Node[*domain.Project]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*domain.Project, error) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, zerr.Wrap(err, "failed to determine working directory")
			}
			return NewProject(cwd)
		},
	})
}

// NewProject creates a project rooted at rootDir, resolving modules lazily
// from BUILD.yaml files.
func NewProject(rootDir string) (*domain.Project, error) {
	return domain.NewProject(
		domain.WithName(filepath.Base(rootDir)),
		domain.WithResolver(NewFileModuleResolver(rootDir, "")),
	), nil
}
