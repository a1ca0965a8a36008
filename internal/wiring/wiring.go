// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/forge/internal/adapters/cache"
	_ "go.trai.ch/forge/internal/adapters/config"
	_ "go.trai.ch/forge/internal/adapters/logger"
	_ "go.trai.ch/forge/internal/adapters/rules"
	_ "go.trai.ch/forge/internal/adapters/shell"
	_ "go.trai.ch/forge/internal/adapters/telemetry"
	// Register app nodes.
	_ "go.trai.ch/forge/internal/app"
)
