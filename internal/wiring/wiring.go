// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/proof/internal/adapters/cas"
	_ "go.trai.ch/proof/internal/adapters/config"
	_ "go.trai.ch/proof/internal/adapters/fs"
	_ "go.trai.ch/proof/internal/adapters/logger"
	_ "go.trai.ch/proof/internal/adapters/shell"
	// Register app and engine nodes.
	_ "go.trai.ch/proof/internal/app"
	_ "go.trai.ch/proof/internal/engine/scheduler"
)
