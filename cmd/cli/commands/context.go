package commands

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jakechorley/colony-allocator/internal/config"
	"github.com/jakechorley/colony-allocator/pkg/core/engine"
	"github.com/jakechorley/colony-allocator/pkg/db"
	"github.com/jakechorley/colony-allocator/pkg/metrics"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database db.Database
	Engine   *engine.Engine
	Metrics  *metrics.EngineCollector
	Registry *prometheus.Registry
	Logger   *zap.Logger
	Ctx      context.Context
}
