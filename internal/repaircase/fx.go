package repaircase

import (
	"github.com/macfixkou/repair-manager/internal/repaircase/repository"
	"github.com/macfixkou/repair-manager/internal/repaircase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("repaircase.service",
	fx.Provide(repository.New),
	fx.Provide(service.NewService),
)
