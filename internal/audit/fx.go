package audit

import (
	"github.com/macfixkou/repair-manager/internal/audit/repository"
	"github.com/macfixkou/repair-manager/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.New),
	fx.Provide(service.NewService),
)
