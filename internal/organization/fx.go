package organization

import (
	"github.com/macfixkou/repair-manager/internal/organization/repository"
	"github.com/macfixkou/repair-manager/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
