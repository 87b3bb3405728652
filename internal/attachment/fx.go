package attachment

import (
	"github.com/macfixkou/repair-manager/internal/attachment/repository"
	"github.com/macfixkou/repair-manager/internal/attachment/service"
	"github.com/macfixkou/repair-manager/internal/attachment/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("attachment.service",
	fx.Provide(repository.New),
	fx.Provide(storage.New),
	fx.Provide(service.NewService),
)
