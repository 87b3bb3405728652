package identity

import (
	"github.com/macfixkou/repair-manager/internal/identity/repository"
	"github.com/macfixkou/repair-manager/internal/identity/service"
	"github.com/macfixkou/repair-manager/internal/identity/token"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.New),
	fx.Provide(token.NewIssuer),
	fx.Provide(service.NewService),
)
