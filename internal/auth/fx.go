package auth

import (
	"github.com/macfixkou/repair-manager/internal/auth/repository"
	"github.com/macfixkou/repair-manager/internal/auth/service"
	"github.com/macfixkou/repair-manager/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	session.Module,
)
