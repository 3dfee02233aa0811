package statement

import (
	"github.com/smallbiznis/buildingbills/internal/statement/repository"
	"github.com/smallbiznis/buildingbills/internal/statement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("statement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
