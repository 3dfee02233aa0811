package reference

import (
	"github.com/smallbiznis/buildingbills/internal/reference/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reference.service",
	fx.Provide(service.NewService),
)
