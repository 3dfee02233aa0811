package billingcycle

import (
	"github.com/smallbiznis/buildingbills/internal/billingcycle/repository"
	"github.com/smallbiznis/buildingbills/internal/billingcycle/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billingcycle.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
