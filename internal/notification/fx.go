package notification

import (
	"github.com/smallbiznis/buildingbills/internal/notification/repository"
	"github.com/smallbiznis/buildingbills/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewRecipientLookup),
	fx.Provide(service.NewService),
)
