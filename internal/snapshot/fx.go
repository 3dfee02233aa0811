package snapshot

import (
	"github.com/smallbiznis/buildingbills/internal/snapshot/repository"
	"github.com/smallbiznis/buildingbills/internal/snapshot/service"
	"go.uber.org/fx"
)

var Module = fx.Module("snapshot.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
