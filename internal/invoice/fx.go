package invoice

import (
	"github.com/smallbiznis/spacebook/internal/invoice/domain"
	"github.com/smallbiznis/spacebook/internal/invoice/repository"
	"github.com/smallbiznis/spacebook/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s domain.Service) domain.Issuer { return s }),
)
