package auth

import (
	authjwt "github.com/smallbiznis/spacebook/internal/auth/jwt"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(authjwt.NewVerifier),
)
