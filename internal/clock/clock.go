package clock

import (
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return Real{} }),
)

// Clock abstracts wall time so issuance dates and cost snapshots are testable.
type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC()
}

var _ Clock = Real{}
var _ Clock = (*FakeClock)(nil)
