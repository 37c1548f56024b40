// Package di contains dependency injection tokens for the risk context.
package di

import (
	"github.com/fd1az/pool-sniper/business/risk/app"
	"github.com/fd1az/pool-sniper/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Guard = di.NewToken[*app.Guard]("risk.Guard")
)

// Private dependency tokens - internal to risk module
var (
	Admission = di.NewToken[*app.Admission]("risk:admission")
)

func GetGuard(c di.ServiceRegistry) *app.Guard {
	return di.GetToken(c, Guard)
}

func GetAdmission(c di.ServiceRegistry) *app.Admission {
	return di.GetToken(c, Admission)
}
