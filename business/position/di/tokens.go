// Package di contains dependency injection tokens for the position context.
package di

import (
	"github.com/fd1az/pool-sniper/business/position/app"
	"github.com/fd1az/pool-sniper/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Manager = di.NewToken[*app.Manager]("position.Manager")
)

// Private dependency tokens - internal to position module
var (
	Trader = di.NewToken[app.TradeExecutor]("position:trader")
)

func GetManager(c di.ServiceRegistry) *app.Manager {
	return di.GetToken(c, Manager)
}

func GetTrader(c di.ServiceRegistry) app.TradeExecutor {
	return di.GetToken(c, Trader)
}
