// Package di contains dependency injection tokens for the strategy context.
package di

import (
	"github.com/fd1az/pool-sniper/business/strategy/app"
	"github.com/fd1az/pool-sniper/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Engine = di.NewToken[*app.Engine]("strategy.Engine")
)

// Private dependency tokens - internal to strategy module
var (
	Simulator   = di.NewToken[app.Simulator]("strategy:simulator")
	PendingFeed = di.NewToken[app.PendingFeed]("strategy:pendingFeed")
)

func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetSimulator(c di.ServiceRegistry) app.Simulator {
	return di.GetToken(c, Simulator)
}

func GetPendingFeed(c di.ServiceRegistry) app.PendingFeed {
	return di.GetToken(c, PendingFeed)
}
