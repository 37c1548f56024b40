// Package di contains dependency injection tokens for the pathfinding context.
package di

import (
	"github.com/fd1az/pool-sniper/business/pathfinding/app"
	"github.com/fd1az/pool-sniper/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Finder = di.NewToken[*app.Finder]("pathfinding.Finder")
	Quoter = di.NewToken[app.Quoter]("pathfinding.Quoter")
)

func GetFinder(c di.ServiceRegistry) *app.Finder {
	return di.GetToken(c, Finder)
}

func GetQuoter(c di.ServiceRegistry) app.Quoter {
	return di.GetToken(c, Quoter)
}
