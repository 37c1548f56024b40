// Package di contains dependency injection tokens for the monitoring context.
package di

import (
	"github.com/fd1az/pool-sniper/business/monitoring/app"
	"github.com/fd1az/pool-sniper/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Monitor = di.NewToken[*app.Monitor]("monitoring.Monitor")
)

// Private dependency tokens - internal to monitoring module
var (
	Reporter = di.NewToken[app.Reporter]("monitoring:reporter")
	Feed     = di.NewToken[*app.Feed]("monitoring:feed")
)

func GetMonitor(c di.ServiceRegistry) *app.Monitor {
	return di.GetToken(c, Monitor)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

func GetFeed(c di.ServiceRegistry) *app.Feed {
	return di.GetToken(c, Feed)
}
