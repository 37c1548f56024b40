// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/pool-sniper/business/market/app"
	"github.com/fd1az/pool-sniper/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Store = di.NewToken[*app.Store]("market.Store")
)

// Private dependency tokens - internal to market module
var (
	OrderBookLoader   = di.NewToken[app.OrderBookLoader]("market:orderBookLoader")
	AccountSubscriber = di.NewToken[app.AccountSubscriber]("market:accountSubscriber")
)

func GetStore(c di.ServiceRegistry) *app.Store {
	return di.GetToken(c, Store)
}

func GetOrderBookLoader(c di.ServiceRegistry) app.OrderBookLoader {
	return di.GetToken(c, OrderBookLoader)
}

func GetAccountSubscriber(c di.ServiceRegistry) app.AccountSubscriber {
	return di.GetToken(c, AccountSubscriber)
}
