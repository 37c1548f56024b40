// Package di contains dependency injection tokens for the connection context.
package di

import (
	"github.com/fd1az/pool-sniper/business/connection/app"
	"github.com/fd1az/pool-sniper/business/connection/infra/solana"
	"github.com/fd1az/pool-sniper/internal/di"
)

// Public service tokens - exposed to other modules
var (
	StateTracker     = di.NewToken[*app.StateTracker]("connection.StateTracker")
	StreamSupervisor = di.NewToken[*app.StreamSupervisor]("connection.StreamSupervisor")
	RPCClient        = di.NewToken[*solana.RPCClient]("connection.RPCClient")
)

// Private dependency tokens - internal to connection module
var (
	Supervisor    = di.NewToken[*app.Supervisor]("connection:supervisor")
	AccountStream = di.NewToken[*solana.AccountStream]("connection:accountStream")
)

func GetStateTracker(c di.ServiceRegistry) *app.StateTracker {
	return di.GetToken(c, StateTracker)
}

func GetStreamSupervisor(c di.ServiceRegistry) *app.StreamSupervisor {
	return di.GetToken(c, StreamSupervisor)
}

func GetRPCClient(c di.ServiceRegistry) *solana.RPCClient {
	return di.GetToken(c, RPCClient)
}

func GetSupervisor(c di.ServiceRegistry) *app.Supervisor {
	return di.GetToken(c, Supervisor)
}

func GetAccountStream(c di.ServiceRegistry) *solana.AccountStream {
	return di.GetToken(c, AccountStream)
}
