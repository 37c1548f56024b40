// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/fd1az/pool-sniper/business/execution/app"
	"github.com/fd1az/pool-sniper/business/execution/infra/blockhash"
	"github.com/fd1az/pool-sniper/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Guard       = di.NewToken[*app.Guard]("execution.Guard")
	Executor    = di.NewToken[*app.Executor]("execution.Executor")
	LegExecutor = di.NewToken[*app.LegExecutor]("execution.LegExecutor")
)

// Private dependency tokens - internal to execution module
var (
	Wallet    = di.NewToken[app.Wallet]("execution:wallet")
	Blockhash = di.NewToken[*blockhash.Oracle]("execution:blockhash")
	Builder   = di.NewToken[app.Builder]("execution:builder")
	Submitter = di.NewToken[app.Submitter]("execution:submitter")
)

func GetGuard(c di.ServiceRegistry) *app.Guard {
	return di.GetToken(c, Guard)
}

func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetLegExecutor(c di.ServiceRegistry) *app.LegExecutor {
	return di.GetToken(c, LegExecutor)
}

func GetWallet(c di.ServiceRegistry) app.Wallet {
	return di.GetToken(c, Wallet)
}

func GetBlockhash(c di.ServiceRegistry) *blockhash.Oracle {
	return di.GetToken(c, Blockhash)
}

func GetBuilder(c di.ServiceRegistry) app.Builder {
	return di.GetToken(c, Builder)
}

func GetSubmitter(c di.ServiceRegistry) app.Submitter {
	return di.GetToken(c, Submitter)
}
