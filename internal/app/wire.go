//go:build wireinject
// +build wireinject

package app

import (
	brcfg "spotbot/internal/config"

	"github.com/google/wire"
)

func buildAppWithWire(cfg *brcfg.Config) (*App, error) {
	wire.Build(
		provideClock,
		provideGateway,
		provideStore,
		provideJournal,
		provideNotifier,
		providePolicy,
		provideTrader,
		provideOpsServer,
		newApp,
	)
	return nil, nil
}
