package app

import (
	"context"

	"deepfund/internal/config"
)

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *config.Config, opts Options) *AppBuilder {
	return NewAppBuilder(cfg, opts)
}
