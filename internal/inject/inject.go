// Package inject wires the application services with samber/do.
package inject

import (
	"context"

	"github.com/azalio/prompt-image-server/internal/config"
	"github.com/azalio/prompt-image-server/internal/otel/metrics"
	"github.com/azalio/prompt-image-server/internal/otel/tracing"
	"github.com/azalio/prompt-image-server/internal/server"
	"github.com/azalio/prompt-image-server/internal/service"
	"github.com/azalio/prompt-image-server/pkg/logger"
	"github.com/samber/do"
)

// Setup registers every service lazily. Nothing connects until invoked.
func Setup(ctx context.Context, cfg *config.Config) *do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)

	do.Provide(injector, func(i *do.Injector) (*logger.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(logger.Config{
			Level:     cfg.LogLevel,
			Service:   cfg.ServiceName,
			Env:       cfg.Env,
			GitCommit: cfg.GitCommit,
		})
	})

	do.Provide(injector, func(i *do.Injector) (*metrics.MetricProvider, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return metrics.InitMetrics(metrics.Config{ServiceName: cfg.ServiceName})
	})

	do.Provide(injector, func(i *do.Injector) (*tracing.Provider, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return tracing.Init(cfg.ServiceName)
	})

	do.Provide(injector, func(i *do.Injector) (*service.PromptResolver, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*logger.Logger](i)
		m := do.MustInvoke[*metrics.MetricProvider](i)

		provider, err := service.NewImageProvider(ctx, cfg, log)
		if err != nil {
			// Degraded mode: keep serving, report the failure on every call
			log.Error(ctx, "Image provider failed to initialize", map[string]interface{}{
				"provider": cfg.ImageProvider,
				"error":    err.Error(),
			})
			return service.NewPromptResolver(nil, cfg.DefaultPrompt, log, m), nil
		}

		log.Info(ctx, "Image provider initialized", map[string]interface{}{
			"provider": provider.Name(),
		})
		return service.NewPromptResolver(provider, cfg.DefaultPrompt, log, m), nil
	})

	do.Provide(injector, func(i *do.Injector) (*server.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		tp := do.MustInvoke[*tracing.Provider](i)
		return server.New(
			cfg.Addr(),
			do.MustInvoke[*service.PromptResolver](i),
			do.MustInvoke[*logger.Logger](i),
			do.MustInvoke[*metrics.MetricProvider](i),
			tp.Tracer("prompt-image-server/server"),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*service.BotServiceImpl, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return service.NewBotService(cfg,
			do.MustInvoke[*logger.Logger](i),
			do.MustInvoke[*service.PromptResolver](i),
		)
	})

	return injector
}
