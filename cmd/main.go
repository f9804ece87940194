package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/azalio/prompt-image-server/internal/config"
	"github.com/azalio/prompt-image-server/internal/inject"
	"github.com/azalio/prompt-image-server/internal/server"
	"github.com/azalio/prompt-image-server/internal/service"
	"github.com/azalio/prompt-image-server/pkg/logger"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Загружаем конфигурацию
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	injector := inject.Setup(ctx, cfg)
	log := do.MustInvoke[*logger.Logger](injector)

	srv, err := do.Invoke[*server.Server](injector)
	if err != nil {
		log.Fatal(ctx, "Failed to build HTTP server", map[string]interface{}{"error": err.Error()})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	// Бот опционален: ошибка запуска не останавливает HTTP сервер
	if cfg.TelegramEnabled() {
		bot, err := do.Invoke[*service.BotServiceImpl](injector)
		if err != nil {
			log.Error(ctx, "Telegram bot disabled", map[string]interface{}{"error": err.Error()})
		} else {
			g.Go(func() error {
				bot.Run(gctx)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		log.Error(ctx, "Server stopped with error", map[string]interface{}{"error": err.Error()})
	}

	if err := injector.Shutdown(); err != nil {
		log.Error(context.Background(), "Shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	log.Info(context.Background(), "Shutdown complete", nil)
}
