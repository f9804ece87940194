package service

import (
	"context"
	"fmt"

	"github.com/azalio/prompt-image-server/internal/config"
	"github.com/azalio/prompt-image-server/pkg/logger"
)

// NewImageProvider selects the adapter named by cfg.ImageProvider. Any error
// wraps ErrProviderUnavailable; callers run degraded instead of exiting.
func NewImageProvider(ctx context.Context, cfg *config.Config, log *logger.Logger) (ImageProvider, error) {
	switch cfg.ImageProvider {
	case config.ProviderGemini:
		svc, err := NewGeminiService(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.ProviderPollinations:
		svc, err := NewPollinationsService(cfg, log)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrProviderUnavailable, cfg.ImageProvider)
	}
}
