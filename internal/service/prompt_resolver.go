package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/azalio/prompt-image-server/internal/otel/metrics"
	"github.com/azalio/prompt-image-server/pkg/logger"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
)

const (
	MsgClientNotInitialized = "AI Client not initialized."
	MsgUnexpectedData       = "Image generation failed or model returned unexpected data."
	internalErrorPrefix     = "Internal Server Error: "
)

// PromptResolver validates a prompt, delegates to the ImageProvider and maps
// the outcome to a GenerationResult. A nil provider means degraded mode.
type PromptResolver struct {
	provider      ImageProvider
	defaultPrompt string
	logger        *logger.Logger
	metrics       *metrics.MetricProvider
}

// NewPromptResolver creates a resolver. provider may be nil.
func NewPromptResolver(provider ImageProvider, defaultPrompt string, log *logger.Logger, m *metrics.MetricProvider) *PromptResolver {
	r := &PromptResolver{
		provider:      provider,
		defaultPrompt: defaultPrompt,
		logger:        log,
		metrics:       m,
	}
	if m != nil {
		m.ProviderReady.Set(lo.Ternary(r.Ready(), 1.0, 0.0))
	}
	return r
}

// Ready reports whether the provider initialized.
func (r *PromptResolver) Ready() bool {
	return r.provider != nil
}

// Resolve never retries and never caches.
func (r *PromptResolver) Resolve(ctx context.Context, req GenerationRequest) (result GenerationResult) {
	if !r.Ready() {
		r.logger.Warn(ctx, "Generate called while provider is unavailable", nil)
		r.countGeneration(ctx, "none", "unavailable")
		return Failure(MsgClientNotInitialized)
	}

	providerName := r.provider.Name()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(ctx, "Provider panicked", map[string]interface{}{
				"provider": providerName,
				"panic":    fmt.Sprint(rec),
			})
			r.countGeneration(ctx, providerName, "unexpected")
			result = Failure(internalErrorPrefix + fmt.Sprint(rec))
		}
	}()

	prompt := lo.Ternary(strings.TrimSpace(req.Prompt) == "", r.defaultPrompt, req.Prompt)
	r.logger.Info(ctx, "Received prompt", map[string]interface{}{
		"provider":       providerName,
		"prompt":         prompt,
		"default_prompt": prompt != req.Prompt,
	})

	start := time.Now()
	imageURL, err := r.provider.GenerateImageURL(ctx, prompt)
	if r.metrics != nil {
		r.metrics.ProviderResponseTime.Since(ctx, start, attribute.String("provider", providerName))
	}

	if err == nil && imageURL == "" {
		err = ErrUpstreamMalformed
	}
	if err != nil {
		outcome, message := classify(err)
		r.logger.Error(ctx, "Image generation failed", map[string]interface{}{
			"provider": providerName,
			"outcome":  outcome,
			"error":    err.Error(),
		})
		r.countGeneration(ctx, providerName, outcome)
		return Failure(message)
	}

	r.logger.Info(ctx, "Image generated", map[string]interface{}{
		"provider": providerName,
		"duration": time.Since(start).String(),
	})
	r.countGeneration(ctx, providerName, "success")
	return Success(imageURL)
}

// classify maps a provider error to a metric outcome and a client message.
func classify(err error) (string, string) {
	var upstream *UpstreamError
	switch {
	case errors.As(err, &upstream):
		return "rejected", upstream.Error()
	case errors.Is(err, ErrUpstreamMalformed):
		return "malformed", MsgUnexpectedData
	case errors.Is(err, ErrProviderUnavailable):
		return "unavailable", MsgClientNotInitialized
	default:
		return "unexpected", internalErrorPrefix + err.Error()
	}
}

func (r *PromptResolver) countGeneration(ctx context.Context, provider, outcome string) {
	if r.metrics == nil {
		return
	}
	r.metrics.Generations.Inc(ctx,
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	)
}

// Shutdown closes the provider if it holds resources.
func (r *PromptResolver) Shutdown() error {
	if closer, ok := r.provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
