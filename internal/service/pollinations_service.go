package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/azalio/prompt-image-server/internal/config"
	"github.com/azalio/prompt-image-server/pkg/logger"
)

// PollinationsServiceImpl builds image URLs for the public Pollinations
// endpoint. The endpoint renders lazily when the URL is fetched, so no request
// is made here.
type PollinationsServiceImpl struct {
	logger  *logger.Logger
	baseURL string
	width   int
	height  int
	model   string
	now     func() time.Time
}

// NewPollinationsService creates a new instance of PollinationsService
func NewPollinationsService(cfg *config.Config, log *logger.Logger) (*PollinationsServiceImpl, error) {
	base, err := url.Parse(cfg.PollinationsBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid POLLINATIONS_BASE_URL %q", ErrProviderUnavailable, cfg.PollinationsBaseURL)
	}

	return &PollinationsServiceImpl{
		logger:  log,
		baseURL: strings.TrimRight(base.String(), "/"),
		width:   cfg.PollinationsWidth,
		height:  cfg.PollinationsHeight,
		model:   cfg.PollinationsModel,
		now:     time.Now,
	}, nil
}

func (s *PollinationsServiceImpl) Name() string { return config.ProviderPollinations }

// GenerateImageURL returns <base>/prompt/<escaped prompt>?seed=<unix seconds>.
func (s *PollinationsServiceImpl) GenerateImageURL(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("building image url: %w", err)
	}

	q := url.Values{}
	q.Set("seed", strconv.FormatInt(s.now().Unix(), 10))
	if s.width > 0 {
		q.Set("width", strconv.Itoa(s.width))
	}
	if s.height > 0 {
		q.Set("height", strconv.Itoa(s.height))
	}
	if s.model != "" {
		q.Set("model", s.model)
	}
	imageURL := s.baseURL + "/prompt/" + escapeSegment(prompt) + "?" + q.Encode()
	s.logger.Debug(ctx, "Built Pollinations image url", map[string]interface{}{
		"image_url": imageURL,
	})
	return imageURL, nil
}

// escapeSegment escapes the prompt as one path segment. "." and ".." are
// percent-encoded so clients do not resolve them as dot segments.
func escapeSegment(prompt string) string {
	escaped := url.PathEscape(prompt)
	if escaped == "." || escaped == ".." {
		return strings.Repeat("%2E", len(escaped))
	}
	return escaped
}
