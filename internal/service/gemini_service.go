package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/azalio/prompt-image-server/internal/config"
	"github.com/azalio/prompt-image-server/pkg/logger"
	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const geminiProviderLabel = "Gemini"

// contentGenerator is the part of *genai.GenerativeModel the adapter needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiServiceImpl implements ImageProvider on top of the Gemini API
type GeminiServiceImpl struct {
	logger    *logger.Logger
	client    *genai.Client
	model     contentGenerator
	modelName string
}

// NewGeminiService creates the Gemini client. A missing key yields
// ErrProviderUnavailable without any network call.
func NewGeminiService(ctx context.Context, cfg *config.Config, log *logger.Logger) (*GeminiServiceImpl, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY not set", ErrProviderUnavailable)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("%w: creating Gemini client: %v", ErrProviderUnavailable, err)
	}

	return &GeminiServiceImpl{
		logger:    log,
		client:    client,
		model:     client.GenerativeModel(cfg.GeminiModel),
		modelName: cfg.GeminiModel,
	}, nil
}

func (s *GeminiServiceImpl) Name() string { return config.ProviderGemini }

// GenerateImageURL asks the model for an image and returns either the file URI
// or the inline image as a data: URL.
func (s *GeminiServiceImpl) GenerateImageURL(ctx context.Context, prompt string) (string, error) {
	s.logger.Debug(ctx, "Starting Gemini image generation", map[string]interface{}{
		"model": s.modelName,
	})

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", translateGeminiError(err)
	}

	imageURL, ok := imageFromResponse(resp)
	if !ok {
		return "", fmt.Errorf("model %s: %w", s.modelName, ErrUpstreamMalformed)
	}
	return imageURL, nil
}

// imageFromResponse returns the first image part across candidates.
func imageFromResponse(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch p := part.(type) {
			case genai.FileData:
				if p.URI != "" {
					return p.URI, true
				}
			case genai.Blob:
				if strings.HasPrefix(p.MIMEType, "image/") && len(p.Data) > 0 {
					return "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data), true
				}
			}
		}
	}
	return "", false
}

// translateGeminiError maps structured API failures to UpstreamError. Anything
// else, including cancellation and deadlines, is returned wrapped and ends up
// as an unexpected failure.
func translateGeminiError(err error) error {
	var (
		blocked *genai.BlockedError
		apiErr  *apierror.APIError
		gErr    *googleapi.Error
	)
	switch {
	case isCancellation(err):
		return fmt.Errorf("generating content: %w", err)
	case errors.As(err, &blocked):
		return &UpstreamError{Provider: geminiProviderLabel, Message: blocked.Error(), Err: err}
	case errors.As(err, &gErr):
		msg := gErr.Message
		if msg == "" {
			msg = gErr.Error()
		}
		return &UpstreamError{Provider: geminiProviderLabel, Message: msg, Err: err}
	case errors.As(err, &apiErr):
		msg := apiErr.Error()
		if st := apiErr.GRPCStatus(); st != nil && st.Message() != "" {
			msg = st.Message()
		}
		return &UpstreamError{Provider: geminiProviderLabel, Message: msg, Err: err}
	default:
		return fmt.Errorf("generating content: %w", err)
	}
}

func isCancellation(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch status.Code(err) {
	case codes.Canceled, codes.DeadlineExceeded:
		return true
	}
	return false
}

// Close closes the Gemini client
func (s *GeminiServiceImpl) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
