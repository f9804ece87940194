package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/azalio/prompt-image-server/internal/config"
	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MockContentGenerator имитирует модель Gemini
type MockContentGenerator struct {
	mock.Mock
}

func (m *MockContentGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, parts)
	resp, _ := args.Get(0).(*genai.GenerateContentResponse)
	return resp, args.Error(1)
}

func newTestGemini(t *testing.T, gen contentGenerator) *GeminiServiceImpl {
	t.Helper()
	return &GeminiServiceImpl{
		logger:    newTestLogger(t),
		model:     gen,
		modelName: "gemini-2.5-flash-image",
	}
}

func responseWith(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func TestGemini_GenerateImageURL(t *testing.T) {
	tests := []struct {
		name     string
		resp     *genai.GenerateContentResponse
		expected string
		malform  bool
	}{
		{
			name:     "file uri",
			resp:     responseWith(genai.Text("here you go"), genai.FileData{MIMEType: "image/png", URI: "https://files.example/img.png"}),
			expected: "https://files.example/img.png",
		},
		{
			name:     "inline image becomes data url",
			resp:     responseWith(genai.Blob{MIMEType: "image/png", Data: []byte("png")}),
			expected: "data:image/png;base64,cG5n",
		},
		{
			name: "image in second candidate",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: nil},
				{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/jpeg", Data: []byte{0xFF, 0xD8}}}}},
			}},
			expected: "data:image/jpeg;base64,/9g=",
		},
		{
			name:    "text only",
			resp:    responseWith(genai.Text("I cannot draw that")),
			malform: true,
		},
		{
			name:    "non image blob",
			resp:    responseWith(genai.Blob{MIMEType: "text/plain", Data: []byte("x")}),
			malform: true,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			malform: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			gen := new(MockContentGenerator)
			gen.On("GenerateContent", mock.Anything, []genai.Part{genai.Text("a red bicycle")}).Return(tt.resp, nil)
			svc := newTestGemini(t, gen)

			// Act
			imageURL, err := svc.GenerateImageURL(context.Background(), "a red bicycle")

			// Assert
			if tt.malform {
				assert.ErrorIs(t, err, ErrUpstreamMalformed)
				assert.Empty(t, imageURL)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, imageURL)
			}
			gen.AssertExpectations(t)
		})
	}
}

func TestGemini_TranslatesErrors(t *testing.T) {
	grpcErr, ok := apierror.FromError(status.Error(codes.ResourceExhausted, "Resource has been exhausted"))
	require.True(t, ok)

	tests := []struct {
		name        string
		err         error
		upstream    bool
		wantMessage string
	}{
		{
			name:        "blocked prompt",
			err:         &genai.BlockedError{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}},
			upstream:    true,
			wantMessage: "blocked",
		},
		{
			name:        "googleapi error",
			err:         &googleapi.Error{Code: 400, Message: "API key not valid"},
			upstream:    true,
			wantMessage: "API key not valid",
		},
		{
			name:        "grpc api error",
			err:         grpcErr,
			upstream:    true,
			wantMessage: "Resource has been exhausted",
		},
		{
			name: "transport error",
			err:  errors.New("dial tcp: i/o timeout"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(MockContentGenerator)
			gen.On("GenerateContent", mock.Anything, mock.Anything).Return(nil, tt.err)
			svc := newTestGemini(t, gen)

			_, err := svc.GenerateImageURL(context.Background(), "cat")
			require.Error(t, err)

			var upstream *UpstreamError
			assert.Equal(t, tt.upstream, errors.As(err, &upstream))
			assert.ErrorIs(t, err, tt.err)
			if tt.upstream {
				assert.Equal(t, "Gemini", upstream.Provider)
				assert.Contains(t, upstream.Message, tt.wantMessage)
				assert.Contains(t, upstream.Error(), "Gemini API Error: ")
			}
		})
	}
}

func TestGemini_CancellationIsNotUpstreamRejection(t *testing.T) {
	canceled, ok := apierror.FromError(status.Error(codes.Canceled, "context canceled"))
	require.True(t, ok)
	deadline, ok := apierror.FromError(status.Error(codes.DeadlineExceeded, "context deadline exceeded"))
	require.True(t, ok)

	tests := []struct {
		name string
		err  error
	}{
		{name: "grpc canceled", err: canceled},
		{name: "grpc deadline exceeded", err: deadline},
		{name: "context canceled", err: context.Canceled},
		{name: "wrapped deadline", err: fmt.Errorf("rpc: %w", context.DeadlineExceeded)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			gen := new(MockContentGenerator)
			gen.On("GenerateContent", mock.Anything, mock.Anything).Return(nil, tt.err)
			svc := newTestGemini(t, gen)

			// Act
			_, err := svc.GenerateImageURL(context.Background(), "cat")

			// Assert
			require.Error(t, err)
			var upstream *UpstreamError
			assert.False(t, errors.As(err, &upstream))
			assert.ErrorIs(t, err, tt.err)

			outcome, message := classify(err)
			assert.Equal(t, "unexpected", outcome)
			assert.Contains(t, message, "Internal Server Error: ")
		})
	}
}

func TestNewGeminiService_MissingKey(t *testing.T) {
	svc, err := NewGeminiService(context.Background(), &config.Config{GeminiModel: "m"}, newTestLogger(t))
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestGemini_CloseWithoutClient(t *testing.T) {
	svc := newTestGemini(t, new(MockContentGenerator))
	assert.NoError(t, svc.Close())
	assert.Equal(t, config.ProviderGemini, svc.Name())
}
