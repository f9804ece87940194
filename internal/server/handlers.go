package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/azalio/prompt-image-server/internal/service"
)

const maxBodyBytes = 1 << 20

const (
	statusSuccess = "success"
	statusError   = "error"

	healthOnline  = "Online"
	healthError   = "Error"
	healthReady   = "AI Server is ready!"
	healthFailure = "AI Client failed to initialize. Check API Key."
)

// envelope is the JSON body of every response.
type envelope struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// health reports provider readiness without touching the network.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.resolver.Ready() {
		writeJSON(w, http.StatusOK, envelope{Status: healthOnline, Message: healthReady})
		return
	}
	writeJSON(w, http.StatusInternalServerError, envelope{Status: healthError, Message: healthFailure})
}

// generate never answers 4xx: an unreadable body means "no prompt".
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := s.decodeRequest(w, r)

	result := s.resolver.Resolve(ctx, req)
	if !result.IsSuccess() {
		writeJSON(w, http.StatusInternalServerError, envelope{Status: statusError, Message: result.Message()})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, ImageURL: result.ImageURL()})
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) service.GenerationRequest {
	var req service.GenerationRequest
	if r.Body == nil {
		return req
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Warn(r.Context(), "Failed to read request body, using default prompt", map[string]interface{}{
			"error": err.Error(),
		})
		return service.GenerationRequest{}
	}
	if len(body) == 0 {
		return req
	}
	if err := json.Unmarshal(body, &req); err != nil {
		s.logger.Warn(r.Context(), "Malformed JSON body, using default prompt", map[string]interface{}{
			"error": err.Error(),
		})
		return service.GenerationRequest{}
	}
	return req
}
