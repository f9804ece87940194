package service

// GenerationRequest is the inbound body of /generate.
type GenerationRequest struct {
	Prompt string `json:"prompt"`
}

// GenerationResult is either a success carrying ImageURL or a failure carrying
// Message. Use the constructors; the zero value is a failure with no message.
type GenerationResult struct {
	ok       bool
	imageURL string
	message  string
}

func Success(imageURL string) GenerationResult {
	return GenerationResult{ok: true, imageURL: imageURL}
}

func Failure(message string) GenerationResult {
	return GenerationResult{message: message}
}

func (r GenerationResult) IsSuccess() bool { return r.ok }

// ImageURL is empty for failures.
func (r GenerationResult) ImageURL() string { return r.imageURL }

// Message is empty for successes.
func (r GenerationResult) Message() string { return r.message }
