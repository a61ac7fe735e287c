package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrEmbeddingFailure    = errors.New("embedding failure")
	ErrIndexQueryFailure   = errors.New("index query failure")
	ErrIntentParsingFailed = errors.New("intent parsing failed")
	ErrAIDisabled          = errors.New("OpenAI API is not enabled (missing API key)")
)

// Client-facing messages for rejected search requests
const (
	MsgMissingParameters = "Missing required parameters: query and type"
	MsgInvalidSearchType = `Invalid search type. Must be "hospital" or "doctor"`
)

// RequestError is a client error carrying the exact message returned to the
// caller. It matches ErrInvalidRequest with errors.Is.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Is(target error) bool { return target == ErrInvalidRequest }

func invalidRequest(msg string) error { return &RequestError{Message: msg} }
