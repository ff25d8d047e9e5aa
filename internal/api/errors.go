package api

import (
	"errors"
	"net/http"

	"github.com/bull/docqa/internal/decode"
	"github.com/bull/docqa/internal/index"
	"github.com/bull/docqa/internal/retrieval"
	"github.com/bull/docqa/internal/segment"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeEmptyDocument     = "empty_document"
	CodeIndexNotBuilt     = "index_not_built"
	CodeDecodeFailure     = "decode_failure"
	CodeUnsupportedFormat = "unsupported_format"
	CodeNoText            = "no_text"
	CodeEmbedderFailure   = "embedder_failure"
	CodeInvalidRequest    = "invalid_request"
	CodeInternal          = "internal"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// badRequest marks caller mistakes found by the handlers themselves.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func invalid(msg string) error { return &badRequest{msg: msg} }

// classify maps an error to its HTTP status and code.
func classify(err error) (int, string) {
	var br *badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, retrieval.ErrEmptyDocument):
		return http.StatusBadRequest, CodeEmptyDocument
	case errors.Is(err, retrieval.ErrIndexNotBuilt):
		return http.StatusConflict, CodeIndexNotBuilt
	case errors.Is(err, retrieval.ErrEmbedder):
		return http.StatusBadGateway, CodeEmbedderFailure
	case errors.Is(err, decode.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, CodeUnsupportedFormat
	case errors.Is(err, decode.ErrNoText):
		return http.StatusUnprocessableEntity, CodeNoText
	case errors.Is(err, decode.ErrDecode):
		return http.StatusUnprocessableEntity, CodeDecodeFailure
	case errors.Is(err, segment.ErrUnknownStrategy), errors.Is(err, index.ErrInvalidTopK):
		return http.StatusBadRequest, CodeInvalidRequest
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
