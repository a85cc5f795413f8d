package middleware

import (
	"errors"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidBody  = errors.New("request body must be a JSON object")
	ErrEmptyQuery   = errors.New("query is required")
	ErrQueryTooLong = errors.New("query is too long")
	ErrRateLimited  = errors.New("too many requests for this session")
	ErrInternal     = errors.New("internal server error")
)

type ErrorResponse struct {
	Error   string `json:"error" description:"Error message"`
	Code    int    `json:"code" description:"HTTP status code"`
	Details string `json:"details,omitempty" description:"Additional error details"`
}

// HandleError writes err as an ErrorResponse. Error texts are written to
// the client as is and must never quote request content.
func HandleError(resp *restful.Response, err error, status int) {
	if err == nil {
		err = ErrInternal
	}

	body := ErrorResponse{
		Error: http.StatusText(status),
		Code:  status,
	}
	if status < http.StatusInternalServerError {
		body.Details = err.Error()
	}

	if writeErr := resp.WriteHeaderAndEntity(status, body); writeErr != nil {
		log.Error().Err(writeErr).Int("status", status).Msg("Failed to write error response")
	}
}
