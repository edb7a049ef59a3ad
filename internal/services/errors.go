package services

import (
	"errors"
	"net/http"

	"github.com/Lllllllleong/documentintelligence/internal/gcp"
	"github.com/Lllllllleong/documentintelligence/internal/pdftext"
	"github.com/Lllllllleong/documentintelligence/internal/quiz"
	"github.com/Lllllllleong/documentintelligence/internal/rag"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrForbidden      = errors.New("document belongs to another user")
	ErrConflict       = errors.New("already exists")
)

// StatusCode maps a Process error to the HTTP status the function returns.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, rag.ErrEmptyQuestion),
		errors.Is(err, quiz.ErrInvalidCount),
		errors.Is(err, quiz.ErrNothingAnswered),
		errors.Is(err, quiz.ErrInvalidOption),
		errors.Is(err, quiz.ErrUnknownQuestion),
		errors.Is(err, pdftext.ErrPageOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, rag.ErrNoText),
		errors.Is(err, rag.ErrNoContext),
		errors.Is(err, quiz.ErrNoText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, gcp.ErrNotFound), errors.Is(err, gcp.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, quiz.ErrMalformedQuiz):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
