package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/bnema/zalo-accounts/internal/adapters/campaign"
	"github.com/bnema/zalo-accounts/internal/application"
	"github.com/bnema/zalo-accounts/internal/domain"
)

type apiResponse struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorInfo `json:"error,omitempty"`
}

type errorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, apiResponse{Success: true, Data: data})
}

func writeMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, apiResponse{Error: &errorInfo{Type: errorType(status), Message: message}})
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := statusFor(err)
	info := &errorInfo{Type: errorType(status), Message: err.Error()}

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		info.Code = upstream.Code
	}
	if status == http.StatusInternalServerError {
		info.Message = "internal server error"
	}

	c.AbortWithStatusJSON(status, apiResponse{Error: info})
}

func statusFor(err error) int {
	var (
		validationErrs validator.ValidationErrors
		upstream       *domain.UpstreamError
	)

	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.As(err, &validationErrs),
		errors.Is(err, domain.ErrInvalidIdentifier),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrNoValidMembers),
		errors.Is(err, application.ErrNoTargets),
		errors.Is(err, campaign.ErrNoTargets):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMalformedResponse), errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusBadGateway:
		return "upstream_error"
	default:
		return "internal_error"
	}
}
