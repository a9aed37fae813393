package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"paperforge/internal/auth"
	"paperforge/internal/document"
	"paperforge/internal/models"
	"paperforge/internal/pipeline"
	"paperforge/internal/storage"
)

var (
	errRouteNotFound = fmt.Errorf("route: %w", storage.ErrNotFound)
	errInvalidJSON   = errors.New("invalid json")
)

// badRequest marks a client validation error whose message is safe to show.
type badRequest struct {
	msg string
}

func (e badRequest) Error() string { return e.msg }

type apiError struct {
	Status  int
	Code    string
	Message string
}

func writeErr(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	c.JSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":       apiErr.Code,
			"message":    apiErr.Message,
			"request_id": c.GetString(ctxRequestID),
		},
	})
}

func toAPIError(err error) apiError {
	var br badRequest
	var ice *pipeline.InsufficientCreditsError
	var gen *pipeline.GenerationError
	switch {
	case err == nil:
		return apiError{Status: http.StatusInternalServerError, Code: "PF-API-5000", Message: "Request failed."}
	case errors.As(err, &br):
		return apiError{Status: http.StatusBadRequest, Code: "PF-API-4001", Message: br.msg}
	case errors.Is(err, errInvalidJSON):
		return apiError{Status: http.StatusBadRequest, Code: "PF-API-4001", Message: "Malformed JSON request body."}
	case errors.Is(err, pipeline.ErrInvalidInput):
		return apiError{Status: http.StatusBadRequest, Code: "PF-API-4001", Message: "Invalid request. Check inputs and retry."}
	case errors.As(err, &ice):
		return apiError{
			Status:  http.StatusPaymentRequired,
			Code:    "PF-API-4020",
			Message: fmt.Sprintf("Insufficient credits: this request needs about %d credits and %d are available.", ice.Required, ice.Available),
		}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apiError{Status: http.StatusUnauthorized, Code: "PF-API-4011", Message: "Invalid email or password."}
	case errors.Is(err, auth.ErrTokenExpired):
		return apiError{Status: http.StatusUnauthorized, Code: "PF-API-4012", Message: "Session expired. Log in again."}
	case errors.Is(err, auth.ErrInvalidToken):
		return apiError{Status: http.StatusUnauthorized, Code: "PF-API-4010", Message: "Missing or invalid bearer token."}
	case errors.Is(err, document.ErrUnsupportedType):
		return apiError{Status: http.StatusUnsupportedMediaType, Code: "PF-API-4150", Message: "Only PDF and plain-text documents are supported."}
	case errors.Is(err, document.ErrNoExtractableText):
		return apiError{Status: http.StatusUnprocessableEntity, Code: "PF-API-4220", Message: "No extractable text found in the document."}
	case errors.Is(err, storage.ErrNotFound):
		return apiError{Status: http.StatusNotFound, Code: "PF-API-4004", Message: "Requested resource was not found."}
	case errors.Is(err, storage.ErrConflict):
		return apiError{Status: http.StatusConflict, Code: "PF-API-4009", Message: "An account with this email already exists."}
	case errors.Is(err, pipeline.ErrProviderUnavailable):
		return apiError{Status: http.StatusServiceUnavailable, Code: "PF-API-5030", Message: "No language model provider is configured. Retry later."}
	case errors.Is(err, pipeline.ErrStoreUnavailable):
		return apiError{Status: http.StatusServiceUnavailable, Code: "PF-DB-5030", Message: "Account store is unavailable. Retry shortly."}
	case errors.As(err, &gen):
		msg := fmt.Sprintf("Generation failed at the %s stage. Retry shortly.", kindLabel(gen.Kind))
		if gen.Charged > 0 {
			msg = fmt.Sprintf("Generation failed at the %s stage. %d credits were charged for the completed summary.", kindLabel(gen.Kind), gen.Charged)
		}
		return apiError{Status: http.StatusInternalServerError, Code: "PF-API-5001", Message: msg}
	}

	raw := strings.ToLower(err.Error())
	switch {
	case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
		return apiError{Status: http.StatusInternalServerError, Code: "PF-DB-5001", Message: "Database schema is not initialized. Run migrations and retry."}
	case strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
		return apiError{Status: http.StatusServiceUnavailable, Code: "PF-DB-5002", Message: "Database connection is unavailable. Retry shortly."}
	}
	return apiError{Status: http.StatusInternalServerError, Code: "PF-API-5000", Message: "Internal server error. Please retry or check service logs."}
}

// kindLabel is used in user-facing messages.
func kindLabel(k models.Kind) string {
	if k == models.KindCode {
		return "code generation"
	}
	return string(k)
}
