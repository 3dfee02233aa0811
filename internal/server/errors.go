package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	"github.com/smallbiznis/buildingbills/internal/authorization"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	chargedomain "github.com/smallbiznis/buildingbills/internal/charge/domain"
	paymentdomain "github.com/smallbiznis/buildingbills/internal/payment/domain"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	snapshotdomain "github.com/smallbiznis/buildingbills/internal/snapshot/domain"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	"github.com/smallbiznis/buildingbills/pkg/db"
	"github.com/smallbiznis/buildingbills/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Current string            `json:"current_status,omitempty"`
	Action  string            `json:"attempted_action,omitempty"`
	// Failed lists the checklist items that blocked a lock.
	Failed []billingcycledomain.ChecklistItem `json:"failed,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInvalidID      = errors.New("invalid_id")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var transitionErr *billingcycledomain.TransitionError
	if errors.As(err, &transitionErr) {
		return http.StatusConflict, errorPayload{
			Type:    "invalid_transition",
			Message: transitionErr.Error(),
			Current: string(transitionErr.Current),
			Action:  string(transitionErr.Attempted),
		}
	}

	var notReadyErr *billingcycledomain.NotReadyError
	if errors.As(err, &notReadyErr) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "not_ready",
			Message: "billing cycle is not ready to lock",
			Failed:  notReadyErr.Checklist.Failed(),
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, billingcycledomain.ErrConcurrencyConflict),
		db.IsSerializationErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "concurrency_conflict",
			Message: "billing cycle was modified concurrently, retry",
		}
	case errors.Is(err, statementdomain.ErrCycleNotPublished):
		return http.StatusConflict, errorPayload{
			Type:    "cycle_not_published",
			Message: "billing cycle is not published",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, pagination.ErrInvalidPageToken):
		return true
	case errors.Is(err, billingcycledomain.ErrInvalidPeriod),
		errors.Is(err, billingcycledomain.ErrInvalidActor),
		errors.Is(err, billingcycledomain.ErrInvalidStatus):
		return true
	case errors.Is(err, chargedomain.ErrInvalidAmount),
		errors.Is(err, chargedomain.ErrInvalidCategory),
		errors.Is(err, chargedomain.ErrInvalidUnit),
		errors.Is(err, chargedomain.ErrInvalidCells):
		return true
	case errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidUnit),
		errors.Is(err, paymentdomain.ErrInvalidPaidOn),
		errors.Is(err, paymentdomain.ErrInvalidMethod):
		return true
	case errors.Is(err, referencedomain.ErrInvalidUnitCode),
		errors.Is(err, referencedomain.ErrInvalidEmail),
		errors.Is(err, referencedomain.ErrInvalidName),
		errors.Is(err, referencedomain.ErrInvalidKind):
		return true
	case errors.Is(err, statementdomain.ErrInvalidUnit),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidTable),
		errors.Is(err, auditdomain.ErrInvalidActor),
		errors.Is(err, auditdomain.ErrInvalidRecordID):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, billingcycledomain.ErrCycleExists),
		errors.Is(err, referencedomain.ErrUnitExists),
		errors.Is(err, referencedomain.ErrCategoryExists),
		errors.Is(err, snapshotdomain.ErrSnapshotExists):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, billingcycledomain.ErrNotFound),
		errors.Is(err, chargedomain.ErrNotFound),
		errors.Is(err, statementdomain.ErrNotFound),
		errors.Is(err, snapshotdomain.ErrNotFound),
		errors.Is(err, referencedomain.ErrUnitNotFound),
		errors.Is(err, referencedomain.ErrCategoryNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_page_token":
		return "page_token"
	}
	return strings.TrimPrefix(code, "invalid_")
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_period":
		return "period must be formatted as YYYY-MM"
	case "invalid_amount":
		return "amount is out of range or has more than two decimals"
	default:
		return "invalid value"
	}
}
