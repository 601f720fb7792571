package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/dukerupert/boutique/internal/middleware"
	"github.com/dukerupert/boutique/internal/telemetry"
)

// errorBody is the JSON error envelope returned by every endpoint.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Kind       string            `json:"kind,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Violations []violationBody   `json:"violations,omitempty"`
}

type violationBody struct {
	Kind       string   `json:"kind"`
	Message    string   `json:"message"`
	ProductIDs []string `json:"product_ids,omitempty"`
	ProductID  string   `json:"product_id,omitempty"`
	Requested  int      `json:"requested,omitempty"`
	Available  *int     `json:"available,omitempty"`
}

// ErrorResponse writes err as JSON or plain text depending on what the
// client accepts. Internal details never reach the client; 5xx errors are
// logged at error level and reported to Sentry.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsValidationError(err) {
		ValidationErrorResponse(w, r, err)
		return
	}

	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	status := ErrorCodeToHTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err,
		"code", code,
		"status", status,
	}
	if op := domain.ErrorOp(err); op != "" {
		attrs = append(attrs, "op", op)
	}

	if status >= 500 {
		logger.Error("request failed", attrs...)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
			"code":       code,
			"request_id": middleware.GetRequestID(r.Context()),
		})
	} else {
		logger.Info("request rejected", attrs...)
	}

	if !acceptsJSON(r) {
		http.Error(w, message, status)
		return
	}

	detail := errorDetail{Code: code, Message: message}

	var ce *domain.CheckoutError
	if errors.As(err, &ce) {
		detail.Kind = string(ce.Kind)
	}
	for _, v := range domain.CheckoutViolations(err) {
		detail.Violations = append(detail.Violations, newViolationBody(v))
	}

	writeJSON(w, status, errorBody{Error: detail})
}

func newViolationBody(v domain.Violation) violationBody {
	body := violationBody{
		Kind:       string(v.Kind),
		Message:    v.Message(),
		ProductIDs: v.ProductIDs,
		ProductID:  v.ProductID,
		Requested:  v.Requested,
	}
	if v.Kind == domain.ViolationInsufficientStock {
		available := v.Available
		body.Available = &available
	}
	return body
}

// ValidationErrorResponse writes field-level validation failures. Any other
// error falls back to ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsValidationError(err) {
		ErrorResponse(w, r, err)
		return
	}

	fields := domain.GetValidationFields(err)
	middleware.GetLogger(r.Context()).Info("validation failed", "fields", fields)

	if !acceptsJSON(r) {
		parts := make([]string, 0, len(fields))
		for field, msg := range fields {
			parts = append(parts, field+": "+msg)
		}
		http.Error(w, strings.Join(parts, "\n"), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
		Code:    domain.EINVALID,
		Message: "Validation failed",
		Fields:  fields,
	}})
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized // 401
	case domain.EPAYMENT:
		return http.StatusPaymentRequired // 402
	case domain.EFORBIDDEN:
		return http.StatusForbidden // 403
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT:
		return http.StatusConflict // 409
	case domain.EGONE:
		return http.StatusGone // 410
	case domain.EUNSUPPORTED:
		return http.StatusUnsupportedMediaType // 415
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests // 429
	case domain.EINTERNAL:
		return http.StatusInternalServerError // 500
	case domain.ENOTIMPL:
		return http.StatusNotImplemented // 501
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// acceptsJSON checks if the client prefers JSON responses.
func acceptsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasSuffix(r.URL.Path, ".json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
