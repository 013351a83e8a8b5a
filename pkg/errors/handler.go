package errors

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// retryAfterSeconds is advertised for retryable failures that carry no better hint
const retryAfterSeconds = 5

// ErrorResponse represents the API error response format
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable"`
	TxHash    string                 `json:"txHash,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`
}

// ErrorHandler writes errors as JSON responses. In debug mode unknown errors
// and stack traces are exposed to the client.
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle processes an error and sends an HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	requestID := middleware.GetReqID(r.Context())
	appErr := GetAppError(err)
	if appErr == nil {
		h.logger.Error("Unhandled error",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("requestID", requestID),
		)
		appErr = NewInternalError("An internal error occurred")
		if h.debug {
			appErr.Message = err.Error()
		}
	} else {
		h.logError(r, appErr, requestID)
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	response := ErrorResponse{
		Error:     true,
		Type:      string(appErr.Type),
		Message:   appErr.Message,
		Retryable: appErr.Type.Retryable(),
		TxHash:    appErr.TxHash(),
		RequestID: requestID,
	}
	if len(appErr.Details) > 0 || h.debug {
		response.Details = make(map[string]interface{}, len(appErr.Details)+1)
		for k, v := range appErr.Details {
			if k != "txHash" {
				response.Details[k] = v
			}
		}
		if h.debug && appErr.StackTrace != "" {
			response.Details["stackTrace"] = appErr.StackTrace
		}
		if len(response.Details) == 0 {
			response.Details = nil
		}
	}

	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// logError logs server-side failures at Error and caller mistakes at Warn
func (h *ErrorHandler) logError(r *http.Request, err *AppError, requestID string) {
	fields := []zap.Field{
		zap.String("errorType", string(err.Type)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", err.HTTPStatus),
		zap.String("requestID", requestID),
	}
	if err.Cause != nil {
		fields = append(fields, zap.Error(err.Cause))
	}
	if hash := err.TxHash(); hash != "" {
		fields = append(fields, zap.String("txHash", hash))
	}

	if err.HTTPStatus >= http.StatusInternalServerError || err.Type == ErrorTypeTransaction {
		h.logger.Error(err.Message, fields...)
		return
	}
	h.logger.Warn(err.Message, fields...)
}
