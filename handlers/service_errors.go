package handlers

import (
	"net/http"

	"github.com/upb/order-protection/services"
	"github.com/upb/order-protection/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	if len(details) == 0 {
		details = nil
	}

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, message(err), details)

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, message(err), details)

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, message(err))

	case services.IsUnavailableError(err):
		writeErr = utils.WriteServiceUnavailable(w, message(err))

	case services.IsExternalError(err):
		// The storefront failed; the shopper's cart may or may not have changed.
		logger.Warn("storefront error", zap.Error(err), zap.Any("details", details))
		writeErr = utils.WriteBadGateway(w, message(err), details)

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

// message returns the client-facing message of a domain error without the
// wrapped cause, which may carry storefront response bodies.
func message(err error) string {
	if msg := services.GetErrorMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}
