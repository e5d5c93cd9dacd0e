package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"threadloom/internal/model"
	"threadloom/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// msgInternal is the body of every 500 that carries no provider detail.
const msgInternal = "Internal Server Error. Please try again later."

// validate checks request payloads; field names in errors follow the JSON tags.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// statusByCode maps domain error codes to HTTP statuses.
var statusByCode = map[string]int{
	model.ErrCodeInvalidJSON:        http.StatusBadRequest,
	model.ErrCodeValidation:         http.StatusBadRequest,
	model.ErrCodeUnauthorised:       http.StatusUnauthorized,
	model.ErrCodeAddressNotFound:    http.StatusNotFound,
	model.ErrCodeOrderNotFound:      http.StatusNotFound,
	model.ErrCodeOrderItemNotFound:  http.StatusNotFound,
	model.ErrCodeProductNotFound:    http.StatusNotFound,
	model.ErrCodeCategoryNotFound:   http.StatusNotFound,
	model.ErrCodeCouponNotFound:     http.StatusNotFound,
	model.ErrCodeInvalidPayment:     http.StatusBadRequest,
	model.ErrCodeInvalidQuantity:    http.StatusBadRequest,
	model.ErrCodeEmptyOrder:         http.StatusBadRequest,
	model.ErrCodeInvalidOrderStatus: http.StatusBadRequest,
	model.ErrCodeEmailExists:        http.StatusBadRequest,
	model.ErrCodeMobileExists:       http.StatusBadRequest,
	model.ErrCodeUserNotFound:       http.StatusBadRequest,
	model.ErrCodeInvalidCredentials: http.StatusBadRequest,
	model.ErrCodeNotVerified:        http.StatusBadRequest,
	model.ErrCodeBlocked:            http.StatusBadRequest,
	model.ErrCodeInvalidOTPFormat:   http.StatusBadRequest,
	model.ErrCodeInvalidOTP:         http.StatusBadRequest,
	model.ErrCodeCouponExpired:      http.StatusBadRequest,
	model.ErrCodeCouponMinPurchase:  http.StatusBadRequest,
	model.ErrCodeEmptyCart:          http.StatusBadRequest,
	model.ErrCodeInvalidImage:       http.StatusBadRequest,
	model.ErrCodeInvalidOffer:       http.StatusBadRequest,
	model.ErrCodeOTPAttempts:        http.StatusTooManyRequests,
	model.ErrCodePriceMismatch:      http.StatusConflict,
	model.ErrCodeTotalMismatch:      http.StatusConflict,
	model.ErrCodeCouponExists:       http.StatusConflict,
	model.ErrCodeCategoryExists:     http.StatusConflict,
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Success: false, Code: code, Message: message})
}

// writeServiceError maps err to a response. Domain errors keep their own
// message; anything else is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	if de, ok := model.AsDomainError(err); ok {
		status, known := statusByCode[de.Code]
		if !known {
			status = http.StatusBadRequest
		}
		writeError(w, status, de.Code, de.Message, logger)
		return
	}
	logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, msgInternal, logger)
}

// decodeJSON reads a JSON body into dst and validates it when it carries
// validate tags. It writes the error response itself and reports success.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger zerolog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debug().Err(err).Msg("failed to decode request body")
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", logger)
		return false
	}
	return validatePayload(w, dst, logger)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty. It
// reports whether a body was present alongside success.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any, logger zerolog.Logger) (present, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return false, true
		}
		logger.Debug().Err(err).Msg("failed to decode request body")
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", logger)
		return false, false
	}
	return true, validatePayload(w, dst, logger)
}

func validatePayload(w http.ResponseWriter, dst any, logger zerolog.Logger) bool {
	err := validate.Struct(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		logger.Error().Err(err).Msg("unexpected validation error")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, msgInternal, logger)
		return false
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = validationMessage(fe)
	}
	logger.Debug().Interface("details", details).Msg("validation failed")
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
		Success: false,
		Code:    model.ErrCodeValidation,
		Message: "Validation failed",
		Details: details,
	})
	return false
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "numeric", "alphanum", "uuid":
		return fmt.Sprintf("must be %s", fe.Tag())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// pathUUID parses the named chi URL parameter as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// requireUser returns the session user id, answering 401 when there is none.
func requireUser(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (uuid.UUID, bool) {
	userID, ok := session.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "unauthorised: please log in", logger)
		return uuid.Nil, false
	}
	return userID, true
}
