package response

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	customError "github.com/segyhp/library-lending/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ErrorResponse struct {
	Success   bool      `json:"success"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	body := Response{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	write(w, statusCode, body)
}

// Success sends a successful JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created sends a created JSON response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	body := ErrorResponse{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		body.Error = err.Error()
	}
	write(w, statusCode, body)
}

// BusinessError maps err to its status code and stable error code. Internal
// failures are reported without their details.
func BusinessError(w http.ResponseWriter, err error) {
	status := customError.HTTPStatus(err)
	body := ErrorResponse{
		Success:   false,
		Timestamp: time.Now().UTC(),
	}

	if customError.IsInternal(err) {
		body.Code = "INTERNAL_ERROR"
		body.Error = "internal error"
		body.Message = "The request could not be completed"
		write(w, http.StatusInternalServerError, body)
		return
	}

	var be *customError.BusinessError
	if errors.As(err, &be) {
		body.Code = be.Code
		body.Message = be.Message
		body.Error = be.Err.Error()
	}
	write(w, status, body)
}

// BadRequest sends a 400 bad request response
func BadRequest(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusBadRequest, message, err)
}

// NotFound sends a 404 not found response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message, nil)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusInternalServerError, message, err)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 forbidden response
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, message, nil)
}

func write(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}
