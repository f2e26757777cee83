package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seminarly/backend/internal/fault"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the structured error payload: a taxonomy kind plus message.
type ErrorBody struct {
	Kind    string                 `json:"kind"`
	Message string                 `json:"message"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	fail(c, http.StatusBadRequest, "bad_request", err, nil)
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	fail(c, http.StatusUnauthorized, "unauthorized", err, nil)
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	fail(c, http.StatusForbidden, "forbidden", err, nil)
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	fail(c, http.StatusNotFound, "not_found", err, nil)
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	fail(c, http.StatusConflict, "conflict", err, nil)
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	fail(c, http.StatusInternalServerError, "internal", err, nil)
}

// statusByKind maps the error taxonomy to HTTP statuses.
var statusByKind = map[fault.Kind]int{
	fault.KindSeminarClosed:     http.StatusBadRequest,
	fault.KindAlreadyRegistered: http.StatusConflict,
	fault.KindSeminarFull:       http.StatusConflict,
	fault.KindNotRegistered:     http.StatusNotFound,
	fault.KindNotFound:          http.StatusNotFound,
	fault.KindAlreadyExists:     http.StatusConflict,
	fault.KindLinkInvalid:       http.StatusBadRequest,
	fault.KindAuthRequired:      http.StatusUnauthorized,
}

// Fault sends a typed error with the status its kind maps to. Untyped errors
// become a generic 500 without leaking internals.
func Fault(c *gin.Context, err error) {
	var fe *fault.Error
	if errors.As(err, &fe) {
		status, mapped := statusByKind[fe.Kind]
		if !mapped {
			status = http.StatusInternalServerError
		}
		fail(c, status, string(fe.Kind), fe.Message, fe.Detail)
		return
	}
	Internal(c, "internal error")
}

func fail(c *gin.Context, status int, kind, message string, detail map[string]interface{}) {
	c.JSON(status, Body{Success: false, Error: &ErrorBody{Kind: kind, Message: message, Detail: detail}})
}
