// Package response writes the JSON envelope returned to the web front-end.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sool-market/service-reservation/internal/platform/apperr"
)

// ErrorBody is the error part of the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Step    string `json:"step,omitempty"`
}

// PageMeta describes a paginated result.
type PageMeta struct {
	Offset  int  `json:"offset"`
	Count   int  `json:"count"`
	HasNext bool `json:"has_next"`
	Cached  bool `json:"cached,omitempty"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

// NoContent writes a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paged writes a 200 response with page metadata.
func Paged(c *gin.Context, items interface{}, meta PageMeta) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items, "meta": meta})
}

// BadRequest writes a 400 response with a plain message.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   ErrorBody{Code: string(apperr.KindValidation), Message: message},
	})
}

// Error maps err to a status code and writes the error envelope.
func Error(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   ErrorBody{Code: string(apperr.KindInternal), Message: "internal server error"},
		})
		return
	}

	body := ErrorBody{
		Code:    string(appErr.Kind),
		Message: appErr.Message,
		Field:   appErr.Field,
		Step:    appErr.Step,
	}
	c.AbortWithStatusJSON(StatusFor(appErr.Kind), gin.H{"success": false, "error": body})
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidState:
		return http.StatusUnprocessableEntity
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
