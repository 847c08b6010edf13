// Package handlers is the HTTP layer: parse, call a service, map
// domain errors to status codes.
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/incridea/fest-backend/internal/apperror"
)

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	var ae *apperror.AppError
	if errors.As(err, &ae) {
		msg = ae.Message
		switch {
		case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrInvalidSignature):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		case errors.Is(err, apperror.ErrExternal):
			status = http.StatusBadGateway
		}
	}
	if status == http.StatusInternalServerError {
		log.Printf("❌ unhandled error: %v", err)
	}
	c.JSON(status, gin.H{"error": msg})
}
