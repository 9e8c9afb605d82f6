// Package handlers implements the HTTP endpoints of the serving API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/floodguard/serving/pkg/errors"
)

// respondError maps any error onto its wire representation. AppErrors carry
// their own status; everything else is a 500 without leaked detail.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if appErr, ok := apperrors.AsAppError(err); ok {
		status = appErr.HTTPStatus()
	}
	c.JSON(status, apperrors.ToErrorResponse(err))
}

// respondBadRequest reports a validation failure before the domain is
// reached.
func respondBadRequest(c *gin.Context, message string) {
	respondError(c, apperrors.ErrInvalidRequest(message))
}
