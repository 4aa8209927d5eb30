// Package handlers implements the HTTP handlers of the matching API.
package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/reagent-match/internal/interfaces/http/middleware"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeAppError maps err onto its HTTP status. Server-side failures are
// masked so that internal details do not leak.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	_ = c.Error(err)

	resp := ErrorResponse{
		Code:      string(code),
		Message:   err.Error(),
		RequestID: middleware.GetRequestID(c),
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Detail = appErr.Detail
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		resp.Code = string(errors.ErrCodeInternal)
		resp.Message = errors.DefaultMessageForCode(errors.ErrCodeInternal)
		resp.Detail = ""
	}
	c.AbortWithStatusJSON(status, resp)
}

func writeBadRequest(c *gin.Context, message string, err error) {
	e := errors.New(errors.ErrCodeBadRequest, message)
	if err != nil {
		e = e.WithDetail(err.Error())
	}
	writeAppError(c, e)
}

var errSnapshotNotLoaded = errors.New(errors.ErrCodeSnapshotNotLoaded, "catalog snapshot not loaded")
